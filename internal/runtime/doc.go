// Package runtime resolves node values by walking a graph upstream.
package runtime
