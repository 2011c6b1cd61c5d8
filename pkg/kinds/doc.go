// Package kinds provides the builtin node kinds.
//
// Arithmetic kinds treat an Empty input as 0, so a partially wired graph still
// evaluates. Divide is the exception: it validates its inputs with a strict
// numeric schema and reports division by zero.
package kinds
