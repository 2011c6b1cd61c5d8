/*
Package session manages named, in-memory graph workspaces.

Each session owns one weft.Editor. Editors are not safe for concurrent use, so
adapters serving several clients (HTTP, MCP) reach them through Manager.Do,
which serializes every operation on a session with a reference-counted lock.
Sessions live for the lifetime of the process; nothing is persisted.
*/
package session
