// Package sqlite contains the SQLite repository implementations for anchor
// domain types.
//
// All database read/write operations for saved anchor records and the
// placement audit log belong here rather than in the engine package. This
// keeps placement logic free of SQL noise and makes it easier to swap the
// storage backend for a remote store.
//
// The transform wire layout (16 floats, column-major) is owned by the
// storage collaborator; the engine's row-major Transform is converted only
// at this boundary.
package sqlite
