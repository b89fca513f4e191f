// Package registry stores session records, keyed by name.
//
// The registry is shared by every realm process on the host (a direct
// command and the session browser may run at the same time), so every
// backend takes a cross-process lock for each operation and releases it
// before returning. Callers must never hold a registry operation open across
// a slow external call such as a clone or a container create.
//
// Two backends are available:
//
//   - BoltRegistry (default): a bbolt file. bbolt's file lock gives exclusive
//     access for writes and shared access for read-only opens, and commits
//     are atomic.
//   - FileRegistry: a single JSON document guarded by flock on a sidecar
//     lock file and replaced with write-to-temp-then-rename.
//
// Both implement read-modify-write under one lock through Update, and
// create-only inserts through Put with PutOptions.CreateOnly.
package registry
