// Package backend provides the storage backends behind the backends.Backend
// interface.
//
// Available backends:
//   - [Local] operates on the local filesystem with allowed-directory
//     confinement and optional shell execution.
//   - [Memory] keeps everything in an in-memory filesystem (useful for
//     tests and hermetic agents).
//   - [Docker] runs file operations and commands inside a container, with
//     [Pool] managing reusable container sessions.
//
// Every backend can be constructed with a permission ruleset; operations
// are then checked through the synchronous decision path before any I/O,
// and a non-allow decision surfaces as an operation-specific error result,
// never as a panic.
package backend
