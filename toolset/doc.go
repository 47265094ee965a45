// Package toolset binds backends to agent-callable tools.
//
// A Toolset wraps a backend and exposes Read, Write, Edit, Bash, Glob,
// Grep and Ls as tools with generated input schemas. Each tool consults
// an optional permission checker before touching the backend, so an
// interactive approval callback (see ConsoleAsk) can gate individual
// calls with a human-readable description of what is about to happen.
package toolset
