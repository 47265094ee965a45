// Package backends provides interchangeable file-operation and
// command-execution backends for AI coding agents, gated by a
// pattern-matching permission engine.
//
// A [Backend] exposes the seven controlled operations (read, write, edit,
// execute, glob, grep, ls) over some storage: the local filesystem, an
// in-memory filesystem, or a container. Backends are thin I/O glue; the
// interesting part is the permission subpackage, which classifies every
// operation into allow/deny/ask before the backend touches anything. The
// engine is advisory middleware, not a security boundary: it decides, the
// backend enforces.
//
// # Quick Start
//
//	b, err := backend.NewLocal(
//	    backend.WithRootDir("/workspace"),
//	    backend.WithPermissions(permission.DefaultRuleset()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	res := b.Write("src/app.py", "print('hello')")
//	if res.Error != "" {
//	    fmt.Println("blocked:", res.Error)
//	}
//
// # Sub-packages
//
//   - permission provides the rule model, glob matcher, and checker.
//   - backend provides Local, Memory, and Docker backends.
//   - toolset binds a Backend to agent-facing tool definitions with
//     interactive approval support.
package backends
