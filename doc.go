// Package boxline is a step-completion and multi-machine workflow engine for
// corrugated-box production. A job moves through a fixed pipeline of eight
// production steps (PaperStore through Dispatch); each step may be worked
// concurrently by several physical machines.
//
// Boxline is designed as a library, not a service. Import it, configure a
// store, and drive the engine from your own HTTP or messaging layer.
//
// # Quick Start
//
//	t, err := boxline.New(
//	    boxline.WithStore(memory.New()),
//	    boxline.WithAuthorizer(auth.AllowAll()),
//	)
//	eng, err := engine.Build(t)
//	res, err := eng.SubmitWork(ctx, engine.SubmitCommand{...})
//
// # Architecture
//
// Boxline follows a composable store pattern where each subsystem (job, plan,
// machine, detail, archive, reconcile) defines its own store interface.
// A single backend implements all of them.
//
// The engine decides when a step is "done" using two independent acceptance
// rules: quantity closure against the expected output of the previous stage,
// and explicit closure once every assigned machine has been stopped. A
// job-wide production freeze ("major hold") captures each entity's own prior
// status and restores it exactly on resume.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package boxline
