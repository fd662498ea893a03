// Package executor drives task execution over a loaded Binary Task Graph.
//
// The Executor itself is a synchronous state machine: it tracks one
// completion bit per task, recomputes the ready set on demand, and runs a
// single task at a time through an injected CommandRunner. It never spawns
// processes or goroutines itself.
//
// Coordinator layers a worker pool on top: it dispatches the ready set to
// workers and commits completions, which is the intended concurrent
// deployment. Concurrent Execute calls on the same task index are prevented
// by the Coordinator's in-flight bookkeeping, not by the Executor.
package executor
