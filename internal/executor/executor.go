package executor

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"dxengine/internal/btg"
)

// CommandRunner invokes one task command and captures its outcome.
//
// It is an external collaborator: the engine defines what must run and
// whether it may be skipped, never how a subprocess is spawned. A non-zero
// exit code is reported through exitCode; err is reserved for infrastructure
// failures (the command could not be invoked at all).
type CommandRunner interface {
	Run(ctx context.Context, command string) (exitCode int, stdout, stderr []byte, err error)
}

// TaskOutput is the captured outcome of one Execute call.
//
// A non-zero ExitCode is not fatal to the engine; it is the caller's policy
// whether to halt dependents.
type TaskOutput struct {
	TaskIdx    uint32
	ExitCode   int
	Stdout     []byte
	Stderr     []byte
	DurationUS uint64
}

type taskKey struct {
	pkg  uint32
	name string
}

// Executor loads a Binary Task Graph and drives per-task execution.
//
// Completion state is one bit per task, owned by this executor for the
// lifetime of one graph load and mutated only through Execute, MarkCompleted
// and Reset. The bit tracks "done", not "succeeded": COMPLETED and FAILED
// are both terminal for scheduling purposes.
type Executor struct {
	graph     *btg.Graph
	byName    map[taskKey]uint32
	completed *bitset
	runner    CommandRunner
	log       *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// New creates an executor with no graph loaded.
func New(runner CommandRunner, opts ...Option) *Executor {
	e := &Executor{runner: runner, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads and validates a BTG file.
func (e *Executor) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrGraphNotFound, path)
		}
		return fmt.Errorf("reading task graph %s: %w", path, err)
	}
	return e.LoadBytes(data)
}

// LoadBytes validates a BTG buffer and resets all completion state.
func (e *Executor) LoadBytes(data []byte) error {
	g, err := btg.Decode(data)
	if err != nil {
		return err
	}

	byName := make(map[taskKey]uint32, g.Len())
	for idx, t := range g.Tasks() {
		byName[taskKey{pkg: t.PackageIdx, name: t.Name}] = uint32(idx)
	}

	e.graph = g
	e.byName = byName
	e.completed = newBitset(g.Len())

	e.log.Debug("task graph loaded",
		zap.Int("tasks", g.Len()),
		zap.Int("edges", len(g.Edges())))
	return nil
}

// Graph returns the loaded graph, or nil before Load.
func (e *Executor) Graph() *btg.Graph { return e.graph }

// TaskCount returns the number of tasks in the loaded graph.
func (e *Executor) TaskCount() int {
	if e.graph == nil {
		return 0
	}
	return e.graph.Len()
}

// Task returns the task at idx.
func (e *Executor) Task(idx uint32) (btg.Task, bool) {
	if e.graph == nil {
		return btg.Task{}, false
	}
	return e.graph.Task(idx)
}

// TaskByName resolves a task index from its owning package index and name.
func (e *Executor) TaskByName(pkgIdx uint32, name string) (uint32, bool) {
	idx, ok := e.byName[taskKey{pkg: pkgIdx, name: name}]
	return idx, ok
}

// ReadySet returns the indices of tasks whose dependencies are all completed
// and which are not themselves completed.
//
// The set is recomputed from the completion bitset on every call rather than
// maintained incrementally, so it is always consistent with the current
// state. Graphs are small relative to call frequency.
func (e *Executor) ReadySet() []uint32 {
	if e.graph == nil {
		return nil
	}

	ready := make([]uint32, 0)
	for idx := 0; idx < e.graph.Len(); idx++ {
		i := uint32(idx)
		if e.completed.get(i) {
			continue
		}
		depsOK := true
		for _, from := range e.graph.Dependencies(i) {
			if !e.completed.get(from) {
				depsOK = false
				break
			}
		}
		if depsOK {
			ready = append(ready, i)
		}
	}
	return ready
}

// Execute runs the task at idx through the command runner.
//
// Dependencies are re-validated even if the caller used ReadySet; an unmet
// dependency fails with DependencyError and leaves the completion bit
// untouched. On any captured exit code the task is marked completed and the
// exit code is surfaced in TaskOutput.
func (e *Executor) Execute(ctx context.Context, idx uint32) (*TaskOutput, error) {
	if e.graph == nil {
		return nil, ErrNoGraph
	}
	task, ok := e.graph.Task(idx)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrTaskNotFound, idx)
	}

	for _, from := range e.graph.Dependencies(idx) {
		if !e.completed.get(from) {
			return nil, &DependencyError{From: from, Reason: "dependency not completed"}
		}
	}

	start := time.Now()
	exitCode, stdout, stderr, err := e.runner.Run(ctx, task.Command)
	if err != nil {
		return nil, &ExecutionError{ExitCode: -1, Stderr: err.Error()}
	}

	e.completed.set(idx)

	out := &TaskOutput{
		TaskIdx:    idx,
		ExitCode:   exitCode,
		Stdout:     stdout,
		Stderr:     stderr,
		DurationUS: uint64(time.Since(start).Microseconds()),
	}
	e.log.Debug("task executed",
		zap.Uint32("task", idx),
		zap.String("name", task.Name),
		zap.Int("exit_code", exitCode),
		zap.Uint64("duration_us", out.DurationUS))
	return out, nil
}

// ShouldYield reports whether a running instance has exhausted its task's
// frame budget as of nowNS. A zero budget never yields.
func (e *Executor) ShouldYield(inst TaskInstance, nowNS uint64) bool {
	task, ok := e.Task(inst.TaskIdx)
	if !ok || task.FrameBudgetUS == 0 {
		return false
	}
	return inst.ElapsedUS(nowNS) >= uint64(task.FrameBudgetUS)
}

// MarkCompleted sets the completion bit for idx without executing it. Used by
// callers that satisfied the task from cache.
func (e *Executor) MarkCompleted(idx uint32) {
	if e.completed != nil {
		e.completed.set(idx)
	}
}

// IsCompleted reports whether the completion bit for idx is set.
func (e *Executor) IsCompleted(idx uint32) bool {
	return e.completed != nil && e.completed.get(idx)
}

// CompletedCount returns the number of completed tasks.
func (e *Executor) CompletedCount() int {
	if e.completed == nil {
		return 0
	}
	return e.completed.count()
}

// Reset clears all completion bits without reloading the graph, so the same
// graph can be re-run across file-change triggers in watch mode.
func (e *Executor) Reset() {
	if e.completed != nil {
		e.completed.reset()
	}
}
