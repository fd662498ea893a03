package executor

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dxengine/internal/btg"
)

// Prober decides whether a cacheable task can be skipped. A hit means the
// task's outputs were already restored and the task must not run.
//
// Cache misses and unparsable cache records never surface as errors from the
// cache layer; a Prober error therefore indicates real infrastructure
// trouble and aborts the run.
type Prober interface {
	Probe(ctx context.Context, task btg.Task) (hit bool, err error)
}

// Result summarizes one coordinator run.
type Result struct {
	// Outputs holds the captured output of every executed task.
	Outputs map[uint32]*TaskOutput

	// CacheHits lists tasks satisfied from cache, in completion order.
	CacheHits []uint32

	// Failed lists executed tasks that exited non-zero, sorted ascending.
	// Their completion bits are set regardless; halting dependents is the
	// caller's policy.
	Failed []uint32
}

// Coordinator dispatches the executor's ready set to a bounded worker pool.
//
// All scheduling decisions happen on the coordinator goroutine: it alone
// reads the ready set and tracks dispatched tasks, so no task index is ever
// executed twice concurrently. Workers only call Execute and report back.
type Coordinator struct {
	exec    *Executor
	workers int
	prober  Prober
	log     *zap.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithProber attaches a cache probe consulted before each cacheable task runs.
func WithProber(p Prober) CoordinatorOption {
	return func(c *Coordinator) { c.prober = p }
}

// WithCoordinatorLogger attaches a structured logger.
func WithCoordinatorLogger(log *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.log = log }
}

// NewCoordinator creates a coordinator over a loaded executor.
func NewCoordinator(exec *Executor, workers int, opts ...CoordinatorOption) (*Coordinator, error) {
	if exec == nil {
		return nil, fmt.Errorf("nil executor")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0, got %d", workers)
	}
	c := &Coordinator{exec: exec, workers: workers, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type completion struct {
	idx uint32
	out *TaskOutput
	err error
}

// Run executes the whole graph and blocks until every task has completed or
// an infrastructure error aborts the run.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	if c.exec.Graph() == nil {
		return nil, ErrNoGraph
	}

	total := c.exec.TaskCount()
	res := &Result{Outputs: make(map[uint32]*TaskOutput, total)}

	// Buffers sized to the task count so neither side can block the other:
	// the coordinator never stalls on dispatch and workers never stall on
	// reporting.
	workCh := make(chan uint32, total)
	doneCh := make(chan completion, total)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for idx := range workCh {
				out, err := c.exec.Execute(ctx, idx)
				doneCh <- completion{idx: idx, out: out, err: err}
			}
			return nil
		})
	}

	dispatched := make(map[uint32]bool, total)
	inFlight := 0
	var runErr error

	for runErr == nil && c.exec.CompletedCount() < total {
		progressed := false
		for _, idx := range c.exec.ReadySet() {
			if dispatched[idx] {
				continue
			}
			task, _ := c.exec.Task(idx)

			if c.prober != nil && task.Cacheable {
				hit, err := c.prober.Probe(ctx, task)
				if err != nil {
					runErr = fmt.Errorf("probing cache for task %d: %w", idx, err)
					break
				}
				if hit {
					dispatched[idx] = true
					c.exec.MarkCompleted(idx)
					res.CacheHits = append(res.CacheHits, idx)
					c.log.Debug("cache hit", zap.Uint32("task", idx), zap.String("name", task.Name))
					progressed = true
					continue
				}
			}

			dispatched[idx] = true
			inFlight++
			workCh <- idx
			progressed = true
		}
		if runErr != nil {
			break
		}
		if progressed && inFlight == 0 {
			// Every ready task hit the cache; recompute before waiting.
			continue
		}
		if inFlight == 0 {
			runErr = fmt.Errorf("no ready tasks but %d of %d completed", c.exec.CompletedCount(), total)
			break
		}

		select {
		case <-ctx.Done():
			runErr = fmt.Errorf("execution cancelled: %w", ctx.Err())
		case done := <-doneCh:
			inFlight--
			if done.err != nil {
				runErr = fmt.Errorf("executing task %d: %w", done.idx, done.err)
				break
			}
			res.Outputs[done.idx] = done.out
			if done.out.ExitCode != 0 {
				res.Failed = append(res.Failed, done.idx)
			}
		}
	}

	close(workCh)
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return nil, runErr
	}

	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i] < res.Failed[j] })
	return res, nil
}
