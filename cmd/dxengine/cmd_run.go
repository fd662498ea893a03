package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dxengine/internal/btg"
	"dxengine/internal/cache"
	"dxengine/internal/config"
	"dxengine/internal/dxc"
	"dxengine/internal/executor"
	"dxengine/internal/shell"
)

// newOutputEntry captures a task's streams as a cache entry. Output file
// harvesting belongs to the file-system collaborator; the CLI caches the
// streams it owns.
func newOutputEntry(key [32]byte, out *executor.TaskOutput) *dxc.Entry {
	entry := dxc.NewEntry(key)
	entry.AddFile("stdout", out.Stdout, 0o644)
	entry.AddFile("stderr", out.Stderr, 0o644)
	return entry
}

var runCmd = &cobra.Command{
	Use:   "run <graph.btg>",
	Short: "Execute a task graph with cache-aware scheduling",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

// cacheProber skips cacheable tasks whose keyed entry is already stored.
type cacheProber struct {
	mgr *cache.Manager
}

func (p *cacheProber) Probe(ctx context.Context, task btg.Task) (bool, error) {
	key := cache.TaskKey(task.DefinitionHash, task.Command)
	return p.mgr.Has(key) && p.mgr.Get(key) != nil, nil
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	mgr := cache.New(cfg.CacheDir, cfg.CacheMaxSize, cache.WithLogger(logger))
	if cfg.ZeroDisk {
		mgr.EnableZeroDisk()
	}

	exec := executor.New(&shell.Runner{}, executor.WithLogger(logger))
	if err := exec.Load(args[0]); err != nil {
		return err
	}

	coord, err := executor.NewCoordinator(exec, cfg.Workers,
		executor.WithProber(&cacheProber{mgr: mgr}),
		executor.WithCoordinatorLogger(logger))
	if err != nil {
		return err
	}

	result, err := coord.Run(cmd.Context())
	if err != nil {
		return err
	}

	// Write fresh successful outputs back into the cache.
	for idx, out := range result.Outputs {
		task, ok := exec.Task(idx)
		if !ok || !task.Cacheable || out.ExitCode != 0 {
			continue
		}
		key := cache.TaskKey(task.DefinitionHash, task.Command)
		entry := newOutputEntry(key, out)
		if err := mgr.Put(key, entry); err != nil {
			logger.Warn("caching task output", zap.Uint32("task", idx), zap.Error(err))
		}
	}

	fmt.Printf("tasks: %d total, %d executed, %d from cache, %d failed\n",
		exec.TaskCount(), len(result.Outputs), len(result.CacheHits), len(result.Failed))
	for _, idx := range result.Failed {
		task, _ := exec.Task(idx)
		out := result.Outputs[idx]
		fmt.Printf("FAILED %s (exit %d)\n%s", task.Name, out.ExitCode, out.Stderr)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d task(s) failed", len(result.Failed))
	}
	return nil
}
