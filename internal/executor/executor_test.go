package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"

	"dxengine/internal/btg"
)

// fakeRunner captures invoked commands and returns scripted exit codes.
type fakeRunner struct {
	commands []string
	exitFor  map[string]int
	failWith error
}

func (r *fakeRunner) Run(ctx context.Context, command string) (int, []byte, []byte, error) {
	if r.failWith != nil {
		return 0, nil, nil, r.failWith
	}
	r.commands = append(r.commands, command)
	code := r.exitFor[command]
	return code, []byte("out:" + command), []byte("err:" + command), nil
}

// testGraphBytes builds the reference scenario: build:0 and build:1 have no
// dependencies, test:0 depends on build:0.
func testGraphBytes() []byte {
	tasks := []btg.Task{
		{Name: "build", PackageIdx: 0, Command: "build-0", DefinitionHash: [8]byte{1}, Cacheable: true},
		{Name: "build", PackageIdx: 1, Command: "build-1", DefinitionHash: [8]byte{2}, Cacheable: true},
		{Name: "test", PackageIdx: 0, Command: "test-0", DefinitionHash: [8]byte{3}, FrameBudgetUS: 16000},
	}
	return btg.Encode(tasks, []btg.Edge{{From: 0, To: 2}})
}

func loadedExecutor(t *testing.T, runner CommandRunner) *Executor {
	t.Helper()
	e := New(runner)
	if err := e.LoadBytes(testGraphBytes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestExecutor_LoadMissingFile(t *testing.T) {
	e := New(&fakeRunner{})
	err := e.Load(filepath.Join(t.TempDir(), "absent.btg"))
	if !errors.Is(err, ErrGraphNotFound) {
		t.Fatalf("got %v, want ErrGraphNotFound", err)
	}
}

func TestExecutor_LoadCorrupted(t *testing.T) {
	e := New(&fakeRunner{})
	if err := e.LoadBytes([]byte("short")); !errors.Is(err, btg.ErrCorrupted) {
		t.Fatalf("got %v, want btg.ErrCorrupted", err)
	}
}

func TestExecutor_TaskByName(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{})

	idx, ok := e.TaskByName(0, "test")
	if !ok || idx != 2 {
		t.Fatalf("TaskByName(0, test) = (%d, %v), want (2, true)", idx, ok)
	}
	if _, ok := e.TaskByName(0, "nonexistent"); ok {
		t.Fatal("lookup of unknown task succeeded")
	}
}

func TestExecutor_ReadySetScenario(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{})

	if diff := cmp.Diff([]uint32{0, 1}, e.ReadySet()); diff != "" {
		t.Fatalf("initial ready set mismatch (-want +got):\n%s", diff)
	}

	e.MarkCompleted(0)
	if diff := cmp.Diff([]uint32{1, 2}, e.ReadySet()); diff != "" {
		t.Fatalf("ready set after completing 0 mismatch (-want +got):\n%s", diff)
	}
}

func TestExecutor_CompletedTaskNeverReady(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{})

	for idx := uint32(0); idx < uint32(e.TaskCount()); idx++ {
		e.MarkCompleted(idx)
		for _, r := range e.ReadySet() {
			if r == idx {
				t.Fatalf("task %d still in ready set after completion", idx)
			}
		}
	}
}

func TestExecutor_ExecuteUnmetDependency(t *testing.T) {
	runner := &fakeRunner{}
	e := loadedExecutor(t, runner)

	_, err := e.Execute(context.Background(), 2)
	var depErr *DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("got %v, want DependencyError", err)
	}
	if depErr.From != 0 {
		t.Fatalf("DependencyError.From = %d, want 0", depErr.From)
	}
	if e.IsCompleted(2) {
		t.Fatal("failed execute marked task completed")
	}
	if len(runner.commands) != 0 {
		t.Fatalf("task partially ran: %v", runner.commands)
	}
}

func TestExecutor_ExecuteAfterDependency(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{})

	if _, err := e.Execute(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := e.Execute(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", out.ExitCode)
	}
	if string(out.Stdout) != "out:test-0" || string(out.Stderr) != "err:test-0" {
		t.Fatalf("captured streams mismatch: %q / %q", out.Stdout, out.Stderr)
	}
	if !e.IsCompleted(2) {
		t.Fatal("executed task not marked completed")
	}
}

func TestExecutor_NonZeroExitStillCompletes(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{exitFor: map[string]int{"build-0": 3}})

	out, err := e.Execute(context.Background(), 0)
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
	if out.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", out.ExitCode)
	}
	if !e.IsCompleted(0) {
		t.Fatal("task with non-zero exit not marked completed")
	}
}

func TestExecutor_InfrastructureFailure(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{failWith: fmt.Errorf("spawn failed")})

	_, err := e.Execute(context.Background(), 0)
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("got %v, want ExecutionError", err)
	}
	if e.IsCompleted(0) {
		t.Fatal("task marked completed after infrastructure failure")
	}
}

func TestExecutor_TerminationByReadySetLoop(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{})

	steps := 0
	for {
		ready := e.ReadySet()
		if len(ready) == 0 {
			break
		}
		if _, err := e.Execute(context.Background(), ready[0]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if steps++; steps > e.TaskCount() {
			t.Fatal("ready/execute loop did not terminate")
		}
	}
	if e.CompletedCount() != e.TaskCount() {
		t.Fatalf("completed %d of %d tasks", e.CompletedCount(), e.TaskCount())
	}
}

func TestExecutor_Reset(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{})

	e.MarkCompleted(0)
	e.MarkCompleted(1)
	e.Reset()

	if e.CompletedCount() != 0 {
		t.Fatalf("completed count after reset = %d, want 0", e.CompletedCount())
	}
	if diff := cmp.Diff([]uint32{0, 1}, e.ReadySet()); diff != "" {
		t.Fatalf("ready set after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestExecutor_FrameBudget(t *testing.T) {
	e := loadedExecutor(t, &fakeRunner{})

	inst := NewInstance(2) // 16 ms budget
	inst.Start(0)

	if e.ShouldYield(inst, 10_000_000) {
		t.Fatal("should not yield at 10 ms")
	}
	if !e.ShouldYield(inst, 20_000_000) {
		t.Fatal("should yield at 20 ms")
	}

	unbounded := NewInstance(0)
	unbounded.Start(0)
	if e.ShouldYield(unbounded, 1 << 62) {
		t.Fatal("zero budget must never yield")
	}
}

func TestTaskInstance_StackSized(t *testing.T) {
	inst := NewInstance(5)
	if inst.State != InstancePending {
		t.Fatalf("new instance state = %v, want pending", inst.State)
	}
	if size := unsafe.Sizeof(inst); size > 96 {
		t.Fatalf("TaskInstance is %d bytes, want at most 96", size)
	}
}
