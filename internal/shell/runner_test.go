package shell

import (
	"context"
	"strings"
	"testing"
)

func TestRunner_CapturesStdout(t *testing.T) {
	r := &Runner{}
	code, stdout, _, err := r.Run(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if got := strings.TrimSpace(string(stdout)); got != "hello" {
		t.Fatalf("stdout = %q, want hello", got)
	}
}

func TestRunner_NonZeroExitIsNotAnError(t *testing.T) {
	r := &Runner{}
	code, _, stderr, err := r.Run(context.Background(), "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("exit code must travel in-band, got error %v", err)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	if got := strings.TrimSpace(string(stderr)); got != "oops" {
		t.Fatalf("stderr = %q, want oops", got)
	}
}

func TestRunner_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{Dir: dir}
	_, stdout, _, err := r.Run(context.Background(), "pwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(string(stdout)); !strings.HasSuffix(got, dir) && got != dir {
		t.Fatalf("pwd = %q, want %q", got, dir)
	}
}

func TestRunner_MissingShellIsAnError(t *testing.T) {
	r := &Runner{Shell: "definitely-not-a-shell"}
	code, _, _, err := r.Run(context.Background(), "echo hi")
	if err == nil {
		t.Fatal("unstartable command did not error")
	}
	if code != -1 {
		t.Fatalf("exit code = %d, want -1", code)
	}
}

func TestRunner_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{}
	_, _, _, err := r.Run(ctx, "sleep 10")
	if err == nil {
		t.Fatal("cancelled context did not stop the command")
	}
}
