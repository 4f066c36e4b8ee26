//go:build unix

package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	simerrors "github.com/rimuru/simpipe/internal/errors"
	"github.com/rimuru/simpipe/internal/logging"
)

func TestExecLauncher_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"success", []string{"-c", "exit 0"}, 0},
		{"failure", []string{"-c", "exit 3"}, 3},
	}

	launcher := NewExecLauncher(logging.NopLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := launcher.Launch(context.Background(), Spec{
				Command: "sh",
				Args:    tt.args,
			})
			if err != nil {
				t.Fatalf("Launch() error = %v", err)
			}
			if code != tt.want {
				t.Errorf("Launch() exit code = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestExecLauncher_CombinedOutput(t *testing.T) {
	launcher := NewExecLauncher(logging.NopLogger())

	var buf bytes.Buffer
	code, err := launcher.Launch(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo to-stdout; echo to-stderr >&2"},
		Output:  &buf,
	})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	out := buf.String()
	if !strings.Contains(out, "to-stdout") {
		t.Errorf("output missing stdout line: %q", out)
	}
	if !strings.Contains(out, "to-stderr") {
		t.Errorf("output missing stderr line: %q", out)
	}
}

func TestExecLauncher_Timeout(t *testing.T) {
	launcher := NewExecLauncher(logging.NopLogger())

	start := time.Now()
	_, err := launcher.Launch(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "sleep 30"},
		Timeout: 100 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if !simerrors.Is(err, simerrors.ErrTimeout) {
		t.Fatalf("Launch() error = %v, want ErrTimeout", err)
	}
	if elapsed > 5*time.Second {
		t.Errorf("timeout took %v, process group kill appears ineffective", elapsed)
	}
}

func TestExecLauncher_ContextCancel(t *testing.T) {
	launcher := NewExecLauncher(logging.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := launcher.Launch(ctx, Spec{
		Command: "sh",
		Args:    []string{"-c", "sleep 30"},
	})
	if !simerrors.Is(err, context.Canceled) {
		t.Errorf("Launch() error = %v, want context.Canceled", err)
	}
}

func TestExecLauncher_MissingBinary(t *testing.T) {
	launcher := NewExecLauncher(logging.NopLogger())

	code, err := launcher.Launch(context.Background(), Spec{
		Command: "/nonexistent/engine-binary",
	})
	if err == nil {
		t.Fatal("Launch() error = nil, want launch failure")
	}
	if code != -1 {
		t.Errorf("exit code = %d, want -1 for launch failure", code)
	}
}

func TestFakeLauncher_Script(t *testing.T) {
	fake := &FakeLauncher{
		Results: []FakeResult{
			{ExitCode: 0, Output: "Loop time of 12.3\n"},
			{ExitCode: 1},
		},
	}

	var buf bytes.Buffer
	code, err := fake.Launch(context.Background(), Spec{Command: "lmp", Output: &buf})
	if err != nil || code != 0 {
		t.Fatalf("first Launch() = (%d, %v), want (0, nil)", code, err)
	}
	if !strings.Contains(buf.String(), "Loop time") {
		t.Errorf("scripted output not written: %q", buf.String())
	}

	code, err = fake.Launch(context.Background(), Spec{Command: "lmp"})
	if err != nil || code != 1 {
		t.Fatalf("second Launch() = (%d, %v), want (1, nil)", code, err)
	}

	// Beyond the script, calls succeed.
	code, err = fake.Launch(context.Background(), Spec{Command: "lmp"})
	if err != nil || code != 0 {
		t.Fatalf("third Launch() = (%d, %v), want (0, nil)", code, err)
	}

	if fake.CallCount() != 3 {
		t.Errorf("CallCount() = %d, want 3", fake.CallCount())
	}
	if fake.Calls[0].Command != "lmp" {
		t.Errorf("Calls[0].Command = %q, want %q", fake.Calls[0].Command, "lmp")
	}
}
