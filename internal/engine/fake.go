package engine

import (
	"context"
	"io"
	"sync"
)

// FakeResult scripts one Launch outcome for a FakeLauncher.
type FakeResult struct {
	ExitCode int
	// Output is written to the spec's output sink before returning, standing
	// in for the engine's log text.
	Output string
	Err    error
}

// FakeLauncher is a scripted Launcher for tests. Results are consumed in
// order, one per Launch call; calls beyond the script succeed with exit 0.
// Every received Spec is recorded (with Output elided) for assertions.
type FakeLauncher struct {
	mu      sync.Mutex
	Results []FakeResult
	Calls   []Spec

	next int
}

// Launch replays the next scripted result.
func (f *FakeLauncher) Launch(ctx context.Context, spec Spec) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	recorded := spec
	recorded.Output = nil
	f.Calls = append(f.Calls, recorded)

	result := FakeResult{}
	if f.next < len(f.Results) {
		result = f.Results[f.next]
	}
	f.next++

	if result.Output != "" && spec.Output != nil {
		if _, err := io.WriteString(spec.Output, result.Output); err != nil {
			return -1, err
		}
	}
	if result.Err != nil {
		return -1, result.Err
	}
	return result.ExitCode, nil
}

// CallCount returns how many times Launch was invoked.
func (f *FakeLauncher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
