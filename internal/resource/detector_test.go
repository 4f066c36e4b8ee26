package resource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rimuru/simpipe/internal/logging"
)

func newTestDetector(t *testing.T, opts Options) *Detector {
	t.Helper()
	d := NewDetector(opts, logging.NopLogger())
	// Point the secondary probe at an empty temp dir so host GPUs never
	// leak into test results.
	d.sysfsRoot = t.TempDir()
	d.queryDevices = func() ([]string, error) {
		return nil, errors.New("nvidia-smi: command not found")
	}
	return d
}

func TestDetect_QuerySucceeds(t *testing.T) {
	d := newTestDetector(t, Options{})
	d.queryDevices = func() ([]string, error) {
		return []string{"NVIDIA A100", "NVIDIA A100"}, nil
	}

	got := d.Detect()
	want := Profile{Count: 2, Kind: KindGPU}
	if got != want {
		t.Errorf("Detect() = %+v, want %+v", got, want)
	}
}

func TestDetect_SysfsFallback(t *testing.T) {
	d := newTestDetector(t, Options{})
	for _, id := range []string{"0000:17:00.0", "0000:65:00.0", "0000:b3:00.0"} {
		if err := os.Mkdir(filepath.Join(d.sysfsRoot, id), 0755); err != nil {
			t.Fatalf("failed to create sysfs dir: %v", err)
		}
	}

	got := d.Detect()
	want := Profile{Count: 3, Kind: KindGPU}
	if got != want {
		t.Errorf("Detect() = %+v, want %+v", got, want)
	}
}

func TestDetect_CPUFallback(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Detector)
	}{
		{
			name:  "both probes unavailable",
			setup: func(d *Detector) {},
		},
		{
			name: "sysfs root missing",
			setup: func(d *Detector) {
				d.sysfsRoot = "/nonexistent/driver/gpus"
			},
		},
		{
			name: "query returns empty list",
			setup: func(d *Detector) {
				d.queryDevices = func() ([]string, error) { return nil, nil }
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, Options{})
			tt.setup(d)

			got := d.Detect()
			want := Profile{Count: 1, Kind: KindCPUFallback}
			if got != want {
				t.Errorf("Detect() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDetect_CountAlwaysPositive(t *testing.T) {
	// Every environment, including total detection failure, must yield a
	// usable parallelism degree.
	environments := []func(*Detector){
		func(d *Detector) {},
		func(d *Detector) { d.queryDevices = func() ([]string, error) { return []string{"GPU"}, nil } },
		func(d *Detector) { d.sysfsRoot = "" },
	}

	for i, setup := range environments {
		d := newTestDetector(t, Options{})
		setup(d)
		if got := d.Detect(); got.Count < 1 {
			t.Errorf("environment %d: Detect().Count = %d, want >= 1", i, got.Count)
		}
	}
}

func TestDetect_ForceCPU(t *testing.T) {
	d := newTestDetector(t, Options{ForceCPU: true})
	d.queryDevices = func() ([]string, error) {
		t.Error("queryDevices should not be called when force_cpu is set")
		return nil, nil
	}

	got := d.Detect()
	want := Profile{Count: 1, Kind: KindCPUFallback}
	if got != want {
		t.Errorf("Detect() = %+v, want %+v", got, want)
	}
}

func TestDetect_MaxDevicesCap(t *testing.T) {
	d := newTestDetector(t, Options{MaxDevices: 2})
	d.queryDevices = func() ([]string, error) {
		return []string{"a", "b", "c", "d"}, nil
	}

	got := d.Detect()
	want := Profile{Count: 2, Kind: KindGPU}
	if got != want {
		t.Errorf("Detect() = %+v, want %+v", got, want)
	}
}
