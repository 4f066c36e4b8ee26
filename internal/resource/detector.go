// Package resource discovers the parallel compute devices available for a
// pipeline run. Detection never fails: each probe degrades to the next, and
// the final fallback is a single-CPU profile.
package resource

import (
	"os"
	"os/exec"
	"strings"

	"github.com/rimuru/simpipe/internal/logging"
)

// Options controls device detection. A zero value means probe freely with no
// cap on the detected count.
type Options struct {
	// ForceCPU skips device detection entirely and selects the CPU
	// fallback profile.
	ForceCPU bool
	// MaxDevices caps the detected device count, 0 = use all detected.
	MaxDevices int
}

// Kind identifies the class of compute device the engine will be sized for.
type Kind string

const (
	KindGPU         Kind = "gpu"
	KindCPUFallback Kind = "cpu_fallback"
)

// Profile is the detected device count and kind. Computed once per run and
// immutable thereafter; Count is always at least 1.
type Profile struct {
	Count int
	Kind  Kind
}

// nvidiaSysfsRoot is the per-GPU directory tree the driver exposes; one
// subdirectory per device.
const nvidiaSysfsRoot = "/proc/driver/nvidia/gpus"

// Detector probes the host for compute devices. The device query and the
// sysfs root are injectable so tests can simulate every environment.
type Detector struct {
	opts   Options
	logger *logging.Logger

	// queryDevices is the primary probe. It returns one entry per device.
	queryDevices func() ([]string, error)
	// sysfsRoot is the directory enumerated by the secondary probe.
	sysfsRoot string
}

// NewDetector creates a Detector using nvidia-smi as the primary probe and
// the driver's sysfs tree as the secondary.
func NewDetector(opts Options, logger *logging.Logger) *Detector {
	return &Detector{
		opts:         opts,
		logger:       logger,
		queryDevices: queryNvidiaSMI,
		sysfsRoot:    nvidiaSysfsRoot,
	}
}

// Detect returns the resource profile for this run. It tries the device
// query first, then the sysfs enumeration, and falls back to a single-CPU
// profile. There is no error outcome; degradation is logged and absorbed.
func (d *Detector) Detect() Profile {
	if d.opts.ForceCPU {
		d.logger.Info("device detection skipped", "reason", "force_cpu")
		return Profile{Count: 1, Kind: KindCPUFallback}
	}

	if names, err := d.queryDevices(); err == nil && len(names) > 0 {
		d.logger.Info("devices detected", "probe", "query", "count", len(names))
		return d.capped(Profile{Count: len(names), Kind: KindGPU})
	} else if err != nil {
		d.logger.Debug("device query unavailable", "error", err)
	}

	if count := d.countSysfsDevices(); count > 0 {
		d.logger.Info("devices detected", "probe", "sysfs", "count", count)
		return d.capped(Profile{Count: count, Kind: KindGPU})
	}

	d.logger.Warn("no compute devices detected, falling back to CPU")
	return Profile{Count: 1, Kind: KindCPUFallback}
}

// countSysfsDevices counts device directories under the sysfs root.
// Any read failure counts as zero devices.
func (d *Detector) countSysfsDevices() int {
	entries, err := os.ReadDir(d.sysfsRoot)
	if err != nil {
		d.logger.Debug("sysfs enumeration unavailable", "root", d.sysfsRoot, "error", err)
		return 0
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() {
			count++
		}
	}
	return count
}

// capped applies the configured device cap to a detected profile
func (d *Detector) capped(p Profile) Profile {
	if d.opts.MaxDevices > 0 && p.Count > d.opts.MaxDevices {
		d.logger.Info("capping detected devices",
			"detected", p.Count, "max_devices", d.opts.MaxDevices)
		p.Count = d.opts.MaxDevices
	}
	return p
}

// queryNvidiaSMI asks nvidia-smi for the installed GPU names, one per line
func queryNvidiaSMI() ([]string, error) {
	out, err := exec.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			names = append(names, strings.TrimSpace(line))
		}
	}
	return names, nil
}
