package cmd

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/spiffcs/linksync/internal/log"
)

// Profiler writes CPU, heap and execution-trace profiles of a run.
// Empty paths disable the corresponding profile.
type Profiler struct {
	cpuPath   string
	memPath   string
	tracePath string

	cpuFile   *os.File
	traceFile *os.File
}

// NewProfiler creates a Profiler for the given output paths.
func NewProfiler(cpuPath, memPath, tracePath string) *Profiler {
	return &Profiler{cpuPath: cpuPath, memPath: memPath, tracePath: tracePath}
}

// Start begins CPU profiling and tracing. On error nothing is left running.
func (p *Profiler) Start() error {
	if p.cpuPath != "" {
		f, err := os.Create(p.cpuPath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			closeQuietly(f, "CPU profile")
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		p.cpuFile = f
	}

	if p.tracePath != "" {
		f, err := os.Create(p.tracePath)
		if err != nil {
			p.stopCPU()
			return fmt.Errorf("could not create trace: %w", err)
		}
		if err := trace.Start(f); err != nil {
			closeQuietly(f, "trace")
			p.stopCPU()
			return fmt.Errorf("could not start trace: %w", err)
		}
		p.traceFile = f
	}
	return nil
}

// Stop ends tracing and CPU profiling, then writes the heap profile. It is
// safe to call more than once.
func (p *Profiler) Stop() {
	if p.traceFile != nil {
		trace.Stop()
		closeQuietly(p.traceFile, "trace")
		p.traceFile = nil
	}
	p.stopCPU()

	if p.memPath == "" {
		return
	}
	f, err := os.Create(p.memPath)
	if err != nil {
		log.Error("could not create memory profile", "path", p.memPath, "error", err)
		return
	}
	defer closeQuietly(f, "memory profile")
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Error("could not write memory profile", "error", err)
	}
	p.memPath = ""
}

func (p *Profiler) stopCPU() {
	if p.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	closeQuietly(p.cpuFile, "CPU profile")
	p.cpuFile = nil
}

func closeQuietly(f *os.File, what string) {
	if err := f.Close(); err != nil {
		log.Error("could not close "+what+" file", "error", err)
	}
}
