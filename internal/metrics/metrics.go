// Package metrics provides a minimal instrumentation interface with a no-op
// default and a Prometheus-backed implementation installed at startup.
package metrics

import (
	"sync"
	"time"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	IncStageTotal(stage string, success bool)
	ObserveStageSeconds(stage string, success bool, seconds float64)
	IncFallback(reason string)
	IncEntityCache(hit bool)
	IncToolTotal(tool string, success bool)
	ObserveToolSeconds(tool string, success bool, seconds float64)
}

type noopRecorder struct{}

func (n *noopRecorder) IncStageTotal(string, bool)                {}
func (n *noopRecorder) ObserveStageSeconds(string, bool, float64) {}
func (n *noopRecorder) IncFallback(string)                        {}
func (n *noopRecorder) IncEntityCache(bool)                       {}
func (n *noopRecorder) IncToolTotal(string, bool)                 {}
func (n *noopRecorder) ObserveToolSeconds(string, bool, float64)  {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation. nil restores the no-op.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	if r == nil {
		r = &noopRecorder{}
	}
	recorder = r
}

// TimeStage times one pipeline stage.
func TimeStage(stage string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncStageTotal(stage, success)
		Default().ObserveStageSeconds(stage, success, dur)
	}
}

// TimeTool times one MCP tool handler call.
func TimeTool(tool string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncToolTotal(tool, success)
		Default().ObserveToolSeconds(tool, success, dur)
	}
}
