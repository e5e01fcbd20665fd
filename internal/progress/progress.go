package progress

import (
	"fmt"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker tracks progress for a single insurer run.
type Tracker interface {
	SetStage(stage string)
	SetCounter(name string, value int64)
	Done()
}

// Manager creates trackers for individual insurer runs.
type Manager interface {
	NewTracker(index, total int, insurerCode string) Tracker
	Wait()
}

// MPBManager implements Manager using the mpb multi-progress-bar library.
type MPBManager struct {
	container *mpb.Progress
}

// NewMPBManager creates a new mpb-based progress manager.
func NewMPBManager() *MPBManager {
	return &MPBManager{container: mpb.New(mpb.WithWidth(60))}
}

// NewTracker creates a new progress tracker for an insurer run.
func (m *MPBManager) NewTracker(index, total int, insurerCode string) Tracker {
	statusVal := &atomic.Value{}
	statusVal.Store("")
	bar := m.container.AddBar(int64(runStages),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("[%d/%d] %s ", index+1, total, insurerCode), decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Any(func(s decor.Statistics) string {
				return statusVal.Load().(string)
			}),
		),
	)

	return &mpbTracker{bar: bar, statusPtr: statusVal}
}

// Wait waits for all progress bars to finish.
func (m *MPBManager) Wait() {
	m.container.Wait()
}

// runStages is the nominal number of stages an insurer run goes through
// (load, plan, commit); bars advance one notch per stage change.
const runStages = 3

type mpbTracker struct {
	bar       *mpb.Bar
	statusPtr *atomic.Value
}

func (t *mpbTracker) SetStage(stage string) {
	t.statusPtr.Store(stage)
	t.bar.Increment()
}

func (t *mpbTracker) SetCounter(name string, value int64) {
	t.statusPtr.Store(fmt.Sprintf("%s: %d", name, value))
}

func (t *mpbTracker) Done() {
	t.bar.SetTotal(runStages, true)
}

// NoopManager is a no-op progress manager for non-interactive use.
type NoopManager struct{}

func (m *NoopManager) NewTracker(index, total int, insurerCode string) Tracker {
	return &noopTracker{}
}

func (m *NoopManager) Wait() {}

type noopTracker struct{}

func (t *noopTracker) SetStage(stage string) {}
func (t *noopTracker) SetCounter(name string, value int64) {}
func (t *noopTracker) Done() {}
