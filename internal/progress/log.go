package progress

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// LogManager implements Manager with timestamped line output for non-TTY
// environments (cron, CI). Prints status lines instead of interactive
// progress bars.
type LogManager struct {
	mu sync.Mutex
}

// NewLogManager creates a new log-based progress manager.
func NewLogManager() *LogManager {
	return &LogManager{}
}

func (m *LogManager) NewTracker(index, total int, insurerCode string) Tracker {
	return &logTracker{
		mgr:   m,
		index: index,
		total: total,
		name:  insurerCode,
		start: time.Now(),
	}
}

func (m *LogManager) Wait() {}

// logTracker implements Tracker with line output per stage change.
type logTracker struct {
	mgr   *LogManager
	index int
	total int
	name  string
	start time.Time
}

func (t *logTracker) log(msg string) {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stderr, "%s [%d/%d] %s  %s\n", ts, t.index+1, t.total, t.name, msg)
}

func (t *logTracker) SetStage(stage string) {
	t.log(stage)
}

func (t *logTracker) SetCounter(name string, value int64) {
	t.log(fmt.Sprintf("%s: %d", name, value))
}

func (t *logTracker) Done() {
	t.log(fmt.Sprintf("finished in %s", time.Since(t.start).Truncate(time.Millisecond)))
}
