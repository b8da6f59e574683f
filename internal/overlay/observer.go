package overlay

import (
	"sync"

	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// Observer is told about every committed geometry. Commits happen at the end
// of a drag, on SetRadius and on Reset; intermediate drag states are never
// published.
type Observer interface {
	OnCommit(result wire.DetectionResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(result wire.DetectionResult)

// OnCommit calls f(result).
func (f ObserverFunc) OnCommit(result wire.DetectionResult) {
	f(result)
}

// Recorder is an Observer that keeps every commit it receives.
type Recorder struct {
	mu      sync.Mutex
	commits []wire.DetectionResult
}

// OnCommit records result.
func (r *Recorder) OnCommit(result wire.DetectionResult) {
	r.mu.Lock()
	r.commits = append(r.commits, result.Clone())
	r.mu.Unlock()
}

// Commits returns a copy of the recorded commits, oldest first.
func (r *Recorder) Commits() []wire.DetectionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.DetectionResult, len(r.commits))
	for i, c := range r.commits {
		out[i] = c.Clone()
	}
	return out
}

// Last returns the most recent commit.
func (r *Recorder) Last() (wire.DetectionResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commits) == 0 {
		return wire.DetectionResult{}, false
	}
	return r.commits[len(r.commits)-1].Clone(), true
}

// Reset forgets all recorded commits.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commits = nil
	r.mu.Unlock()
}

// multiObserver fans a commit out to several observers in order.
type multiObserver []Observer

func (m multiObserver) OnCommit(result wire.DetectionResult) {
	for _, o := range m {
		o.OnCommit(result.Clone())
	}
}

// Observers combines observers; nil entries are skipped.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}
