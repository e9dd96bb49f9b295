package web

import (
	"sync"
	"time"

	"github.com/maastricht-university/scribe/orchestrator"
)

type progressEvent struct {
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message"`
}

// job is one submitted transcription. Progress is appended while the
// pipeline runs; subscribers wait on changed for the next update.
type job struct {
	id      string
	mu      sync.Mutex
	events  []progressEvent
	result  *orchestrator.Result
	changed chan struct{}
}

func newJob(id string) *job {
	return &job{id: id, changed: make(chan struct{})}
}

func (j *job) progress(fraction float64, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, progressEvent{Fraction: fraction, Message: msg})
	j.notifyLocked()
}

func (j *job) finish(res orchestrator.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = &res
	j.notifyLocked()
}

func (j *job) notifyLocked() {
	close(j.changed)
	j.changed = make(chan struct{})
}

// since returns the events after index from, the result if the job is done
// and a channel that closes on the next update.
func (j *job) since(from int) ([]progressEvent, *orchestrator.Result, <-chan struct{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var evs []progressEvent
	if from < len(j.events) {
		evs = append(evs, j.events[from:]...)
	}
	return evs, j.result, j.changed
}

func (j *job) done() (*orchestrator.Result, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.result != nil
}

// jobTable holds running and recently finished jobs. Finished jobs are
// dropped after the retention period.
type jobTable struct {
	mu        sync.Mutex
	jobs      map[string]*job
	retention time.Duration
}

func newJobTable(retention time.Duration) *jobTable {
	return &jobTable{jobs: map[string]*job{}, retention: retention}
}

func (t *jobTable) add(j *job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[j.id] = j
}

func (t *jobTable) get(id string) (*job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

func (t *jobTable) expire(id string) {
	if t.retention <= 0 {
		return
	}
	time.AfterFunc(t.retention, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.jobs, id)
	})
}
