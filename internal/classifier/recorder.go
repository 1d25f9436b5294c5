package classifier

import (
	"bufio"
	"io"
	"sync"
	"time"
)

// Recorder holds the latest-only ErrorRecord per server and applies the
// §4.6 override policy on every incoming classification.
type Recorder struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make(map[string]Record), now: time.Now}
}

// Observe classifies a raw line for serverID and, if it both carries an
// error and passes the override policy, replaces the stored record.
func (r *Recorder) Observe(serverID, line string) (Record, bool) {
	rec, ok := Line(line)
	if !ok {
		return Record{}, false
	}
	rec.At = r.now()
	return r.ObserveRecord(serverID, rec)
}

// ObserveRecord applies the §4.6 override policy to an already-classified
// record, for callers (like the exit-code handler) that classify outside
// the line-parsing path.
func (r *Recorder) ObserveRecord(serverID string, rec Record) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.records[serverID]
	var currentPtr *Record
	if exists {
		currentPtr = &current
	}
	if !ShouldOverride(currentPtr, rec) {
		return current, false
	}
	r.records[serverID] = rec
	return rec, true
}

// Clear removes any recorded error for serverID, e.g. once it becomes
// healthy again.
func (r *Recorder) Clear(serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, serverID)
}

// Get returns the current record for serverID, if any.
func (r *Recorder) Get(serverID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[serverID]
	return rec, ok
}

// StreamLines is the reader task attached to one child's stdout or stderr
// pipe (§5): it scans lines until EOF or the pipe closes, feeding each one
// through Observe and invoking onRecord whenever the recorded error for
// serverID changes. Each child gets two of these, one per pipe, sharing the
// same Recorder.
func StreamLines(r *Recorder, serverID string, pipe io.Reader, onRecord func(Record)) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if rec, changed := r.Observe(serverID, scanner.Text()); changed {
			if onRecord != nil {
				onRecord(rec)
			}
		}
	}
}
