package healthmonitor

import "sync"

// history is a fixed-capacity ring buffer of Records for one server,
// oldest entries evicted first.
type history struct {
	mu      sync.Mutex
	records []Record
}

func newHistory() *history {
	return &history{records: make([]Record, 0, historySize)}
}

func (h *history) append(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	if len(h.records) > historySize {
		h.records = h.records[len(h.records)-historySize:]
	}
}

func (h *history) snapshot() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// metrics derives the §4.7 metrics from the current snapshot.
func (h *history) metrics() Metrics {
	return computeMetrics(h.snapshot())
}
