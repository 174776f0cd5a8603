package session

import (
	"sync"
	"time"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
)

// Entry is one completed device attempt, including intermediate failover
// attempts. Entries arrive in completion order, not input order, because
// batches run concurrently.
type Entry struct {
	DeviceID string         `json:"id"`
	Host     string         `json:"host"`
	Attempt  int            `json:"attempt"`
	Outcome  device.Outcome `json:"outcome"`
	When     time.Time      `json:"when"`
}

// RunLog is the only structure written by multiple batches at once, so the
// append is guarded. It replaces the shared mutable accumulator the Python
// predecessor passed through its recursive retries.
type RunLog struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *RunLog) Record(id, host string, attempt int, o device.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		DeviceID: id,
		Host:     host,
		Attempt:  attempt,
		Outcome:  o,
		When:     time.Now(),
	})
}

// Entries returns a copy of the log in completion order.
func (l *RunLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
