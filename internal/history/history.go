package history

import (
	"sync"
	"time"

	"github.com/yolodolo42/gswap/internal/store"
)

// Record is one confirmed transfer. Amount is kept exactly as the user typed it.
type Record struct {
	Date    time.Time `json:"date"`
	Amount  string    `json:"amount"`
	Token   string    `json:"token"`
	ChainID int64     `json:"chainId"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Hash    string    `json:"hash"`
}

// History is the newest-first transfer log mirrored to a store key.
type History struct {
	mu      sync.RWMutex
	store   store.Store
	records []Record
}

// Load reads the log from s. Absent or unreadable history starts empty.
func Load(s store.Store) *History {
	h := &History{store: s}
	var records []Record
	if store.Load(s, store.HistoryKey, &records) {
		h.records = records
	}
	return h
}

// Append puts r at the front and persists the whole log. On a write error the
// in-memory log still holds r.
func (h *History) Append(r Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]Record, 0, len(h.records)+1)
	next = append(next, r)
	next = append(next, h.records...)
	h.records = next

	return store.Save(h.store, store.HistoryKey, next)
}

// Records returns a copy of the log, newest first.
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Record(nil), h.records...)
}

// ForChain returns the records made on chainID, newest first.
func (h *History) ForChain(chainID int64) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Record, 0, len(h.records))
	for _, r := range h.records {
		if r.ChainID == chainID {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
