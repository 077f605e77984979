package txflow

import "sync"

// History is an in-memory per-user transaction log. Newest records come
// first. The log is a display cache, not a ledger: the chain remains the
// source of truth.
type History struct {
	mu      sync.RWMutex
	records map[string][]*Record
}

// NewHistory creates an empty transaction log.
func NewHistory() *History {
	return &History{records: make(map[string][]*Record)}
}

// Add prepends a record to the user's log.
func (h *History) Add(userID string, r *Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[userID] = append([]*Record{r}, h.records[userID]...)
}

// List returns a copy of the user's records, most recent first.
func (h *History) List(userID string) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := h.records[userID]
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = *r
	}
	return out
}

// SetStatus updates the status of the user's record with the given hash.
// Unknown hashes are ignored.
func (h *History) SetStatus(userID, hash string, status Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, r := range h.records[userID] {
		if r.Hash == hash {
			r.Status = status
			return
		}
	}
}
