// Package citation assigns stable per-session citation numbers to retrieved
// sources. Numbers are dense, start at 1, and follow first-seen order, so the
// same source cited twice in one answer keeps one number.
package citation

import (
	"fmt"
	"sort"
	"sync"
)

// Payload describes a cited source. Fields beyond the number are free-form
// and merged on re-registration, keeping earlier values for keys the new
// payload omits.
type Payload map[string]any

// Entry is a registered citation.
type Entry struct {
	Key     string
	Number  int
	Payload Payload
}

// Registry hands out citation numbers keyed by a stable source key.
// Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	next    int
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		next:    1,
	}
}

// TextKey builds the stable key for a text chunk source.
func TextKey(docID string, chunkIndex int, page int) string {
	return fmt.Sprintf("text:%s:chunk%d:p%d", docID, chunkIndex, page)
}

// ImageKey builds the stable key for an image source.
func ImageKey(docID string, page, pictureNumber int) string {
	return fmt.Sprintf("image:%s:p%d:pic%d", docID, page, pictureNumber)
}

// Register returns the citation number for key, allocating the next number
// on first sight. The payload is merged over any previously stored one; the
// citation number itself never changes.
func (r *Registry) Register(key string, payload Payload) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[key]; ok {
		for k, v := range payload {
			entry.Payload[k] = v
		}
		return entry.Number
	}

	entry := &Entry{
		Key:     key,
		Number:  r.next,
		Payload: make(Payload, len(payload)),
	}
	for k, v := range payload {
		entry.Payload[k] = v
	}
	r.entries[key] = entry
	r.next++
	return entry.Number
}

// Lookup returns the entry for key, if registered.
func (r *Registry) Lookup(key string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	return entry, ok
}

// All returns every entry ordered by citation number.
func (r *Registry) All() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Len reports how many distinct sources are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
