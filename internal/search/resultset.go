package search

import "github.com/divverma2003/convo-app/internal/directory"

// ResultSet is the accumulated, id-deduplicated list of entries in
// insertion order. It is not safe for concurrent use.
type ResultSet struct {
	entries []directory.Entry
	index   map[string]int
	hasMore bool
}

// NewResultSet returns an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{index: make(map[string]int)}
}

// Replace discards the current entries in favour of entries.
func (r *ResultSet) Replace(entries []directory.Entry, hasMore bool) {
	r.entries = r.entries[:0]
	r.index = make(map[string]int, len(entries))
	r.Append(entries, hasMore)
}

// Append adds entries whose id is not present yet and returns how many
// were added.
func (r *ResultSet) Append(entries []directory.Entry, hasMore bool) int {
	added := 0
	for _, e := range entries {
		if _, ok := r.index[e.ID]; ok {
			continue
		}
		r.index[e.ID] = len(r.entries)
		r.entries = append(r.entries, e)
		added++
	}
	r.hasMore = hasMore
	return added
}

// Clear empties the set.
func (r *ResultSet) Clear() {
	r.entries = nil
	r.index = make(map[string]int)
	r.hasMore = false
}

// Entries returns a copy of the entries.
func (r *ResultSet) Entries() []directory.Entry {
	return append([]directory.Entry(nil), r.entries...)
}

// IDs returns the entry ids in order.
func (r *ResultSet) IDs() []string {
	ids := make([]string, len(r.entries))
	for i, e := range r.entries {
		ids[i] = e.ID
	}
	return ids
}

func (r *ResultSet) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

func (r *ResultSet) Len() int { return len(r.entries) }

func (r *ResultSet) HasMore() bool { return r.hasMore }
