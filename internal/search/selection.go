package search

import "sort"

// Mode governs how the selection follows the result set.
type Mode int

const (
	// ModeManual keeps the caller's picks, pruning ids a new query dropped.
	ModeManual Mode = iota
	// ModeAll selects exactly the ids currently in the result set.
	ModeAll
)

func (m Mode) String() string {
	if m == ModeAll {
		return "all"
	}
	return "manual"
}

// Selection is the set of chosen entry ids. It is not safe for concurrent
// use.
type Selection struct {
	mode Mode
	ids  map[string]struct{}
}

// NewSelection returns an empty selection in mode.
func NewSelection(mode Mode) *Selection {
	return &Selection{mode: mode, ids: make(map[string]struct{})}
}

func (s *Selection) Mode() Mode { return s.mode }

// SetMode switches mode. Entering ModeAll selects every entry of rs;
// entering ModeManual starts from an empty selection.
func (s *Selection) SetMode(mode Mode, rs *ResultSet) {
	if mode == s.mode {
		return
	}
	s.mode = mode
	s.ids = make(map[string]struct{})
	if mode == ModeAll {
		s.selectAll(rs)
	}
}

// Sync reconciles the selection after rs changed. replaced is true when a
// page-0 result replaced the previous entries.
func (s *Selection) Sync(rs *ResultSet, replaced bool) {
	switch {
	case s.mode == ModeAll:
		s.ids = make(map[string]struct{}, rs.Len())
		s.selectAll(rs)
	case replaced:
		for id := range s.ids {
			if !rs.Contains(id) {
				delete(s.ids, id)
			}
		}
	}
}

// Toggle flips id in manual mode and reports whether it is now selected.
// In ModeAll the selection is fixed and Toggle only reports membership.
func (s *Selection) Toggle(id string) bool {
	if s.mode == ModeAll {
		return s.Contains(id)
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// ToggleAll selects every entry of rs, or clears the selection when all of
// them are already selected.
func (s *Selection) ToggleAll(rs *ResultSet) {
	if s.mode == ModeAll {
		return
	}
	all := rs.Len() > 0
	for _, id := range rs.IDs() {
		if !s.Contains(id) {
			all = false
			break
		}
	}
	if all {
		s.ids = make(map[string]struct{})
		return
	}
	s.selectAll(rs)
}

func (s *Selection) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids sorted.
func (s *Selection) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Selection) selectAll(rs *ResultSet) {
	for _, id := range rs.IDs() {
		s.ids[id] = struct{}{}
	}
}
