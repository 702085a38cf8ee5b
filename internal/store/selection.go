package store

import "sort"

// Selection membership is independent of render state: selecting a feature on
// a hidden layer is allowed. Removal of the owning layer or drawn feature
// prunes the selection as a side effect (see RemoveLayer/RemoveDrawnFeature);
// nothing here dangles.

// Select adds a feature id to the selection set.
func (s *Store) Select(featureID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[featureID] = struct{}{}
}

// Deselect removes a feature id from the selection set. Unknown ids are a
// no-op.
func (s *Store) Deselect(featureID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, featureID)
}

// ToggleSelect flips membership and reports the new state.
func (s *Store) ToggleSelect(featureID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[featureID]; ok {
		delete(s.selected, featureID)
		return false
	}
	s.selected[featureID] = struct{}{}
	return true
}

// IsSelected reports selection membership.
func (s *Store) IsSelected(featureID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected[featureID]
	return ok
}

// Selected returns the selected feature ids, sorted for stable output.
func (s *Store) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
}
