package render

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/models"
)

// Gesture entry points. The surface calls these in response to user input;
// the Sync converts each gesture into a store mutation and notifies
// subscribers. Rendering of the resulting store change flows back through
// the normal watch path.

// GestureFeatureClick toggles selection for the clicked feature and notifies
// click subscribers.
func (s *Sync) GestureFeatureClick(featureID string) {
	s.store.ToggleSelect(featureID)

	s.subMu.Lock()
	fns := make([]func(string), 0, len(s.clickSub))
	for _, fn := range s.clickSub {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(featureID)
	}
}

// GestureDrawCreated records a completed draw gesture as a drawn feature.
func (s *Sync) GestureDrawCreated(f *geojson.Feature) (*models.DrawnFeature, error) {
	df, err := s.store.AddDrawnFeature(f)
	if err != nil {
		return nil, fmt.Errorf("record drawn feature: %w", err)
	}

	s.subMu.Lock()
	fns := make([]func(*models.DrawnFeature), 0, len(s.drawSub))
	for _, fn := range s.drawSub {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(df)
	}
	return df, nil
}

// GestureDrawEdited replaces a drawn feature's geometry. Identity follows
// the arena discipline: the old id is retired and the edited feature gets a
// fresh one.
func (s *Sync) GestureDrawEdited(id string, f *geojson.Feature) (*models.DrawnFeature, error) {
	if err := s.store.RemoveDrawnFeature(id); err != nil {
		return nil, fmt.Errorf("retire drawn feature: %w", err)
	}
	df, err := s.store.AddDrawnFeature(f)
	if err != nil {
		return nil, fmt.Errorf("record edited feature: %w", err)
	}

	s.subMu.Lock()
	fns := make([]func(*models.DrawnFeature), 0, len(s.editSub))
	for _, fn := range s.editSub {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(df)
	}
	return df, nil
}

// GestureDrawDeleted removes a drawn feature in response to a delete
// gesture.
func (s *Sync) GestureDrawDeleted(id string) error {
	if err := s.store.RemoveDrawnFeature(id); err != nil {
		return err
	}

	s.subMu.Lock()
	fns := make([]func(string), 0, len(s.delSub))
	for _, fn := range s.delSub {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
	return nil
}

// --- Subscription API ---

// OnFeatureClick subscribes to feature click events. The returned func
// unsubscribes.
func (s *Sync) OnFeatureClick(fn func(featureID string)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.clickSub[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.clickSub, id)
	}
}

// OnDrawCreated subscribes to completed draw gestures.
func (s *Sync) OnDrawCreated(fn func(df *models.DrawnFeature)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.drawSub[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.drawSub, id)
	}
}

// OnDrawEdited subscribes to drawn-feature edits.
func (s *Sync) OnDrawEdited(fn func(df *models.DrawnFeature)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.editSub[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.editSub, id)
	}
}

// OnDrawDeleted subscribes to drawn-feature deletions.
func (s *Sync) OnDrawDeleted(fn func(id string)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.delSub[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.delSub, id)
	}
}
