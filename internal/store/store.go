// Package store holds the canonical in-memory collection of geospatial
// layers and user-drawn features. It is the single source of truth for what
// geodata exists; rendering state lives elsewhere and subscribes to changes.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/models"
)

// ErrNotFound is returned when an operation references an unknown id.
var ErrNotFound = errors.New("not found")

// ValidationError indicates malformed input data, such as an upload that is
// not a GeoJSON feature collection.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// EventKind enumerates store change notifications.
type EventKind int

const (
	LayerAdded EventKind = iota
	LayerRemoved
	LayerVisibility
	DrawnAdded
	DrawnRemoved
)

// Event describes one store mutation. Watchers receive events synchronously,
// after the mutation is applied and before the mutating call returns.
type Event struct {
	Kind    EventKind
	LayerID string
	DrawnID string
	Visible bool
}

// Palette is the fixed set of display colors cycled through as layers are
// added. Distinct-but-not-unique: the cycle restarts once exhausted.
var Palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#008080",
}

// Store is the canonical layer/feature collection plus the selection set.
// All mutation goes through its methods; watchers observe but never reach in.
type Store struct {
	mu        sync.Mutex
	layers    []*models.Layer // insertion order
	layerByID map[string]*models.Layer
	drawn     []*models.DrawnFeature // draw order
	drawnByID map[string]*models.DrawnFeature
	selected  map[string]struct{}
	colorIdx  int

	watchMu   sync.Mutex
	watchers  map[int]func(Event)
	nextWatch int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		layerByID: make(map[string]*models.Layer),
		drawnByID: make(map[string]*models.DrawnFeature),
		selected:  make(map[string]struct{}),
		watchers:  make(map[int]func(Event)),
	}
}

// Watch registers fn for change notifications and returns an unsubscribe
// func. Unsubscribing twice is a no-op.
func (s *Store) Watch(fn func(Event)) func() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	return func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.watchers, id)
	}
}

// notify delivers an event to all watchers. Called without s.mu held so
// watchers may call back into the store.
func (s *Store) notify(ev Event) {
	s.watchMu.Lock()
	fns := make([]func(Event), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// ParseFeatureCollection decodes raw GeoJSON into a feature collection,
// returning a ValidationError when the payload is not one.
func ParseFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("not a GeoJSON feature collection: %v", err)}
	}
	if fc.Features == nil {
		return nil, &ValidationError{Msg: "GeoJSON has no features collection"}
	}
	return fc, nil
}

// AddLayer registers a new default-visible layer and assigns it a fresh id
// and the next palette color.
func (s *Store) AddLayer(name string, fc *geojson.FeatureCollection) (*models.Layer, error) {
	if fc == nil || fc.Features == nil {
		return nil, &ValidationError{Msg: "GeoJSON has no features collection"}
	}

	s.mu.Lock()
	var id string
	for {
		var err error
		id, err = generateLayerID()
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("generate layer id: %w", err)
		}
		if _, taken := s.layerByID[id]; !taken {
			break
		}
	}

	layer := &models.Layer{
		ID:        id,
		Name:      name,
		GeoJSON:   fc,
		Visible:   true,
		Color:     Palette[s.colorIdx%len(Palette)],
		CreatedAt: time.Now().UTC(),
	}
	s.colorIdx++
	s.layers = append(s.layers, layer)
	s.layerByID[id] = layer
	s.mu.Unlock()

	s.notify(Event{Kind: LayerAdded, LayerID: id})
	return layer, nil
}

// RemoveLayer deletes a layer. Its features are pruned from the selection
// set, and watchers (the render sync) are notified before this call returns.
func (s *Store) RemoveLayer(id string) error {
	s.mu.Lock()
	layer, ok := s.layerByID[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("layer %s: %w", id, ErrNotFound)
	}
	delete(s.layerByID, id)
	for i, l := range s.layers {
		if l.ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			break
		}
	}
	for _, fid := range featureIDs(layer.GeoJSON) {
		delete(s.selected, fid)
	}
	s.mu.Unlock()

	s.notify(Event{Kind: LayerRemoved, LayerID: id})
	return nil
}

// SetVisibility flips a layer's visibility and triggers reconciliation.
func (s *Store) SetVisibility(id string, visible bool) error {
	s.mu.Lock()
	layer, ok := s.layerByID[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("layer %s: %w", id, ErrNotFound)
	}
	changed := layer.Visible != visible
	layer.Visible = visible
	s.mu.Unlock()

	if changed {
		s.notify(Event{Kind: LayerVisibility, LayerID: id, Visible: visible})
	}
	return nil
}

// Layer returns the layer with the given id.
func (s *Store) Layer(id string) (*models.Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layerByID[id]
	return l, ok
}

// Layers returns all layers in insertion order.
func (s *Store) Layers() []*models.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// AddDrawnFeature registers a user-drawn feature. Drawn features are always
// rendered while present; there is no visibility flag.
func (s *Store) AddDrawnFeature(f *geojson.Feature) (*models.DrawnFeature, error) {
	if f == nil || f.Geometry == nil {
		return nil, &ValidationError{Msg: "drawn feature has no geometry"}
	}

	s.mu.Lock()
	var id string
	for {
		var err error
		id, err = generateDrawnID()
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("generate feature id: %w", err)
		}
		if _, taken := s.drawnByID[id]; !taken {
			break
		}
	}

	df := &models.DrawnFeature{ID: id, Feature: f, CreatedAt: time.Now().UTC()}
	s.drawn = append(s.drawn, df)
	s.drawnByID[id] = df
	s.mu.Unlock()

	s.notify(Event{Kind: DrawnAdded, DrawnID: id})
	return df, nil
}

// RemoveDrawnFeature deletes a drawn feature and prunes it from selection.
func (s *Store) RemoveDrawnFeature(id string) error {
	s.mu.Lock()
	if _, ok := s.drawnByID[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("drawn feature %s: %w", id, ErrNotFound)
	}
	delete(s.drawnByID, id)
	for i, d := range s.drawn {
		if d.ID == id {
			s.drawn = append(s.drawn[:i], s.drawn[i+1:]...)
			break
		}
	}
	delete(s.selected, id)
	s.mu.Unlock()

	s.notify(Event{Kind: DrawnRemoved, DrawnID: id})
	return nil
}

// DrawnFeature returns the drawn feature with the given id.
func (s *Store) DrawnFeature(id string) (*models.DrawnFeature, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drawnByID[id]
	return d, ok
}

// DrawnFeatures returns all drawn features in draw order.
func (s *Store) DrawnFeatures() []*models.DrawnFeature {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.DrawnFeature, len(s.drawn))
	copy(out, s.drawn)
	return out
}

// ExportMerged builds the feature collection submitted for planning and
// export: every visible layer's features in layer insertion order, then all
// drawn features in draw order. Features carrying an id already seen in an
// earlier layer are dropped so the merge never contains duplicate ids.
func (s *Store) ExportMerged() *geojson.FeatureCollection {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := geojson.NewFeatureCollection()
	seen := make(map[string]struct{})

	appendFeature := func(f *geojson.Feature) {
		if fid := featureID(f); fid != "" {
			if _, dup := seen[fid]; dup {
				return
			}
			seen[fid] = struct{}{}
		}
		merged.Append(f)
	}

	for _, layer := range s.layers {
		if !layer.Visible {
			continue
		}
		for _, f := range layer.GeoJSON.Features {
			appendFeature(f)
		}
	}
	for _, d := range s.drawn {
		f := d.Feature
		if f.ID == nil {
			// Stamp the arena id so drawn features stay addressable
			// in the merged output.
			f.ID = d.ID
		}
		appendFeature(f)
	}
	return merged
}

// featureID normalizes a GeoJSON feature id to a string; empty means the
// feature carries no id.
func featureID(f *geojson.Feature) string {
	if f == nil || f.ID == nil {
		return ""
	}
	return fmt.Sprint(f.ID)
}

// featureIDs collects the non-empty feature ids of a collection.
func featureIDs(fc *geojson.FeatureCollection) []string {
	var ids []string
	for _, f := range fc.Features {
		if fid := featureID(f); fid != "" {
			ids = append(ids, fid)
		}
	}
	return ids
}
