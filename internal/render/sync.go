// Package render keeps the map surface consistent with the layer store: a
// one-to-one mapping between visible layers (plus drawn features) and live
// render handles. It is the only component that mutates the surface.
package render

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/models"
	"github.com/dominggo/ai-osp/internal/store"
)

// RenderError records a failed handle construction for a specific layer.
// The layer stays in the store; the registration is skipped until a later
// visibility toggle retries it.
type RenderError struct {
	LayerID string
	Msg     string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render layer %s: %s", e.LayerID, e.Msg)
}

// drawnStyle is the fixed styling for user-drawn features.
var drawnStyle = Style{Color: "#ffffff"}

// Sync reconciles store state onto a Surface. A single mutex serializes all
// reconciliation, so the add/remove sequence for any given layer id is
// strictly ordered and a stale attach can never land after a detach.
type Sync struct {
	mu      sync.Mutex
	store   *store.Store
	surface Surface

	handles      map[string]Handle // layer id -> live handle
	drawnHandles map[string]Handle // drawn feature id -> live handle
	renderErr    map[string]string // layer id -> last construction failure

	unwatch func()

	subMu    sync.Mutex
	clickSub map[int]func(featureID string)
	drawSub  map[int]func(df *models.DrawnFeature)
	editSub  map[int]func(df *models.DrawnFeature)
	delSub   map[int]func(id string)
	nextSub  int
}

// New wires a Sync between the store and a surface and reconciles whatever
// the store already holds.
func New(st *store.Store, surface Surface) *Sync {
	s := &Sync{
		store:        st,
		surface:      surface,
		handles:      make(map[string]Handle),
		drawnHandles: make(map[string]Handle),
		renderErr:    make(map[string]string),
		clickSub:     make(map[int]func(string)),
		drawSub:      make(map[int]func(*models.DrawnFeature)),
		editSub:      make(map[int]func(*models.DrawnFeature)),
		delSub:       make(map[int]func(string)),
	}
	s.unwatch = st.Watch(s.handleEvent)

	for _, layer := range st.Layers() {
		if layer.Visible {
			s.attachLayer(layer.ID)
		}
	}
	for _, df := range st.DrawnFeatures() {
		s.attachDrawn(df.ID)
	}
	return s
}

// Close detaches from the store and disposes every live handle.
func (s *Sync) Close() {
	s.unwatch()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, h := range s.handles {
		s.surface.RemoveFeatureLayer(h)
		delete(s.handles, id)
	}
	for id, h := range s.drawnHandles {
		s.surface.RemoveFeatureLayer(h)
		delete(s.drawnHandles, id)
	}
}

func (s *Sync) handleEvent(ev store.Event) {
	switch ev.Kind {
	case store.LayerAdded:
		s.attachLayer(ev.LayerID)
	case store.LayerRemoved:
		s.detachLayer(ev.LayerID)
	case store.LayerVisibility:
		if ev.Visible {
			s.attachLayer(ev.LayerID)
		} else {
			s.detachLayer(ev.LayerID)
		}
	case store.DrawnAdded:
		s.attachDrawn(ev.DrawnID)
	case store.DrawnRemoved:
		s.detachDrawn(ev.DrawnID)
	}
}

// attachLayer constructs and registers the handle for a visible layer.
// Already-registered layers are left alone, so a redundant attach never
// produces a duplicate handle.
func (s *Sync) attachLayer(layerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, live := s.handles[layerID]; live {
		return
	}
	layer, ok := s.store.Layer(layerID)
	if !ok || !layer.Visible {
		return
	}

	h, err := s.surface.AddFeatureLayer(layerID, layer.GeoJSON, Style{Color: layer.Color})
	if err != nil {
		// The layer stays recorded; the registration is skipped and the
		// next visibility toggle retries construction.
		s.renderErr[layerID] = err.Error()
		slog.Warn("render handle construction failed", "layer", layerID, "err", err)
		return
	}
	delete(s.renderErr, layerID)
	s.handles[layerID] = h
}

// detachLayer disposes and deregisters a layer's handle. Idempotent: a
// second detach for an already-absent handle is a no-op.
func (s *Sync) detachLayer(layerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.renderErr, layerID)
	h, live := s.handles[layerID]
	if !live {
		return
	}
	delete(s.handles, layerID)
	if err := s.surface.RemoveFeatureLayer(h); err != nil {
		slog.Warn("render handle disposal failed", "layer", layerID, "err", err)
	}
}

func (s *Sync) attachDrawn(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, live := s.drawnHandles[id]; live {
		return
	}
	df, ok := s.store.DrawnFeature(id)
	if !ok {
		return
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(df.Feature)
	h, err := s.surface.AddFeatureLayer(id, fc, drawnStyle)
	if err != nil {
		slog.Warn("drawn feature render failed", "feature", id, "err", err)
		return
	}
	s.drawnHandles[id] = h
}

func (s *Sync) detachDrawn(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, live := s.drawnHandles[id]
	if !live {
		return
	}
	delete(s.drawnHandles, id)
	if err := s.surface.RemoveFeatureLayer(h); err != nil {
		slog.Warn("drawn handle disposal failed", "feature", id, "err", err)
	}
}

// LiveLayerHandles returns the layer ids that currently hold a handle.
func (s *Sync) LiveLayerHandles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.handles))
	for id := range s.handles {
		out = append(out, id)
	}
	return out
}

// RenderErr reports the recorded construction failure for a layer, if any.
func (s *Sync) RenderErr(layerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.renderErr[layerID]
	return msg, ok
}

// --- Viewport pass-through ---

// Bounds returns the surface's current viewport bounds.
func (s *Sync) Bounds() orb.Bound { return s.surface.Bounds() }

// FitBounds asks the surface to frame the given bounds.
func (s *Sync) FitBounds(b orb.Bound) { s.surface.FitBounds(b) }

// SetCenter recenters the surface viewport.
func (s *Sync) SetCenter(center orb.Point, zoom float64) { s.surface.SetCenter(center, zoom) }

// Center returns the surface's center and zoom.
func (s *Sync) Center() (orb.Point, float64) { return s.surface.Center() }

// FitAll frames everything currently exported by the store. A store with no
// geometry leaves the viewport untouched.
func (s *Sync) FitAll() {
	merged := s.store.ExportMerged()
	if len(merged.Features) == 0 {
		return
	}
	bound := merged.Features[0].Geometry.Bound()
	for _, f := range merged.Features[1:] {
		bound = bound.Union(f.Geometry.Bound())
	}
	s.surface.FitBounds(bound)
}
