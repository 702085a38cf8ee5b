package store

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func fcWithPoints(t *testing.T, ids ...string) *geojson.FeatureCollection {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	for i, id := range ids {
		f := geojson.NewFeature(orb.Point{float64(i), float64(i)})
		if id != "" {
			f.ID = id
		}
		fc.Append(f)
	}
	return fc
}

func TestAddLayerAssignsIDAndColor(t *testing.T) {
	s := New()

	l1, err := s.AddLayer("sites", fcWithPoints(t, "a", "b"))
	if err != nil {
		t.Fatalf("add layer: %v", err)
	}
	l2, err := s.AddLayer("cables", fcWithPoints(t, "c"))
	if err != nil {
		t.Fatalf("add layer: %v", err)
	}

	if l1.ID == "" || l2.ID == "" || l1.ID == l2.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", l1.ID, l2.ID)
	}
	if !l1.Visible || !l2.Visible {
		t.Fatal("new layers must be default-visible")
	}
	if l1.Color == "" || l2.Color == "" {
		t.Fatal("new layers must receive a palette color")
	}
	if l1.Color == l2.Color {
		t.Fatalf("consecutive layers should cycle the palette, both got %q", l1.Color)
	}
}

func TestAddLayerRejectsMissingFeatures(t *testing.T) {
	s := New()

	if _, err := s.AddLayer("bad", nil); err == nil {
		t.Fatal("expected validation error for nil collection")
	}

	var verr *ValidationError
	_, err := s.AddLayer("bad", &geojson.FeatureCollection{})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestParseFeatureCollection(t *testing.T) {
	fc, err := ParseFeatureCollection([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}

	var verr *ValidationError
	if _, err := ParseFeatureCollection([]byte(`{"nope":true`)); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for malformed JSON, got %v", err)
	}
}

func TestExportMergedOrderAndCounts(t *testing.T) {
	s := New()

	if _, err := s.AddLayer("first", fcWithPoints(t, "f1", "f2", "f3")); err != nil {
		t.Fatalf("add layer: %v", err)
	}
	merged := s.ExportMerged()
	if len(merged.Features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(merged.Features))
	}
	for i, want := range []string{"f1", "f2", "f3"} {
		if got := merged.Features[i].ID; got != want {
			t.Errorf("feature %d: got id %v, want %s", i, got, want)
		}
	}

	// A second layer's features follow the first layer's.
	if _, err := s.AddLayer("second", fcWithPoints(t, "g1")); err != nil {
		t.Fatalf("add layer: %v", err)
	}
	merged = s.ExportMerged()
	if len(merged.Features) != 4 {
		t.Fatalf("expected 4 features, got %d", len(merged.Features))
	}
	if merged.Features[3].ID != "g1" {
		t.Fatalf("expected g1 last, got %v", merged.Features[3].ID)
	}
}

func TestExportMergedSkipsHiddenAndDuplicates(t *testing.T) {
	s := New()

	l1, _ := s.AddLayer("visible", fcWithPoints(t, "a", "b"))
	l2, _ := s.AddLayer("hidden", fcWithPoints(t, "c"))
	// Duplicate id "a" in a later layer must be suppressed.
	if _, err := s.AddLayer("dup", fcWithPoints(t, "a", "d")); err != nil {
		t.Fatalf("add layer: %v", err)
	}
	if err := s.SetVisibility(l2.ID, false); err != nil {
		t.Fatalf("set visibility: %v", err)
	}

	merged := s.ExportMerged()
	if len(merged.Features) != 3 {
		t.Fatalf("expected a,b,d = 3 features, got %d", len(merged.Features))
	}

	// Idempotent with no intervening mutation.
	again := s.ExportMerged()
	if len(again.Features) != len(merged.Features) {
		t.Fatalf("export not idempotent: %d then %d", len(merged.Features), len(again.Features))
	}
	_ = l1
}

func TestExportMergedIncludesDrawnFeatures(t *testing.T) {
	s := New()
	s.AddLayer("base", fcWithPoints(t, "a"))

	df, err := s.AddDrawnFeature(geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}))
	if err != nil {
		t.Fatalf("add drawn: %v", err)
	}

	merged := s.ExportMerged()
	if len(merged.Features) != 2 {
		t.Fatalf("expected layer feature + drawn feature, got %d", len(merged.Features))
	}
	if got := merged.Features[1].ID; got != df.ID {
		t.Fatalf("drawn feature should carry its arena id, got %v", got)
	}
}

func TestRemoveLayerPrunesSelection(t *testing.T) {
	s := New()
	l, _ := s.AddLayer("sites", fcWithPoints(t, "a", "b"))

	s.Select("a")
	s.Select("b")
	s.Select("elsewhere")

	if err := s.RemoveLayer(l.ID); err != nil {
		t.Fatalf("remove layer: %v", err)
	}

	sel := s.Selected()
	if len(sel) != 1 || sel[0] != "elsewhere" {
		t.Fatalf("expected only unrelated selection to survive, got %v", sel)
	}
}

func TestRemoveDrawnFeaturePrunesSelection(t *testing.T) {
	s := New()
	df, _ := s.AddDrawnFeature(geojson.NewFeature(orb.Point{5, 5}))
	s.Select(df.ID)

	if err := s.RemoveDrawnFeature(df.ID); err != nil {
		t.Fatalf("remove drawn: %v", err)
	}
	if s.IsSelected(df.ID) {
		t.Fatal("selection must not dangle after removal")
	}
	if err := s.RemoveDrawnFeature(df.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double remove, got %v", err)
	}
}

func TestWatchNotifications(t *testing.T) {
	s := New()
	var events []Event
	unsub := s.Watch(func(ev Event) { events = append(events, ev) })

	l, _ := s.AddLayer("sites", fcWithPoints(t, "a"))
	s.SetVisibility(l.ID, false)
	s.SetVisibility(l.ID, false) // no change, no event
	s.RemoveLayer(l.ID)

	want := []EventKind{LayerAdded, LayerVisibility, LayerRemoved}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, k := range want {
		if events[i].Kind != k {
			t.Errorf("event %d: got kind %d, want %d", i, events[i].Kind, k)
		}
	}

	unsub()
	s.AddLayer("more", fcWithPoints(t, "b"))
	if len(events) != len(want) {
		t.Fatal("unsubscribed watcher still received events")
	}
}

func TestToggleSelect(t *testing.T) {
	s := New()
	if !s.ToggleSelect("x") {
		t.Fatal("first toggle should select")
	}
	if s.ToggleSelect("x") {
		t.Fatal("second toggle should deselect")
	}
	if s.IsSelected("x") {
		t.Fatal("x should not be selected")
	}
}
