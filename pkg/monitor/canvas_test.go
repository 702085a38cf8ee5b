package monitor

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/render"
)

func lineCollection(points ...orb.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	ls := make(orb.LineString, len(points))
	copy(ls, points)
	fc.Append(geojson.NewFeature(ls))
	return fc
}

func TestCanvasHandleLifecycle(t *testing.T) {
	c := NewCanvas()

	fc := lineCollection(orb.Point{0, 0}, orb.Point{1, 1})
	h1, err := c.AddFeatureLayer("ly-1", fc, render.Style{Color: "42"})
	if err != nil {
		t.Fatalf("AddFeatureLayer: %v", err)
	}
	h2, err := c.AddFeatureLayer("ly-2", fc, render.Style{Color: "45"})
	if err != nil {
		t.Fatalf("AddFeatureLayer: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct handles, got %v twice", h1)
	}
	if got := c.LayerCount(); got != 2 {
		t.Fatalf("expected 2 layers, got %d", got)
	}

	if err := c.RemoveFeatureLayer(h1); err != nil {
		t.Fatalf("RemoveFeatureLayer: %v", err)
	}
	if got := c.LayerCount(); got != 1 {
		t.Fatalf("expected 1 layer after removal, got %d", got)
	}

	// Unknown handles are tolerated.
	if err := c.RemoveFeatureLayer(999); err != nil {
		t.Fatalf("removing unknown handle: %v", err)
	}
}

func TestCanvasRejectsEmptyCollections(t *testing.T) {
	c := NewCanvas()

	if _, err := c.AddFeatureLayer("ly-1", geojson.NewFeatureCollection(), render.Style{}); err == nil {
		t.Fatal("expected error for empty collection")
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(&geojson.Feature{})
	if _, err := c.AddFeatureLayer("ly-2", fc, render.Style{}); err == nil {
		t.Fatal("expected error for feature without geometry")
	}
}

func TestCanvasRendersGeometry(t *testing.T) {
	c := NewCanvas()
	fc := lineCollection(orb.Point{-1, -1}, orb.Point{1, 1})
	if _, err := c.AddFeatureLayer("ly-1", fc, render.Style{Color: "42"}); err != nil {
		t.Fatalf("AddFeatureLayer: %v", err)
	}
	c.FitBounds(collectionBound(fc))

	out := c.Render(20, 10)
	if !strings.ContainsFunc(out, func(r rune) bool { return r >= 0x2800 && r <= 0x28FF }) {
		t.Fatal("expected braille cells in rendered output")
	}
	if got := len(strings.Split(out, "\n")); got != 10 {
		t.Fatalf("expected 10 rows, got %d", got)
	}
}

func TestCanvasRendersSinglePoint(t *testing.T) {
	c := NewCanvas()
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{13.4, 52.5}))
	if _, err := c.AddFeatureLayer("ly-1", fc, render.Style{Color: "45"}); err != nil {
		t.Fatalf("AddFeatureLayer: %v", err)
	}
	c.FitBounds(collectionBound(fc))

	out := c.Render(16, 8)
	if !strings.ContainsFunc(out, func(r rune) bool { return r >= 0x2800 && r <= 0x28FF }) {
		t.Fatal("expected a single point to produce at least one braille cell")
	}
}

func TestCanvasZoomClamped(t *testing.T) {
	c := NewCanvas()
	for i := 0; i < 100; i++ {
		c.Zoom(2)
	}
	if _, z := c.Center(); z > 64 {
		t.Fatalf("zoom not clamped: %v", z)
	}
	for i := 0; i < 100; i++ {
		c.Zoom(0.5)
	}
	if _, z := c.Center(); z < 0.1 {
		t.Fatalf("zoom not clamped low: %v", z)
	}
}

func TestCanvasViewport(t *testing.T) {
	c := NewCanvas()
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}
	c.FitBounds(b)

	if got := c.Bounds(); got != b {
		t.Fatalf("Bounds = %v, want %v", got, b)
	}
	center, zoom := c.Center()
	if center != b.Center() || zoom != 1.0 {
		t.Fatalf("Center = %v/%v, want %v/1.0", center, zoom, b.Center())
	}

	c.SetCenter(orb.Point{5, 5}, 2.5)
	center, zoom = c.Center()
	if center != (orb.Point{5, 5}) || zoom != 2.5 {
		t.Fatalf("SetCenter not applied: %v/%v", center, zoom)
	}
}
