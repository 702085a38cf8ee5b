package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Handle is an opaque reference to a feature layer's on-screen
// representation. Handles are issued by a Surface and owned exclusively by
// the Sync; nothing else holds or serializes them.
type Handle any

// Style carries the display styling for a feature layer.
type Style struct {
	Color    string
	Selected bool
}

// Surface is the imperative rendering surface. The Sync is its only caller
// for mutation; gesture input flows the other way, from the surface into the
// Sync's Gesture* methods.
type Surface interface {
	// AddFeatureLayer constructs the on-screen representation of a feature
	// collection and returns its handle. Construction may fail for
	// malformed geometry.
	AddFeatureLayer(layerID string, fc *geojson.FeatureCollection, style Style) (Handle, error)

	// RemoveFeatureLayer disposes a handle. Surfaces tolerate handles they
	// no longer know; the Sync additionally guarantees it never passes the
	// same handle twice.
	RemoveFeatureLayer(h Handle) error

	// Viewport accessors. Pass-throughs with no reconciliation semantics.
	Bounds() orb.Bound
	FitBounds(b orb.Bound)
	SetCenter(center orb.Point, zoom float64)
	Center() (orb.Point, float64)
}
