package models

import (
	"time"

	"github.com/paulmach/orb/geojson"
)

// Target identifies one of the two remote planning servers.
type Target string

const (
	TargetA Target = "A" // fast, always-on, small networks
	TargetB Target = "B" // high-capacity, slow, large networks

	// TargetAPI marks the layer server in classified errors. It is not a
	// planning target and never passes Valid.
	TargetAPI Target = "api"
)

// Valid reports whether t names a known target.
func (t Target) Valid() bool {
	return t == TargetA || t == TargetB
}

// PlanMode represents the planning algorithm requested from a target.
type PlanMode string

const (
	ModeFTTH PlanMode = "ftth"
	ModeP2P  PlanMode = "p2p"
)

// Valid reports whether m names a known planning mode.
func (m PlanMode) Valid() bool {
	return m == ModeFTTH || m == ModeP2P
}

// Layer is one named geospatial layer in the workspace.
// RenderHandle bookkeeping lives in the render package; layers themselves
// never carry render state and serialize cleanly.
type Layer struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	GeoJSON   *geojson.FeatureCollection `json:"geojson"`
	Visible   bool                       `json:"visible"`
	Color     string                     `json:"color"`
	CreatedAt time.Time                  `json:"created_at"`
}

// DrawnFeature is a free-standing feature sketched by the user.
// Drawn features have no visibility flag: they render whenever present.
type DrawnFeature struct {
	ID        string           `json:"id"`
	Feature   *geojson.Feature `json:"feature"`
	CreatedAt time.Time        `json:"created_at"`
}

// FTTHConfig holds fibre-to-the-home mode options.
type FTTHConfig struct {
	MaxDropLength float64 `json:"max_drop_length_m"`
	SplitterRatio string  `json:"splitter_ratio"`
}

// P2PConfig holds point-to-point mode options.
type P2PConfig struct {
	Redundancy bool `json:"redundancy"`
}

// PlanRequest is the body submitted to a target's plan endpoint.
type PlanRequest struct {
	Mode    PlanMode                   `json:"mode"`
	GeoJSON *geojson.FeatureCollection `json:"geojson"`
	FTTH    *FTTHConfig                `json:"ftth_config,omitempty"`
	P2P     *P2PConfig                 `json:"p2p_config,omitempty"`
}

// PlanResult is the payload returned by a target. The route payload stays
// opaque to this client; SPOF is merged in by enrichment once analysis
// completes.
type PlanResult struct {
	Target      Target                     `json:"target"`
	Mode        PlanMode                   `json:"mode"`
	Routes      *geojson.FeatureCollection `json:"routes,omitempty"`
	Summary     map[string]any             `json:"summary,omitempty"`
	SPOF        map[string]any             `json:"spof,omitempty"`
	CompletedAt time.Time                  `json:"completed_at"`
}

// FeedbackRecord is one user feedback entry. Rating 0 means unset.
type FeedbackRecord struct {
	Rating       int       `json:"rating"`
	Comments     string    `json:"comments"`
	Timestamp    time.Time `json:"timestamp"`
	LinkedResult string    `json:"linked_result,omitempty"`
}

// HealthState is the probed reachability of a target.
type HealthState string

const (
	HealthUnknown HealthState = "unknown"
	HealthOnline  HealthState = "online"
	HealthOffline HealthState = "offline"
)

// Capabilities mirrors the capability block a target advertises from its
// health endpoint.
type Capabilities struct {
	MaxSites       int `json:"max_sites"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// HealthStatus is the ephemeral result of one probe cycle for one target.
// It is recomputed every cycle and never persisted.
type HealthStatus struct {
	Target       Target        `json:"target"`
	State        HealthState   `json:"state"`
	Latency      time.Duration `json:"latency"`
	Err          string        `json:"error,omitempty"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
}

// Online reports whether the target answered its last probe.
func (h HealthStatus) Online() bool {
	return h.State == HealthOnline
}

// Config holds the client configuration persisted under .aiosp/config.json.
type Config struct {
	TargetAURL string `json:"target_a_url,omitempty"`
	TargetBURL string `json:"target_b_url,omitempty"`
	APIURL     string `json:"api_url,omitempty"`

	// Timeouts in seconds; zero means use the built-in defaults.
	PlanTimeoutA  int `json:"plan_timeout_a,omitempty"`
	PlanTimeoutB  int `json:"plan_timeout_b,omitempty"`
	ProbeTimeout  int `json:"probe_timeout,omitempty"`
	ProbeInterval int `json:"probe_interval,omitempty"`
}
