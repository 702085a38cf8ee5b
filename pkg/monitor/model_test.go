package monitor

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dominggo/ai-osp/internal/models"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

const sampleGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "geometry": {"type": "Point", "coordinates": [13.4, 52.5]}, "properties": {"kind": "site"}},
		{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[13.4, 52.5], [13.5, 52.6]]}, "properties": {"kind": "duct"}}
	]
}`

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(t.TempDir(), &models.Config{}, "dev")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestLoadLayerFileAttachesToCanvas(t *testing.T) {
	m := newTestModel(t)

	path := filepath.Join(t.TempDir(), "sites.geojson")
	if err := os.WriteFile(path, []byte(sampleGeoJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.LoadLayerFile(path); err != nil {
		t.Fatalf("LoadLayerFile: %v", err)
	}

	if got := m.Canvas.LayerCount(); got != 1 {
		t.Fatalf("expected 1 canvas layer, got %d", got)
	}
	if got := len(m.Sync.LiveLayerHandles()); got != 1 {
		t.Fatalf("expected 1 live handle, got %d", got)
	}

	// Hiding the layer releases its canvas representation.
	ly := m.Store.Layers()[0]
	if err := m.Store.SetVisibility(ly.ID, false); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}
	if got := m.Canvas.LayerCount(); got != 0 {
		t.Fatalf("expected 0 canvas layers after hide, got %d", got)
	}
}

func TestLoadLayerFileRejectsBadInput(t *testing.T) {
	m := newTestModel(t)

	path := filepath.Join(t.TempDir(), "bad.geojson")
	if err := os.WriteFile(path, []byte(`{"type": "not-geojson"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.LoadLayerFile(path); err == nil {
		t.Fatal("expected parse error")
	}
	if got := len(m.Store.Layers()); got != 0 {
		t.Fatalf("rejected file must not register a layer, got %d", got)
	}
}

func TestTargetAndModeToggles(t *testing.T) {
	m := newTestModel(t)

	if m.PlanTarget != models.TargetA {
		t.Fatalf("default target = %s, want A", m.PlanTarget)
	}
	m.handleKey(keyMsg("t"))
	if m.PlanTarget != models.TargetB {
		t.Fatalf("target after toggle = %s, want B", m.PlanTarget)
	}
	m.handleKey(keyMsg("t"))
	if m.PlanTarget != models.TargetA {
		t.Fatalf("target after second toggle = %s, want A", m.PlanTarget)
	}

	m.handleKey(keyMsg("M"))
	if m.PlanMode != models.ModeP2P {
		t.Fatalf("mode after toggle = %s, want p2p", m.PlanMode)
	}
}

func TestPlanWithNoFeaturesDoesNotSubmit(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.handleKey(keyMsg("p"))
	if cmd != nil {
		t.Fatal("expected no submission command with an empty store")
	}
	if m.Submitting {
		t.Fatal("must not enter submitting state with nothing to plan")
	}
}
