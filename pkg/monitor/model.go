package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/dominggo/ai-osp/internal/apiclient"
	"github.com/dominggo/ai-osp/internal/config"
	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/feedback"
	"github.com/dominggo/ai-osp/internal/health"
	"github.com/dominggo/ai-osp/internal/models"
	"github.com/dominggo/ai-osp/internal/planning"
	"github.com/dominggo/ai-osp/internal/render"
	"github.com/dominggo/ai-osp/internal/store"
)

// Panel identifies a focusable panel in the workbench.
type Panel int

const (
	PanelMap Panel = iota
	PanelLayers
	PanelStatus
)

// Model is the main Bubble Tea model for the planning workbench.
type Model struct {
	// Domain state
	Store   *store.Store
	Canvas  *Canvas
	Sync    *render.Sync
	Session *planning.Session
	Health  *health.Monitor
	Queue   *feedback.Queue
	API     *apiclient.Client
	Config  *models.Config

	// Window dimensions
	Width  int
	Height int

	// UI state
	ActivePanel Panel
	LayerCursor int
	Status      string
	Err         error
	LastRefresh time.Time

	// Health snapshots keyed by target, refreshed each probe cycle
	HealthStatus map[models.Target]models.HealthStatus

	// Plan submission state
	PlanTarget models.Target
	PlanMode   models.PlanMode
	Submitting bool
	Spinner    spinner.Model

	// Result modal (rendered markdown)
	ResultOpen     bool
	ResultView     string
	ResultScroll   int
	ResultMarkdown string

	// Feedback form
	FeedbackOpen   bool
	FeedbackForm   *huh.Form
	feedbackRating *int
	feedbackText   *string

	// Layer load prompt
	LoadOpen  bool
	LoadInput textinput.Model

	// Update notification
	UpdateNotice string

	// Version string shown in the footer
	Version string

	cancelHealth context.CancelFunc
}

// New wires the full workbench: store, canvas, reconciler, session, health
// monitor and the durable feedback queue.
func New(baseDir string, cfg *models.Config, version string) (*Model, error) {
	st := store.New()
	canvas := NewCanvas()
	sync := render.New(st, canvas)

	client := dispatch.New(
		config.TargetURL(cfg, models.TargetA),
		config.TargetURL(cfg, models.TargetB),
	)
	session := planning.New(client, func(t models.Target) dispatch.Policy {
		return dispatch.Policy{Timeout: config.PlanTimeout(cfg, t)}
	})
	mon := health.New(client, config.ProbeTimeout(cfg), config.ProbeInterval(cfg))

	queue, err := feedback.Open(baseDir)
	if err != nil {
		return nil, fmt.Errorf("open feedback queue: %w", err)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	li := textinput.New()
	li.Placeholder = "path/to/layer.geojson"
	li.CharLimit = 512

	m := &Model{
		Store:        st,
		Canvas:       canvas,
		Sync:         sync,
		Session:      session,
		Health:       mon,
		Queue:        queue,
		API:          apiclient.New(config.APIURL(cfg)),
		Config:       cfg,
		ActivePanel:  PanelMap,
		PlanTarget:   models.TargetA,
		PlanMode:     models.ModeFTTH,
		Spinner:      sp,
		LoadInput:    li,
		HealthStatus: map[models.Target]models.HealthStatus{},
		Status:       "ready",
		Version:      version,
	}
	return m, nil
}

// LoadLayerFile reads and registers a GeoJSON file as a new layer.
func (m *Model) LoadLayerFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	fc, err := store.ParseFeatureCollection(data)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	if _, err := m.Store.AddLayer(name, fc); err != nil {
		return err
	}
	m.Sync.FitAll()
	return nil
}

// Close releases everything the workbench holds open.
func (m *Model) Close() {
	if m.cancelHealth != nil {
		m.cancelHealth()
	}
	m.Sync.Close()
	if m.Queue != nil {
		m.Queue.Close()
	}
}

func (m *Model) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHealth = cancel
	go m.Health.Run(ctx)

	return tea.Batch(
		m.Spinner.Tick,
		healthTickCmd(),
		checkVersionCmd(m.Version),
	)
}
