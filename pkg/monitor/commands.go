package monitor

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/models"
	"github.com/dominggo/ai-osp/internal/version"
)

type healthTickMsg struct{}

type planDoneMsg struct {
	result *models.PlanResult
	err    error
}

type enrichDoneMsg struct {
	err error
}

type feedbackSentMsg struct {
	stored bool
	err    error
}

type flushDoneMsg struct {
	sent      int
	remaining int
	err       error
}

func healthTickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return healthTickMsg{}
	})
}

func checkVersionCmd(current string) tea.Cmd {
	return version.CheckAsync(current)
}

// submitPlanCmd runs the blocking submission off the update loop. The
// session itself enforces single-flight; a concurrent submit surfaces
// planning.ErrBusy through planDoneMsg.
func (m *Model) submitPlanCmd(target models.Target, mode models.PlanMode, merged *geojson.FeatureCollection) tea.Cmd {
	req := models.PlanRequest{Mode: mode, GeoJSON: merged}
	switch mode {
	case models.ModeFTTH:
		req.FTTH = &models.FTTHConfig{MaxDropLength: 150, SplitterRatio: "1:32"}
	case models.ModeP2P:
		req.P2P = &models.P2PConfig{Redundancy: false}
	}
	return func() tea.Msg {
		result, err := m.Session.Submit(context.Background(), target, req)
		return planDoneMsg{result: result, err: err}
	}
}

// enrichCmd asks the layer server for SPOF analysis and merges it into the
// retained result.
func (m *Model) enrichCmd(merged *geojson.FeatureCollection) tea.Cmd {
	return func() tea.Msg {
		err := m.Session.Enrich(context.Background(), merged, m.API.AnalyzeSPOF)
		return enrichDoneMsg{err: err}
	}
}

func (m *Model) submitFeedbackCmd(rec models.FeedbackRecord) tea.Cmd {
	return func() tea.Msg {
		stored, err := m.Queue.Submit(context.Background(), rec, func(ctx context.Context, r models.FeedbackRecord) error {
			return m.API.SubmitFeedback(ctx, r)
		})
		return feedbackSentMsg{stored: stored, err: err}
	}
}

func (m *Model) flushFeedbackCmd() tea.Cmd {
	return func() tea.Msg {
		sent, remaining, err := m.Queue.Flush(context.Background(), func(ctx context.Context, r models.FeedbackRecord) error {
			return m.API.SubmitFeedback(ctx, r)
		})
		return flushDoneMsg{sent: sent, remaining: remaining, err: err}
	}
}
