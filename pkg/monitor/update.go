package monitor

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/dominggo/ai-osp/internal/models"
	"github.com/dominggo/ai-osp/internal/planning"
	"github.com/dominggo/ai-osp/internal/version"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case healthTickMsg:
		for _, st := range m.Health.Snapshot() {
			m.HealthStatus[st.Target] = st
		}
		return m, healthTickCmd()

	case version.UpdateAvailableMsg:
		m.UpdateNotice = fmt.Sprintf("update available: %s", msg.LatestVersion)
		return m, nil

	case planDoneMsg:
		m.Submitting = false
		if msg.err != nil {
			m.Err = msg.err
			m.Status = planning.FailureReason(msg.err)
			return m, nil
		}
		m.Err = nil
		routes := 0
		if msg.result.Routes != nil {
			routes = len(msg.result.Routes.Features)
		}
		m.Status = fmt.Sprintf("plan succeeded on target %s (%d routes), analyzing failure points", msg.result.Target, routes)
		return m, m.enrichCmd(m.Store.ExportMerged())

	case enrichDoneMsg:
		if msg.err != nil {
			m.Status = "plan retained; failure-point analysis failed: " + msg.err.Error()
		} else {
			m.Status = "plan complete"
		}
		m.buildResultView()
		m.ResultOpen = true
		return m, nil

	case feedbackSentMsg:
		if msg.err != nil {
			m.Status = "feedback error: " + msg.err.Error()
		} else if msg.stored {
			n, _ := m.Queue.Len()
			m.Status = fmt.Sprintf("server unreachable, feedback stored locally (%d pending)", n)
		} else {
			m.Status = "feedback submitted"
		}
		return m, nil

	case flushDoneMsg:
		if msg.err != nil {
			m.Status = "flush error: " + msg.err.Error()
		} else {
			m.Status = fmt.Sprintf("flushed %d feedback record(s), %d pending", msg.sent, msg.remaining)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.FeedbackOpen && m.FeedbackForm != nil {
		return m.updateFeedbackForm(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal surfaces swallow keys first.
	if m.FeedbackOpen && m.FeedbackForm != nil {
		if msg.String() == "esc" {
			m.FeedbackOpen = false
			m.Status = "feedback dismissed"
			return m, nil
		}
		return m.updateFeedbackForm(msg)
	}

	if m.LoadOpen {
		switch msg.String() {
		case "esc":
			m.LoadOpen = false
			return m, nil
		case "enter":
			path := m.LoadInput.Value()
			m.LoadOpen = false
			m.LoadInput.SetValue("")
			if path == "" {
				return m, nil
			}
			if err := m.LoadLayerFile(path); err != nil {
				m.Status = "load failed: " + err.Error()
			} else {
				m.Status = "loaded " + path
			}
			return m, nil
		default:
			var cmd tea.Cmd
			m.LoadInput, cmd = m.LoadInput.Update(msg)
			return m, cmd
		}
	}

	if m.ResultOpen {
		switch msg.String() {
		case "esc", "q", "enter":
			m.ResultOpen = false
		case "up", "k":
			if m.ResultScroll > 0 {
				m.ResultScroll--
			}
		case "down", "j":
			m.ResultScroll++
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.Close()
		return m, tea.Quit

	case "tab":
		m.ActivePanel = (m.ActivePanel + 1) % 3
		return m, nil

	case "l":
		m.LoadOpen = true
		m.LoadInput.Focus()
		return m, nil

	case "f":
		m.openFeedbackForm()
		return m, tea.Batch(m.FeedbackForm.Init(), m.Spinner.Tick)

	case "F":
		m.Status = "flushing stored feedback"
		return m, m.flushFeedbackCmd()

	case "t":
		if m.PlanTarget == models.TargetA {
			m.PlanTarget = models.TargetB
		} else {
			m.PlanTarget = models.TargetA
		}
		return m, nil

	case "M":
		if m.PlanMode == models.ModeFTTH {
			m.PlanMode = models.ModeP2P
		} else {
			m.PlanMode = models.ModeFTTH
		}
		return m, nil

	case "p":
		merged := m.Store.ExportMerged()
		if len(merged.Features) == 0 {
			m.Status = "nothing to plan: no visible features"
			return m, nil
		}
		m.Submitting = true
		m.Status = fmt.Sprintf("submitting %d features to target %s", len(merged.Features), m.PlanTarget)
		return m, tea.Batch(m.submitPlanCmd(m.PlanTarget, m.PlanMode, merged), m.Spinner.Tick)

	case "c":
		m.Session.Cancel()
		return m, nil

	case "enter":
		if m.ActivePanel == PanelLayers {
			m.toggleLayerAtCursor()
			return m, nil
		}
		if m.Session.Result() != nil {
			m.buildResultView()
			m.ResultOpen = true
		}
		return m, nil

	case " ":
		m.toggleLayerAtCursor()
		return m, nil

	case "d":
		if m.ActivePanel == PanelLayers {
			layers := m.Store.Layers()
			if m.LayerCursor < len(layers) {
				id := layers[m.LayerCursor].ID
				if err := m.Store.RemoveLayer(id); err != nil {
					m.Status = err.Error()
				} else {
					m.Status = "removed layer"
				}
				if m.LayerCursor > 0 {
					m.LayerCursor--
				}
			}
		}
		return m, nil

	case "r":
		m.Sync.FitAll()
		return m, nil

	case "up", "k":
		if m.ActivePanel == PanelLayers {
			if m.LayerCursor > 0 {
				m.LayerCursor--
			}
		} else {
			m.Canvas.Pan(0, 0.1)
		}
		return m, nil

	case "down", "j":
		if m.ActivePanel == PanelLayers {
			if m.LayerCursor < len(m.Store.Layers())-1 {
				m.LayerCursor++
			}
		} else {
			m.Canvas.Pan(0, -0.1)
		}
		return m, nil

	case "left", "h":
		m.Canvas.Pan(-0.1, 0)
		return m, nil

	case "right":
		m.Canvas.Pan(0.1, 0)
		return m, nil

	case "+", "=":
		m.Canvas.Zoom(1.25)
		return m, nil

	case "-":
		m.Canvas.Zoom(0.8)
		return m, nil
	}

	return m, nil
}

func (m *Model) toggleLayerAtCursor() {
	layers := m.Store.Layers()
	if m.LayerCursor >= len(layers) {
		return
	}
	ly := layers[m.LayerCursor]
	if err := m.Store.SetVisibility(ly.ID, !ly.Visible); err != nil {
		m.Status = err.Error()
		return
	}
	if msg, failed := m.Sync.RenderErr(ly.ID); failed {
		m.Status = "render failed: " + msg
	}
}

func (m *Model) updateFeedbackForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.FeedbackForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.FeedbackForm = f
	}
	if m.FeedbackForm.State == huh.StateCompleted {
		m.FeedbackOpen = false
		rec := m.feedbackRecord()
		m.Status = "sending feedback"
		return m, tea.Batch(cmd, m.submitFeedbackCmd(rec))
	}
	if m.FeedbackForm.State == huh.StateAborted {
		m.FeedbackOpen = false
		m.Status = "feedback dismissed"
	}
	return m, cmd
}
