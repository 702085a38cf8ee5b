package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dominggo/ai-osp/internal/models"
	"github.com/dominggo/ai-osp/internal/planning"
)

const sidebarWidth = 34

func (m *Model) View() string {
	if m.Width == 0 || m.Height == 0 {
		return "starting..."
	}

	if m.FeedbackOpen && m.FeedbackForm != nil {
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center,
			panelStyle.Render(m.FeedbackForm.View()))
	}
	if m.ResultOpen {
		return m.resultModalView()
	}

	header := m.headerView()
	footer := m.footerView()
	bodyHeight := m.Height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	mapPanel := m.mapView(m.Width-sidebarWidth-2, bodyHeight)
	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		m.layersView(sidebarWidth, bodyHeight/2),
		m.statusView(sidebarWidth, bodyHeight-bodyHeight/2),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, sidebar)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) headerView() string {
	title := titleStyle.Render(" ai-osp planning workbench ")
	session := string(m.Session.State())
	if style, ok := stateStyles[m.Session.State()]; ok {
		session = style.Render(session)
	}
	right := fmt.Sprintf("target %s  mode %s  session %s", m.PlanTarget, m.PlanMode, session)
	if m.Submitting {
		right = m.Spinner.View() + " " + right
	}
	gap := m.Width - lipgloss.Width(title) - lipgloss.Width(right) - 1
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + right
}

func (m *Model) mapView(w, h int) string {
	style := panelStyle
	if m.ActivePanel == PanelMap {
		style = activePanelStyle
	}
	innerW, innerH := w-4, h-2
	if innerW < 4 {
		innerW = 4
	}
	if innerH < 2 {
		innerH = 2
	}

	content := m.Canvas.Render(innerW, innerH)
	if m.Canvas.LayerCount() == 0 {
		hint := subtleStyle.Render("no layers loaded - press l to load a GeoJSON file")
		content = lipgloss.Place(innerW, innerH, lipgloss.Center, lipgloss.Center, hint)
	}
	if m.LoadOpen {
		prompt := panelTitleStyle.Render("Load layer") + "\n" + m.LoadInput.View()
		content = lipgloss.Place(innerW, innerH, lipgloss.Center, lipgloss.Center, prompt)
	}
	return style.Width(w - 2).Height(h - 2).Render(content)
}

func (m *Model) layersView(w, h int) string {
	style := panelStyle
	if m.ActivePanel == PanelLayers {
		style = activePanelStyle
	}

	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Layers"))
	b.WriteByte('\n')

	layers := m.Store.Layers()
	if len(layers) == 0 {
		b.WriteString(subtleStyle.Render("(none)"))
	}
	for i, ly := range layers {
		count := 0
		if ly.GeoJSON != nil {
			count = len(ly.GeoJSON.Features)
		}
		line := fmt.Sprintf("%s %s (%d)", visibilityGlyph(ly.Visible), ly.Name, count)
		if _, failed := m.Sync.RenderErr(ly.ID); failed {
			line += " " + errorStyle.Render("!")
		}
		switch {
		case m.ActivePanel == PanelLayers && i == m.LayerCursor:
			line = selectedRowStyle.Render(line)
		case !ly.Visible:
			line = hiddenLayerStyle.Render(line)
		default:
			line = lipgloss.NewStyle().Foreground(lipgloss.Color(ly.Color)).Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if drawn := m.Store.DrawnFeatures(); len(drawn) > 0 {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("+ %d drawn", len(drawn))))
		b.WriteByte('\n')
	}
	if sel := m.Store.Selected(); len(sel) > 0 {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("%d selected", len(sel))))
	}

	return style.Width(w - 2).Height(h - 2).Render(b.String())
}

func (m *Model) statusView(w, h int) string {
	style := panelStyle
	if m.ActivePanel == PanelStatus {
		style = activePanelStyle
	}

	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Targets"))
	b.WriteByte('\n')

	targets := make([]models.Target, 0, len(m.HealthStatus))
	for t := range m.HealthStatus {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	if len(targets) == 0 {
		b.WriteString(subtleStyle.Render("probing..."))
		b.WriteByte('\n')
	}
	for _, t := range targets {
		st := m.HealthStatus[t]
		badge := healthStyles[st.State].Render(string(st.State))
		line := fmt.Sprintf("%s  %s", t, badge)
		if st.Online() {
			line += subtleStyle.Render(fmt.Sprintf("  %dms", st.Latency.Milliseconds()))
			if st.Capabilities != nil {
				line += subtleStyle.Render(fmt.Sprintf("  cap %d", st.Capabilities.MaxSites))
			}
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if n, err := m.Queue.Len(); err == nil && n > 0 {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("feedback pending: %d", n)))
		b.WriteByte('\n')
	}
	if m.UpdateNotice != "" {
		b.WriteString(subtleStyle.Render(m.UpdateNotice))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.Status)

	return style.Width(w - 2).Height(h - 2).Render(b.String())
}

func (m *Model) footerView() string {
	keys := []string{
		"tab panels",
		"l load",
		"p plan",
		"t target",
		"M mode",
		"space show/hide",
		"d delete",
		"f feedback",
		"F flush",
		"r fit",
		"+/- zoom",
		"q quit",
	}
	return helpStyle.Render(" " + strings.Join(keys, "  "))
}

func (m *Model) resultModalView() string {
	lines := strings.Split(m.ResultView, "\n")
	maxVisible := m.Height - 4
	if maxVisible < 1 {
		maxVisible = 1
	}
	if m.ResultScroll > len(lines)-maxVisible {
		m.ResultScroll = len(lines) - maxVisible
	}
	if m.ResultScroll < 0 {
		m.ResultScroll = 0
	}
	end := m.ResultScroll + maxVisible
	if end > len(lines) {
		end = len(lines)
	}
	visible := strings.Join(lines[m.ResultScroll:end], "\n")
	hint := helpStyle.Render("  j/k scroll  esc close")
	return lipgloss.JoinVertical(lipgloss.Left, visible, hint)
}

// buildResultView renders the retained plan result as markdown.
func (m *Model) buildResultView() {
	result := m.Session.Result()
	if result == nil {
		m.ResultView = subtleStyle.Render("no plan result")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Plan result\n\n")
	fmt.Fprintf(&b, "- **Target:** %s\n", result.Target)
	fmt.Fprintf(&b, "- **Mode:** %s\n", result.Mode)
	if result.Routes != nil {
		fmt.Fprintf(&b, "- **Routes:** %d\n", len(result.Routes.Features))
	}
	fmt.Fprintf(&b, "- **Completed:** %s\n", result.CompletedAt.Format("2006-01-02 15:04:05"))

	if len(result.Summary) > 0 {
		b.WriteString("\n## Summary\n\n")
		keys := make([]string, 0, len(result.Summary))
		for k := range result.Summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, result.Summary[k])
		}
	}

	if len(result.SPOF) > 0 {
		b.WriteString("\n## Single points of failure\n\n")
		keys := make([]string, 0, len(result.SPOF))
		for k := range result.SPOF {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, result.SPOF[k])
		}
	}

	if m.Session.State() == planning.StateFailed && m.Session.Err() != nil {
		b.WriteString("\n> " + planning.FailureReason(m.Session.Err()) + "\n")
	}

	m.ResultMarkdown = b.String()
	rendered, err := glamour.Render(m.ResultMarkdown, "dark")
	if err != nil {
		m.ResultView = m.ResultMarkdown
		return
	}
	m.ResultView = rendered
	m.ResultScroll = 0
}

func visibilityGlyph(visible bool) string {
	if visible {
		return "●"
	}
	return "○"
}
