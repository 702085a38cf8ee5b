package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dominggo/ai-osp/internal/models"
	"github.com/dominggo/ai-osp/internal/planning"
)

const selectedFeatureColor = "214"

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	titleStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor)

	// Health badges
	healthStyles = map[models.HealthState]lipgloss.Style{
		models.HealthOnline:  lipgloss.NewStyle().Foreground(successColor),
		models.HealthOffline: lipgloss.NewStyle().Foreground(errorColor),
		models.HealthUnknown: lipgloss.NewStyle().Foreground(mutedColor),
	}

	// Session state badges
	stateStyles = map[planning.State]lipgloss.Style{
		planning.StateSubmitting: lipgloss.NewStyle().Foreground(warningColor),
		planning.StateEnriching:  lipgloss.NewStyle().Foreground(warningColor),
		planning.StateSucceeded:  lipgloss.NewStyle().Foreground(successColor),
		planning.StateFailed:     lipgloss.NewStyle().Foreground(errorColor),
	}

	// Selected row style
	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("237")).
				Foreground(lipgloss.Color("255"))

	hiddenLayerStyle = lipgloss.NewStyle().Foreground(mutedColor).Strikethrough(true)
)
