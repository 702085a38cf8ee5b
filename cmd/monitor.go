package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/pkg/monitor"
)

var monitorCmd = &cobra.Command{
	Use:     "monitor [file.geojson]...",
	Aliases: []string{"workbench", "ui"},
	Short:   "Open the interactive planning workbench",
	Long: `Monitor opens the full-screen workbench: a terminal map of the loaded
layers, target health, plan submission and feedback, all in one view.
Any GeoJSON files given as arguments are loaded as layers at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		m, err := monitor.New(baseDir, cfg, rootVersion)
		if err != nil {
			return err
		}
		for _, path := range args {
			if err := m.LoadLayerFile(path); err != nil {
				m.Close()
				return err
			}
		}

		p := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("workbench: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
