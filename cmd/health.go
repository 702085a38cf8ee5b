package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/internal/config"
	"github.com/dominggo/ai-osp/internal/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe both compute targets once and report their status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		mon := health.New(newDispatcher(cfg), config.ProbeTimeout(cfg), config.ProbeInterval(cfg))
		for _, st := range mon.ProbeOnce(cmd.Context()) {
			if !st.Online() {
				fmt.Printf("target %s  offline  (%s)\n", st.Target, st.Err)
				continue
			}
			line := fmt.Sprintf("target %s  online   %s", st.Target, st.Latency.Round(time.Millisecond))
			if st.Capabilities != nil {
				line += fmt.Sprintf("  max_sites=%d timeout=%ds",
					st.Capabilities.MaxSites, st.Capabilities.TimeoutSeconds)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
