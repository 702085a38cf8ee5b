package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/internal/config"
	"github.com/dominggo/ai-osp/internal/models"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change client configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		effective := map[string]any{
			"target_a_url":   config.TargetURL(cfg, models.TargetA),
			"target_b_url":   config.TargetURL(cfg, models.TargetB),
			"api_url":        config.APIURL(cfg),
			"plan_timeout_a": config.PlanTimeout(cfg, models.TargetA).String(),
			"plan_timeout_b": config.PlanTimeout(cfg, models.TargetB).String(),
			"probe_timeout":  config.ProbeTimeout(cfg).String(),
			"probe_interval": config.ProbeInterval(cfg).String(),
		}
		out, err := json.MarshalIndent(effective, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set writes one key to .aiosp/config.json.

Keys: target_a_url, target_b_url, api_url, plan_timeout_a, plan_timeout_b,
probe_timeout, probe_interval. Timeouts are in seconds.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		key, value := args[0], args[1]

		switch key {
		case "target_a_url":
			cfg.TargetAURL = value
		case "target_b_url":
			cfg.TargetBURL = value
		case "api_url":
			cfg.APIURL = value
		case "plan_timeout_a", "plan_timeout_b", "probe_timeout", "probe_interval":
			secs, err := strconv.Atoi(value)
			if err != nil || secs < 0 {
				return fmt.Errorf("%s wants a non-negative number of seconds, got %q", key, value)
			}
			switch key {
			case "plan_timeout_a":
				cfg.PlanTimeoutA = secs
			case "plan_timeout_b":
				cfg.PlanTimeoutB = secs
			case "probe_timeout":
				cfg.ProbeTimeout = secs
			case "probe_interval":
				cfg.ProbeInterval = secs
			}
		default:
			return fmt.Errorf("unknown config key %q", key)
		}

		if err := config.Save(baseDir, cfg); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
