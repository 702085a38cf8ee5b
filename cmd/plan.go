package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/internal/config"
	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/models"
	"github.com/dominggo/ai-osp/internal/planning"
)

// autoTargetThreshold is server A's advertised site capacity; larger
// networks go to target B. This is caller policy, not dispatcher logic.
const autoTargetThreshold = 20

var planCmd = &cobra.Command{
	Use:   "plan <file.geojson>...",
	Short: "Submit a planning request to a compute target",
	Long: `Plan merges the given layer files and submits them for route computation.

Target A answers within seconds and suits small networks; target B takes
minutes but handles large ones. Use --target auto to pick by network size.
Ctrl-C cancels an in-flight submission.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := models.PlanMode(planMode)
		if !mode.Valid() {
			return fmt.Errorf("unknown mode %q (want ftth or p2p)", planMode)
		}

		st, err := loadLayerFiles(args)
		if err != nil {
			return err
		}
		merged := st.ExportMerged()
		if len(merged.Features) == 0 {
			return fmt.Errorf("nothing to plan: merged collection is empty")
		}

		target, err := resolveTarget(planTarget, merged)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		req := models.PlanRequest{Mode: mode, GeoJSON: merged}
		switch mode {
		case models.ModeFTTH:
			req.FTTH = &models.FTTHConfig{MaxDropLength: 150, SplitterRatio: "1:32"}
		case models.ModeP2P:
			req.P2P = &models.P2PConfig{Redundancy: planRedundancy}
		}

		session := planning.New(newDispatcher(cfg), func(t models.Target) dispatch.Policy {
			return dispatch.Policy{Timeout: config.PlanTimeout(cfg, t)}
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Printf("Submitting %d features to target %s (%s)...\n", len(merged.Features), target, mode)
		result, err := session.Submit(ctx, target, req)
		if err != nil {
			return fmt.Errorf("%s", planning.FailureReason(err))
		}

		if planOut != "" {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal result: %w", err)
			}
			if err := os.WriteFile(planOut, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", planOut, err)
			}
			fmt.Printf("Result written to %s\n", planOut)
		}

		printPlanSummary(result)
		return nil
	},
}

var (
	planMode       string
	planTarget     string
	planOut        string
	planRedundancy bool
)

// resolveTarget maps the --target flag to a concrete target. "auto" routes
// small networks to A and everything else to B.
func resolveTarget(flag string, merged *geojson.FeatureCollection) (models.Target, error) {
	switch flag {
	case "A", "a":
		return models.TargetA, nil
	case "B", "b":
		return models.TargetB, nil
	case "auto":
		if len(merged.Features) <= autoTargetThreshold {
			return models.TargetA, nil
		}
		return models.TargetB, nil
	}
	return "", fmt.Errorf("unknown target %q (want A, B or auto)", flag)
}

func printPlanSummary(result *models.PlanResult) {
	routes := 0
	if result.Routes != nil {
		routes = len(result.Routes.Features)
	}
	fmt.Printf("Plan complete: target %s, %d route features\n", result.Target, routes)
	for k, v := range result.Summary {
		fmt.Printf("  %s: %v\n", k, v)
	}
}

func init() {
	planCmd.Flags().StringVarP(&planMode, "mode", "m", "ftth", "planning mode: ftth or p2p")
	planCmd.Flags().StringVarP(&planTarget, "target", "t", "auto", "compute target: A, B or auto")
	planCmd.Flags().StringVarP(&planOut, "out", "o", "", "write the full result JSON to a file")
	planCmd.Flags().BoolVar(&planRedundancy, "redundancy", false, "request redundant paths (p2p mode)")
	rootCmd.AddCommand(planCmd)
}
