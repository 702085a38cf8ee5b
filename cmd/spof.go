package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/internal/models"
)

var spofCmd = &cobra.Command{
	Use:   "spof <result.json> [file.geojson]...",
	Short: "Analyze a plan result for single points of failure",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := loadPlanResult(args[0])
		if err != nil {
			return err
		}

		var merged *geojson.FeatureCollection
		if len(args) > 1 {
			st, err := loadLayerFiles(args[1:])
			if err != nil {
				return err
			}
			merged = st.ExportMerged()
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		analysis, err := newAPIClient(cfg).AnalyzeSPOF(cmd.Context(), merged, result)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func loadPlanResult(path string) (*models.PlanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var result models.PlanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &result, nil
}

func init() {
	rootCmd.AddCommand(spofCmd)
}
