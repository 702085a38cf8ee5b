package cmd

import (
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/internal/feedback"
	"github.com/dominggo/ai-osp/internal/models"
)

var exportCmd = &cobra.Command{
	Use:   "export [file.geojson]...",
	Short: "Export the project as a downloadable archive",
	Long: `Export sends the merged layers, an optional plan result and any
feedback records to the layer server, which returns an archive in the
requested formats (geojson, kml, csv, pdf).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var merged *geojson.FeatureCollection
		if len(args) > 0 {
			st, err := loadLayerFiles(args)
			if err != nil {
				return err
			}
			merged = st.ExportMerged()
		}

		var result *models.PlanResult
		if exportResult != "" {
			var err error
			result, err = loadPlanResult(exportResult)
			if err != nil {
				return err
			}
		}

		var fb []models.FeedbackRecord
		if exportFeedback {
			q, err := feedback.Open(baseDir)
			if err != nil {
				return err
			}
			fb, err = q.Pending()
			q.Close()
			if err != nil {
				return err
			}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := newAPIClient(cfg).Export(cmd.Context(), exportFormats, merged, result, fb)
		if err != nil {
			return err
		}

		if err := os.WriteFile(exportOut, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(data), exportOut)
		return nil
	},
}

var (
	exportFormats  []string
	exportResult   string
	exportOut      string
	exportFeedback bool
)

func init() {
	exportCmd.Flags().StringSliceVarP(&exportFormats, "format", "f", []string{"geojson"}, "export formats")
	exportCmd.Flags().StringVar(&exportResult, "result", "", "plan result JSON to include")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "export.zip", "output archive path")
	exportCmd.Flags().BoolVar(&exportFeedback, "feedback", false, "include pending feedback records")
	rootCmd.AddCommand(exportCmd)
}
