package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/internal/store"
)

var layerCmd = &cobra.Command{
	Use:     "layer",
	Aliases: []string{"layers"},
	Short:   "Manage geospatial layers on the layer server",
}

var layerAddCmd = &cobra.Command{
	Use:   "add <file.geojson>",
	Short: "Validate and upload a GeoJSON layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read layer file: %w", err)
		}
		// Validate locally before shipping bytes to the server.
		fc, err := store.ParseFeatureCollection(data)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		desc, err := newAPIClient(cfg).UploadLayer(cmd.Context(), name, filepath.Base(args[0]), data)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %s (%d features) as %s\n", name, len(fc.Features), desc.ID)
		return nil
	},
}

var layerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List layers stored on the layer server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		layers, err := newAPIClient(cfg).ListLayers(cmd.Context())
		if err != nil {
			return err
		}
		if len(layers) == 0 {
			fmt.Println("No layers stored.")
			return nil
		}
		for _, l := range layers {
			fmt.Printf("%-12s %s\n", l.ID, l.Name)
		}
		return nil
	},
}

var layerRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a stored layer",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := newAPIClient(cfg).DeleteLayer(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var layerMergeCmd = &cobra.Command{
	Use:   "merge <file.geojson>...",
	Short: "Merge layer files into one feature collection",
	Long: `Merge builds the same feature collection a planning submission would carry:
all features in file order with duplicate feature ids suppressed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadLayerFiles(args)
		if err != nil {
			return err
		}
		merged := st.ExportMerged()

		data, err := merged.MarshalJSON()
		if err != nil {
			return fmt.Errorf("marshal merged collection: %w", err)
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Printf("Wrote %d features to %s\n", len(merged.Features), out)
		return nil
	},
}

// loadLayerFiles builds an in-memory store from local GeoJSON files.
func loadLayerFiles(paths []string) (*store.Store, error) {
	st := store.New()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		fc, err := store.ParseFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, err := st.AddLayer(name, fc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return st, nil
}

func init() {
	layerAddCmd.Flags().String("name", "", "layer name (defaults to the file name)")
	layerMergeCmd.Flags().String("out", "", "write merged GeoJSON to a file instead of stdout")

	layerCmd.AddCommand(layerAddCmd)
	layerCmd.AddCommand(layerListCmd)
	layerCmd.AddCommand(layerRmCmd)
	layerCmd.AddCommand(layerMergeCmd)
	rootCmd.AddCommand(layerCmd)
}
