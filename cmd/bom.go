package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var bomCmd = &cobra.Command{
	Use:   "bom <result.json>",
	Short: "Generate a bill of materials from a plan result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := loadPlanResult(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		bom, err := newAPIClient(cfg).GenerateBOM(cmd.Context(), result)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(bom, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bomCmd)
}
