package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dominggo/ai-osp/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version and check for updates",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ai-osp %s\n", rootVersion)

		if versionNoCheck || version.IsDevelopmentVersion(rootVersion) {
			return
		}
		result := version.Check(rootVersion)
		if result.Error != nil || !result.HasUpdate {
			return
		}
		fmt.Printf("\nUpdate available: %s -> %s\n", result.CurrentVersion, result.LatestVersion)
		if cmdline := version.UpdateCommand(result.LatestVersion); cmdline != "" {
			fmt.Printf("Run: %s\n", cmdline)
		}
	},
}

var versionNoCheck bool

func init() {
	versionCmd.Flags().BoolVar(&versionNoCheck, "no-check", false, "skip the update check")
	rootCmd.AddCommand(versionCmd)
}
