package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dominggo/ai-osp/internal/apiclient"
	"github.com/dominggo/ai-osp/internal/config"
	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/models"
)

var (
	rootVersion string
	baseDir     string
	verbose     bool
)

// SetVersion sets the version string
func SetVersion(v string) {
	rootVersion = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "ai-osp",
	Short: "AI-assisted fiber network planning workbench",
	Long: `ai-osp - client workbench for AI-assisted outside-plant fiber network planning.

Manages geospatial layers, dispatches planning requests to the two remote
compute targets, and keeps feedback durable when the servers are unreachable.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir, initLogging)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ToLower(name))
	})
}

func initBaseDir() {
	var err error
	baseDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads the workspace config with env overrides applied.
func loadConfig() (*models.Config, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newDispatcher(cfg *models.Config) *dispatch.Client {
	return dispatch.New(
		config.TargetURL(cfg, models.TargetA),
		config.TargetURL(cfg, models.TargetB),
	)
}

func newAPIClient(cfg *models.Config) *apiclient.Client {
	return apiclient.New(config.APIURL(cfg))
}
