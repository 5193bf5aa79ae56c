// Package cli implements the companion command line.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/moomina/companion-go/pkg/core"
)

var (
	envFile    string
	configPath string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Companion chat backend",
	Long: "Runs the companion HTTP server and scheduler, and manages its memories,\n" +
		"messages and profile from the terminal.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this .env file (default: nearest .env)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "JSON or YAML config file; overrides the environment")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// loadConfig resolves configuration: --config wins, then --env-file, then
// the process environment.
func loadConfig() (*core.Config, error) {
	switch {
	case configPath != "":
		return core.LoadConfigFromFile(configPath)
	case envFile != "":
		return core.LoadConfigFromEnvFile(envFile)
	default:
		return core.LoadConfigFromEnv()
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openClient(opts ...core.ClientOption) (*core.Client, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger()
	client, err := core.NewClient(cfg, append([]core.ClientOption{core.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("open companion: %w", err)
	}
	return client, logger, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
