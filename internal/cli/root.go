// Package cli defines the hrqc command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hrqc/internal/config"
)

// Linker flags set at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// flagKeys maps persistent flags to config keys
var flagKeys = map[string]string{
	"data-root":  "data.root",
	"registry":   "registry.path",
	"sheet":      "registry.sheet",
	"workers":    "workers",
	"db":         "output.db_path",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// NewRootCommand builds the hrqc command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hrqc",
		Short: "Quality-check exercise heart-rate recordings.",
		Long: `hrqc trims exercise heart-rate recordings, flags data-quality defects,
checks time spent in the prescribed zones and computes MAZD and TRIMP.`,
		Version:            version,
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableSuggestions: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to config file (default ~/.hrqc/config.json)")
	flags.String("data-root", "", "Directory holding Supervised/ and Unsupervised/")
	flags.String("registry", "", "Zone spreadsheet (.xlsx)")
	flags.String("sheet", "", "Worksheet name in the zone spreadsheet")
	flags.Int("workers", 0, "Number of concurrent workers")
	flags.String("db", "", "Path to the results database")
	flags.String("log-level", "", "Log level: debug or info or warn or error")
	flags.String("log-format", "", "Log format: text or json")

	root.AddCommand(newRunCommand())
	root.AddCommand(newSessionCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newProtocolCommand())
	root.AddCommand(newInitCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig resolves the configuration for cmd. Only flags set on the
// command line override the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	bound := make(map[string]*pflag.Flag)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			bound[key] = f
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, bound)
	if errors.Is(err, config.ErrNoConfig) {
		return nil, fmt.Errorf("%w: %s (run \"hrqc init --config %s\" to create one)", err, path, path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := config.NewLogger(cfg.Log, w)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}
