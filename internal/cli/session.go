package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hrqc/internal/recording"
	"hrqc/internal/registry"
	"hrqc/internal/report"
	"hrqc/internal/service"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session FILE",
		Short: "QC a single recording and print its report.",
		Long: `Run session QC on one recording without storing the result.

The subject and group are taken from the path (.../Supervised/sub1001/...)
unless --subject or --supervised is given.

Examples:
  hrqc session data/Unsupervised/sub1002/sub1002_wk8_ses1.csv
  hrqc session ~/Downloads/sub1001_wk2_ses1.fit --subject sub1001 --supervised`,
		Args: cobra.ExactArgs(1),
		RunE: runSession,
	}
	cmd.Flags().String("subject", "", "Subject id in the zone registry")
	cmd.Flags().Bool("supervised", false, "Use the supervised weekly plan")
	return cmd
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Registry.Path == "" {
		return errors.New("registry.path is required - the zone spreadsheet (.xlsx)")
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	path := args[0]
	meta := recording.ParsePath(path)
	src := recording.Source{
		Path:       path,
		Group:      meta.Group,
		Subject:    meta.Subject,
		Supervised: meta.Group == recording.GroupSupervised,
	}
	if subject, _ := cmd.Flags().GetString("subject"); subject != "" {
		src.Subject = strings.ToLower(subject)
	}
	if cmd.Flags().Changed("supervised") {
		src.Supervised, _ = cmd.Flags().GetBool("supervised")
		src.Group = recording.GroupUnsupervised
		if src.Supervised {
			src.Group = recording.GroupSupervised
		}
	}
	if src.Subject == "" {
		return fmt.Errorf("no subject folder in %s; pass --subject", path)
	}

	reg, err := registry.Load(cfg.Registry.Path, cfg.Registry.Sheet)
	if err != nil {
		return fmt.Errorf("loading zone registry: %w", err)
	}

	results, err := service.NewBatch(reg, cfg, logger).Run(cmd.Context(), []recording.Source{src}, nil)
	if err != nil {
		return err
	}
	return report.WriteSession(cmd.OutOrStdout(), results[0])
}
