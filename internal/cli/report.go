package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hrqc/internal/report"
	"hrqc/internal/service"
	"hrqc/internal/store"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a stored QC run.",
		Long: `Load a QC run from the results database and print its summary table.
With --export the CSV and parquet reports are written again from the stored results.

Examples:
  # Summarize the latest run
  hrqc report

  # Rewrite the reports of an earlier run
  hrqc report --run 2f0c7a9e-... --export`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}
	cmd.Flags().String("run", "", "Run id (default: latest run)")
	cmd.Flags().Bool("export", false, "Write the CSV and parquet reports")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Output.DBPath, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	id, _ := cmd.Flags().GetString("run")
	res, err := service.NewQCService(st, nil, logger).LoadRun(cmd.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		if id == "" {
			return errors.New("no QC runs stored yet; run \"hrqc run\" first")
		}
		return fmt.Errorf("%w: %s", err, id)
	}
	if err != nil {
		return err
	}

	if export, _ := cmd.Flags().GetBool("export"); export {
		if err := writeReports(cfg.Output, res.Results, logger); err != nil {
			return err
		}
	}
	return report.WriteSummary(cmd.OutOrStdout(), res.Run, res.Results)
}
