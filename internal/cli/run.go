package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"hrqc/internal/config"
	"hrqc/internal/registry"
	"hrqc/internal/report"
	"hrqc/internal/service"
	"hrqc/internal/store"
)

const progressWidth = 30

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "QC every recording under the data root.",
		Long: `Discover every recording under data.root, run session QC on each of them
with a worker pool, store the results and write the QC and zone reports.

Examples:
  # QC the configured data root
  hrqc run

  # Override the data root and write parquet files too
  hrqc run --data-root /data/HR --parquet-dir out/parquet`,
		Args: cobra.NoArgs,
		RunE: runQC,
	}
	cmd.Flags().String("parquet-dir", "", "Also write parquet reports to this directory")
	cmd.Flags().Bool("no-progress", false, "Do not draw the progress bar")
	return cmd
}

func runQC(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("parquet-dir"); dir != "" {
		cfg.Output.ParquetDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	reg, err := registry.Load(cfg.Registry.Path, cfg.Registry.Sheet)
	if err != nil {
		return fmt.Errorf("loading zone registry: %w", err)
	}
	logger.Info("loaded zone registry", "path", cfg.Registry.Path, "subjects", reg.Subjects())

	st, err := store.Open(cfg.Output.DBPath, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	svc := service.NewQCService(st, service.NewBatch(reg, cfg, logger), logger)

	progress := make(chan service.Progress, cfg.Workers)
	done := make(chan struct{})
	quiet, _ := cmd.Flags().GetBool("no-progress")
	go func() {
		defer close(done)
		drawProgress(cmd.ErrOrStderr(), progress, quiet)
	}()

	res, runErr := svc.RunAll(cmd.Context(), cfg.Data.Root, progress)
	<-done
	if res == nil {
		return runErr
	}

	if err := writeReports(cfg.Output, res.Results, logger); err != nil {
		return err
	}
	if err := report.WriteSummary(cmd.OutOrStdout(), res.Run, res.Results); err != nil {
		return err
	}
	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run %s interrupted after %d files: %w", res.Run.ID, len(res.Results), runErr)
	}
	return runErr
}

func drawProgress(w io.Writer, progress <-chan service.Progress, quiet bool) {
	drawn := false
	for p := range progress {
		if quiet || p.Total == 0 {
			continue
		}
		fmt.Fprintf(w, "\r%s %d/%d", report.RenderProgressBar(float64(p.Completed)/float64(p.Total), progressWidth), p.Completed, p.Total)
		drawn = true
	}
	if drawn {
		fmt.Fprintln(w)
	}
}

// writeReports writes the CSV reports and, when configured, the parquet files
func writeReports(out config.OutputConfig, results []store.FileResult, logger *slog.Logger) error {
	if err := report.WriteFile(out.QCCSV, results, report.WriteQCCSV); err != nil {
		return err
	}
	if err := report.WriteFile(out.ZoneCSV, results, report.WriteZoneCSV); err != nil {
		return err
	}
	logger.Info("wrote reports", "qc", out.QCCSV, "zones", out.ZoneCSV)

	if out.ParquetDir == "" {
		return nil
	}
	if err := report.WriteParquet(out.ParquetDir, results); err != nil {
		return fmt.Errorf("writing parquet reports: %w", err)
	}
	logger.Info("wrote parquet reports", "dir", out.ParquetDir)
	return nil
}
