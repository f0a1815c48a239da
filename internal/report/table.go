package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"hrqc/internal/store"
)

// Summary counts the outcome of a batch
type Summary struct {
	Files       int
	WithDefects int
	Failed      int // files with an error defect
	Analysed    int // files with zone metrics
	BoundedMet  int
	Samples     int
	ByKind      map[store.DefectKind]int
}

// Summarize counts files and reported defects
func Summarize(results []store.FileResult) Summary {
	s := Summary{Files: len(results), ByKind: make(map[store.DefectKind]int)}
	for _, r := range results {
		s.Samples += r.SampleCount
		if r.Metrics != nil {
			s.Analysed++
			if r.Metrics.BoundedMet {
				s.BoundedMet++
			}
		}
		if r.Report.Has(store.KindError) {
			s.Failed++
		}

		kinds := reportedKinds(r.Report)
		if len(kinds) > 0 {
			s.WithDefects++
		}
		for _, k := range kinds {
			s.ByKind[k]++
		}
	}
	return s
}

func reportedKinds(report store.ErrorReport) []store.DefectKind {
	var kinds []store.DefectKind
	for _, k := range report.Kinds() {
		if reported(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// WriteSummary prints a per-file table of a run followed by totals
func WriteSummary(w io.Writer, run *store.Run, results []store.FileResult) error {
	if run != nil {
		fmt.Fprintln(w, titleStyle.Render("QC run "+run.ID))
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%s, started %s", run.Root, humanize.Time(run.StartedAt))))
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Group", "Subject", "Week", "Session", "Samples", "Defects", "In Zone", "MAZD", "TRIMP", "Bounded", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range results {
		kinds := reportedKinds(r.Report)
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}

		row := []string{
			r.Group,
			r.Subject,
			weekCell(r.Week),
			r.Session,
			humanize.Comma(int64(r.SampleCount)),
			strings.Join(names, ", "),
		}
		if m := r.Metrics; m != nil {
			row = append(row,
				formatPercent(m.ZoneCompliance),
				formatOptional(m.MAZD, "%.2f"),
				formatOptional(m.TRIMP, "%.1f"),
				strconv.FormatBool(m.BoundedMet),
			)
		} else {
			row = append(row, "-", "-", "-", "-")
		}
		row = append(row, RenderStatus(len(kinds), r.Report.Has(store.KindError)))
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	s := Summarize(results)
	fmt.Fprintf(w, "%s files (%s samples), %s with defects, %s failed, %s analysed, %s met the bounded target\n",
		humanize.Comma(int64(s.Files)), humanize.Comma(int64(s.Samples)),
		humanize.Comma(int64(s.WithDefects)), humanize.Comma(int64(s.Failed)),
		humanize.Comma(int64(s.Analysed)), humanize.Comma(int64(s.BoundedMet)))

	if len(s.ByKind) > 0 {
		kinds := make([]string, 0, len(s.ByKind))
		for k := range s.ByKind {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		parts := make([]string, len(kinds))
		for i, k := range kinds {
			parts[i] = fmt.Sprintf("%s=%d", k, s.ByKind[store.DefectKind(k)])
		}
		fmt.Fprintln(w, mutedStyle.Render("defects: "+strings.Join(parts, " ")))
	}
	return nil
}

// WriteSession prints the report and metrics of a single file
func WriteSession(w io.Writer, r store.FileResult) error {
	fmt.Fprintln(w, titleStyle.Render(r.Path))
	fmt.Fprintln(w, RenderMetric("Week", weekCell(r.Week)))
	fmt.Fprintln(w, RenderMetric("Session", r.Session))
	fmt.Fprintln(w, RenderMetric("Samples", humanize.Comma(int64(r.SampleCount))))

	if m := r.Metrics; m != nil {
		fmt.Fprintln(w, RenderMetric("Time in allowed zones", formatSeconds(m.TimeInAllowedS)))
		fmt.Fprintln(w, RenderMetric("Time above", formatSeconds(m.TimeAboveS)))
		fmt.Fprintln(w, RenderMetric("Time below", formatSeconds(m.TimeBelowS)))
		fmt.Fprintln(w, RenderMetric("Longest bounded bout", formatSeconds(m.LongestBoundedBoutS)))
		fmt.Fprintln(w, RenderMetric("Bounded target met", strconv.FormatBool(m.BoundedMet)))
		fmt.Fprintln(w, RenderMetric("Zone compliance", formatPercent(m.ZoneCompliance)))
		fmt.Fprintln(w, RenderMetric("MAZD", formatOptional(m.MAZD, "%.3f")))
		fmt.Fprintln(w, RenderMetric("TRIMP", formatOptional(m.TRIMP, "%.1f")))
	}

	defects := r.Report.Defects()
	if len(defects) == 0 {
		fmt.Fprintln(w, successStyle.Render("no defects"))
		return nil
	}

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Kind", "Message", "Start", "End", "Duration", "Length"})

	var data [][]string
	for _, d := range defects {
		if len(d.Details) == 0 {
			data = append(data, []string{string(d.Kind), d.Message, "", "", "", ""})
			continue
		}
		for _, detail := range d.Details {
			duration := ""
			if detail.DurationS != nil {
				duration = formatSeconds(*detail.DurationS)
			}
			data = append(data, []string{
				string(d.Kind), d.Message,
				clock(detail.Start), clock(detail.End),
				duration, formatIntPtr(detail.Length),
			})
		}
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func weekCell(week int) string {
	if week <= 0 {
		return "-"
	}
	return strconv.Itoa(week)
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *v*100)
}

// formatSeconds renders seconds as "1h 5m", "12m 30s" or "45s"
func formatSeconds(seconds float64) string {
	total := int(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
