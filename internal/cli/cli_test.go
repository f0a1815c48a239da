package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hrqc/internal/config"
)

// execute runs the command tree with args and returns stdout and stderr combined
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// keep ~/.hrqc out of the way
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeRegistry(t *testing.T, dir string) string {
	t.Helper()

	rows := [][]interface{}{
		{"BOOST ID", "Initials", "Age", "Sex", "Notes",
			"Z1 Start", "Z1 End", "Z2 Start", "Z2 End", "Z3 Start", "Z3 End",
			"Z4 Start", "Z4 End", "Z5 Start", "Z5 End", "Rest HR", "Max HR"},
		{1001, "AB", 70, "F", "", 100, 114, 115, 129, 130, 144, 145, 159, 160, 175, 60, 180},
	}

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}

	path := filepath.Join(dir, "zones.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// writePolar writes a Polar export with a 120 bpm reading every 30s from 09:00
func writePolar(t *testing.T, path string, minutes int) {
	t.Helper()

	var b strings.Builder
	b.WriteString("Name,Sport,Date,Start time,Duration\n")
	b.WriteString("SUBJECT,RUNNING,01-02-2024,09:00:00,00:40:00\n")
	b.WriteString("Sample rate,Time,HR (bpm)\n")
	for m := 0; m < minutes; m++ {
		fmt.Fprintf(&b, "1,%02d:%02d:00,120\n", 9+m/60, m%60)
		fmt.Fprintf(&b, "1,%02d:%02d:30,120\n", 9+m/60, m%60)
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

// setupProject lays out a data root, a registry and a config file under one temp dir
func setupProject(t *testing.T) (dir, configPath string) {
	t.Helper()

	dir = t.TempDir()
	root := filepath.Join(dir, "HR_data")
	writePolar(t, filepath.Join(root, "Supervised", "sub1001", "sub1001_wk1_ses1.csv"), 41)
	writePolar(t, filepath.Join(root, "Supervised", "sub1001", "sub1001_notes.csv"), 5)

	cfg := config.DefaultConfig()
	cfg.Data.Root = root
	cfg.Registry.Path = writeRegistry(t, dir)
	cfg.Workers = 2
	cfg.Output.QCCSV = filepath.Join(dir, "out", "qc_out.csv")
	cfg.Output.ZoneCSV = filepath.Join(dir, "out", "zone_out.csv")
	cfg.Output.DBPath = filepath.Join(dir, "results.db")
	cfg.Log.Level = "error"

	configPath = filepath.Join(dir, "config.json")
	require.NoError(t, config.Save(&cfg, configPath))
	return dir, configPath
}

func TestProtocolCommand(t *testing.T) {
	out, err := execute(t, "protocol")
	require.NoError(t, err)
	assert.Contains(t, out, "1,2,3")
	assert.Contains(t, out, "40m")
	assert.NotContains(t, out, "4,5")

	out, err = execute(t, "protocol", "--unsupervised")
	require.NoError(t, err)
	assert.Contains(t, out, "4,5")
	assert.Contains(t, out, "12")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/path/to/HR_data", cfg.Data.Root)
	assert.Equal(t, "/path/to/zones.xlsx", cfg.Registry.Path)
}

func TestMissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	_, err := execute(t, "run", "--config", path)
	require.ErrorIs(t, err, config.ErrNoConfig)
	assert.Contains(t, err.Error(), "hrqc init")
}

func TestRunAndReportCommands(t *testing.T) {
	dir, configPath := setupProject(t)

	out, err := execute(t, "run", "--config", configPath, "--no-progress",
		"--parquet-dir", filepath.Join(dir, "out", "parquet"))
	require.NoError(t, err)
	assert.Contains(t, out, "2 files")
	assert.Contains(t, out, "sub1001")

	zones, err := os.ReadFile(filepath.Join(dir, "out", "zone_out.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(zones)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "Supervised,sub1001,1,1,"))

	qc, err := os.ReadFile(filepath.Join(dir, "out", "qc_out.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(qc), "week_parse")

	assert.FileExists(t, filepath.Join(dir, "out", "parquet", "qc.parquet"))
	assert.FileExists(t, filepath.Join(dir, "out", "parquet", "zones.parquet"))

	out, err = execute(t, "report", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "QC run ")
	assert.Contains(t, out, "2 files")
}

func TestReportCommand_NoRuns(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "report", "--db", filepath.Join(dir, "results.db"), "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no QC runs stored yet")
}

func TestSessionCommand(t *testing.T) {
	dir, configPath := setupProject(t)
	file := filepath.Join(dir, "HR_data", "Supervised", "sub1001", "sub1001_wk1_ses1.csv")

	out, err := execute(t, "session", file, "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, file)
	assert.Contains(t, out, "Longest bounded bout")

	_, err = execute(t, "session", filepath.Join(dir, "loose.csv"), "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--subject")
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir, configPath := setupProject(t)

	_, err := execute(t, "run", "--config", configPath, "--no-progress",
		"--data-root", filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovering recordings")
}
