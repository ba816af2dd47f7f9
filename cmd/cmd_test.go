package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/sap-date-robot/internal/history"
	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flag variables outlive a single Execute call.
	inputFile, sheetName = "", ""
	historyRun, historyLimit = "", 20
	verbose, useTUI, noHistory = false, false, false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "config.yaml", `
output:
  log_dir: `+filepath.ToSlash(filepath.Join(dir, "logs"))+`
  history_db: `+filepath.ToSlash(filepath.Join(dir, "logs", "history.db"))+`
logging:
  file: `+filepath.ToSlash(filepath.Join(dir, "logs", "robot.log"))+`
`)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "Version:") || !strings.Contains(out, Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr string
		want    []string
	}{
		{
			name: "valid input",
			csv:  "Order;Line;NewDate\n4500000001;10;25.12.2025\n4500000002;20;2025-12-31\n",
			want: []string{"Input is valid.", "Rows"},
		},
		{
			name:    "bad rows",
			csv:     "Order;Line;NewDate\n4500000001;10;25.12.2025\nPO-1;20;someday\n",
			wantErr: "1 row(s) failed validation",
			want:    []string{"Row 3"},
		},
		{
			name: "duplicate is only a warning",
			csv:  "Order;Line;NewDate\n4500000001;10;25.12.2025\n4500000001;10;26.12.2025\n",
			want: []string{"[WARNING] Row 3", "Input is valid."},
		},
		{
			name:    "missing column",
			csv:     "Order;Item;NewDate\n4500000001;10;25.12.2025\n",
			wantErr: "missing column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := writeConfig(t, dir)
			input := writeFile(t, dir, "dates.csv", tt.csv)

			out, err := execute(t, "validate", "--config", cfg, "--file", input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("validate error = %v, want %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("validate error = %v\n%s", err, out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestValidateCommand_MissingExplicitConfig(t *testing.T) {
	_, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("validate error = %v, want a config error", err)
	}
}

func TestValidateCommand_MissingInputFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	input := filepath.Join(dir, "absent.xlsx")

	_, err := execute(t, "validate", "--config", cfg, "--file", input)
	if err == nil || !strings.Contains(err.Error(), "input file not found: "+input) {
		t.Errorf("validate error = %v, want input file not found", err)
	}
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	store, err := history.Open(filepath.Join(dir, "logs", "history.db"))
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	sink := history.NewSink(store)
	started := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	if err := sink.Start(types.RunInfo{RunID: "5d1c0e2a-run", InputFile: "dates.xlsx", StartedAt: started, Rows: 1}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	req := types.UpdateRequest{RowNumber: 2, OrderID: "4500000001", LineNumber: 10, TargetDate: "25.12.2025"}
	o := types.NewOutcome(req, types.StatusUpdated, "Standard PO 4500000001 changed", started)
	if err := sink.Emit(o); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	summary := types.Summary{RunID: "5d1c0e2a-run", InputFile: "dates.xlsx", StartedAt: started, FinishedAt: started.Add(time.Minute)}
	summary.Record(o)
	if err := sink.Finish(summary); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out, err := execute(t, "history", "--config", cfg)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "5d1c0e2a") || !strings.Contains(out, "dates.xlsx") {
		t.Errorf("history output = %q", out)
	}

	out, err = execute(t, "history", "--config", cfg, "--run", "5d1c")
	if err != nil {
		t.Fatalf("history --run error = %v", err)
	}
	for _, want := range []string{"5d1c0e2a-run", "UPDATED", "order 4500000001 line 10", "Standard PO 4500000001 changed"} {
		if !strings.Contains(out, want) {
			t.Errorf("history --run output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "history", "--config", cfg, "--run", "ffff"); err == nil {
		t.Error("history --run with an unknown ID succeeded")
	}
}
