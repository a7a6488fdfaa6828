package cmd

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/KaramelBytes/voltlens/internal/config"
	"github.com/KaramelBytes/voltlens/internal/dataset"
)

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns its output.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// setupWorkspace writes a synthetic data file and a small-model config
// under a temp HOME and returns the config path.
func setupWorkspace(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)

	dataPath := filepath.Join(dir, "battery.csv")
	f, err := os.Create(dataPath)
	if err != nil {
		t.Fatalf("create data: %v", err)
	}
	w := csv.NewWriter(f)
	_ = w.Write(dataset.Header())
	for _, r := range dataset.Synthetic(200, 3).Records {
		_ = w.Write(r.Row())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("write data: %v", err)
	}
	f.Close()

	c, err := cfgpkg.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	c.DataPath = dataPath
	c.OutputDir = filepath.Join(dir, "report")
	c.Model.Path = filepath.Join(dir, "models", "energy_forest.json")
	c.Model.Trees = 10
	c.Model.CVFolds = 3
	c.Model.Mtry = []int{2}
	c.Model.RampSteps = 5
	cfgPath = filepath.Join(dir, "voltlens.yaml")
	if err := cfgpkg.Save(c, cfgPath); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return cfgPath, dir
}

func TestCLI_ReportTrainPredict(t *testing.T) {
	cfgPath, dir := setupWorkspace(t)

	out := runCmd(t, "--config", cfgPath, "report")
	if !strings.Contains(out, "Trained model") {
		t.Fatalf("expected a fresh training run, got:\n%s", out)
	}
	for _, name := range []string{"report.html", "report.md", "tables.xlsx", filepath.Join("charts", "correlation-matrix.png")} {
		if _, err := os.Stat(filepath.Join(dir, "report", name)); err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "models", "energy_forest.json")); err != nil {
		t.Fatalf("model not cached: %v", err)
	}

	out = runCmd(t, "--config", cfgPath, "train")
	if !strings.Contains(out, "Loaded cached model") {
		t.Fatalf("second run should reuse the cache, got:\n%s", out)
	}

	out = runCmd(t, "--config", cfgPath, "predict", "0.05,3.6,180,0.1", "0.8,1.0,50,2.0")
	if !strings.Contains(strings.ToUpper(out), "PREDICTED GRAVIMETRIC ENERGY") {
		t.Fatalf("unexpected predict output:\n%s", out)
	}
	if _, err := execCmd(t, "--config", cfgPath, "predict", "1,2"); err == nil {
		t.Fatalf("expected arity error for a two-value row")
	}
}

func TestCLI_SummaryAndCluster(t *testing.T) {
	cfgPath, dir := setupWorkspace(t)

	out := runCmd(t, "--config", cfgPath, "summary")
	if !strings.Contains(strings.ToUpper(out), "AVERAGE VOLTAGE") {
		t.Fatalf("summary output missing numeric column:\n%s", out)
	}
	mdPath := filepath.Join(dir, "summary.md")
	runCmd(t, "--config", cfgPath, "summary", "-o", mdPath)
	b, err := os.ReadFile(mdPath)
	if err != nil || !strings.Contains(string(b), "[DATASET SUMMARY]") {
		t.Fatalf("summary markdown not written: %v", err)
	}

	out = runCmd(t, "--config", cfgPath, "cluster", "--eps", "0.8", "--min-pts", "4")
	if !strings.Contains(out, "eps 0.8, min points 4") {
		t.Fatalf("flag overrides not applied:\n%s", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	runCmd(t, "--config", cfgPath, "config", "set", "model.trees", "33")
	out := runCmd(t, "--config", cfgPath, "config", "show")
	if !strings.Contains(out, "trees: 33") {
		t.Fatalf("config show did not reflect set value:\n%s", out)
	}
	if _, err := execCmd(t, "--config", cfgPath, "config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestCLI_MissingDataFile(t *testing.T) {
	cfgPath, dir := setupWorkspace(t)
	if _, err := execCmd(t, "--config", cfgPath, "summary", filepath.Join(dir, "nope.csv")); err == nil {
		t.Fatalf("expected error for missing data file")
	}
}
