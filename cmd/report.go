package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/voltlens/internal/cluster"
	"github.com/KaramelBytes/voltlens/internal/forest"
	"github.com/KaramelBytes/voltlens/internal/logging"
	"github.com/KaramelBytes/voltlens/internal/report"
)

var (
	repOutput string
	repForce  bool
)

var reportCmd = &cobra.Command{
	Use:   "report [data-file]",
	Short: "Run the full pipeline and write the HTML/Markdown/XLSX report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		log := logging.New("report")

		t, err := loadTable(c, args)
		if err != nil {
			return err
		}
		okf(out, "Loaded %d records from %s", t.Len(), t.Source)

		fit, err := fitModel(c, t, repForce, logging.New("forest"))
		if err != nil {
			return err
		}
		if fit.cached {
			okf(out, "Using cached model %s", c.Model.Path)
		} else {
			okf(out, "Trained model (mtry %d) and saved to %s", fit.model.Forest.Mtry, c.Model.Path)
		}
		holdout, err := fit.holdout()
		if err != nil {
			return err
		}
		curves, err := forest.Ramps(fit.model, fit.train, c.Model.RampSteps)
		if err != nil {
			return fmt.Errorf("sensitivity ramps: %w", err)
		}
		sample, err := forest.CompareSample(fit.model, t, c.Model.SampleSize, c.Seed)
		if err != nil {
			return fmt.Errorf("sample predictions: %w", err)
		}

		clusters, err := cluster.Run(t, clusterParams(c))
		if err != nil {
			return err
		}
		okf(out, "Found %d clusters (%d noise records)", len(clusters.Groups), clusters.Noise)

		doc, err := report.Build(report.Input{
			Table:    t,
			Model:    fit.model,
			Cached:   fit.cached,
			Holdout:  holdout,
			Curves:   curves,
			Sample:   sample,
			Clusters: clusters,
			Logger:   log,
		})
		if err != nil {
			return err
		}
		dir := c.OutputDir
		if repOutput != "" {
			dir = repOutput
		}
		if err := doc.Write(dir); err != nil {
			return err
		}
		log.Info("report written", "dir", dir, "run_id", doc.RunID, "charts", len(doc.Charts()))
		okf(out, "Wrote %s", filepath.Join(dir, "report.html"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "output directory (overrides output_dir)")
	reportCmd.Flags().BoolVar(&repForce, "retrain", false, "ignore the cached model and retrain")
}
