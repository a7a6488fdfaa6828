package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/voltlens/internal/forest"
	"github.com/KaramelBytes/voltlens/internal/logging"
)

var trainForce bool

var trainCmd = &cobra.Command{
	Use:   "train [data-file]",
	Short: "Train (or load the cached) gravimetric energy model and print its scores",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		t, err := loadTable(c, args)
		if err != nil {
			return err
		}
		fit, err := fitModel(c, t, trainForce, logging.New("forest"))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		m := fit.model
		if fit.cached {
			okf(out, "Loaded cached model %s (trained %s)", c.Model.Path, m.TrainedAt.Format("2006-01-02 15:04"))
		} else {
			okf(out, "Trained %d trees on %d rows, saved to %s", len(m.Forest.Trees), m.TrainRows, c.Model.Path)
		}
		cvTable(out, m)
		h, err := fit.holdout()
		if err != nil {
			return err
		}
		if h != nil {
			fmt.Fprintf(out, "Held-out (%d rows): RMSE %.2f, MAE %.2f, R² %.3f\n", h.N, h.RMSE, h.MAE, h.R2)
		}
		return nil
	},
}

func cvTable(w io.Writer, m *forest.Model) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"mtry", "CV RMSE", "CV MAE", "CV R²", ""})
	for _, c := range m.CV {
		sel := ""
		if c.Mtry == m.Forest.Mtry {
			sel = "selected"
		}
		tw.Append([]string{fmt.Sprint(c.Mtry), fmt.Sprintf("%.2f", c.RMSE), fmt.Sprintf("%.2f", c.MAE), fmt.Sprintf("%.3f", c.R2), sel})
	}
	tw.Render()
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().BoolVar(&trainForce, "retrain", false, "ignore the cached model and retrain")
}
