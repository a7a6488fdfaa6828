package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/voltlens/internal/forest"
)

var predModel string

var predictCmd = &cobra.Command{
	Use:   "predict <row> [row...]",
	Short: "Score comma-separated predictor rows with the cached model",
	Long: `Score one or more rows with the cached model. Each row lists the predictors
in model order, separated by commas, e.g.

  voltlens predict 0.05,3.6,180,0.1

Values are not range-checked.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		path := c.Model.Path
		if predModel != "" {
			path = predModel
		}
		m, err := forest.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no model at %s: run `voltlens train` first", path)
		}
		if err != nil {
			return err
		}
		rows := make([][]float64, len(args))
		for i, a := range args {
			row, err := parseRow(a)
			if err != nil {
				return fmt.Errorf("parse row %d: %w", i+1, err)
			}
			rows[i] = row
		}
		pred, err := m.Predict(rows)
		if err != nil {
			return err
		}
		tw := tablewriter.NewWriter(cmd.OutOrStdout())
		tw.SetHeader(append(append([]string(nil), m.Predictors...), "Predicted "+m.Target))
		for i, row := range rows {
			cells := make([]string, 0, len(row)+1)
			for _, v := range row {
				cells = append(cells, strconv.FormatFloat(v, 'g', -1, 64))
			}
			tw.Append(append(cells, fmt.Sprintf("%.2f", pred[i])))
		}
		tw.Render()
		return nil
	},
}

func parseRow(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVar(&predModel, "model", "", "model file (overrides model.path)")
}
