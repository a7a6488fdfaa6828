package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/voltlens/internal/analysis"
	"github.com/KaramelBytes/voltlens/internal/dataset"
	"github.com/KaramelBytes/voltlens/internal/utils"
)

var (
	sumOutput string
	sumTop    int
)

var summaryCmd = &cobra.Command{
	Use:   "summary [data-file]",
	Short: "Print descriptive statistics and the strongest correlations",
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
		s := analysis.Summarize(t)
		out := cmd.OutOrStdout()
		if sumOutput != "" {
			if err := utils.SafeWriteFile(sumOutput, []byte(s.Markdown())); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			okf(out, "Wrote summary to %s", sumOutput)
			return nil
		}
		fmt.Fprintf(out, "%s: %d rows, %d columns, %d missing values\n\n", s.Name, s.Rows, s.Cols, s.Missing)
		numericTable(out, s)
		pairs := analysis.Correlations(t, dataset.NumericColumns()).Top(sumTop)
		if len(pairs) > 0 {
			fmt.Fprintln(out)
			tw := tablewriter.NewWriter(out)
			tw.SetHeader([]string{"Column A", "Column B", "r"})
			for _, p := range pairs {
				tw.Append([]string{p.A, p.B, fmt.Sprintf("%.3f", p.R)})
			}
			tw.Render()
		}
		return nil
	},
}

func numericTable(w io.Writer, s *analysis.Summary) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Column", "Missing", "Min", "Q1", "Median", "Mean", "Q3", "Max", "Std"})
	for _, c := range s.Columns {
		if c.Kind != analysis.KindNumeric {
			continue
		}
		tw.Append([]string{c.Name, fmt.Sprint(c.Missing), g4(c.Min), g4(c.Q1), g4(c.Median), g4(c.Mean), g4(c.Q3), g4(c.Max), g4(c.Std)})
	}
	tw.Render()
}

func g4(v float64) string { return fmt.Sprintf("%.4g", v) }

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVarP(&sumOutput, "output", "o", "", "write the summary as markdown to this file instead of printing")
	summaryCmd.Flags().IntVar(&sumTop, "top", 5, "number of correlated pairs to list")
}
