package cmd

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/voltlens/internal/cluster"
	"github.com/KaramelBytes/voltlens/internal/elements"
	"github.com/KaramelBytes/voltlens/internal/logging"
)

var (
	clusterEps    float64
	clusterMinPts int
)

var clusterCmd = &cobra.Command{
	Use:   "cluster [data-file]",
	Short: "Cluster materials with DBSCAN and summarize each cluster",
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
		p := clusterParams(c)
		if cmd.Flags().Changed("eps") {
			p.Eps = clusterEps
		}
		if cmd.Flags().Changed("min-pts") {
			p.MinPts = clusterMinPts
		}
		res, err := cluster.Run(t, p)
		if err != nil {
			return err
		}
		logging.New("cluster").Debug("clustered", "rows", len(res.Rows), "eps", p.Eps, "min_pts", p.MinPts)

		out := cmd.OutOrStdout()
		okf(out, "%d clusters, %d noise records (eps %g, min points %d)", len(res.Groups), res.Noise, p.Eps, p.MinPts)
		tw := tablewriter.NewWriter(out)
		header := []string{"Cluster", "Size", "Working ions"}
		for _, col := range p.Columns {
			header = append(header, "Mean "+col)
		}
		tw.SetHeader(header)
		for _, g := range res.Groups {
			ions := make([]string, len(g.Ions))
			for i, ic := range g.Ions {
				ions[i] = fmt.Sprintf("%s %d", elements.Name(ic.Ion), ic.Count)
			}
			row := []string{fmt.Sprint(g.ID), fmt.Sprint(g.Size), strings.Join(ions, ", ")}
			for _, col := range p.Columns {
				row = append(row, g4(g.Means[col]))
			}
			tw.Append(row)
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.Flags().Float64Var(&clusterEps, "eps", 0, "neighbourhood radius in standardized units (overrides cluster.eps)")
	clusterCmd.Flags().IntVar(&clusterMinPts, "min-pts", 0, "minimum neighbourhood size for a core point (overrides cluster.min_pts)")
}
