package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cdurand/climatrend/internal/pipeline"
)

var stationsCmd = &cobra.Command{
	Use:   "stations [location]",
	Short: "Lists the climate stations around a place without fetching data",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(args)
		if err != nil {
			return err
		}

		p, err := pipeline.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer p.Close()

		loc, stations, err := p.Stations(cmd.Context())
		if err != nil {
			return describeFailure(err)
		}

		fmt.Printf("%d stations within %.0f km of %s:\n\n", len(stations), cfg.RadiusKm, loc.Name)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDISTANCE\tFIRST\tLAST")
		for _, st := range stations {
			fmt.Fprintf(w, "%s\t%s\t%.1f km\t%d\t%d\n",
				st.ID, st.Name, st.DistanceKm, st.FirstYear, st.LastYear)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(stationsCmd)
}
