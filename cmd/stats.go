package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/site-scout/internal/analysis"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached POI counts by keyword and city",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := initService(st, nil).Stats(ctx, city)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, report)
		}
		if len(report.Keywords) == 0 {
			fmt.Fprintln(os.Stderr, "Cache is empty.")
			return nil
		}
		formatStats(os.Stdout, report)
		return nil
	},
}

var statsDistributionCmd = &cobra.Command{
	Use:   "distribution",
	Short: "Show cache freshness by keyword with an age histogram",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		ctx := cmd.Context()
		city, _ := cmd.Flags().GetString("city")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := initService(st, nil).Distribution(ctx, city)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, report)
	},
}

var statsConsistencyCmd = &cobra.Command{
	Use:   "consistency",
	Short: "Compare the TTL-bounded and unbounded cache views",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		ctx := cmd.Context()
		city, _ := cmd.Flags().GetString("city")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := initService(st, nil).ConsistencyCheck(ctx, city)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, report)
	},
}

func formatStats(out io.Writer, r *analysis.StatsReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEYWORD\tCITY\tCOUNT\tLAST_FETCHED")
	_, _ = fmt.Fprintln(w, "-------\t----\t-----\t------------")
	for _, s := range r.Keywords {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.Keyword,
			s.City,
			s.Count,
			s.LastFetchedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	_, _ = fmt.Fprintf(w, "\t\t\t\nTotal:\t\t%d\t\n", r.TotalPOIs)
	_ = w.Flush()
}

func init() {
	statsCmd.PersistentFlags().String("city", "", "limit to one city (default: all cities)")
	statsCmd.Flags().Bool("json", false, "print the report as JSON")
	statsCmd.AddCommand(statsDistributionCmd, statsConsistencyCmd)
	rootCmd.AddCommand(statsCmd)
}
