package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/site-scout/internal/export"
	"github.com/sells-group/site-scout/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached POIs to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		out, _ := cmd.Flags().GetString("out")
		freshOnly, _ := cmd.Flags().GetBool("fresh-only")

		age := store.Unbounded
		if freshOnly {
			age = store.Within(cfg.Cache.POITTL())
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := export.WriteFile(ctx, st, city, age, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d POIs across %d keywords to %s.\n", sum.POIs, sum.Keywords, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("city", "", "limit to one city (default: all cities)")
	exportCmd.Flags().String("out", "pois.xlsx", "output workbook path")
	exportCmd.Flags().Bool("fresh-only", false, "only export rows newer than cache.poi_ttl_hours")
	rootCmd.AddCommand(exportCmd)
}
