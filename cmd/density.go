package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/site-scout/internal/analysis"
	"github.com/sells-group/site-scout/internal/geo"
)

var densityCmd = &cobra.Command{
	Use:   "density",
	Short: "Compute a city-wide brand density heatmap",
	Long:  "Groups cached POIs for the keyword set into grid cells and splits them into main brand and competitor lists. Results are memoized per city and keyword set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		list, _ := cmd.Flags().GetString("keywords")
		presetName, _ := cmd.Flags().GetString("preset")
		mainBrand, _ := cmd.Flags().GetString("main")
		geojsonPath, _ := cmd.Flags().GetString("geojson")

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		keywords, presetMain, err := resolveKeywords(cat, list, presetName)
		if err != nil {
			return err
		}
		if mainBrand == "" {
			mainBrand = presetMain
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		defer startMetrics(ctx, st)()

		svc := initService(st, initProvider())
		result, err := svc.ComputeDensity(ctx, analysis.DensityRequest{
			City:      city,
			Keywords:  keywords,
			MainBrand: mainBrand,
		})
		if err != nil {
			return err
		}

		if geojsonPath != "" {
			data, err := geo.HeatmapFeatureCollection(result.Heatmap)
			if err != nil {
				return err
			}
			if err := os.WriteFile(geojsonPath, data, 0o644); err != nil {
				return eris.Wrapf(err, "write geojson %s", geojsonPath)
			}
			fmt.Fprintf(os.Stderr, "Heatmap written to %s (%d cells).\n", geojsonPath, len(result.Heatmap))
		}
		return printJSON(os.Stdout, result)
	},
}

func init() {
	densityCmd.Flags().String("city", "", "city name or adcode (required)")
	densityCmd.Flags().String("keywords", "", "comma separated brand keywords")
	densityCmd.Flags().String("preset", "", "brand preset name")
	densityCmd.Flags().String("main", "", "main brand (default: first keyword)")
	densityCmd.Flags().String("geojson", "", "also write the heatmap as a GeoJSON FeatureCollection to this file")
	_ = densityCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(densityCmd)
}
