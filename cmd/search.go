package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query Gaode directly without touching the cache",
}

var searchTextCmd = &cobra.Command{
	Use:   "text <keyword>",
	Short: "Keyword search within a city",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		asJSON, _ := cmd.Flags().GetBool("json")

		keyword := model.NormalizeKeyword(args[0])
		if keyword == "" {
			return apperr.Validationf("keyword is required")
		}

		pois, err := initProvider().SearchByKeyword(ctx, keyword, city, cfg.Gaode.PageSize)
		if err != nil {
			return apperr.FromProvider(err)
		}
		return writePOIs(os.Stdout, pois, asJSON)
	},
}

var searchAroundCmd = &cobra.Command{
	Use:   "around [keyword]",
	Short: "Search around a coordinate",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		ctx := cmd.Context()

		lng, _ := cmd.Flags().GetFloat64("lng")
		lat, _ := cmd.Flags().GetFloat64("lat")
		radius, _ := cmd.Flags().GetInt("radius")
		asJSON, _ := cmd.Flags().GetBool("json")

		center := model.Coordinate{Lng: lng, Lat: lat}
		if !center.Valid() {
			return apperr.Validationf("invalid coordinate %v,%v", lng, lat)
		}
		if radius <= 0 {
			return apperr.Validationf("radius must be positive, got %d", radius)
		}
		keyword := ""
		if len(args) == 1 {
			keyword = model.NormalizeKeyword(args[0])
		}

		pois, err := initProvider().SearchAround(ctx, center, radius, keyword, cfg.Gaode.PageSize)
		if err != nil {
			return apperr.FromProvider(err)
		}
		return writePOIs(os.Stdout, pois, asJSON)
	},
}

func writePOIs(out io.Writer, pois []model.POI, asJSON bool) error {
	if asJSON {
		if pois == nil {
			pois = []model.POI{}
		}
		return printJSON(out, pois)
	}
	if len(pois) == 0 {
		fmt.Fprintln(os.Stderr, "No POIs found.")
		return nil
	}
	formatPOIs(out, pois)
	return nil
}

func formatPOIs(out io.Writer, pois []model.POI) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCITY\tLNG,LAT\tADDRESS")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-------\t-------")
	for _, p := range pois {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.6f,%.6f\t%s\n", p.ID, p.Name, p.City, p.Lng, p.Lat, p.Address)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "%d POIs\n", len(pois))
}

func init() {
	searchTextCmd.Flags().String("city", "", "city name or adcode")
	searchAroundCmd.Flags().Float64("lng", 0, "center longitude (required)")
	searchAroundCmd.Flags().Float64("lat", 0, "center latitude (required)")
	searchAroundCmd.Flags().Int("radius", defaultRadiusMeters, "search radius in meters")
	_ = searchAroundCmd.MarkFlagRequired("lng")
	_ = searchAroundCmd.MarkFlagRequired("lat")
	searchCmd.PersistentFlags().Bool("json", false, "print POIs as JSON")
	searchCmd.AddCommand(searchTextCmd, searchAroundCmd)
	rootCmd.AddCommand(searchCmd)
}
