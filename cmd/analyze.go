package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/site-scout/internal/analysis"
	"github.com/sells-group/site-scout/internal/model"
)

const defaultRadiusMeters = 1000

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a candidate site against nearby brand POIs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		lng, _ := cmd.Flags().GetFloat64("lng")
		lat, _ := cmd.Flags().GetFloat64("lat")
		mainBrand, _ := cmd.Flags().GetString("main")
		competitors, _ := cmd.Flags().GetString("competitors")
		presetName, _ := cmd.Flags().GetString("preset")
		radius, _ := cmd.Flags().GetInt("radius")

		competitorList := model.ParseKeywordList(competitors)
		if presetName != "" {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			keywords, presetMain, err := resolveKeywords(cat, competitors, presetName)
			if err != nil {
				return err
			}
			if mainBrand == "" {
				mainBrand = presetMain
			}
			competitorList = keywords
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		defer startMetrics(ctx, st)()

		svc := initService(st, initProvider())
		result, err := svc.AnalyzeTarget(ctx, analysis.TargetRequest{
			City:         city,
			Target:       model.Coordinate{Lng: lng, Lat: lat},
			MainBrand:    mainBrand,
			Competitors:  competitorList,
			RadiusMeters: radius,
		})
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, result)
	},
}

func init() {
	analyzeCmd.Flags().String("city", "", "city name or adcode (required)")
	analyzeCmd.Flags().Float64("lng", 0, "target longitude (required)")
	analyzeCmd.Flags().Float64("lat", 0, "target latitude (required)")
	analyzeCmd.Flags().String("main", "", "main brand")
	analyzeCmd.Flags().String("competitors", "", "comma separated competitor brands")
	analyzeCmd.Flags().String("preset", "", "brand preset name")
	analyzeCmd.Flags().Int("radius", defaultRadiusMeters, "competitor search radius in meters")
	_ = analyzeCmd.MarkFlagRequired("city")
	_ = analyzeCmd.MarkFlagRequired("lng")
	_ = analyzeCmd.MarkFlagRequired("lat")
	rootCmd.AddCommand(analyzeCmd)
}
