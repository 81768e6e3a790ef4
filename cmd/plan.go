package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/planning"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage candidate sites (planning points)",
}

var planAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a planning point",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPlanning(cmd, func(svc *planning.Service) error {
			req := planning.CreateRequest{}
			f := cmd.Flags()
			req.City, _ = f.GetString("city")
			req.Name, _ = f.GetString("name")
			req.Lng, _ = f.GetFloat64("lng")
			req.Lat, _ = f.GetFloat64("lat")
			req.RadiusMeters, _ = f.GetInt("radius")
			req.Status, _ = f.GetString("status")
			req.ColorToken, _ = f.GetString("color-token")
			req.Color, _ = f.GetString("color")
			req.PriorityRank, _ = f.GetInt("priority")
			req.Notes, _ = f.GetString("notes")
			req.SourceType, _ = f.GetString("source")
			req.SourcePOIID, _ = f.GetString("source-poi-id")
			req.UpdatedBy, _ = f.GetString("by")

			p, err := svc.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writePlanningPoints(os.Stdout, cmd, []model.PlanningPoint{*p})
		})
	},
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List planning points, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPlanning(cmd, func(svc *planning.Service) error {
			city, _ := cmd.Flags().GetString("city")
			points, err := svc.List(cmd.Context(), city)
			if err != nil {
				return err
			}
			return writePlanningPoints(os.Stdout, cmd, points)
		})
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one planning point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlanning(cmd, func(svc *planning.Service) error {
			p, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writePlanningPoints(os.Stdout, cmd, []model.PlanningPoint{*p})
		})
	},
}

var planUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change the given fields of a planning point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlanning(cmd, func(svc *planning.Service) error {
			p, err := svc.Update(cmd.Context(), args[0], planPatch(cmd))
			if err != nil {
				return err
			}
			return writePlanningPoints(os.Stdout, cmd, []model.PlanningPoint{*p})
		})
	},
}

var planRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a planning point",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlanning(cmd, func(svc *planning.Service) error {
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Deleted %s\n", args[0])
			return nil
		})
	},
}

var planSearchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Suggest Gaode POIs to seed a planning point from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		city, _ := cmd.Flags().GetString("city")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc := planning.New(nil, initProvider())
		suggestions, err := svc.SearchPOIs(cmd.Context(), city, args[0], limit)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, suggestions)
		}
		if len(suggestions) == 0 {
			fmt.Fprintln(os.Stderr, "No POIs found.")
			return nil
		}
		formatSuggestions(os.Stdout, suggestions)
		return nil
	},
}

// withPlanning opens the store for the duration of fn.
func withPlanning(cmd *cobra.Command, fn func(*planning.Service) error) error {
	if err := cfg.Validate("read"); err != nil {
		return err
	}
	st, err := initStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(planning.New(st, nil))
}

// planPatch builds a partial update from the flags the user actually set.
func planPatch(cmd *cobra.Command) planning.Patch {
	f := cmd.Flags()
	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	num := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetInt(name)
		return &v
	}
	coord := func(name string) *float64 {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetFloat64(name)
		return &v
	}
	return planning.Patch{
		City:         str("city"),
		Name:         str("name"),
		Lng:          coord("lng"),
		Lat:          coord("lat"),
		RadiusMeters: num("radius"),
		Color:        str("color"),
		ColorToken:   str("color-token"),
		Status:       str("status"),
		PriorityRank: num("priority"),
		Notes:        str("notes"),
		SourceType:   str("source"),
		SourcePOIID:  str("source-poi-id"),
		UpdatedBy:    str("by"),
	}
}

func writePlanningPoints(out io.Writer, cmd *cobra.Command, points []model.PlanningPoint) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(out, points)
	}
	if len(points) == 0 {
		fmt.Fprintln(os.Stderr, "No planning points.")
		return nil
	}
	formatPlanningPoints(out, points)
	return nil
}

func formatPlanningPoints(out io.Writer, points []model.PlanningPoint) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCITY\tNAME\tSTATUS\tRANK\tRADIUS\tLNG,LAT\tCOLOR")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t------\t----\t------\t-------\t-----")
	for _, p := range points {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%dm\t%.6f,%.6f\t%s\n",
			p.ID, p.City, p.Name, p.Status, p.PriorityRank, p.RadiusMeters, p.Lng, p.Lat, p.Color)
	}
	_ = w.Flush()
}

func formatSuggestions(out io.Writer, suggestions []model.POISuggestion) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCITY\tLNG,LAT\tADDRESS")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-------\t-------")
	for _, s := range suggestions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.6f,%.6f\t%s\n", s.ID, s.Name, s.City, s.Lng, s.Lat, s.Address)
	}
	_ = w.Flush()
}

func addPlanFieldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("city", "", "city name")
	f.String("name", "", "site name")
	f.Float64("lng", 0, "longitude")
	f.Float64("lat", 0, "latitude")
	f.Int("radius", 0, "coverage radius in meters (100-2000, default 1000)")
	f.String("status", "", "pending, priority or dropped")
	f.String("color-token", "", "status whose color to use")
	f.String("color", "", "custom #RRGGBB color")
	f.Int("priority", 0, "priority rank (1-999, default 100)")
	f.String("notes", "", "free-form notes")
	f.String("source", "", "poi or manual")
	f.String("source-poi-id", "", "Gaode POI id when source is poi")
	f.String("by", "", "who made the change")
}

func init() {
	addPlanFieldFlags(planAddCmd)
	for _, name := range []string{"city", "name", "lng", "lat"} {
		_ = planAddCmd.MarkFlagRequired(name)
	}
	addPlanFieldFlags(planUpdateCmd)
	planListCmd.Flags().String("city", "", "restrict to one city")

	planSearchCmd.Flags().String("city", "", "city name (required)")
	planSearchCmd.Flags().Int("limit", planning.DefaultSuggestionLimit, "maximum suggestions (1-12)")
	_ = planSearchCmd.MarkFlagRequired("city")

	planCmd.PersistentFlags().Bool("json", false, "print JSON")
	planCmd.AddCommand(planAddCmd, planListCmd, planShowCmd, planUpdateCmd, planRemoveCmd, planSearchCmd)
	rootCmd.AddCommand(planCmd)
}
