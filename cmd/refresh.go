package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/analysis"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch keywords from Gaode into the cache",
	Long:  "Fetches every keyword for a city sequentially through the shared rate limiter and upserts the results. Progress is written to stderr and the final report to stdout as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		ctx := cmd.Context()

		city, _ := cmd.Flags().GetString("city")
		list, _ := cmd.Flags().GetString("keywords")
		presetName, _ := cmd.Flags().GetString("preset")

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		keywords, _, err := resolveKeywords(cat, list, presetName)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		defer startMetrics(ctx, st)()

		svc := initService(st, initProvider())
		report, err := svc.Refresh(ctx, analysis.RefreshRequest{
			City:     city,
			Keywords: keywords,
			OnProgress: func(ev analysis.RefreshEvent) {
				formatRefreshEvent(os.Stderr, ev)
			},
		})
		if report != nil {
			if perr := printJSON(os.Stdout, report); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}
		if failed := report.Failed(); len(failed) > 0 {
			zap.L().Warn("refresh finished with failed keywords", zap.Int("failed", len(failed)))
		}
		return nil
	},
}

func formatRefreshEvent(out io.Writer, ev analysis.RefreshEvent) {
	switch ev.Type {
	case analysis.EventStarted:
		_, _ = fmt.Fprintf(out, "refresh %s: %d keywords in %s\n", truncateID(ev.RunID), ev.Total, ev.City)
	case analysis.EventKeyword:
		status := "ok"
		if ev.ErrorCode != "" {
			status = string(ev.ErrorCode)
		}
		_, _ = fmt.Fprintf(out, "[%d/%d %5.1f%%] %s: %d POIs (%s)\n", ev.Index, ev.Total, ev.Percent, ev.Keyword, ev.Fetched, status)
	case analysis.EventCompleted:
		_, _ = fmt.Fprintf(out, "refresh %s completed: %d POIs\n", truncateID(ev.RunID), ev.Fetched)
	case analysis.EventFailed:
		_, _ = fmt.Fprintf(out, "refresh %s failed: %s\n", truncateID(ev.RunID), ev.Error)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	refreshCmd.Flags().String("city", "", "city name or adcode (required)")
	refreshCmd.Flags().String("keywords", "", "comma separated brand keywords")
	refreshCmd.Flags().String("preset", "", "brand preset name (see `site-scout brands`)")
	_ = refreshCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(refreshCmd)
}
