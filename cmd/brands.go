package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/site-scout/internal/brands"
)

var brandsCmd = &cobra.Command{
	Use:   "brands [query]",
	Short: "List brand presets or suggest brand names",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			limit, _ := cmd.Flags().GetInt("limit")
			for _, b := range cat.Suggest(args[0], limit) {
				fmt.Fprintln(os.Stdout, b)
			}
			return nil
		}
		formatPresets(os.Stdout, cat)
		return nil
	},
}

func formatPresets(out io.Writer, cat *brands.Catalog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PRESET\tMAIN\tCOMPETITORS\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "------\t----\t-----------\t-----------")
	for _, p := range cat.Presets {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.MainBrand, strings.Join(p.Competitors, ","), p.Description)
	}
	_ = w.Flush()
}

func init() {
	brandsCmd.Flags().Int("limit", brands.DefaultSuggestLimit, "maximum suggestions")
	rootCmd.AddCommand(brandsCmd)
}
