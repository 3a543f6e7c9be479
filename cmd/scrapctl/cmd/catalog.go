package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Raj-venom/scrap-dai-client/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse scrap categories and prices",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories with their scraps and price per kg",
	RunE:  runCatalogList,
}

func init() {
	catalogListCmd.Flags().Bool("refresh", false, "ignore the cached catalog")
	catalogListCmd.Flags().String("category", "", "only show this category id")

	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")
	only, _ := cmd.Flags().GetString("category")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.catalogService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	load := svc.Snapshot
	if refresh {
		load = svc.Reload
	}
	snap, err := load(ctx)
	if err != nil {
		return err
	}

	cats := snap.Categories()
	if only != "" {
		c, ok := snap.Category(only)
		if !ok {
			return fmt.Errorf("unknown category %q", only)
		}
		cats = []catalog.Category{c}
	}

	if ok, err := printStructured(cats); ok {
		return err
	}
	if len(cats) == 0 {
		fmt.Println("No categories found")
		return nil
	}

	w := newTable()
	printTableHeader(w, "CATEGORY", "SCRAP ID", "SCRAP", "PRICE/KG")
	for _, c := range cats {
		if len(c.Scraps) == 0 {
			fmt.Fprintf(w, "%s\t-\t-\t-\n", c.Name)
			continue
		}
		for _, s := range c.Scraps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				c.Name,
				s.ID,
				s.Name,
				strconv.FormatFloat(s.PricePerKg, 'f', -1, 64),
			)
		}
	}
	return w.Flush()
}
