package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoe_pos/internal/backend"
)

const defaultStockLimit = 20

func (r *Runner) runStock(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stock list|history|adjust")
	}
	switch args[0] {
	case "list":
		return r.listStock(ctx, args[1:])
	case "history":
		return r.stockHistory(ctx, args[1:])
	case "adjust":
		return r.adjustStock(ctx, args[1:])
	}
	return fmt.Errorf("unknown stock command %q", args[0])
}

func (r *Runner) listStock(ctx context.Context, args []string) error {
	fs := r.flags("stock list")
	search := fs.String("search", "", "Product name or SKU")
	page := fs.Int("page", 1, "Page")
	limit := fs.Int("limit", defaultStockLimit, "Rows per page")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	res, err := r.api.ListStock(ctx, *page, *limit, *search)
	if err != nil {
		return err
	}
	if r.globals.JSON {
		return r.printJSON(res)
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(r.out, "No stock entries found.")
		return nil
	}

	tw := newTable(r.out)
	fmt.Fprintln(tw, "ID\tSKU\tPRODUCT\tVARIANT\tSTOCK\tBRANCHES")
	for _, s := range res.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.SKU, truncate(s.ProductName, 32), variantLabel(s), s.CurrentStock, branchLabel(s.Branches))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	writePagination(r, res.Pagination)
	return nil
}

func (r *Runner) stockHistory(ctx context.Context, args []string) error {
	fs := r.flags("stock history")
	search := fs.String("search", "", "Filter by reason or type")
	page := fs.Int("page", 1, "Page")
	limit := fs.Int("limit", defaultStockLimit, "Rows per page")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("usage: stock history <summary-id>")
	}

	res, err := r.api.StockHistory(ctx, rest[0], *page, *limit, *search)
	if err != nil {
		return err
	}
	if r.globals.JSON {
		return r.printJSON(res)
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(r.out, "No stock movements.")
		return nil
	}

	tw := newTable(r.out)
	fmt.Fprintln(tw, "DATE\tTYPE\tQTY\tREASON")
	for _, t := range res.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			t.TransactionDate.Local().Format("2006-01-02 15:04"), t.TransactionType, t.Quantity, t.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	writePagination(r, res.Pagination)
	return nil
}

// adjustStock applies a manual increase or decrease to one stock entry.
func (r *Runner) adjustStock(ctx context.Context, args []string) error {
	fs := r.flags("stock adjust")
	add := fs.Int("add", 0, "Units to add")
	remove := fs.Int("remove", 0, "Units to remove")
	reason := fs.String("reason", "", "Reason recorded with the movement")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("usage: stock adjust <summary-id> --add n | --remove n [--reason text]")
	}

	adj := backend.StockAdjustment{Reason: strings.TrimSpace(*reason)}
	switch {
	case *add > 0 && *remove == 0:
		adj.Action, adj.Quantity = "increase", *add
	case *remove > 0 && *add == 0:
		adj.Action, adj.Quantity = "decrease", *remove
	default:
		return errors.New("give exactly one positive --add or --remove")
	}

	if err := r.api.AdjustStock(ctx, rest[0], adj); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Stock %sd by %d.\n", adj.Action, adj.Quantity)
	return nil
}

func variantLabel(s backend.StockSummary) string {
	if s.VariantDetails == nil {
		return "-"
	}
	values := make([]string, 0, len(s.VariantDetails.Attributes))
	for _, a := range s.VariantDetails.Attributes {
		values = append(values, a.Value)
	}
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, " / ")
}

func branchLabel(branches []backend.BranchStock) string {
	if len(branches) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(branches))
	for _, b := range branches {
		parts = append(parts, fmt.Sprintf("%s: %d", b.BranchName, b.BranchStock))
	}
	return strings.Join(parts, ", ")
}

func writePagination(r *Runner, p backend.Pagination) {
	if p.TotalPages > 1 {
		fmt.Fprintf(r.out, "Page %d of %d (%d total)\n", p.CurrentPage, p.TotalPages, p.TotalItems)
	}
}
