package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"maps"
	"slices"
	"time"

	"shoe_pos/internal/analytics"
	"shoe_pos/internal/pos"
	"shoe_pos/internal/receipt"
)

const defaultSalesLimit = 20

type saleFilter struct {
	from, to string
	search   string
	status   string
}

func bindSaleFilter(fs *flag.FlagSet, f *saleFilter) {
	fs.StringVar(&f.from, "from", "", "First day (YYYY-MM-DD, today, yesterday)")
	fs.StringVar(&f.to, "to", "", "Last day, inclusive")
	fs.StringVar(&f.search, "search", "", "Invoice number, customer name or phone")
	fs.StringVar(&f.status, "status", analytics.StatusAll, "Completed, Returned, Replaced, Cancelled or all")
}

// loadSales fetches the sale history and applies f, newest first.
func (r *Runner) loadSales(ctx context.Context, f saleFilter) ([]pos.Sale, error) {
	now := r.now()
	from, err := parseDay(f.from, now)
	if err != nil {
		return nil, err
	}
	to, err := parseDay(f.to, now)
	if err != nil {
		return nil, err
	}

	records, err := r.api.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	sales := make([]pos.Sale, 0, len(records))
	for _, rec := range records {
		sales = append(sales, pos.SaleFromRecord(rec))
	}
	sales = analytics.Filter(analytics.Between(sales, from, to), f.search, f.status)
	slices.SortStableFunc(sales, func(a, b pos.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sales, nil
}

func (r *Runner) runSales(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: sales list|show|summary|trend")
	}
	switch args[0] {
	case "list":
		return r.listSales(ctx, args[1:])
	case "show":
		return r.showSale(ctx, args[1:])
	case "summary":
		return r.salesSummary(ctx, args[1:])
	case "trend":
		return r.salesTrend(ctx, args[1:])
	}
	return fmt.Errorf("unknown sales command %q", args[0])
}

func (r *Runner) listSales(ctx context.Context, args []string) error {
	var f saleFilter
	fs := r.flags("sales list")
	bindSaleFilter(fs, &f)
	limit := fs.Int("limit", defaultSalesLimit, "Maximum sales to show (0 for all)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	sales, err := r.loadSales(ctx, f)
	if err != nil {
		return err
	}
	if *limit > 0 && len(sales) > *limit {
		sales = sales[:*limit]
	}
	if r.globals.JSON {
		return r.printJSON(sales)
	}
	if len(sales) == 0 {
		fmt.Fprintln(r.out, "No sales found.")
		return nil
	}

	tw := newTable(r.out)
	fmt.Fprintln(tw, "INVOICE\tDATE\tCUSTOMER\tITEMS\tTOTAL\tPAYMENT\tSTATUS")
	for _, s := range sales {
		customer := "Walk-in"
		if s.Customer != nil && s.Customer.Name != "" {
			customer = s.Customer.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			s.InvoiceNo, s.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(customer, 24),
			s.Totals.TotalQuantity, receipt.Amount(s.Totals.TotalAmount), s.PaymentMethod, s.Status)
	}
	return tw.Flush()
}

func (r *Runner) showSale(ctx context.Context, args []string) error {
	fs := r.flags("sales show")
	toPrinter := fs.Bool("print", false, "Send the receipt to the receipt printer")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("usage: sales show <invoice-no> [--print]")
	}

	rec, err := r.api.FindSaleByInvoice(ctx, rest[0])
	if err != nil {
		return err
	}
	if r.globals.JSON {
		return r.printJSON(rec)
	}
	r.emitReceipt(pos.SaleFromRecord(rec), *toPrinter)
	return nil
}

type salesReport struct {
	Summary        analytics.Summary `json:"summary"`
	PaymentMethods []analytics.Share `json:"paymentMethods"`
	Statuses       []analytics.Share `json:"statuses"`
}

func (r *Runner) salesSummary(ctx context.Context, args []string) error {
	var f saleFilter
	fs := r.flags("sales summary")
	bindSaleFilter(fs, &f)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	sales, err := r.loadSales(ctx, f)
	if err != nil {
		return err
	}
	rep := salesReport{
		Summary:        analytics.Summarize(sales),
		PaymentMethods: analytics.PaymentMethods(sales),
		Statuses:       analytics.Statuses(sales),
	}
	if r.globals.JSON {
		return r.printJSON(rep)
	}

	s := rep.Summary
	fmt.Fprintf(r.out, "Sales: %d  Items: %d\n", s.Sales, s.Items)
	fmt.Fprintf(r.out, "Revenue: %s  Profit: %s  Average ticket: %s\n",
		receipt.Money(s.Revenue), receipt.Money(s.Profit), receipt.Money(s.AverageTicket))
	fmt.Fprintf(r.out, "Completed: %d  Returned: %d  Replaced: %d  Cancelled: %d\n",
		s.Completed, s.Returned, s.Replaced, s.Cancelled)
	writeShares(r, "Payment methods", rep.PaymentMethods)
	writeShares(r, "Statuses", rep.Statuses)
	return nil
}

func writeShares(r *Runner, title string, shares []analytics.Share) {
	if len(shares) == 0 {
		return
	}
	fmt.Fprintf(r.out, "%s:\n", title)
	for _, s := range shares {
		fmt.Fprintf(r.out, "  %-16s %d\n", s.Name, s.Count)
	}
}

func (r *Runner) salesTrend(ctx context.Context, args []string) error {
	fs := r.flags("sales trend")
	rangeFlag := fs.String("range", string(analytics.RangeWeek), "week, month or year")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	rng, err := analytics.ParseRange(*rangeFlag)
	if err != nil {
		return err
	}

	sales, err := r.loadSales(ctx, saleFilter{})
	if err != nil {
		return err
	}
	buckets := analytics.Trend(sales, rng, r.now())
	if r.globals.JSON {
		return r.printJSON(buckets)
	}

	tw := newTable(r.out)
	fmt.Fprintln(tw, "PERIOD\tSALES\tREVENUE\tPROFIT")
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", b.Label, b.Sales, receipt.Amount(b.Revenue), receipt.Amount(b.Profit))
	}
	return tw.Flush()
}

type dashboardOutput struct {
	Counts   map[string]float64 `json:"counts"`
	Overview analytics.Overview `json:"overview"`
}

func (r *Runner) dashboard(ctx context.Context, _ []string) error {
	counts, err := r.api.DashboardCounts(ctx)
	if err != nil {
		return err
	}
	sales, err := r.loadSales(ctx, saleFilter{})
	if err != nil {
		return err
	}
	out := dashboardOutput{Counts: counts, Overview: analytics.NewOverview(sales, r.now())}
	if r.globals.JSON {
		return r.printJSON(out)
	}

	o := out.Overview
	fmt.Fprintf(r.out, "Dashboard for %s\n", o.GeneratedFor.Format(time.DateOnly))
	fmt.Fprintf(r.out, "Today:      %d sales, %s revenue, %s profit\n", o.Today.Sales, receipt.Money(o.Today.Revenue), receipt.Money(o.Today.Profit))
	fmt.Fprintf(r.out, "Last 7 days: %s\n", receipt.Money(o.LastWeek))
	fmt.Fprintf(r.out, "Last month:  %s\n", receipt.Money(o.LastMonth))
	fmt.Fprintf(r.out, "All time:   %d sales, %s revenue\n", o.Total.Sales, receipt.Money(o.Total.Revenue))

	if len(counts) > 0 {
		tw := newTable(r.out)
		for _, name := range slices.Sorted(maps.Keys(counts)) {
			fmt.Fprintf(tw, "%s\t%s\n", name, formatCount(counts[name]))
		}
		return tw.Flush()
	}
	return nil
}

func formatCount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
