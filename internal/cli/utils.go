package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"shoe_pos/internal/pos"
	"shoe_pos/internal/receipt"

	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

func (r *Runner) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("pos-admin "+name, flag.ContinueOnError)
	fs.SetOutput(r.out)
	return fs
}

// parseArgs parses flags wherever they appear and returns the positional
// arguments in order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// parseDay reads YYYY-MM-DD, "today" or "yesterday" in the local zone. An
// empty value is the zero time.
func parseDay(value string, now time.Time) (time.Time, error) {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "":
		return time.Time{}, nil
	case "today":
		return startOfDay(now), nil
	case "yesterday":
		return startOfDay(now).AddDate(0, 0, -1), nil
	default:
		t, err := time.ParseInLocation(dayLayout, v, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", value)
		}
		return t, nil
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// readLines sends each input line to out until r is exhausted or ctx is
// done, then closes out.
func readLines(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) prompt(label string) (string, error) {
	fmt.Fprint(r.out, label)
	line, err := bufio.NewReader(r.in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// emitReceipt sends the sale to the receipt printer, falling back to the
// screen when none is configured or printing fails.
func (r *Runner) emitReceipt(s pos.Sale, toPrinter bool) {
	rec := receipt.FromSale(r.shop, s)
	if toPrinter && receipt.Attached(r.printer) {
		err := r.printer.Print(receipt.ESCPOS(rec, r.cfg.ReceiptWidth))
		if err == nil {
			fmt.Fprintf(r.out, "Receipt %s sent to %s\n", rec.InvoiceNo, r.printer.Name())
			return
		}
		r.logger.Warn("receipt print failed", zap.String("printer", r.printer.Name()), zap.Error(err))
		fmt.Fprintf(r.out, "Printing failed (%v), showing the receipt instead.\n", err)
	}
	fmt.Fprintln(r.out, receipt.Text(rec, r.cfg.ReceiptWidth))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
