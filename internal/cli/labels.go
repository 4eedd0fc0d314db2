package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"shoe_pos/internal/backend"
	"shoe_pos/internal/labels"

	"go.uber.org/zap"
)

const labelPageLimit = 50

type fitOutput struct {
	Fits              bool    `json:"fits"`
	RequiredWidthMM   float64 `json:"requiredWidthMm"`
	RequiredHeightMM  float64 `json:"requiredHeightMm"`
	PageWidthMM       float64 `json:"pageWidthMm"`
	PageHeightMM      float64 `json:"pageHeightMm,omitempty"`
	OptimalCardSizeMM float64 `json:"optimalCardSizeMm"`
	Warning           string  `json:"warning,omitempty"`
}

func (r *Runner) runLabels(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: labels barcode|qr [flags]")
	}
	kind := args[0]
	if kind != "barcode" && kind != "qr" {
		return fmt.Errorf("unknown label kind %q (use barcode or qr)", kind)
	}

	layout := labels.DefaultConfig()
	settings := labels.DefaultBarcodeSettings()
	var (
		printerType, orientation string
		skus, search, out        string
		page                     int
		all, fitOnly, optimal    bool
		strict                   bool
	)

	fs := r.flags("labels " + kind)
	fs.StringVar(&skus, "sku", "", "Comma-separated SKUs to print (default every SKU on the page)")
	fs.StringVar(&search, "search", "", "Search term passed to the listing")
	fs.IntVar(&page, "page", 1, "Listing page")
	fs.BoolVar(&all, "all", false, "Fetch every listing page")
	fs.StringVar(&out, "out", kind+"-labels.html", "Output HTML file")

	fs.StringVar(&printerType, "printer", string(layout.PrinterType), "QR sheet printer: a4 or label")
	fs.StringVar(&layout.PaperSize, "paper", layout.PaperSize, "Paper size: A4, Letter or Legal")
	fs.StringVar(&orientation, "orientation", string(layout.Orientation), "portrait or landscape")
	fs.IntVar(&layout.Columns, "columns", layout.Columns, "Columns per sheet")
	fs.Float64Var(&layout.Gap, "gap", layout.Gap, "Gap between cards (mm)")
	fs.Float64Var(&layout.CardWidth, "card-width", layout.CardWidth, "Card width (mm)")
	fs.Float64Var(&layout.CardHeight, "card-height", layout.CardHeight, "Card height (mm)")
	fs.Float64Var(&layout.Margin, "margin", layout.Margin, "Page margin (mm)")
	fs.IntVar(&layout.ItemsPerPage, "per-page", layout.ItemsPerPage, "Cards per sheet")
	fs.Float64Var(&layout.LabelWidth, "label-width", layout.LabelWidth, "Label roll width (mm)")
	fs.Float64Var(&layout.LabelGap, "label-gap", layout.LabelGap, "Gap between labels (mm)")
	fs.BoolVar(&fitOnly, "fit", false, "Only report whether the QR layout fits")
	fs.BoolVar(&optimal, "optimal", false, "Resize cards to the suggested size")
	fs.BoolVar(&strict, "strict", false, "Refuse to render a QR layout that does not fit")

	fs.IntVar(&settings.Copies, "copies", settings.Copies, "Barcode copies per SKU")
	fs.Float64Var(&settings.PaperWidth, "paper-width", settings.PaperWidth, "Barcode label width (mm)")
	fs.Float64Var(&settings.LabelHeight, "label-height", settings.LabelHeight, "Barcode label height (mm)")
	fs.Float64Var(&settings.BarcodeWidth, "bar-width", settings.BarcodeWidth, "Barcode module width (px)")
	fs.IntVar(&settings.BarcodeHeight, "bar-height", settings.BarcodeHeight, "Barcode height (px)")
	fs.IntVar(&settings.FontSize, "font-size", settings.FontSize, "SKU font size (px)")
	fs.IntVar(&settings.TitleFontSize, "title-font-size", settings.TitleFontSize, "Shop name font size (px)")
	fs.IntVar(&settings.ProductFontSize, "product-font-size", settings.ProductFontSize, "Product name font size (px)")
	fs.IntVar(&settings.PriceFontSize, "price-font-size", settings.PriceFontSize, "Price font size (px)")

	if _, err := parseArgs(fs, args[1:]); err != nil {
		return err
	}
	layout.PrinterType = labels.PrinterType(strings.ToLower(printerType))
	layout.Orientation = labels.Orientation(strings.ToLower(orientation))

	if kind == "qr" {
		if err := layout.Validate(); err != nil {
			return err
		}
		if optimal {
			layout = labels.ApplyOptimalSize(layout)
		}
		report := labels.CheckFit(layout)
		if fitOnly {
			return r.writeFit(layout, report)
		}
		if w := report.Warning(); w != "" {
			if strict {
				return errors.New(w)
			}
			fmt.Fprintf(r.out, "Warning: %s (suggested card size %.0fmm)\n", w, labels.OptimalCardSize(layout))
		}
	} else if err := settings.Validate(); err != nil {
		return err
	}

	list := r.api.ListBarcodes
	if kind == "qr" {
		list = r.api.ListQRCodes
	}
	records, err := fetchPrintRecords(ctx, list, page, search, all)
	if err != nil {
		return err
	}
	items := selectLabelItems(records, skus)
	if len(items) == 0 {
		return errors.New("nothing to print: no matching SKUs")
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	pages := len(labels.ExpandCopies(items, settings.Copies))
	if kind == "qr" {
		err = labels.RenderQRSheet(f, r.shop.Name, items, layout)
		pages = len(labels.Paginate(items, layout))
	} else {
		err = labels.RenderBarcodeLabels(f, r.shop.Name, items, settings)
	}
	if err != nil {
		return fmt.Errorf("render labels: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	r.logger.Info("labels rendered",
		zap.String("kind", kind),
		zap.Int("items", len(items)),
		zap.Int("pages", pages),
		zap.String("out", out),
	)
	fmt.Fprintf(r.out, "Wrote %d item(s) on %d page(s) to %s; open it in a browser to print.\n", len(items), pages, out)
	return nil
}

func (r *Runner) writeFit(c labels.Config, report labels.FitReport) error {
	res := fitOutput{
		Fits:              report.Fits(),
		RequiredWidthMM:   report.RequiredWidth,
		RequiredHeightMM:  report.RequiredHeight,
		PageWidthMM:       report.Page.Width,
		OptimalCardSizeMM: labels.OptimalCardSize(c),
		Warning:           report.Warning(),
	}
	if !report.Page.Unbounded {
		res.PageHeightMM = report.Page.Height
	}
	if r.globals.JSON {
		return r.printJSON(res)
	}
	if res.Fits {
		fmt.Fprintf(r.out, "Layout fits: %.1fmm x %.1fmm on a %.0fmm wide page.\n", res.RequiredWidthMM, res.RequiredHeightMM, res.PageWidthMM)
	} else {
		fmt.Fprintln(r.out, res.Warning)
	}
	fmt.Fprintf(r.out, "Suggested card size: %.0fmm\n", res.OptimalCardSizeMM)
	return nil
}

type printLister func(ctx context.Context, page, limit int, search string) (backend.PrintPage, error)

func fetchPrintRecords(ctx context.Context, list printLister, page int, search string, all bool) ([]backend.PrintRecord, error) {
	if all {
		page = 1
	}
	var records []backend.PrintRecord
	for {
		res, err := list(ctx, page, labelPageLimit, search)
		if err != nil {
			return nil, err
		}
		records = append(records, res.Records...)
		if !all || page >= res.TotalPages || len(res.Records) == 0 {
			return records, nil
		}
		page++
	}
}

// selectLabelItems keeps the records named in skus, in listing order.
func selectLabelItems(records []backend.PrintRecord, skus string) []labels.Item {
	var wanted []string
	for _, s := range strings.Split(skus, ",") {
		if s = strings.TrimSpace(s); s != "" {
			wanted = append(wanted, s)
		}
	}
	var items []labels.Item
	for _, rec := range records {
		if len(wanted) > 0 && !slices.Contains(wanted, rec.SKU) {
			continue
		}
		items = append(items, labels.Item{
			SKU:   rec.SKU,
			Name:  rec.ProductName,
			Price: rec.ProductPrice,
			Image: rec.QRCodeImage,
		})
	}
	return items
}
