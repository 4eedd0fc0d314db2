package labels

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

// Item is one product to put on a label.
type Item struct {
	SKU   string
	Name  string
	Price float64
	// Image is a data or http(s) URL of a pre-rendered QR code.
	Image string
}

func (i Item) PriceText() string {
	return strconv.FormatFloat(i.Price, 'f', -1, 64)
}

// BarcodeSettings sizes thermal barcode labels. Widths are millimeters,
// bar width is pixels per module and font sizes are pixels.
type BarcodeSettings struct {
	Copies          int
	PaperWidth      float64
	LabelHeight     float64
	BarcodeWidth    float64
	BarcodeHeight   int
	FontSize        int
	TitleFontSize   int
	ProductFontSize int
	PriceFontSize   int
}

func DefaultBarcodeSettings() BarcodeSettings {
	return BarcodeSettings{
		Copies:          1,
		PaperWidth:      58,
		LabelHeight:     25,
		BarcodeWidth:    1.2,
		BarcodeHeight:   30,
		FontSize:        8,
		TitleFontSize:   12,
		ProductFontSize: 9,
		PriceFontSize:   10,
	}
}

func (s BarcodeSettings) Validate() error {
	switch {
	case s.Copies < 1:
		return fmt.Errorf("%w: copies must be at least 1", ErrInvalidConfig)
	case s.PaperWidth <= 0 || s.LabelHeight <= 0:
		return fmt.Errorf("%w: label size must be positive", ErrInvalidConfig)
	case s.BarcodeWidth <= 0 || s.BarcodeHeight <= 0:
		return fmt.Errorf("%w: barcode size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ExpandCopies repeats every item copies times, keeping item order.
func ExpandCopies(items []Item, copies int) []Item {
	if copies < 1 {
		copies = 1
	}
	out := make([]Item, 0, len(items)*copies)
	for _, item := range items {
		for range copies {
			out = append(out, item)
		}
	}
	return out
}

const maxLabelName = 28

type barcodeLabel struct {
	Item
	Name    string
	Image   template.URL
	WidthPx float64
}

type barcodeSheet struct {
	Title    string
	Shop     string
	Settings BarcodeSettings
	Labels   []barcodeLabel
}

// RenderBarcodeLabels writes an HTML document with one CODE128 label per
// item copy, sized for a thermal roll.
func RenderBarcodeLabels(w io.Writer, shop string, items []Item, s BarcodeSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	sheet := barcodeSheet{Title: "Print Barcodes", Shop: shop, Settings: s}
	for _, item := range ExpandCopies(items, s.Copies) {
		img, modules, err := Code128DataURL(item.SKU, s.BarcodeWidth, s.BarcodeHeight)
		if err != nil {
			return err
		}
		sheet.Labels = append(sheet.Labels, barcodeLabel{
			Item:    item,
			Name:    truncateName(item.Name, maxLabelName),
			Image:   img,
			WidthPx: math.Round(float64(modules)*s.BarcodeWidth*10) / 10,
		})
	}
	return barcodeTemplate.Execute(w, sheet)
}

// Code128DataURL encodes value as a PNG data URL and reports the symbol
// width in modules.
func Code128DataURL(value string, moduleWidth float64, height int) (template.URL, int, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return "", 0, fmt.Errorf("encode barcode %q: %w", value, err)
	}
	modules := code.Bounds().Dx()
	scale := max(1, int(math.Ceil(moduleWidth)))
	scaled, err := barcode.Scale(code, modules*scale, height)
	if err != nil {
		return "", 0, fmt.Errorf("scale barcode %q: %w", value, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", 0, fmt.Errorf("render barcode %q: %w", value, err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), modules, nil
}

type qrCard struct {
	Item
	Image template.URL
}

type qrSheet struct {
	Title  string
	Shop   string
	Label  bool
	Styles template.CSS
	Pages  [][]qrCard
}

// RenderQRSheet writes an HTML document laying QR cards out per c. The
// images come from the backend; this only sizes and places them.
func RenderQRSheet(w io.Writer, shop string, items []Item, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cards := make([]qrCard, 0, len(items))
	for _, item := range items {
		cards = append(cards, qrCard{Item: item, Image: safeImageURL(item.Image)})
	}
	sheet := qrSheet{
		Title:  "Print QR Codes",
		Shop:   shop,
		Label:  c.IsLabel(),
		Styles: template.CSS(PrintCSS(c)),
		Pages:  Paginate(cards, c),
	}
	return qrTemplate.Execute(w, sheet)
}

// PrintCSS returns the page and grid rules for c.
func PrintCSS(c Config) string {
	var b strings.Builder
	if c.IsLabel() {
		fmt.Fprintf(&b, "@page { size: %smm auto; margin: %smm; }\n", formatMM(c.LabelWidth), formatMM(c.Margin))
		fmt.Fprintf(&b, ".printable-page { page-break-after: always; padding: %smm 0; display: flex; flex-direction: column; align-items: center; }\n",
			formatMM(c.LabelGap))
		fmt.Fprintf(&b, ".price-tag { margin-bottom: %smm; width: %smm; height: %smm; border: 1px solid #000; box-sizing: border-box; display: flex; flex-direction: column; align-items: center; gap: 2mm; page-break-inside: avoid; }\n",
			formatMM(c.LabelGap), formatMM(c.CardWidth), formatMM(c.CardHeight))
		b.WriteString(".sku-text { margin: 1mm 0 0 0; font-size: 12pt; font-weight: 500; text-align: center; word-break: break-all; }\n")
		b.WriteString(".qr-code { width: 100%; height: 100%; object-fit: contain; }\n")
		return b.String()
	}

	paper := c.PaperSize
	if _, ok := paperSizes[paper]; !ok {
		paper = defaultPaper
	}
	orientation := c.Orientation
	if orientation == "" {
		orientation = Portrait
	}
	fmt.Fprintf(&b, "@page { size: %s %s; margin: %smm; }\n", paper, orientation, formatMM(c.Margin))
	fmt.Fprintf(&b, ".printable-page { display: grid; grid-template-columns: repeat(%d, 1fr); grid-auto-rows: %smm; gap: %smm; align-content: start; page-break-after: always; page-break-inside: avoid; }\n",
		c.Columns, formatMM(c.CardHeight), formatMM(c.Gap))
	fmt.Fprintf(&b, ".price-tag { width: %smm; height: %smm; border: 1px solid #000; padding: 1mm; display: flex; flex-direction: column; justify-content: center; align-items: center; break-inside: avoid; font-size: 8pt; gap: 1mm; }\n",
		formatMM(c.CardWidth), formatMM(c.CardHeight))
	b.WriteString(".sku-text { font-size: 6pt; margin-bottom: 1mm; text-align: center; word-break: break-all; }\n")
	b.WriteString(".qr-code { width: 100%; height: auto; max-height: 100%; object-fit: contain; }\n")
	return b.String()
}

func safeImageURL(s string) template.URL {
	switch {
	case strings.HasPrefix(s, "data:image/"),
		strings.HasPrefix(s, "https://"),
		strings.HasPrefix(s, "http://"):
		return template.URL(s)
	}
	return ""
}

func truncateName(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= limit {
		return string(r)
	}
	return strings.TrimSpace(string(r[:limit-1])) + "…"
}

var barcodeTemplate = template.Must(template.New("barcodes").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@media print {
  @page { margin: 0; size: {{.Settings.PaperWidth}}mm {{.Settings.LabelHeight}}mm; }
  body { margin: 0; width: {{.Settings.PaperWidth}}mm; -webkit-print-color-adjust: exact; print-color-adjust: exact; }
}
* { box-sizing: border-box; margin: 0; padding: 0; }
body { font-family: Arial, sans-serif; }
.barcode-label { width: {{.Settings.PaperWidth}}mm; height: {{.Settings.LabelHeight}}mm; display: flex; flex-direction: column; align-items: center; justify-content: center; text-align: center; padding: 1mm; page-break-after: always; }
.shop { font-weight: bold; font-size: {{.Settings.TitleFontSize}}px; line-height: 1.1; margin-bottom: 1px; }
.product { font-weight: bold; font-size: {{.Settings.ProductFontSize}}px; line-height: 1.1; margin-bottom: 1px; max-width: 100%; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
.price { font-weight: bold; font-size: {{.Settings.PriceFontSize}}px; margin-bottom: 2px; }
.sku { font-size: {{.Settings.FontSize}}px; }
</style>
</head>
<body>
{{- range .Labels}}
<div class="barcode-label">
  <div class="shop">{{$.Shop}}</div>
  <div class="product">{{.Name}}</div>
  <div class="price">Price: Tk. {{.PriceText}}</div>
  <img class="barcode" src="{{.Image}}" alt="{{.SKU}}" style="width: {{.WidthPx}}px; height: {{$.Settings.BarcodeHeight}}px">
  <div class="sku">{{.SKU}}</div>
</div>
{{- end}}
</body>
</html>
`))

var qrTemplate = template.Must(template.New("qr").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
html, body { margin: 0; padding: 0; background: white; font-family: Arial, sans-serif; }
.qr-container { flex: 1; display: flex; justify-content: center; align-items: center; width: 100%; }
{{.Styles}}
</style>
</head>
<body>
{{- range .Pages}}
<section class="printable-page">
{{- range .}}
  <div class="price-tag">
    {{- if not $.Label}}<div class="shop">{{$.Shop}}</div>{{end}}
    <div class="sku-text">{{.SKU}}</div>
    <div class="qr-container">{{if .Image}}<img class="qr-code" src="{{.Image}}" alt="{{.SKU}}">{{end}}</div>
  </div>
{{- end}}
</section>
{{- end}}
</body>
</html>
`))
