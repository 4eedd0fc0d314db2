package labels

import (
	"errors"
	"strings"
	"testing"
)

func labelConfig(cardWidth, margin, labelWidth float64) Config {
	c := DefaultConfig()
	c.PrinterType = PrinterLabel
	c.CardWidth = cardWidth
	c.CardHeight = cardWidth
	c.Margin = margin
	c.LabelWidth = labelWidth
	return c
}

func TestCheckFitLabelTooWide(t *testing.T) {
	report := CheckFit(labelConfig(60, 5, 58))

	if report.FitsWidth {
		t.Error("60mm card with 5mm margins should not fit a 58mm label")
	}
	if !report.FitsHeight {
		t.Error("label rolls always fit in height")
	}
	if report.RequiredWidth != 70 {
		t.Errorf("required width = %v, want 70", report.RequiredWidth)
	}
	if w := report.Warning(); !strings.Contains(w, "70.0mm") || !strings.Contains(w, "58mm x auto") {
		t.Errorf("unexpected warning %q", w)
	}
}

func TestCheckFitLabelWidthBoundary(t *testing.T) {
	for _, card := range []float64{1, 10, 37.5, 47, 48, 48.5, 60, 120} {
		for _, margin := range []float64{0.5, 1, 5} {
			for _, label := range []float64{40, 58, 80} {
				report := CheckFit(labelConfig(card, margin, label))
				want := card+2*margin <= label
				if report.FitsWidth != want {
					t.Errorf("card=%v margin=%v label=%v: FitsWidth=%v, want %v", card, margin, label, report.FitsWidth, want)
				}
			}
		}
	}
}

func TestCheckFitSheet(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		fitsWidth  bool
		fitsHeight bool
		width      float64
		height     float64
	}{
		{
			name:       "defaults overflow a4 portrait",
			mutate:     func(*Config) {},
			fitsWidth:  false,
			fitsHeight: false,
			width:      70*4 + 5*3 + 10,
			height:     70*8 + 5*7 + 10,
		},
		{
			name: "small cards fit",
			mutate: func(c *Config) {
				c.CardWidth, c.CardHeight = 45, 30
			},
			fitsWidth:  true,
			fitsHeight: true,
			width:      45*4 + 5*3 + 10,
			height:     30*8 + 5*7 + 10,
		},
		{
			name: "landscape swaps the page",
			mutate: func(c *Config) {
				c.Orientation = Landscape
				c.CardWidth, c.CardHeight = 60, 25
			},
			fitsWidth:  true,
			fitsHeight: false,
			width:      60*4 + 5*3 + 10,
			height:     25*8 + 5*7 + 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			report := CheckFit(c)
			if report.FitsWidth != tt.fitsWidth || report.FitsHeight != tt.fitsHeight {
				t.Errorf("fits = (%v, %v), want (%v, %v)", report.FitsWidth, report.FitsHeight, tt.fitsWidth, tt.fitsHeight)
			}
			if report.RequiredWidth != tt.width || report.RequiredHeight != tt.height {
				t.Errorf("required = %vx%v, want %vx%v", report.RequiredWidth, report.RequiredHeight, tt.width, tt.height)
			}
			if report.Fits() != (report.Warning() == "") {
				t.Errorf("warning %q inconsistent with Fits()", report.Warning())
			}
		})
	}
}

func TestPageDimensions(t *testing.T) {
	tests := []struct {
		paper       string
		orientation Orientation
		want        Dimensions
	}{
		{paper: "A4", orientation: Portrait, want: Dimensions{Width: 210, Height: 297}},
		{paper: "A4", orientation: Landscape, want: Dimensions{Width: 297, Height: 210}},
		{paper: "Letter", orientation: Portrait, want: Dimensions{Width: 216, Height: 279}},
		{paper: "Legal", orientation: Landscape, want: Dimensions{Width: 356, Height: 216}},
		{paper: "", orientation: Portrait, want: Dimensions{Width: 210, Height: 297}},
	}
	for _, tt := range tests {
		c := DefaultConfig()
		c.PaperSize = tt.paper
		c.Orientation = tt.orientation
		if got := PageDimensions(c); got != tt.want {
			t.Errorf("%s %s: got %+v, want %+v", tt.paper, tt.orientation, got, tt.want)
		}
	}

	got := PageDimensions(labelConfig(50, 5, 80))
	if got.Width != 80 || !got.Unbounded {
		t.Errorf("label page = %+v, want 80mm unbounded", got)
	}
}

func TestOptimalCardSize(t *testing.T) {
	if got := OptimalCardSize(labelConfig(50, 5, 80)); got != 64 {
		t.Errorf("label optimal = %v, want 64", got)
	}

	// A4 portrait, 5mm margin and gap, 4 columns, 8 rows:
	// width (200-15)/4 = 46.25 -> 46, height (287-35)/8 = 31.5 -> 31.
	c := DefaultConfig()
	if got := OptimalCardSize(c); got != 31 {
		t.Errorf("sheet optimal = %v, want 31", got)
	}

	applied := ApplyOptimalSize(c)
	if applied.CardWidth != 31 || applied.CardHeight != 31 {
		t.Errorf("applied card = %vx%v", applied.CardWidth, applied.CardHeight)
	}
	if !CheckFit(applied).Fits() {
		t.Error("optimal size should fit the page")
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 65)
	for i := range items {
		items[i] = i
	}

	pages := Paginate(items, DefaultConfig())
	if len(pages) != 3 || len(pages[0]) != 30 || len(pages[2]) != 5 {
		t.Fatalf("sheet pages = %d (%d..%d)", len(pages), len(pages[0]), len(pages[len(pages)-1]))
	}
	if pages[1][0] != 30 || pages[2][4] != 64 {
		t.Error("items out of order")
	}

	labels := Paginate(items[:3], labelConfig(50, 5, 80))
	if len(labels) != 3 {
		t.Fatalf("label pages = %d, want 3", len(labels))
	}
	for i, page := range labels {
		if len(page) != 1 || page[0] != i {
			t.Errorf("label page %d = %v", i, page)
		}
	}

	if Paginate([]int{}, DefaultConfig()) != nil {
		t.Error("empty input should produce no pages")
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	c := DefaultConfig()
	c.PaperSize = "A3"
	c.Columns = 0
	err := c.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "A3") || !strings.Contains(err.Error(), "columns") {
		t.Errorf("error should name every problem: %v", err)
	}

	label := labelConfig(50, 5, 0)
	label.Columns = 0
	if err := label.Validate(); err == nil || strings.Contains(err.Error(), "columns") {
		t.Errorf("label validation = %v, want label width error only", err)
	}
}
