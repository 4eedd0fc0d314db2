package labels

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid label layout")

type PrinterType string

const (
	PrinterSheet PrinterType = "a4"
	PrinterLabel PrinterType = "label"
)

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Paper sizes in millimeters, portrait.
var paperSizes = map[string]Dimensions{
	"A4":     {Width: 210, Height: 297},
	"Letter": {Width: 216, Height: 279},
	"Legal":  {Width: 216, Height: 356},
}

const defaultPaper = "A4"

// Config describes a print run. All lengths are millimeters. In label mode
// Columns is treated as 1 and ItemsPerPage is ignored.
type Config struct {
	PrinterType  PrinterType
	PaperSize    string
	Orientation  Orientation
	Columns      int
	Gap          float64
	CardWidth    float64
	CardHeight   float64
	Margin       float64
	ItemsPerPage int
	LabelWidth   float64
	LabelGap     float64
}

func DefaultConfig() Config {
	return Config{
		PrinterType:  PrinterSheet,
		PaperSize:    defaultPaper,
		Orientation:  Portrait,
		Columns:      4,
		Gap:          5,
		CardWidth:    70,
		CardHeight:   70,
		Margin:       5,
		ItemsPerPage: 30,
		LabelWidth:   80,
		LabelGap:     3,
	}
}

func (c Config) IsLabel() bool {
	return c.PrinterType == PrinterLabel
}

func (c Config) Validate() error {
	var problems []string
	switch c.PrinterType {
	case PrinterSheet, PrinterLabel:
	default:
		problems = append(problems, fmt.Sprintf("printer type %q (use a4 or label)", c.PrinterType))
	}
	if c.CardWidth <= 0 || c.CardHeight <= 0 {
		problems = append(problems, "card size must be positive")
	}
	if c.Margin < 0 {
		problems = append(problems, "margin must not be negative")
	}
	if c.IsLabel() {
		if c.LabelWidth <= 0 {
			problems = append(problems, "label width must be positive")
		}
		if c.LabelGap < 0 {
			problems = append(problems, "label gap must not be negative")
		}
	} else {
		if _, ok := paperSizes[c.PaperSize]; !ok && c.PaperSize != "" {
			problems = append(problems, fmt.Sprintf("paper size %q (use A4, Letter or Legal)", c.PaperSize))
		}
		switch c.Orientation {
		case Portrait, Landscape, "":
		default:
			problems = append(problems, fmt.Sprintf("orientation %q", c.Orientation))
		}
		if c.Columns < 1 {
			problems = append(problems, "columns must be at least 1")
		}
		if c.ItemsPerPage < 1 {
			problems = append(problems, "items per page must be at least 1")
		}
		if c.Gap < 0 {
			problems = append(problems, "gap must not be negative")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Dimensions of a page in millimeters. Unbounded is set for continuous
// label rolls, where Height is meaningless.
type Dimensions struct {
	Width     float64
	Height    float64
	Unbounded bool
}

func PageDimensions(c Config) Dimensions {
	if c.IsLabel() {
		return Dimensions{Width: c.LabelWidth, Unbounded: true}
	}
	paper, ok := paperSizes[c.PaperSize]
	if !ok {
		paper = paperSizes[defaultPaper]
	}
	if c.Orientation == Landscape {
		return Dimensions{Width: paper.Height, Height: paper.Width}
	}
	return paper
}

// Rows is the number of grid rows a full sheet needs.
func (c Config) Rows() int {
	if c.IsLabel() || c.Columns < 1 {
		return 1
	}
	return int(math.Ceil(float64(c.ItemsPerPage) / float64(c.Columns)))
}

type FitReport struct {
	FitsWidth      bool
	FitsHeight     bool
	RequiredWidth  float64
	RequiredHeight float64
	Page           Dimensions
}

func (r FitReport) Fits() bool {
	return r.FitsWidth && r.FitsHeight
}

// Warning describes an overflow, or returns "" when the layout fits.
func (r FitReport) Warning() string {
	if r.Fits() {
		return ""
	}
	pageHeight := "auto"
	if !r.Page.Unbounded {
		pageHeight = formatMM(r.Page.Height) + "mm"
	}
	return fmt.Sprintf("layout may not fit: required %.1fmm x %.1fmm, page %smm x %s",
		r.RequiredWidth, r.RequiredHeight, formatMM(r.Page.Width), pageHeight)
}

// CheckFit compares the grid against the page. The result is advisory.
func CheckFit(c Config) FitReport {
	page := PageDimensions(c)
	if c.IsLabel() {
		required := c.CardWidth + 2*c.Margin
		return FitReport{
			FitsWidth:      required <= c.LabelWidth,
			FitsHeight:     true,
			RequiredWidth:  required,
			RequiredHeight: c.CardHeight + 2*c.Margin,
			Page:           page,
		}
	}

	cols := float64(c.Columns)
	rows := float64(c.Rows())
	width := c.CardWidth*cols + c.Gap*(cols-1) + 2*c.Margin
	height := c.CardHeight*rows + c.Gap*(rows-1) + 2*c.Margin
	return FitReport{
		FitsWidth:      width <= page.Width,
		FitsHeight:     height <= page.Height,
		RequiredWidth:  width,
		RequiredHeight: height,
		Page:           page,
	}
}

// OptimalCardSize suggests a square card edge in whole millimeters.
func OptimalCardSize(c Config) float64 {
	if c.IsLabel() {
		return math.Floor((c.LabelWidth - 2*c.Margin) * 0.92)
	}
	page := PageDimensions(c)
	cols := float64(c.Columns)
	rows := float64(c.Rows())
	width := math.Floor((page.Width - 2*c.Margin - c.Gap*(cols-1)) / cols)
	height := math.Floor((page.Height - 2*c.Margin - c.Gap*(rows-1)) / rows)
	return math.Min(width, height)
}

// ApplyOptimalSize returns c with its card resized to OptimalCardSize.
func ApplyOptimalSize(c Config) Config {
	size := OptimalCardSize(c)
	c.CardWidth = size
	c.CardHeight = size
	return c
}

// Paginate splits items into printed pages: one item per page on a label
// roll, ItemsPerPage per sheet otherwise.
func Paginate[T any](items []T, c Config) [][]T {
	if len(items) == 0 {
		return nil
	}
	size := c.ItemsPerPage
	if c.IsLabel() {
		size = 1
	}
	if size < 1 {
		size = len(items)
	}
	pages := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		pages = append(pages, items[start:end:end])
	}
	return pages
}

func formatMM(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}
