// Package analytics derives dashboard figures from sale history. Every
// function is pure; callers fetch the sales.
package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"shoe_pos/internal/pos"

	"github.com/shopspring/decimal"
)

const StatusAll = "all"

// Filter keeps sales whose invoice number, customer name or phone
// contains search, and whose status equals status unless it is "all"
// or empty.
func Filter(sales []pos.Sale, search, status string) []pos.Sale {
	term := strings.ToLower(strings.TrimSpace(search))
	var out []pos.Sale
	for _, s := range sales {
		if status != "" && status != StatusAll && s.Status != status {
			continue
		}
		if term != "" && !matches(s, term) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matches(s pos.Sale, term string) bool {
	if strings.Contains(strings.ToLower(s.InvoiceNo), term) {
		return true
	}
	if s.Customer == nil {
		return false
	}
	return strings.Contains(strings.ToLower(s.Customer.Name), term) ||
		strings.Contains(s.Customer.Phone, term)
}

// Between keeps sales created in [from, end of the day of to]. A zero
// bound is open.
func Between(sales []pos.Sale, from, to time.Time) []pos.Sale {
	var end time.Time
	if !to.IsZero() {
		end = startOfDay(to).AddDate(0, 0, 1)
	}
	var out []pos.Sale
	for _, s := range sales {
		if !from.IsZero() && s.CreatedAt.Before(from) {
			continue
		}
		if !end.IsZero() && !s.CreatedAt.Before(end) {
			continue
		}
		out = append(out, s)
	}
	return out
}

type Range string

const (
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case RangeWeek, RangeMonth, RangeYear:
		return r, nil
	case "":
		return RangeWeek, nil
	}
	return "", fmt.Errorf("unknown range %q (use week, month or year)", s)
}

// Bucket is one point of a trend chart covering [Start, End).
type Bucket struct {
	Label   string          `json:"label"`
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// Trend buckets sales ending at now: seven days for a week, four
// seven-day spans for a month, twelve calendar months for a year. Dates
// are taken in now's location.
func Trend(sales []pos.Sale, r Range, now time.Time) []Bucket {
	today := startOfDay(now)
	var buckets []Bucket
	switch r {
	case RangeMonth:
		for i := 3; i >= 0; i-- {
			end := today.AddDate(0, 0, 1-i*7)
			start := end.AddDate(0, 0, -7)
			last := end.AddDate(0, 0, -1)
			buckets = append(buckets, Bucket{
				Label: fmt.Sprintf("Week %d (%d-%d %s)", 4-i, start.Day(), last.Day(), start.Format("Jan")),
				Start: start,
				End:   end,
			})
		}
	case RangeYear:
		month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		for i := 11; i >= 0; i-- {
			start := month.AddDate(0, -i, 0)
			buckets = append(buckets, Bucket{
				Label: start.Format("Jan 2006"),
				Start: start,
				End:   start.AddDate(0, 1, 0),
			})
		}
	default:
		for i := 6; i >= 0; i-- {
			start := today.AddDate(0, 0, -i)
			buckets = append(buckets, Bucket{
				Label: start.Format("Mon Jan 2"),
				Start: start,
				End:   start.AddDate(0, 0, 1),
			})
		}
	}

	for i := range buckets {
		buckets[i].Revenue = decimal.Zero
		buckets[i].Profit = decimal.Zero
	}
	for _, s := range sales {
		at := s.CreatedAt.In(now.Location())
		for i := range buckets {
			b := &buckets[i]
			if at.Before(b.Start) || !at.Before(b.End) {
				continue
			}
			b.Sales++
			b.Revenue = b.Revenue.Add(s.Totals.TotalAmount)
			b.Profit = b.Profit.Add(s.Totals.Profit)
			break
		}
	}
	return buckets
}

// Share is one slice of a distribution.
type Share struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PaymentMethods counts sales per payment method, most used first.
func PaymentMethods(sales []pos.Sale) []Share {
	return distribution(sales, func(s pos.Sale) string {
		if s.PaymentMethod == "" {
			return "unknown"
		}
		return string(s.PaymentMethod)
	})
}

// Statuses counts sales per status, most common first.
func Statuses(sales []pos.Sale) []Share {
	return distribution(sales, func(s pos.Sale) string {
		if s.Status == "" {
			return "unknown"
		}
		return s.Status
	})
}

func distribution(sales []pos.Sale, key func(pos.Sale) string) []Share {
	counts := map[string]int{}
	for _, s := range sales {
		counts[key(s)]++
	}
	out := make([]Share, 0, len(counts))
	for name, n := range counts {
		out = append(out, Share{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b Share) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

type Summary struct {
	Sales         int             `json:"sales"`
	Items         int             `json:"items"`
	Revenue       decimal.Decimal `json:"revenue"`
	Profit        decimal.Decimal `json:"profit"`
	AverageTicket decimal.Decimal `json:"averageTicket"`
	Completed     int             `json:"completed"`
	Returned      int             `json:"returned"`
	Replaced      int             `json:"replaced"`
	Cancelled     int             `json:"cancelled"`
}

// Summarize totals a set of sales.
func Summarize(sales []pos.Sale) Summary {
	sum := Summary{Revenue: decimal.Zero, Profit: decimal.Zero, AverageTicket: decimal.Zero}
	for _, s := range sales {
		sum.Sales++
		sum.Items += s.Totals.TotalQuantity
		sum.Revenue = sum.Revenue.Add(s.Totals.TotalAmount)
		sum.Profit = sum.Profit.Add(s.Totals.Profit)
		switch s.Status {
		case "Completed":
			sum.Completed++
		case "Returned", "Refunded":
			sum.Returned++
		case "Replaced", "Replace":
			sum.Replaced++
		case "Cancelled":
			sum.Cancelled++
		}
	}
	if sum.Sales > 0 {
		sum.AverageTicket = sum.Revenue.DivRound(decimal.NewFromInt(int64(sum.Sales)), 2)
	}
	return sum
}

// Overview is the headline block of the sales dashboard.
type Overview struct {
	Total        Summary         `json:"total"`
	Today        Summary         `json:"today"`
	LastWeek     decimal.Decimal `json:"lastWeek"`
	LastMonth    decimal.Decimal `json:"lastMonth"`
	GeneratedFor time.Time       `json:"generatedFor"`
}

// NewOverview summarizes all sales, today's sales, and revenue over the last
// seven days and the last month.
func NewOverview(sales []pos.Sale, now time.Time) Overview {
	today := startOfDay(now)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	var todays []pos.Sale
	o := Overview{
		Total:        Summarize(sales),
		LastWeek:     decimal.Zero,
		LastMonth:    decimal.Zero,
		GeneratedFor: now,
	}
	for _, s := range sales {
		if !s.CreatedAt.Before(today) && s.CreatedAt.Before(today.AddDate(0, 0, 1)) {
			todays = append(todays, s)
		}
		if !s.CreatedAt.Before(weekAgo) {
			o.LastWeek = o.LastWeek.Add(s.Totals.TotalAmount)
		}
		if !s.CreatedAt.Before(monthAgo) {
			o.LastMonth = o.LastMonth.Add(s.Totals.TotalAmount)
		}
	}
	o.Today = Summarize(todays)
	return o
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
