package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidDiscount = errors.New("invalid discount")

type DiscountType string

const (
	DiscountFixed   DiscountType = "fixed"
	DiscountPercent DiscountType = "percent"
)

func ParseDiscountType(s string) (DiscountType, error) {
	switch t := DiscountType(strings.ToLower(strings.TrimSpace(s))); t {
	case DiscountFixed, DiscountPercent:
		return t, nil
	case "":
		return DiscountFixed, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidDiscount, s)
	}
}

type Discount struct {
	Value decimal.Decimal
	Type  DiscountType
}

// Validate only enforces a non-negative value and a known type; a discount
// larger than the subtotal is left for the backend to reject.
func (d Discount) Validate() error {
	if d.Value.IsNegative() {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidDiscount)
	}
	switch d.Type {
	case DiscountFixed, DiscountPercent:
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDiscount, d.Type)
	}
}

// Amount is the money taken off a subtotal.
func (d Discount) Amount(subTotal decimal.Decimal) decimal.Decimal {
	if d.Type == DiscountPercent {
		return subTotal.Mul(d.Value).Div(decimal.NewFromInt(100))
	}
	return d.Value
}

type Totals struct {
	TotalQuantity     int
	SubTotal          decimal.Decimal
	TotalPurchaseCost decimal.Decimal
	DiscountAmount    decimal.Decimal
	TotalAmount       decimal.Decimal
	Profit            decimal.Decimal
}

// ComputeTotals derives the sale totals from lines and discount.
func ComputeTotals(lines []Line, discount Discount) Totals {
	t := Totals{
		SubTotal:          decimal.Zero,
		TotalPurchaseCost: decimal.Zero,
	}
	for _, l := range lines {
		t.TotalQuantity += l.Quantity
		t.SubTotal = t.SubTotal.Add(l.Subtotal())
		t.TotalPurchaseCost = t.TotalPurchaseCost.Add(l.PurchaseCost())
	}
	t.DiscountAmount = discount.Amount(t.SubTotal)
	t.TotalAmount = t.SubTotal.Sub(t.DiscountAmount)
	t.Profit = t.TotalAmount.Sub(t.TotalPurchaseCost)
	return t
}
