package pos

import (
	"fmt"
	"strings"
	"time"

	"shoe_pos/internal/backend"
	"shoe_pos/internal/cart"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCard          PaymentMethod = "card"
	PaymentMobileBanking PaymentMethod = "mobile banking"
	PaymentBank          PaymentMethod = "bank"
	PaymentReplace       PaymentMethod = "replace"

	DefaultPaymentMethod = PaymentCash
)

var PaymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentCard,
	PaymentMobileBanking,
	PaymentBank,
	PaymentReplace,
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if normalized == "mobile" || normalized == "mobile-banking" || normalized == "mobile_banking" {
		normalized = string(PaymentMobileBanking)
	}
	for _, m := range PaymentMethods {
		if string(m) == normalized {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, s)
}

type Customer struct {
	Name  string
	Phone string
}

type SaleLine struct {
	SKU                     string
	Name                    string
	VariationAttributeValue string
	Quantity                int
	Price                   decimal.Decimal
	PurchasePrice           decimal.Decimal
}

func (l SaleLine) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Sale is the authoritative record of a completed sale, as confirmed by
// the backend. It is the receipt source.
type Sale struct {
	InvoiceNo     string
	CreatedAt     time.Time
	Status        string
	Lines         []SaleLine
	Totals        cart.Totals
	Discount      cart.Discount
	PaymentMethod PaymentMethod
	// Paid is the payment amount recorded on the sale.
	Paid decimal.Decimal
	// Tendered is what the customer handed over; it equals Paid unless the
	// operator entered a larger amount.
	Tendered decimal.Decimal
	Customer *Customer
	SoldBy   string
}

// Change is the amount handed back, zero when nothing was over-tendered.
func (s Sale) Change() decimal.Decimal {
	if s.Tendered.GreaterThan(s.Paid) {
		return s.Tendered.Sub(s.Paid)
	}
	return decimal.Zero
}

const (
	fallbackInvoiceNo = "N/A"
	fallbackStatus    = "Completed"
)

func saleRequest(s Sale) backend.SaleRequest {
	req := backend.SaleRequest{
		Products:          make([]backend.SaleProduct, 0, len(s.Lines)),
		TotalQuantity:     s.Totals.TotalQuantity,
		SubTotal:          s.Totals.SubTotal.InexactFloat64(),
		TotalAmount:       s.Totals.TotalAmount.InexactFloat64(),
		Discount:          s.Discount.Value.InexactFloat64(),
		DiscountType:      string(s.Discount.Type),
		DiscountAmount:    s.Totals.DiscountAmount.InexactFloat64(),
		TotalPurchaseCost: s.Totals.TotalPurchaseCost.InexactFloat64(),
		Profit:            s.Totals.Profit.InexactFloat64(),
		Payment: backend.Payment{
			Method: string(s.PaymentMethod),
			Amount: s.Paid.InexactFloat64(),
		},
		SoldBy: s.SoldBy,
	}
	if s.Customer != nil {
		req.Customer = &backend.Customer{Name: s.Customer.Name, Phone: s.Customer.Phone}
	}
	for _, l := range s.Lines {
		req.Products = append(req.Products, backend.SaleProduct{
			SKU:           l.SKU,
			Quantity:      l.Quantity,
			Price:         l.Price.InexactFloat64(),
			PurchasePrice: l.PurchasePrice.InexactFloat64(),
			ProductName:   l.Name,
		})
	}
	return req
}

// confirm applies the backend's confirmation, defaulting whatever it left out.
func (s Sale) confirm(c backend.SaleConfirmation, now time.Time) Sale {
	s.InvoiceNo = c.InvoiceNo
	if s.InvoiceNo == "" {
		s.InvoiceNo = fallbackInvoiceNo
	}
	s.CreatedAt = c.CreatedAt
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.Status = c.Status
	if s.Status == "" {
		s.Status = fallbackStatus
	}
	return s
}

// SaleFromRecord rebuilds a Sale from a stored backend record, e.g. to
// reprint an older receipt.
func SaleFromRecord(r backend.SaleRecord) Sale {
	s := Sale{
		InvoiceNo: r.InvoiceNo,
		CreatedAt: r.CreatedAt,
		Status:    r.Status,
		Totals: cart.Totals{
			TotalQuantity:     r.TotalQuantity,
			SubTotal:          decimal.NewFromFloat(r.SubTotal),
			TotalPurchaseCost: decimal.NewFromFloat(r.TotalPurchaseCost),
			DiscountAmount:    decimal.NewFromFloat(r.DiscountAmount),
			TotalAmount:       decimal.NewFromFloat(r.TotalAmount),
			Profit:            decimal.NewFromFloat(r.Profit),
		},
		Discount: cart.Discount{
			Value: decimal.NewFromFloat(r.Discount),
			Type:  cart.DiscountType(r.DiscountType),
		},
		PaymentMethod: PaymentMethod(r.Payment.Method),
		Paid:          decimal.NewFromFloat(r.Payment.Amount),
		Tendered:      decimal.NewFromFloat(r.Payment.Amount),
		SoldBy:        firstNonEmpty(r.SoldBy.Name, r.SoldBy.ID),
	}
	if s.Discount.Type == "" {
		s.Discount.Type = cart.DiscountFixed
	}
	if r.Customer != nil && (r.Customer.Name != "" || r.Customer.Phone != "") {
		s.Customer = &Customer{Name: r.Customer.Name, Phone: r.Customer.Phone}
	}
	for _, p := range r.Products {
		s.Lines = append(s.Lines, SaleLine{
			SKU:           p.SKU,
			Name:          p.ProductName,
			Quantity:      p.Quantity,
			Price:         decimal.NewFromFloat(p.Price),
			PurchasePrice: decimal.NewFromFloat(p.PurchasePrice),
		})
	}
	return s
}

func productFromLookup(p backend.ProductLookup) cart.Product {
	variation := ""
	if len(p.VariationAttributes) > 0 {
		variation = p.VariationAttributes[0].Value
	}
	return cart.Product{
		ID:                      p.ProductID,
		SKU:                     p.SKU,
		Barcode:                 p.BrCode,
		Name:                    p.ProductName,
		SalePrice:               decimal.NewFromFloat(p.SalePrice),
		PurchasePrice:           decimal.NewFromFloat(p.PurchasePrice),
		Stock:                   p.CurrentStock,
		VariationAttributeValue: variation,
		Image:                   p.ProductImage,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
