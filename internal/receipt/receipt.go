package receipt

import (
	"fmt"
	"time"

	"shoe_pos/internal/cart"
	"shoe_pos/internal/config"
	"shoe_pos/internal/pos"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	walkInCustomer = "Walk-in"
	dateLayout     = "Jan 2, 2006, 03:04 PM"
	currency       = "BDT"
)

type Shop struct {
	Name    string
	Address string
	Phone   string
	Notice  string
}

func ShopFromConfig(cfg config.Config) Shop {
	return Shop{
		Name:    cfg.ShopName,
		Address: cfg.ShopAddress,
		Phone:   cfg.ShopPhone,
		Notice:  cfg.ShopNotice,
	}
}

type Item struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

type Receipt struct {
	Shop           Shop
	InvoiceNo      string
	Date           time.Time
	Customer       string
	CustomerPhone  string
	Items          []Item
	SubTotal       decimal.Decimal
	Discount       cart.Discount
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Paid           decimal.Decimal
	Change         decimal.Decimal
	PaymentMethod  string
	Status         string
}

// FromSale lays out a completed sale for printing.
func FromSale(shop Shop, s pos.Sale) Receipt {
	r := Receipt{
		Shop:           shop,
		InvoiceNo:      s.InvoiceNo,
		Date:           s.CreatedAt,
		Customer:       walkInCustomer,
		SubTotal:       s.Totals.SubTotal,
		Discount:       s.Discount,
		DiscountAmount: s.Totals.DiscountAmount,
		Total:          s.Totals.TotalAmount,
		Paid:           s.Tendered,
		Change:         s.Change(),
		PaymentMethod:  string(s.PaymentMethod),
		Status:         s.Status,
	}
	if s.Customer != nil {
		if s.Customer.Name != "" {
			r.Customer = s.Customer.Name
		}
		r.CustomerPhone = s.Customer.Phone
	}
	for _, l := range s.Lines {
		name := l.Name
		if l.VariationAttributeValue != "" {
			name = fmt.Sprintf("%s (%s)", name, l.VariationAttributeValue)
		}
		r.Items = append(r.Items, Item{
			Name:      name,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
			Total:     l.Total(),
		})
	}
	return r
}

// Text renders the receipt as fixed-width plain text.
func Text(r Receipt, width int) string {
	doc := NewPlainDocument(width)
	render(doc, r)
	return doc.String()
}

// ESCPOS renders the receipt as an ESC/POS byte stream ending in a cut.
func ESCPOS(r Receipt, width int) []byte {
	doc := NewDocument(width)
	render(doc, r)
	return doc.Finish().Bytes()
}

func render(doc *Document, r Receipt) {
	doc.Center().Bold(true).Large(true).
		Line(r.Shop.Name).
		Large(false).Bold(false)
	if r.Shop.Address != "" {
		doc.Wrap(r.Shop.Address)
	}
	if r.Shop.Phone != "" {
		doc.Line("Mobile: " + r.Shop.Phone)
	}
	if r.Shop.Notice != "" {
		doc.Wrap(r.Shop.Notice)
	}
	doc.Rule('=').
		Bold(true).Line("INVOICE").Bold(false).
		Left()

	doc.Line("Customer: " + r.Customer)
	if r.CustomerPhone != "" {
		doc.Line("Mobile: " + r.CustomerPhone)
	}
	doc.Line("Invoice No: " + orNA(r.InvoiceNo))
	if r.Date.IsZero() {
		doc.Line("Date: N/A")
	} else {
		doc.Line("Date: " + r.Date.Local().Format(dateLayout))
	}

	doc.Rule('-').Pair("Product", "Total")
	for i, item := range r.Items {
		doc.Linef("%d. %s", i+1, orNA(item.Name))
		doc.Pair(fmt.Sprintf("  %d(%s)", item.Quantity, Amount(item.UnitPrice)), Amount(item.Total))
	}
	doc.Rule('-')

	doc.Pair("Payment Method:", orNA(r.PaymentMethod)).
		Pair("Subtotal:", Money(r.SubTotal))
	if r.Discount.Value.IsPositive() {
		doc.Pair(discountLabel(r.Discount), "-"+Money(r.DiscountAmount))
	}
	doc.Bold(true).Pair("Total Amount:", Money(r.Total)).Bold(false).
		Pair("Paid Amount:", Money(r.Paid))
	if r.Change.IsPositive() {
		doc.Pair("Change:", Money(r.Change))
	}
	doc.Pair("Status:", orNA(r.Status)).
		Rule('-').
		Center().Line("Thank you for shopping with us").Left()
}

func discountLabel(d cart.Discount) string {
	if d.Type == cart.DiscountPercent {
		return fmt.Sprintf("Discount (%s%%):", d.Value.String())
	}
	return "Discount (fixed):"
}

var numbers = message.NewPrinter(language.English)

// Amount formats a money value with grouping and two decimals.
func Amount(d decimal.Decimal) string {
	return numbers.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Money is Amount with the currency code.
func Money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + currency + " " + Amount(d.Neg())
	}
	return currency + " " + Amount(d)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
