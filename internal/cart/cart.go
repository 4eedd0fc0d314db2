package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrOutOfStock = errors.New("out of stock")

// Product is the snapshot of a catalog item taken when it was scanned.
type Product struct {
	ID                      string
	SKU                     string
	Barcode                 string
	Name                    string
	SalePrice               decimal.Decimal
	PurchasePrice           decimal.Decimal
	Stock                   int
	VariationAttributeValue string
	Image                   string
}

func (p Product) Key() Key {
	return Key{SKU: p.SKU, Barcode: p.Barcode}
}

// Key identifies a cart line.
type Key struct {
	SKU     string
	Barcode string
}

func (k Key) String() string {
	if k.Barcode == "" || k.Barcode == k.SKU {
		return k.SKU
	}
	return k.SKU + "/" + k.Barcode
}

type Line struct {
	Product  Product
	Quantity int
}

// Subtotal is always derived from quantity and unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.SalePrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) PurchaseCost() decimal.Decimal {
	return l.Product.PurchasePrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the lines of one in-progress sale in scan order. It is not
// safe for concurrent use; the POS terminal serializes access.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// AddOrIncrement merges a freshly looked-up product into the cart. An
// existing line is incremented against the new stock figure and takes the
// new snapshot; a new line starts at quantity 1.
func (c *Cart) AddOrIncrement(p Product) (Line, error) {
	if i := c.index(p.Key()); i >= 0 {
		next := c.lines[i].Quantity + 1
		if next > p.Stock {
			return c.lines[i], fmt.Errorf("%w: %s has only %d in stock", ErrOutOfStock, p.SKU, p.Stock)
		}
		c.lines[i] = Line{Product: p, Quantity: next}
		return c.lines[i], nil
	}

	if p.Stock < 1 {
		return Line{}, fmt.Errorf("%w: %s", ErrOutOfStock, p.SKU)
	}
	line := Line{Product: p, Quantity: 1}
	c.lines = append(c.lines, line)
	return line, nil
}

// SetQuantity removes the line for n < 1 and otherwise clamps n to the
// line's stock. It reports whether the key was present and whether the value
// was clamped.
func (c *Cart) SetQuantity(k Key, n int) (found, clamped bool) {
	i := c.index(k)
	if i < 0 {
		return false, false
	}
	if n < 1 {
		c.removeAt(i)
		return true, false
	}
	if stock := c.lines[i].Product.Stock; n > stock {
		n = stock
		clamped = true
	}
	c.lines[i].Quantity = n
	return true, clamped
}

// Remove is a no-op for absent keys.
func (c *Cart) Remove(k Key) {
	if i := c.index(k); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Line(k Key) (Line, bool) {
	if i := c.index(k); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// Lines returns a copy of the lines in scan order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) index(k Key) int {
	for i, l := range c.lines {
		if l.Product.Key() == k {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
