package pos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"shoe_pos/internal/backend"
	"shoe_pos/internal/cart"
	"shoe_pos/internal/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrValidation         = errors.New("checkout validation failed")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNoPaymentMethod    = errors.New("no payment method selected")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrLineNotFound       = errors.New("item is not in the cart")
)

// Backend is the part of the remote API the terminal talks to.
type Backend interface {
	LookupProduct(ctx context.Context, identifier string) (backend.ProductLookup, error)
	CreateSale(ctx context.Context, sale backend.SaleRequest, key string) (backend.SaleConfirmation, error)
}

// Terminal is the controller of one POS screen: it owns the cart and every
// transient field of the sale being rung up.
type Terminal struct {
	backend Backend
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.Mutex
	cart        *cart.Cart
	discount    cart.Discount
	payment     PaymentMethod
	tendered    decimal.NullDecimal
	customer    *Customer
	operator    string
	checkingOut bool
	// idempotencyKey identifies the sale currently in the cart. It survives
	// failed checkouts and is dropped whenever the sale content changes.
	idempotencyKey string
	lastSale       *Sale
}

func NewTerminal(b Backend, m *metrics.Metrics, logger *zap.Logger) *Terminal {
	return &Terminal{
		backend:  b,
		metrics:  m,
		logger:   logger.Named("pos"),
		now:      time.Now,
		cart:     cart.New(),
		discount: cart.Discount{Value: decimal.Zero, Type: cart.DiscountFixed},
		payment:  DefaultPaymentMethod,
	}
}

// SetOperator records the user the sales are attributed to.
func (t *Terminal) SetOperator(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operator = userID
}

// Scan validates raw input, resolves it against the catalog and merges the
// product into the cart. On any failure the cart is left unchanged.
func (t *Terminal) Scan(ctx context.Context, raw string) (cart.Line, error) {
	id, err := ParseIdentifier(raw)
	if err != nil {
		t.metrics.Scan(metrics.ResultInvalid)
		return cart.Line{}, err
	}

	found, err := t.backend.LookupProduct(ctx, id)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, backend.ErrNotFound) {
			result = metrics.ResultNotFound
		}
		t.metrics.Scan(result)
		t.logger.Info("scan lookup failed", zap.String("identifier", id), zap.Error(err))
		return cart.Line{}, fmt.Errorf("lookup %s: %w", id, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return cart.Line{}, ErrCheckoutInProgress
	}

	line, err := t.cart.AddOrIncrement(productFromLookup(found))
	if err != nil {
		t.metrics.Scan(metrics.ResultOutOfStock)
		return line, err
	}
	t.changed()
	t.metrics.Scan(metrics.ResultOK)
	t.logger.Debug("scanned",
		zap.String("sku", line.Product.SKU),
		zap.Int("quantity", line.Quantity),
		zap.Int("stock", line.Product.Stock),
	)
	return line, nil
}

// SetQuantity removes the line for n < 1 and otherwise clamps n to the
// stock known for the line. clamped reports a silent cap.
func (t *Terminal) SetQuantity(k cart.Key, n int) (clamped bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return false, ErrCheckoutInProgress
	}

	found, clamped := t.cart.SetQuantity(k, n)
	if !found {
		return false, fmt.Errorf("%w: %s", ErrLineNotFound, k)
	}
	t.changed()
	return clamped, nil
}

// Increment is the manual "+" control; it never goes past the line's stock.
func (t *Terminal) Increment(k cart.Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}

	line, ok := t.cart.Line(k)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLineNotFound, k)
	}
	if line.Quantity+1 > line.Product.Stock {
		return fmt.Errorf("%w: %s has only %d in stock", cart.ErrOutOfStock, k, line.Product.Stock)
	}
	t.cart.SetQuantity(k, line.Quantity+1)
	t.changed()
	return nil
}

// Decrement is the manual "-" control; dropping below one removes the line.
func (t *Terminal) Decrement(k cart.Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}

	line, ok := t.cart.Line(k)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLineNotFound, k)
	}
	t.cart.SetQuantity(k, line.Quantity-1)
	t.changed()
	return nil
}

func (t *Terminal) Remove(k cart.Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}
	t.cart.Remove(k)
	t.changed()
	return nil
}

// Clear empties the cart and resets discount and payment method.
func (t *Terminal) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}
	t.cart.Clear()
	t.discount = cart.Discount{Value: decimal.Zero, Type: cart.DiscountFixed}
	t.payment = DefaultPaymentMethod
	t.tendered = decimal.NullDecimal{}
	t.changed()
	return nil
}

func (t *Terminal) SetDiscount(d cart.Discount) error {
	if err := d.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}
	t.discount = d
	t.changed()
	return nil
}

// SetPaymentMethod selects the payment method; an empty method clears it.
func (t *Terminal) SetPaymentMethod(m PaymentMethod) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}
	t.payment = m
	t.changed()
	return nil
}

// SetTendered records the cash handed over, used only for the change line
// on the receipt.
func (t *Terminal) SetTendered(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: tendered amount must not be negative", ErrValidation)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}
	t.tendered = decimal.NewNullDecimal(amount)
	return nil
}

func (t *Terminal) SetCustomer(c Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}
	t.customer = &c
	t.changed()
	return nil
}

func (t *Terminal) ClearCustomer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.checkingOut {
		return ErrCheckoutInProgress
	}
	t.customer = nil
	t.changed()
	return nil
}

// Totals is derived fresh from the current lines and discount.
func (t *Terminal) Totals() cart.Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cart.ComputeTotals(t.cart.Lines(), t.discount)
}

func (t *Terminal) Lines() []cart.Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cart.Lines()
}

// Resolve maps an operator reference, either a 1-based line number or a
// SKU, to the key of a cart line.
func (t *Terminal) Resolve(ref string) (cart.Key, error) {
	ref = strings.TrimSpace(ref)
	lines := t.Lines()
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(lines) {
		return lines[n-1].Product.Key(), nil
	}
	var match []cart.Key
	for _, l := range lines {
		if strings.EqualFold(l.Product.SKU, ref) || (l.Product.Barcode != "" && l.Product.Barcode == ref) {
			match = append(match, l.Product.Key())
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return cart.Key{}, fmt.Errorf("%w: %s", ErrLineNotFound, ref)
	default:
		return cart.Key{}, fmt.Errorf("%w: %s matches %d lines, use the line number", ErrLineNotFound, ref, len(match))
	}
}

// State is a read-only snapshot of the terminal for display.
type State struct {
	Lines         []cart.Line
	Totals        cart.Totals
	Discount      cart.Discount
	PaymentMethod PaymentMethod
	Tendered      decimal.NullDecimal
	Customer      *Customer
	CheckingOut   bool
}

func (t *Terminal) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := t.cart.Lines()
	st := State{
		Lines:         lines,
		Totals:        cart.ComputeTotals(lines, t.discount),
		Discount:      t.discount,
		PaymentMethod: t.payment,
		Tendered:      t.tendered,
		CheckingOut:   t.checkingOut,
	}
	if t.customer != nil {
		c := *t.customer
		st.Customer = &c
	}
	return st
}

// LastSale returns the most recent completed sale for reprinting.
func (t *Terminal) LastSale() (Sale, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastSale == nil {
		return Sale{}, false
	}
	return *t.lastSale, true
}

// Checkout submits the cart as one sale. Only one checkout runs at a time,
// and the cart is frozen while it does. On success every transient field is
// reset; on failure nothing changes and the same idempotency key is reused
// by the next attempt.
func (t *Terminal) Checkout(ctx context.Context) (Sale, error) {
	t.mu.Lock()
	if t.checkingOut {
		t.mu.Unlock()
		return Sale{}, ErrCheckoutInProgress
	}
	if t.cart.IsEmpty() {
		t.mu.Unlock()
		t.metrics.Checkout(metrics.ResultInvalid)
		return Sale{}, fmt.Errorf("%w: %w", ErrValidation, ErrEmptyCart)
	}
	if t.payment == "" {
		t.mu.Unlock()
		t.metrics.Checkout(metrics.ResultInvalid)
		return Sale{}, fmt.Errorf("%w: %w", ErrValidation, ErrNoPaymentMethod)
	}

	draft := t.draft()
	if t.idempotencyKey == "" {
		t.idempotencyKey = uuid.NewString()
	}
	key := t.idempotencyKey
	t.checkingOut = true
	t.mu.Unlock()

	conf, err := t.backend.CreateSale(ctx, saleRequest(draft), key)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkingOut = false

	if err != nil {
		t.metrics.Checkout(metrics.ResultError)
		t.logger.Warn("checkout failed",
			zap.String("idempotency_key", key),
			zap.Int("lines", len(draft.Lines)),
			zap.Error(err),
		)
		return Sale{}, err
	}

	sale := draft.confirm(conf, t.now())
	t.lastSale = &sale
	t.reset()
	t.metrics.Checkout(metrics.ResultOK)
	t.logger.Info("sale completed",
		zap.String("invoice_no", sale.InvoiceNo),
		zap.String("total", sale.Totals.TotalAmount.StringFixed(2)),
		zap.String("payment_method", string(sale.PaymentMethod)),
	)
	return sale, nil
}

// draft builds the sale from the current state. Callers hold t.mu.
func (t *Terminal) draft() Sale {
	lines := t.cart.Lines()
	totals := cart.ComputeTotals(lines, t.discount)

	s := Sale{
		Totals:        totals,
		Discount:      t.discount,
		PaymentMethod: t.payment,
		Paid:          totals.TotalAmount,
		Tendered:      totals.TotalAmount,
		SoldBy:        t.operator,
	}
	if t.tendered.Valid {
		s.Tendered = t.tendered.Decimal
	}
	if t.customer != nil {
		c := *t.customer
		s.Customer = &c
	}
	for _, l := range lines {
		s.Lines = append(s.Lines, SaleLine{
			SKU:                     l.Product.SKU,
			Name:                    l.Product.Name,
			VariationAttributeValue: l.Product.VariationAttributeValue,
			Quantity:                l.Quantity,
			Price:                   l.Product.SalePrice,
			PurchasePrice:           l.Product.PurchasePrice,
		})
	}
	return s
}

// reset clears the sale after a successful checkout. Callers hold t.mu.
func (t *Terminal) reset() {
	t.cart.Clear()
	t.discount = cart.Discount{Value: decimal.Zero, Type: cart.DiscountFixed}
	t.payment = DefaultPaymentMethod
	t.tendered = decimal.NullDecimal{}
	t.customer = nil
	t.idempotencyKey = ""
}

// changed drops the idempotency key after the sale content changed.
// Callers hold t.mu.
func (t *Terminal) changed() {
	t.idempotencyKey = ""
}
