package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"shoe_pos/internal/cart"
	"shoe_pos/internal/pos"
	"shoe_pos/internal/receipt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const posHelp = `Scan or type a barcode/SKU to add it. Lines are referenced by number or SKU.
  cart                         show the cart and totals
  qty <line> <n>               set quantity (0 removes; capped at stock)
  + <line> | - <line>          one more / one less
  rm <line>                    remove a line
  clear                        empty the cart, reset discount and payment
  discount <n> [fixed|percent] set the discount
  pay <method> [tendered]      cash, card, mobile banking, bank or replace
  customer <phone> <name...>   attach a customer (customer off: walk-in)
  checkout                     submit the sale and print the receipt
  reprint                      print the last receipt again
  exit`

func (r *Runner) runPOS(ctx context.Context, args []string) error {
	fs := r.flags("pos")
	device := fs.String("scanner", r.cfg.ScannerDevice, "Barcode scanner device to read in the background (SCANNER_DEVICE)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	sess, err := r.session.Require()
	if err != nil {
		return err
	}
	r.terminal.SetOperator(sess.User.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scans := make(chan string)
	if *device != "" {
		if err := r.startScanner(ctx, *device, scans); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Listening to scanner %s\n", *device)
	}

	lines := make(chan string)
	go readLines(ctx, r.in, lines)

	fmt.Fprintf(r.out, "POS ready for %s. Type 'help' for commands.\n", displayName(sess.User))
	for {
		fmt.Fprint(r.out, "pos> ")
		select {
		case <-ctx.Done():
			return nil
		case code := <-scans:
			fmt.Fprintln(r.out, code)
			r.report(r.scan(ctx, code))
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.handlePOSLine(ctx, line)
			r.report(err)
			if quit {
				return nil
			}
		}
	}
}

// startScanner feeds completed scans from a keyboard-wedge device into
// scans until ctx is done.
func (r *Runner) startScanner(ctx context.Context, device string, scans chan<- string) error {
	f, err := os.Open(device)
	if err != nil {
		return fmt.Errorf("open scanner: %w", err)
	}
	keys := make(chan pos.Keystroke, 64)
	go func() {
		defer f.Close()
		if err := pos.ReadKeystrokes(ctx, f, keys); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("scanner read stopped", zap.String("device", device), zap.Error(err))
		}
	}()
	go func() {
		if err := pos.NewScanner().Run(ctx, keys, scans); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("scanner stopped", zap.Error(err))
		}
	}()
	return nil
}

// report prints err without ending the session.
func (r *Runner) report(err error) {
	if err != nil {
		fmt.Fprintf(r.out, "! %s\n", describe(err))
	}
}

func (r *Runner) handlePOSLine(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, rest := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "exit", "quit":
		if n := len(r.terminal.Lines()); n > 0 {
			fmt.Fprintf(r.out, "Leaving with %d line(s) in the cart.\n", n)
		}
		return true, nil
	case "help", "?":
		fmt.Fprintln(r.out, posHelp)
		return false, nil
	case "cart", "totals":
		r.showCart()
		return false, nil
	case "qty":
		if len(rest) != 2 {
			return false, errors.New("usage: qty <line> <n>")
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return false, fmt.Errorf("quantity %q is not a number", rest[1])
		}
		key, err := r.terminal.Resolve(rest[0])
		if err != nil {
			return false, err
		}
		clamped, err := r.terminal.SetQuantity(key, n)
		if err != nil {
			return false, err
		}
		if clamped {
			fmt.Fprintln(r.out, "Quantity capped at the available stock.")
		}
		r.showCart()
		return false, nil
	case "+", "-", "rm":
		if len(rest) != 1 {
			return false, fmt.Errorf("usage: %s <line>", cmd)
		}
		key, err := r.terminal.Resolve(rest[0])
		if err != nil {
			return false, err
		}
		switch cmd {
		case "+":
			err = r.terminal.Increment(key)
		case "-":
			err = r.terminal.Decrement(key)
		default:
			err = r.terminal.Remove(key)
		}
		if err != nil {
			return false, err
		}
		r.showCart()
		return false, nil
	case "clear":
		return false, r.terminal.Clear()
	case "discount":
		return false, r.setDiscount(rest)
	case "pay":
		return false, r.setPayment(rest)
	case "customer":
		return false, r.setCustomer(rest)
	case "checkout":
		sale, err := r.terminal.Checkout(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Sale %s completed: %s\n", sale.InvoiceNo, receipt.Money(sale.Totals.TotalAmount))
		r.emitReceipt(sale, true)
		return false, nil
	case "reprint":
		sale, ok := r.terminal.LastSale()
		if !ok {
			return false, errors.New("no sale to reprint yet")
		}
		r.emitReceipt(sale, true)
		return false, nil
	}

	if len(fields) == 1 {
		return false, r.scan(ctx, fields[0])
	}
	return false, fmt.Errorf("unknown command %q, type 'help'", fields[0])
}

func (r *Runner) scan(ctx context.Context, code string) error {
	line, err := r.terminal.Scan(ctx, code)
	if err != nil {
		return err
	}
	name := line.Product.Name
	if line.Product.VariationAttributeValue != "" {
		name += " (" + line.Product.VariationAttributeValue + ")"
	}
	fmt.Fprintf(r.out, "+ %s x%d  %s\n", name, line.Quantity, receipt.Money(line.Subtotal()))
	fmt.Fprintf(r.out, "  Total: %s\n", receipt.Money(r.terminal.Totals().TotalAmount))
	return nil
}

func (r *Runner) setDiscount(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: discount <n> [fixed|percent]")
	}
	value, err := decimal.NewFromString(strings.TrimSuffix(args[0], "%"))
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", cart.ErrInvalidDiscount, args[0])
	}
	typ := cart.DiscountFixed
	if strings.HasSuffix(args[0], "%") {
		typ = cart.DiscountPercent
	}
	if len(args) == 2 {
		if typ, err = cart.ParseDiscountType(args[1]); err != nil {
			return err
		}
	}
	if err := r.terminal.SetDiscount(cart.Discount{Value: value, Type: typ}); err != nil {
		return err
	}
	r.showCart()
	return nil
}

// setPayment accepts a method of one or more words optionally followed by
// the amount tendered.
func (r *Runner) setPayment(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: pay <method> [tendered]")
	}
	var tendered *decimal.Decimal
	if len(args) > 1 {
		if d, err := decimal.NewFromString(args[len(args)-1]); err == nil {
			tendered = &d
			args = args[:len(args)-1]
		}
	}
	method, err := pos.ParsePaymentMethod(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := r.terminal.SetPaymentMethod(method); err != nil {
		return err
	}
	if tendered != nil {
		if err := r.terminal.SetTendered(*tendered); err != nil {
			return err
		}
	}
	r.showCart()
	return nil
}

func (r *Runner) setCustomer(args []string) error {
	if len(args) == 1 && strings.EqualFold(args[0], "off") {
		return r.terminal.ClearCustomer()
	}
	if len(args) < 2 {
		return errors.New("usage: customer <phone> <name...> | customer off")
	}
	return r.terminal.SetCustomer(pos.Customer{Phone: args[0], Name: strings.Join(args[1:], " ")})
}

func (r *Runner) showCart() {
	st := r.terminal.State()
	if len(st.Lines) == 0 {
		fmt.Fprintln(r.out, "Cart is empty.")
		return
	}

	tw := newTable(r.out)
	fmt.Fprintln(tw, "#\tSKU\tITEM\tQTY\tSTOCK\tPRICE\tSUBTOTAL")
	for i, l := range st.Lines {
		name := l.Product.Name
		if l.Product.VariationAttributeValue != "" {
			name += " (" + l.Product.VariationAttributeValue + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			i+1, l.Product.Key(), truncate(name, 32), l.Quantity, l.Product.Stock,
			receipt.Amount(l.Product.SalePrice), receipt.Amount(l.Subtotal()))
	}
	_ = tw.Flush()

	t := st.Totals
	fmt.Fprintf(r.out, "Items: %d  Subtotal: %s  Discount: %s  Total: %s\n",
		t.TotalQuantity, receipt.Money(t.SubTotal), receipt.Money(t.DiscountAmount), receipt.Money(t.TotalAmount))
	payment := string(st.PaymentMethod)
	if payment == "" {
		payment = "(none)"
	}
	fmt.Fprintf(r.out, "Payment: %s", payment)
	if st.Tendered.Valid {
		fmt.Fprintf(r.out, "  Tendered: %s", receipt.Money(st.Tendered.Decimal))
		if change := st.Tendered.Decimal.Sub(t.TotalAmount); change.IsPositive() {
			fmt.Fprintf(r.out, "  Change: %s", receipt.Money(change))
		}
	}
	if st.Customer != nil {
		fmt.Fprintf(r.out, "  Customer: %s %s", st.Customer.Name, st.Customer.Phone)
	}
	fmt.Fprintln(r.out)
}
