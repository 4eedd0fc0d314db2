package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shoe_pos/internal/backend"
	"shoe_pos/internal/config"
	"shoe_pos/internal/llm"
	"shoe_pos/internal/pos"
	"shoe_pos/internal/product"
	"shoe_pos/internal/receipt"
	"shoe_pos/internal/session"

	"go.uber.org/zap"
)

// API is the part of the backend client the commands use.
type API interface {
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
	Logout(ctx context.Context) error
	LookupProduct(ctx context.Context, identifier string) (backend.ProductLookup, error)
	ListSales(ctx context.Context) ([]backend.SaleRecord, error)
	FindSaleByInvoice(ctx context.Context, invoiceNo string) (backend.SaleRecord, error)
	ListStock(ctx context.Context, page, limit int, search string) (backend.StockPage, error)
	AdjustStock(ctx context.Context, summaryID string, adj backend.StockAdjustment) error
	StockHistory(ctx context.Context, summaryID string, page, limit int, search string) (backend.StockHistoryPage, error)
	DashboardCounts(ctx context.Context) (map[string]float64, error)
	ListBarcodes(ctx context.Context, page, limit int, search string) (backend.PrintPage, error)
	ListQRCodes(ctx context.Context, page, limit int, search string) (backend.PrintPage, error)
}

type Runner struct {
	cfg       config.Config
	globals   Globals
	api       API
	session   *session.Store
	terminal  *pos.Terminal
	products  *product.Service
	printer   receipt.Printer
	shop      receipt.Shop
	assistant assistant
	logger    *zap.Logger

	in  io.Reader
	out io.Writer
	now func() time.Time
}

func NewRunner(
	cfg config.Config,
	globals Globals,
	api API,
	sessions *session.Store,
	terminal *pos.Terminal,
	products *product.Service,
	printer receipt.Printer,
	shop receipt.Shop,
	llmClient *llm.Client,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		globals:   globals,
		api:       api,
		session:   sessions,
		terminal:  terminal,
		products:  products,
		printer:   printer,
		shop:      shop,
		assistant: llmClient,
		logger:    logger.Named("cli"),
		in:        os.Stdin,
		out:       os.Stdout,
		now:       time.Now,
	}
}

// Execute runs the command named on the command line until it finishes
// or the process is interrupted.
func (r *Runner) Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return r.Run(ctx, r.globals.Args)
}

type command struct {
	name string
	// auth commands run behind the session guard.
	auth bool
	run  func(ctx context.Context, args []string) error
}

func (r *Runner) commands() []command {
	return []command{
		{name: "login", run: r.login},
		{name: "logout", run: r.logout},
		{name: "whoami", auth: true, run: r.whoami},
		{name: "pos", auth: true, run: r.runPOS},
		{name: "labels", auth: true, run: r.runLabels},
		{name: "sales", auth: true, run: r.runSales},
		{name: "stock", auth: true, run: r.runStock},
		{name: "dashboard", auth: true, run: r.dashboard},
		{name: "product", auth: true, run: r.runProduct},
		{name: "ask", auth: true, run: r.ask},
	}
}

// Run dispatches args[0] to its command. Errors come back as one
// operator-facing line.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(r.out, usageText)
		return nil
	}

	name := args[0]
	for _, c := range r.commands() {
		if c.name != name {
			continue
		}
		r.logger.Debug("command", zap.String("name", name), zap.Int("args", len(args)-1))
		if c.auth {
			if _, err := r.session.Require(); err != nil {
				return userError{err}
			}
		}
		if err := c.run(ctx, args[1:]); err != nil {
			r.logger.Info("command failed", zap.String("name", name), zap.Error(err))
			return userError{err}
		}
		return nil
	}
	return fmt.Errorf("unknown command %q (run pos-admin -h)", name)
}

// userError shows the operator-facing text of err while keeping it
// available to errors.Is.
type userError struct {
	err error
}

func (e userError) Error() string { return describe(e.err) }

func (e userError) Unwrap() error { return e.err }

func describe(err error) string {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "not logged in, run: pos-admin login --email <email>"
	case errors.Is(err, backend.ErrInvalidCredentials):
		return backend.Message(err, "invalid email or password")
	case errors.Is(err, backend.ErrUnauthorized):
		return "session expired, log in again"
	case errors.Is(err, backend.ErrTimeout):
		return "the server did not answer in time, try again"
	case errors.Is(err, backend.ErrNetwork):
		return "cannot reach the server, check the connection"
	case errors.Is(err, backend.ErrNotFound):
		return backend.Message(err, "not found")
	case errors.As(err, &apiErr):
		return backend.Message(err, "request failed: "+apiErr.Status)
	}
	return err.Error()
}

func (r *Runner) printJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
