package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"shoe_pos/internal/config"
	"shoe_pos/internal/metrics"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiPrefix        = "/api/v1"
	idempotencyKeyHd = "Idempotency-Key"
)

// Session is the token holder the client authenticates with. Expire is
// called when the backend rejects the token.
type Session interface {
	Token() string
	Expire()
}

type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	session Session
	metrics *metrics.Metrics
	logger  *zap.Logger

	// redirecting is set by the first 401 of a burst and cleared by a
	// successful login.
	redirecting atomic.Bool
}

func NewClient(cfg config.Config, session Session, m *metrics.Metrics, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/") + apiPrefix).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetAuthScheme("Bearer")

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(2*cfg.RequestsPerSecond))
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		session: session,
		metrics: m,
		logger:  logger.Named("backend"),
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var resp loginResponse
	err := c.do(ctx, call{
		route:  "login",
		method: http.MethodPost,
		path:   "/pos-users/login",
		body:   loginRequest{Email: strings.TrimSpace(email), Password: password},
		public: true,
	}, &resp)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return LoginResult{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return LoginResult{}, err
	}
	if !resp.Success || resp.Token == "" {
		return LoginResult{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, rejected(resp.Message))
	}

	c.redirecting.Store(false)
	c.logger.Info("logged in", zap.String("user_id", resp.User.ID))
	return LoginResult{User: resp.User, Token: resp.Token}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{route: "logout", method: http.MethodGet, path: "/auth/logout"}, nil)
}

// LookupProduct resolves a scanned SKU or barcode.
func (c *Client) LookupProduct(ctx context.Context, identifier string) (ProductLookup, error) {
	var resp envelope[*ProductLookup]
	err := c.do(ctx, call{
		route:  "product-lookup",
		method: http.MethodGet,
		path:   "/frontend/br-codes/pos/" + url.PathEscape(identifier),
	}, &resp)
	if err != nil {
		return ProductLookup{}, err
	}
	if resp.failed() || resp.Data == nil || strings.TrimSpace(resp.Data.SKU) == "" {
		return ProductLookup{}, fmt.Errorf("%w: %w", ErrNotFound, rejected(firstNonEmpty(resp.Message, "Product not found")))
	}
	return *resp.Data, nil
}

// CreateSale submits a sale. Retries of the same sale must reuse key.
func (c *Client) CreateSale(ctx context.Context, sale SaleRequest, key string) (SaleConfirmation, error) {
	var resp envelope[SaleConfirmation]
	cl := call{
		route:  "create-sale",
		method: http.MethodPost,
		path:   "/pos-sales",
		body:   sale,
	}
	if key != "" {
		cl.headers = map[string]string{idempotencyKeyHd: key}
	}
	if err := c.do(ctx, cl, &resp); err != nil {
		return SaleConfirmation{}, err
	}
	// Only an explicit success confirms the sale.
	if resp.Success == nil || !*resp.Success {
		return SaleConfirmation{}, rejected(firstNonEmpty(resp.Message, "sale was not confirmed"))
	}
	return resp.Data, nil
}

func (c *Client) ListSales(ctx context.Context) ([]SaleRecord, error) {
	var resp envelope[[]SaleRecord]
	if err := c.do(ctx, call{route: "list-sales", method: http.MethodGet, path: "/pos-sales"}, &resp); err != nil {
		return nil, err
	}
	if resp.failed() {
		return nil, rejected(resp.Message)
	}
	return resp.Data, nil
}

func (c *Client) FindSaleByInvoice(ctx context.Context, invoiceNo string) (SaleRecord, error) {
	invoiceNo = strings.TrimSpace(invoiceNo)
	if invoiceNo == "" {
		return SaleRecord{}, fmt.Errorf("%w: invoice number is empty", ErrNotFound)
	}
	var resp envelope[*SaleRecord]
	err := c.do(ctx, call{
		route:  "find-sale",
		method: http.MethodGet,
		path:   "/pos-sales/invoice",
		query:  map[string]string{"invoiceNo": invoiceNo},
	}, &resp)
	if err != nil {
		return SaleRecord{}, err
	}
	if resp.failed() || resp.Data == nil {
		return SaleRecord{}, fmt.Errorf("%w: %w", ErrNotFound, rejected(firstNonEmpty(resp.Message, "sale not found")))
	}
	return *resp.Data, nil
}

func (c *Client) ListStock(ctx context.Context, page, limit int, search string) (StockPage, error) {
	var resp pagedResponse[StockSummary]
	err := c.do(ctx, call{
		route:  "list-stock",
		method: http.MethodGet,
		path:   "/pos-stock",
		query:  pageQuery(page, limit, search),
	}, &resp)
	if err != nil {
		return StockPage{}, err
	}
	if resp.Success != nil && !*resp.Success {
		return StockPage{}, rejected(resp.Message)
	}
	return StockPage{Items: resp.Data, Pagination: resp.Pagination}, nil
}

// AdjustStock increases or decreases the stock of one stock summary.
func (c *Client) AdjustStock(ctx context.Context, summaryID string, adj StockAdjustment) error {
	var resp messageResponse
	err := c.do(ctx, call{
		route:  "adjust-stock",
		method: http.MethodPut,
		path:   "/pos-stock",
		query:  map[string]string{"summaryId": summaryID},
		body:   adj,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Success == nil || !*resp.Success {
		return rejected(firstNonEmpty(resp.Message, "failed to update stock"))
	}
	return nil
}

func (c *Client) StockHistory(ctx context.Context, summaryID string, page, limit int, search string) (StockHistoryPage, error) {
	query := pageQuery(page, limit, search)
	query["summaryId"] = summaryID

	var resp pagedResponse[StockTransaction]
	err := c.do(ctx, call{
		route:  "stock-history",
		method: http.MethodGet,
		path:   "/pos-stock/history",
		query:  query,
	}, &resp)
	if err != nil {
		return StockHistoryPage{}, err
	}
	return StockHistoryPage{Items: resp.Data, Pagination: resp.Pagination}, nil
}

// DashboardCounts returns the named totals shown on the dashboard.
func (c *Client) DashboardCounts(ctx context.Context) (map[string]float64, error) {
	var resp envelope[map[string]float64]
	if err := c.do(ctx, call{route: "dashboard", method: http.MethodGet, path: "/dashboard-data-counts"}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListBarcodes(ctx context.Context, page, limit int, search string) (PrintPage, error) {
	var resp barcodeListResponse
	err := c.do(ctx, call{
		route:  "list-barcodes",
		method: http.MethodGet,
		path:   "/frontend/br-codes/print",
		query:  pageQuery(page, limit, search),
	}, &resp)
	if err != nil {
		return PrintPage{}, err
	}
	if !resp.Success {
		return PrintPage{}, rejected(firstNonEmpty(resp.Message, "failed to fetch barcodes"))
	}
	return PrintPage{Records: resp.Barcodes, Page: resp.Page, TotalPages: resp.TotalPages}, nil
}

func (c *Client) ListQRCodes(ctx context.Context, page, limit int, search string) (PrintPage, error) {
	var resp qrListResponse
	err := c.do(ctx, call{
		route:  "list-qrcodes",
		method: http.MethodGet,
		path:   "/frontend/br-codes/qr/print",
		query:  pageQuery(page, limit, search),
	}, &resp)
	if err != nil {
		return PrintPage{}, err
	}
	if !resp.Success {
		return PrintPage{}, rejected(firstNonEmpty(resp.Message, "failed to fetch qr codes"))
	}
	return PrintPage{Records: resp.QRCodes, Page: resp.Page, TotalPages: resp.TotalPages}, nil
}

// RegisterBarcode asks the backend to generate barcode and QR assets for sku.
func (c *Client) RegisterBarcode(ctx context.Context, sku string) error {
	return c.do(ctx, call{
		route:  "register-barcode",
		method: http.MethodPost,
		path:   "/frontend/br-codes",
		body:   map[string]string{"sku": sku},
		public: true,
	}, nil)
}

func (c *Client) CreateProduct(ctx context.Context, payload ProductPayload) (string, error) {
	var resp messageResponse
	err := c.do(ctx, call{route: "create-product", method: http.MethodPost, path: "/products", body: payload}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Success == nil || !*resp.Success {
		return "", rejected(firstNonEmpty(resp.Message, "failed to save product"))
	}
	return resp.Message, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (ProductRecord, error) {
	var resp productResponse
	err := c.do(ctx, call{
		route:  "get-product",
		method: http.MethodGet,
		path:   "/products/" + url.PathEscape(id),
	}, &resp)
	if err != nil {
		return ProductRecord{}, err
	}
	if resp.Product.ID == "" {
		return ProductRecord{}, fmt.Errorf("%w: %w", ErrNotFound, rejected(firstNonEmpty(resp.Message, "product not found")))
	}
	return resp.Product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, payload ProductPayload) (string, error) {
	var resp messageResponse
	err := c.do(ctx, call{
		route:  "update-product",
		method: http.MethodPut,
		path:   "/products/" + url.PathEscape(id),
		body:   payload,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Success == nil || !*resp.Success {
		return "", rejected(firstNonEmpty(resp.Message, "product update failed"))
	}
	return resp.Message, nil
}

type call struct {
	route   string
	method  string
	path    string
	query   map[string]string
	headers map[string]string
	body    any
	// public calls carry no token and never force a logout.
	public bool
}

func (c *Client) do(ctx context.Context, cl call, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req := c.http.R().SetContext(ctx).ForceContentType("application/json")
	if result != nil {
		req.SetResult(result)
	}
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if len(cl.headers) > 0 {
		req.SetHeaders(cl.headers)
	}
	if cl.body != nil {
		req.SetBody(cl.body)
	}
	if !cl.public && c.session != nil {
		if token := c.session.Token(); token != "" {
			req.SetAuthToken(token)
		}
	}

	start := time.Now()
	resp, err := req.Execute(cl.method, cl.path)
	elapsed := time.Since(start)

	status := 0
	if err == nil {
		status = resp.StatusCode()
	}
	c.metrics.APIRequest(cl.route, status, elapsed)
	c.logger.Debug("backend call",
		zap.String("route", cl.route),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	)

	if err != nil {
		return transportError(ctx, err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := apiErrorFromResponse(resp)
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		if !cl.public {
			c.forceLogout(cl.route)
		}
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	default:
		return apiErr
	}
}

// forceLogout expires the session once per burst of rejected requests.
func (c *Client) forceLogout(route string) {
	if !c.redirecting.CompareAndSwap(false, true) {
		return
	}
	c.logger.Warn("session rejected by backend, logging out", zap.String("route", route))
	c.metrics.ForcedLogout()
	if c.session != nil {
		c.session.Expire()
	}
}

func rejected(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusOK,
		Status:     "rejected",
		Message:    message,
	}
}

func pageQuery(page, limit int, search string) map[string]string {
	query := map[string]string{}
	if page > 0 {
		query["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	if search = strings.TrimSpace(search); search != "" {
		query["search"] = search
	}
	return query
}
