package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shoe_pos/internal/config"
	"shoe_pos/internal/metrics"

	"go.uber.org/zap"
)

type fakeSession struct {
	mu      sync.Mutex
	token   string
	expired int
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) Expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired++
	f.token = ""
}

func newTestClient(t *testing.T, handler http.HandlerFunc, sess *fakeSession) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{APIBaseURL: srv.URL, Timeout: 2 * time.Second}
	return NewClient(cfg, sess, metrics.New(), zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLookupProductSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"productId":    "p1",
				"productName":  "Runner",
				"salePrice":    100,
				"currentStock": 3,
				"sku":          "ABC",
			},
		})
	}, &fakeSession{token: "tok"})

	product, err := client.LookupProduct(context.Background(), "ABC")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotPath != "/api/v1/frontend/br-codes/pos/ABC" {
		t.Errorf("path = %q", gotPath)
	}
	if product.SKU != "ABC" || product.CurrentStock != 3 || product.SalePrice != 100 {
		t.Errorf("unexpected product: %+v", product)
	}
}

func TestLookupProductNotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
			},
		},
		{
			name: "success false",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Product not found"})
			},
		},
		{
			name: "success without data",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": nil})
			},
		},
		{
			name: "product without sku",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"productName": "Runner"}})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, &fakeSession{token: "tok"})
			_, err := client.LookupProduct(context.Background(), "ZZZ")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if got := Message(err, "fallback"); got != "Product not found" {
				t.Errorf("message = %q", got)
			}
		})
	}
}

func TestConcurrentUnauthorizedExpiresOnce(t *testing.T) {
	sess := &fakeSession{token: "stale"}
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "jwt expired"})
	}, sess)

	var wg sync.WaitGroup
	var unauthorized atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.ListSales(context.Background()); errors.Is(err, ErrUnauthorized) {
				unauthorized.Add(1)
			}
		}()
	}
	wg.Wait()

	if unauthorized.Load() != 8 {
		t.Errorf("expected every call to fail unauthorized, got %d", unauthorized.Load())
	}
	if sess.expired != 1 {
		t.Errorf("expected exactly one forced logout, got %d", sess.expired)
	}
}

func TestLoginRearmsUnauthorizedGuard(t *testing.T) {
	sess := &fakeSession{token: "stale"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/pos-users/login" {
			if r.Header.Get("Authorization") != "" {
				t.Error("login must not carry a token")
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"token":   "fresh",
				"user":    map[string]any{"_id": "u1", "name": "Cashier"},
			})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired"})
	}, sess)

	ctx := context.Background()
	_, _ = client.ListSales(ctx)

	res, err := client.Login(ctx, "a@b.c", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "fresh" || res.User.ID != "u1" {
		t.Errorf("unexpected login result: %+v", res)
	}

	sess.mu.Lock()
	sess.token = res.Token
	sess.mu.Unlock()
	_, _ = client.ListSales(ctx)

	if sess.expired != 2 {
		t.Errorf("expected the guard to re-arm after login, got %d logouts", sess.expired)
	}
}

func TestLoginRejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
	}{
		{name: "401", status: http.StatusUnauthorized, body: map[string]any{"message": "Invalid credentials"}},
		{name: "success false", status: http.StatusOK, body: map[string]any{"success": false, "message": "Invalid credentials"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{}
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}, sess)

			_, err := client.Login(context.Background(), "a@b.c", "bad")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if sess.expired != 0 {
				t.Error("failed login must not force a logout")
			}
		})
	}
}

func TestCreateSaleSendsIdempotencyKeyAndPayload(t *testing.T) {
	var gotKey string
	var got SaleRequest
	var raw map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_ = json.Unmarshal(body, &raw)
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"data":    map[string]any{"invoiceNo": "INV-1001", "status": "Completed"},
		})
	}, &fakeSession{token: "tok"})

	req := SaleRequest{
		Products:    []SaleProduct{{SKU: "ABC", Quantity: 2, Price: 100, PurchasePrice: 60, ProductName: "Runner"}},
		TotalAmount: 200,
		Payment:     Payment{Method: "cash", Amount: 200},
		SoldBy:      "u1",
	}
	conf, err := client.CreateSale(context.Background(), req, "key-1")
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if conf.InvoiceNo != "INV-1001" || conf.Status != "Completed" {
		t.Errorf("unexpected confirmation: %+v", conf)
	}
	if gotKey != "key-1" {
		t.Errorf("idempotency key = %q", gotKey)
	}
	if got.Products[0].SKU != "ABC" || got.Payment.Amount != 200 {
		t.Errorf("unexpected payload: %+v", got)
	}
	if v, ok := raw["customer"]; !ok || v != nil {
		t.Errorf("walk-in sale must send customer null, got %v (present=%v)", v, ok)
	}
}

func TestCreateSaleRequiresExplicitSuccess(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		wantMsg string
	}{
		{name: "no success field", body: map[string]any{"message": "db down"}, wantMsg: "db down"},
		{name: "success false", body: map[string]any{"success": false, "message": "Duplicate sale"}, wantMsg: "Duplicate sale"},
		{name: "bare data", body: map[string]any{"data": map[string]any{"invoiceNo": "INV-9"}}, wantMsg: "sale was not confirmed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			}, &fakeSession{token: "tok"})

			conf, err := client.CreateSale(context.Background(), SaleRequest{}, "k")
			if err == nil {
				t.Fatalf("expected an error, got confirmation %+v", conf)
			}
			if got := Message(err, "fallback"); got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Insufficient stock for ABC"})
	}, &fakeSession{token: "tok"})

	_, err := client.CreateSale(context.Background(), SaleRequest{}, "k")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "Insufficient stock for ABC" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestTimeoutAndNetworkErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()

		client := NewClient(config.Config{APIBaseURL: srv.URL, Timeout: 50 * time.Millisecond}, &fakeSession{}, nil, zap.NewNop())
		_, err := client.ListSales(context.Background())
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client := NewClient(config.Config{APIBaseURL: url, Timeout: time.Second}, &fakeSession{}, nil, zap.NewNop())
		_, err := client.ListSales(context.Background())
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
	})
}

func TestListingsDecodePagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/pos-stock":
			if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("search") != "runner" {
				t.Errorf("unexpected stock query %q", r.URL.RawQuery)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"data":       []map[string]any{{"_id": "s1", "sku": "ABC", "currentStock": 4}},
				"pagination": map[string]any{"currentPage": 2, "totalPages": 5},
			})
		case "/api/v1/frontend/br-codes/qr/print":
			writeJSON(w, http.StatusOK, map[string]any{
				"success":    true,
				"qrCodes":    []map[string]any{{"sku": "ABC", "productName": "Runner", "productPrice": 1200, "qrCodeImage": "data:image/png;base64,AA=="}},
				"page":       1,
				"totalPages": 1,
			})
		default:
			http.NotFound(w, r)
		}
	}, &fakeSession{token: "tok"})

	stock, err := client.ListStock(context.Background(), 2, 20, " runner ")
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if len(stock.Items) != 1 || stock.Pagination.TotalPages != 5 {
		t.Errorf("unexpected stock page: %+v", stock)
	}

	qr, err := client.ListQRCodes(context.Background(), 1, 30, "")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if len(qr.Records) != 1 || qr.Records[0].QRCodeImage == "" {
		t.Errorf("unexpected qr page: %+v", qr)
	}
}

func TestSaleRecordAcceptsPopulatedSoldBy(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Ref
	}{
		{name: "id", json: `{"soldBy":"u1"}`, want: Ref{ID: "u1"}},
		{name: "object", json: `{"soldBy":{"_id":"u1","name":"Cashier"}}`, want: Ref{ID: "u1", Name: "Cashier"}},
		{name: "null", json: `{"soldBy":null}`, want: Ref{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec SaleRecord
			if err := json.Unmarshal([]byte(tt.json), &rec); err != nil {
				t.Fatal(err)
			}
			if rec.SoldBy != tt.want {
				t.Errorf("soldBy = %+v, want %+v", rec.SoldBy, tt.want)
			}
		})
	}
}

func TestRegisterBarcodeIsPublic(t *testing.T) {
	var gotAuth, gotBody string
	sess := &fakeSession{token: "tok"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "nope"})
	}, sess)

	err := client.RegisterBarcode(context.Background(), "SKU-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("public call sent authorization %q", gotAuth)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(gotBody), &body); err != nil || body["sku"] != "SKU-1" {
		t.Errorf("body = %s", gotBody)
	}
	if sess.expired != 0 || sess.Token() != "tok" {
		t.Error("public 401 logged the operator out")
	}
}

func TestAdjustStock(t *testing.T) {
	var gotMethod, gotSummary string
	var gotBody StockAdjustment
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotSummary = r.URL.Query().Get("summaryId")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Stock updated"})
	}, &fakeSession{token: "tok"})

	adj := StockAdjustment{Action: "increase", Quantity: 4, Reason: "recount"}
	if err := client.AdjustStock(context.Background(), "st-1", adj); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPut || gotSummary != "st-1" || gotBody != adj {
		t.Errorf("request = %s summaryId=%s %+v", gotMethod, gotSummary, gotBody)
	}
}

func TestAdjustStockRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Insufficient stock"})
	}, &fakeSession{token: "tok"})

	err := client.AdjustStock(context.Background(), "st-1", StockAdjustment{Action: "decrease", Quantity: 99})
	if err == nil || Message(err, "") != "Insufficient stock" {
		t.Errorf("err = %v", err)
	}
}

func TestGetProductDecodesStockShapes(t *testing.T) {
	tests := []struct {
		name      string
		stock     any
		wantTotal int
		wantBySKU map[string]int
	}{
		{name: "number", stock: 12, wantTotal: 12},
		{name: "object", stock: map[string]any{"stock": 7}, wantTotal: 7},
		{
			name:      "per sku",
			stock:     []map[string]any{{"sku": "A", "stock": 2}, {"sku": "B", "stock": 3}},
			wantTotal: 5,
			wantBySKU: map[string]int{"A": 2, "B": 3},
		},
		{name: "null", stock: nil, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"success": true,
					"product": map[string]any{"_id": "p1", "name": "Runner", "stock": tt.stock},
				})
			}, &fakeSession{token: "tok"})

			rec, err := client.GetProduct(context.Background(), "p1")
			if err != nil {
				t.Fatal(err)
			}
			if rec.Stock.Total != tt.wantTotal || len(rec.Stock.BySKU) != len(tt.wantBySKU) {
				t.Errorf("stock = %+v", rec.Stock)
			}
			for sku, n := range tt.wantBySKU {
				if rec.Stock.BySKU[sku] != n {
					t.Errorf("stock[%s] = %d, want %d", sku, rec.Stock.BySKU[sku], n)
				}
			}
		})
	}
}

func TestGetProductMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Product not found"})
	}, &fakeSession{token: "tok"})

	_, err := client.GetProduct(context.Background(), "p404")
	if !errors.Is(err, ErrNotFound) || Message(err, "") != "Product not found" {
		t.Errorf("err = %v", err)
	}
}
