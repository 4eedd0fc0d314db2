package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"shoe_pos/internal/backend"
)

func saleRecord(invoice string, at time.Time, total float64, status string, customer *backend.Customer) backend.SaleRecord {
	return backend.SaleRecord{
		ID:            "s-" + invoice,
		InvoiceNo:     invoice,
		CreatedAt:     at,
		Customer:      customer,
		Products:      []backend.SaleProduct{{SKU: "SKU-1", Quantity: 1, Price: total, PurchasePrice: total / 2, ProductName: "Runner"}},
		TotalQuantity: 1,
		SubTotal:      total,
		TotalAmount:   total,
		Profit:        total / 2,
		Payment:       backend.Payment{Method: "cash", Amount: total},
		Status:        status,
	}
}

func salesAPI() *fakeAPI {
	api := newFakeAPI()
	api.sales = []backend.SaleRecord{
		saleRecord("INV-1", testNow.AddDate(0, 0, -3), 500, "Completed", nil),
		saleRecord("INV-2", testNow.Add(-time.Hour), 1000, "Completed", &backend.Customer{Name: "Karim Uddin", Phone: "01700000000"}),
		saleRecord("INV-3", testNow.AddDate(0, 0, -1), 2000, "Returned", nil),
	}
	api.counts = map[string]float64{"totalProducts": 42, "totalStockValue": 12500.5}
	return api
}

func TestSalesList(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
		skip []string
	}{
		{
			name: "newest first",
			args: []string{"sales", "list"},
			want: []string{"INV-2", "INV-3", "INV-1"},
		},
		{
			name: "date range",
			args: []string{"sales", "list", "--from", "yesterday", "--to", "yesterday"},
			want: []string{"INV-3"},
			skip: []string{"INV-1", "INV-2"},
		},
		{
			name: "search and status",
			args: []string{"sales", "list", "--search", "karim", "--status", "Completed"},
			want: []string{"INV-2", "Karim Uddin"},
			skip: []string{"INV-1", "INV-3"},
		},
		{
			name: "limit",
			args: []string{"sales", "list", "--limit", "1"},
			want: []string{"INV-2"},
			skip: []string{"INV-1", "INV-3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := loggedIn(t, salesAPI(), "")
			out := r.run(t, tt.args...)
			last := -1
			for _, want := range tt.want {
				i := strings.Index(out, want)
				if i < 0 {
					t.Fatalf("output missing %q:\n%s", want, out)
				}
				if i < last {
					t.Errorf("%q out of order:\n%s", want, out)
				}
				last = i
			}
			for _, s := range tt.skip {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestSalesListRejectsBadDate(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	err := r.Run(context.Background(), []string{"sales", "list", "--from", "15/03/2026"})
	if err == nil || !strings.Contains(err.Error(), "use YYYY-MM-DD") {
		t.Errorf("err = %v", err)
	}
}

func TestSalesShow(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	out := r.run(t, "sales", "show", "INV-2")
	for _, want := range []string{"Invoice No: INV-2", "Customer: Karim Uddin", "Status:"} {
		if !strings.Contains(out, want) {
			t.Errorf("receipt missing %q:\n%s", want, out)
		}
	}

	err := r.Run(context.Background(), []string{"sales", "show", "INV-404"})
	if err == nil || err.Error() != "Sale not found" {
		t.Errorf("err = %v", err)
	}
}

func TestSalesSummaryJSON(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	r.globals.JSON = true
	out := r.run(t, "sales", "summary")

	var rep struct {
		Summary struct {
			Sales     int    `json:"sales"`
			Revenue   string `json:"revenue"`
			Completed int    `json:"completed"`
			Returned  int    `json:"returned"`
		} `json:"summary"`
		Statuses []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"statuses"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rep.Summary.Sales != 3 || rep.Summary.Revenue != "3500" {
		t.Errorf("summary = %+v", rep.Summary)
	}
	if rep.Summary.Completed != 2 || rep.Summary.Returned != 1 {
		t.Errorf("statuses = %+v", rep.Summary)
	}
	if len(rep.Statuses) != 2 || rep.Statuses[0].Name != "Completed" {
		t.Errorf("distribution = %+v", rep.Statuses)
	}
}

func TestSalesTrend(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	out := r.run(t, "sales", "trend", "--range", "week")
	if !strings.Contains(out, "Sun Mar 15") || strings.Count(out, "\n") != 8 {
		t.Errorf("trend = %q", out)
	}

	if err := r.Run(context.Background(), []string{"sales", "trend", "--range", "decade"}); err == nil {
		t.Error("expected error for unknown range")
	}
}

func TestDashboard(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	out := r.run(t, "dashboard")
	for _, want := range []string{
		"Dashboard for 2026-03-15",
		"Today:      1 sales, BDT 1,000.00 revenue",
		"All time:   3 sales, BDT 3,500.00 revenue",
		"totalProducts",
		"12500.50",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}
}

func TestStockAdjust(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    backend.StockAdjustment
		wantErr string
	}{
		{
			name: "add",
			args: []string{"--add", "5", "--reason", "recount"},
			want: backend.StockAdjustment{Action: "increase", Quantity: 5, Reason: "recount"},
		},
		{
			name: "remove",
			args: []string{"--remove", "2"},
			want: backend.StockAdjustment{Action: "decrease", Quantity: 2},
		},
		{name: "both", args: []string{"--add", "1", "--remove", "1"}, wantErr: "exactly one"},
		{name: "neither", args: nil, wantErr: "exactly one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			r := loggedIn(t, api, "")
			args := append([]string{"stock", "adjust", "st-1"}, tt.args...)
			err := r.Run(context.Background(), args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %v, want %q", err, tt.wantErr)
				}
				if len(api.adjusted) != 0 {
					t.Error("adjustment sent")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := api.adjusted["st-1"]; got != tt.want {
				t.Errorf("adjustment = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStockList(t *testing.T) {
	api := newFakeAPI()
	api.stock = backend.StockPage{
		Items: []backend.StockSummary{{
			ID:           "st-1",
			SKU:          "SKU-1",
			ProductName:  "Trail Runner",
			CurrentStock: 7,
			Branches:     []backend.BranchStock{{BranchName: "Dhanmondi", BranchStock: 4}, {BranchName: "Gulshan", BranchStock: 3}},
		}},
		Pagination: backend.Pagination{CurrentPage: 1, TotalPages: 3, TotalItems: 41},
	}
	r := loggedIn(t, api, "")
	out := r.run(t, "stock", "list")
	for _, want := range []string{"Trail Runner", "Dhanmondi: 4, Gulshan: 3", "Page 1 of 3 (41 total)"} {
		if !strings.Contains(out, want) {
			t.Errorf("stock list missing %q:\n%s", want, out)
		}
	}
}
