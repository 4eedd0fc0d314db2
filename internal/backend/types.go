package backend

import (
	"bytes"
	"encoding/json"
	"time"
)

type envelope[T any] struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (e envelope[T]) failed() bool {
	return e.Success != nil && !*e.Success
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

type pagedResponse[T any] struct {
	Success    *bool      `json:"success"`
	Message    string     `json:"message"`
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Ref is a reference the backend sends either as a bare id or as a
// populated object.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// MarshalJSON writes the id only, which is what the write endpoints accept.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// StringList accepts a single string or an array of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if v == "" {
			*s = nil
		} else {
			*s = StringList{v}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	User  User
	Token string
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

type VariationAttribute struct {
	Value string `json:"value"`
}

// ProductLookup is the POS lookup result for a scanned identifier.
type ProductLookup struct {
	ProductID           string               `json:"productId"`
	ProductName         string               `json:"productName"`
	SalePrice           float64              `json:"salePrice"`
	PurchasePrice       float64              `json:"purchasePrice"`
	CurrentStock        int                  `json:"currentStock"`
	BrCode              string               `json:"brCode"`
	SKU                 string               `json:"sku"`
	ProductImage        string               `json:"productImage"`
	IsVariation         bool                 `json:"isVariation"`
	VariationAttributes []VariationAttribute `json:"variationAttributes"`
}

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SaleProduct struct {
	SKU           string  `json:"sku"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	PurchasePrice float64 `json:"purchasePrice"`
	ProductName   string  `json:"productName"`
}

type Payment struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// SaleRequest is the body of POST /pos-sales. Customer is sent as null for
// walk-in sales.
type SaleRequest struct {
	Customer          *Customer     `json:"customer"`
	Products          []SaleProduct `json:"products"`
	TotalQuantity     int           `json:"totalQuantity"`
	SubTotal          float64       `json:"subTotal"`
	TotalAmount       float64       `json:"totalAmount"`
	Discount          float64       `json:"discount"`
	DiscountType      string        `json:"discountType"`
	DiscountAmount    float64       `json:"discountAmount"`
	TotalPurchaseCost float64       `json:"totalPurchaseCost"`
	Profit            float64       `json:"profit"`
	Payment           Payment       `json:"payment"`
	SoldBy            string        `json:"soldBy"`
}

// SaleConfirmation is what the backend assigns to a created sale. Empty
// fields mean the backend omitted them.
type SaleConfirmation struct {
	InvoiceNo string    `json:"invoiceNo"`
	CreatedAt time.Time `json:"createdAt"`
	Status    string    `json:"status"`
}

type SaleRecord struct {
	ID                string        `json:"_id"`
	InvoiceNo         string        `json:"invoiceNo"`
	CreatedAt         time.Time     `json:"createdAt"`
	Customer          *Customer     `json:"customer,omitempty"`
	Products          []SaleProduct `json:"products"`
	TotalQuantity     int           `json:"totalQuantity"`
	SubTotal          float64       `json:"subTotal"`
	TotalAmount       float64       `json:"totalAmount"`
	Discount          float64       `json:"discount"`
	DiscountType      string        `json:"discountType"`
	DiscountAmount    float64       `json:"discountAmount"`
	TotalPurchaseCost float64       `json:"totalPurchaseCost"`
	Profit            float64       `json:"profit"`
	Payment           Payment       `json:"payment"`
	SoldBy            Ref           `json:"soldBy"`
	Status            string        `json:"status"`
}

type AttributeValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type BranchStock struct {
	BranchName  string `json:"branchName"`
	BranchStock int    `json:"branchStock"`
}

type StockSummary struct {
	ID                string             `json:"_id"`
	ProductName       string             `json:"productName"`
	ProductSlug       string             `json:"productSlug"`
	Type              string             `json:"type"`
	SKU               string             `json:"sku"`
	CurrentStock      int                `json:"currentStock"`
	ProductAttributes []ProductAttribute `json:"productAttributes,omitempty"`
	VariantDetails    *struct {
		Attributes []AttributeValue `json:"attributes"`
	} `json:"variantDetails,omitempty"`
	Branches []BranchStock `json:"branches,omitempty"`
}

type StockPage struct {
	Items      []StockSummary
	Pagination Pagination
}

type StockAdjustment struct {
	Action   string `json:"action"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason,omitempty"`
}

type StockTransaction struct {
	TransactionID   string    `json:"transactionId"`
	TransactionType string    `json:"transactionType"`
	Quantity        int       `json:"quantity"`
	Reason          string    `json:"reason"`
	TransactionDate time.Time `json:"transactionDate"`
}

type StockHistoryPage struct {
	Items      []StockTransaction
	Pagination Pagination
}

// PrintRecord is one printable product code as served by the print listings.
type PrintRecord struct {
	SKU          string  `json:"sku"`
	ProductName  string  `json:"productName"`
	ProductPrice float64 `json:"productPrice"`
	QRCodeImage  string  `json:"qrCodeImage,omitempty"`
}

type PrintPage struct {
	Records    []PrintRecord
	Page       int
	TotalPages int
}

type barcodeListResponse struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Barcodes   []PrintRecord `json:"barcodes"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

type qrListResponse struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	QRCodes    []PrintRecord `json:"qrCodes"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

type ProductAttribute struct {
	ID     string     `json:"_id"`
	Name   string     `json:"name"`
	Values StringList `json:"values"`
}

type DefaultAttribute struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ProductVariation struct {
	SKU           string           `json:"sku"`
	SalePrice     float64          `json:"sale_price"`
	PurchasePrice float64          `json:"purchase_price"`
	Stock         int              `json:"stock"`
	Attributes    []AttributeValue `json:"attributes"`
	Images        []string         `json:"images,omitempty"`
	Status        string           `json:"status,omitempty"`
	DefaultImage  string           `json:"default_image,omitempty"`
}

// ProductPayload is the body accepted by POST /products and PUT /products/{id}.
type ProductPayload struct {
	Name              string             `json:"name"`
	Category          string             `json:"category"`
	Description       string             `json:"description"`
	SizeGuide         string             `json:"sizeGuide,omitempty"`
	PurchasePrice     *float64           `json:"purchase_price"`
	SalePrice         *float64           `json:"sale_price"`
	SKU               string             `json:"sku,omitempty"`
	Stock             *int               `json:"stock"`
	Images            []string           `json:"images"`
	VideoLink         string             `json:"video_link"`
	Brand             string             `json:"brand"`
	Vendor            string             `json:"vendor"`
	Status            string             `json:"status"`
	Warranty          bool               `json:"warranty"`
	Type              string             `json:"type"`
	Tags              []Ref              `json:"tags"`
	Attributes        []ProductAttribute `json:"attributes"`
	Variations        []ProductVariation `json:"variations"`
	DefaultAttributes []DefaultAttribute `json:"default_attributes"`
}

// ProductRecord is a product as GET /products/{id} returns it, with
// populated references.
type ProductRecord struct {
	ID                string             `json:"_id"`
	Name              string             `json:"name"`
	Category          Ref                `json:"category"`
	Description       string             `json:"description"`
	SizeGuide         Ref                `json:"sizeGuide"`
	PurchasePrice     float64            `json:"purchase_price"`
	SalePrice         float64            `json:"sale_price"`
	SKU               string             `json:"sku"`
	Stock             StockLevel         `json:"stock"`
	Images            []string           `json:"images"`
	VideoLink         string             `json:"video_link"`
	Brand             Ref                `json:"brand"`
	Vendor            Ref                `json:"vendor"`
	Status            string             `json:"status"`
	Warranty          bool               `json:"warranty"`
	Type              string             `json:"type"`
	Tags              []Ref              `json:"tags"`
	Attributes        []ProductAttribute `json:"attributes"`
	Variations        []ProductVariation `json:"variations"`
	DefaultAttributes []DefaultAttribute `json:"default_attributes"`
}

// StockLevel is the stock field of a product record: a bare number, an
// object for simple products, or a per-SKU list for variable ones.
type StockLevel struct {
	Total int
	BySKU map[string]int
}

func (l *StockLevel) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = StockLevel{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '{':
		var v struct {
			Stock float64 `json:"stock"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		l.Total = int(v.Stock)
		return nil
	case data[0] == '[':
		var rows []struct {
			SKU   string  `json:"sku"`
			Stock float64 `json:"stock"`
		}
		if err := json.Unmarshal(data, &rows); err != nil {
			return err
		}
		l.BySKU = make(map[string]int, len(rows))
		for _, r := range rows {
			l.BySKU[r.SKU] = int(r.Stock)
			l.Total += int(r.Stock)
		}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	l.Total = int(n)
	return nil
}

type productResponse struct {
	Success *bool         `json:"success"`
	Message string        `json:"message"`
	Product ProductRecord `json:"product"`
}

type messageResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}
