package product

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"shoe_pos/internal/backend"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDraft      = errors.New("invalid product draft")
	ErrUnknownAttribute  = errors.New("attribute not selected")
	ErrVariationNotFound = errors.New("variation not found")
	ErrUnknownField      = errors.New("unknown field")
)

type Type string

const (
	TypeSimple   Type = "simple"
	TypeVariable Type = "variable"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeSimple, TypeVariable:
		return t, nil
	}
	return "", fmt.Errorf("%w: product type %q (use simple or variable)", ErrInvalidDraft, s)
}

const (
	defaultStatus          = "Draft"
	defaultVariationStatus = "active"
)

type General struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	SizeGuide   string `json:"sizeGuide,omitempty"`
	Brand       string `json:"brand"`
	Vendor      string `json:"vendor"`
	VideoLink   string `json:"videoLink"`
	Status      string `json:"status"`
	Warranty    bool   `json:"warranty"`
}

// Inventory holds the price and stock of a simple product. Variable
// products carry these per variation instead.
type Inventory struct {
	SKU           string              `json:"sku"`
	PurchasePrice decimal.NullDecimal `json:"purchasePrice"`
	SalePrice     decimal.NullDecimal `json:"salePrice"`
	Stock         *int                `json:"stock"`
}

// Attribute is a selected attribute and its chosen values. A simple
// product holds at most one value per attribute.
type Attribute struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type DefaultAttribute struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AttributeValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Variation struct {
	SKU           string              `json:"sku"`
	PurchasePrice decimal.NullDecimal `json:"purchasePrice"`
	SalePrice     decimal.NullDecimal `json:"salePrice"`
	Stock         *int                `json:"stock"`
	Attributes    []AttributeValue    `json:"attributes"`
	Images        []string            `json:"images"`
	Status        string              `json:"status"`
	DefaultImage  string              `json:"defaultImage,omitempty"`
}

// Label joins the variation's attribute values, e.g. "42 / Black".
func (v Variation) Label() string {
	values := make([]string, 0, len(v.Attributes))
	for _, a := range v.Attributes {
		values = append(values, a.Value)
	}
	return strings.Join(values, " / ")
}

func (v Variation) sameCombination(attrs []AttributeValue) bool {
	return combinationKey(v.Attributes) == combinationKey(attrs)
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Draft is an unsaved product, either new or being edited.
type Draft struct {
	Type              Type               `json:"type"`
	General           General            `json:"general"`
	Inventory         Inventory          `json:"inventory"`
	Attributes        []Attribute        `json:"attributes"`
	DefaultAttributes []DefaultAttribute `json:"defaultAttributes"`
	Variations        []Variation        `json:"variations"`
	Tags              []Tag              `json:"tags"`
	Images            []string           `json:"images"`
}

func NewDraft() Draft {
	return Draft{
		Type:    TypeSimple,
		General: General{Status: defaultStatus},
	}
}

// SetType switches the product type. The attribute selection is cleared
// because simple and variable products hold values differently.
func (d *Draft) SetType(t Type) error {
	if _, err := ParseType(string(t)); err != nil {
		return err
	}
	d.Type = t
	d.Attributes = nil
	d.DefaultAttributes = nil
	return nil
}

func (d *Draft) attribute(name string) int {
	return slices.IndexFunc(d.Attributes, func(a Attribute) bool { return a.Name == name })
}

// AddAttributeValue selects value for the attribute. A simple product
// replaces its value; a variable product collects distinct values.
func (d *Draft) AddAttributeValue(id, name, value string) error {
	if id == "" || name == "" {
		return fmt.Errorf("%w: attribute id and name are required", ErrInvalidDraft)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: empty value for attribute %q", ErrInvalidDraft, name)
	}

	i := d.attribute(name)
	if i < 0 {
		d.Attributes = append(d.Attributes, Attribute{ID: id, Name: name, Values: []string{value}})
		return nil
	}
	attr := &d.Attributes[i]
	if slices.Contains(attr.Values, value) {
		return nil
	}
	if d.Type == TypeSimple {
		attr.Values = []string{value}
	} else {
		attr.Values = append(attr.Values, value)
	}
	return nil
}

func (d *Draft) RemoveAttributeValue(name, value string) {
	i := d.attribute(name)
	if i < 0 {
		return
	}
	attr := &d.Attributes[i]
	if d.Type == TypeSimple {
		attr.Values = nil
		return
	}
	attr.Values = slices.DeleteFunc(attr.Values, func(v string) bool { return v == value })
}

// RemoveAttribute drops the attribute and any default that refers to it.
func (d *Draft) RemoveAttribute(name string) {
	d.Attributes = slices.DeleteFunc(d.Attributes, func(a Attribute) bool { return a.Name == name })
	d.DefaultAttributes = slices.DeleteFunc(d.DefaultAttributes, func(def DefaultAttribute) bool {
		return !slices.ContainsFunc(d.Attributes, func(a Attribute) bool { return a.ID == def.ID })
	})
}

func (d *Draft) SetDefaultAttribute(attributeID, value string) error {
	for i := range d.DefaultAttributes {
		if d.DefaultAttributes[i].ID == attributeID {
			d.DefaultAttributes[i].Value = value
			return nil
		}
	}
	i := slices.IndexFunc(d.Attributes, func(a Attribute) bool { return a.ID == attributeID })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, attributeID)
	}
	d.DefaultAttributes = append(d.DefaultAttributes, DefaultAttribute{
		ID:    attributeID,
		Name:  d.Attributes[i].Name,
		Value: value,
	})
	return nil
}

func (d *Draft) RemoveDefaultAttribute(attributeID string) {
	d.DefaultAttributes = slices.DeleteFunc(d.DefaultAttributes, func(def DefaultAttribute) bool {
		return def.ID == attributeID
	})
}

// NewSKU returns a random nine-digit SKU for a new variation.
var NewSKU = func() string {
	return strconv.Itoa(100000000 + rand.IntN(900000000))
}

// GenerateVariations replaces the variation list with every combination
// of the selected attribute values. Combinations that already exist keep
// their SKU, prices and stock.
func (d *Draft) GenerateVariations() int {
	var attrs []Attribute
	for _, a := range d.Attributes {
		if len(a.Values) > 0 {
			attrs = append(attrs, a)
		}
	}
	if len(attrs) == 0 {
		d.Variations = nil
		return 0
	}

	existing := make(map[string]Variation, len(d.Variations))
	for _, v := range d.Variations {
		existing[combinationKey(v.Attributes)] = v
	}

	var out []Variation
	var walk func(i int, current []AttributeValue)
	walk = func(i int, current []AttributeValue) {
		if i == len(attrs) {
			combo := slices.Clone(current)
			if v, ok := existing[combinationKey(combo)]; ok {
				out = append(out, v)
				return
			}
			out = append(out, newVariation(combo))
			return
		}
		for _, value := range attrs[i].Values {
			walk(i+1, append(current, AttributeValue{Name: attrs[i].Name, Value: value}))
		}
	}
	walk(0, make([]AttributeValue, 0, len(attrs)))

	d.Variations = out
	return len(out)
}

// AddVariation appends a variation for attrs unless that combination is
// already present. It reports whether one was added.
func (d *Draft) AddVariation(attrs []AttributeValue) bool {
	for _, v := range d.Variations {
		if v.sameCombination(attrs) {
			return false
		}
	}
	d.Variations = append(d.Variations, newVariation(slices.Clone(attrs)))
	return true
}

func newVariation(attrs []AttributeValue) Variation {
	return Variation{
		SKU:        NewSKU(),
		Attributes: attrs,
		Images:     []string{},
		Status:     defaultVariationStatus,
	}
}

func (d *Draft) RemoveVariation(index int) error {
	if index < 0 || index >= len(d.Variations) {
		return fmt.Errorf("%w: #%d", ErrVariationNotFound, index+1)
	}
	d.Variations = slices.Delete(d.Variations, index, index+1)
	return nil
}

// UpdateVariation sets one field of the variation at index. Fields are
// sku, sale_price, purchase_price, stock, status and default_image.
func (d *Draft) UpdateVariation(index int, field, value string) error {
	if index < 0 || index >= len(d.Variations) {
		return fmt.Errorf("%w: #%d", ErrVariationNotFound, index+1)
	}
	v := &d.Variations[index]
	switch normalizeField(field) {
	case "sku":
		v.SKU = strings.TrimSpace(value)
	case "sale_price":
		return parsePrice(value, &v.SalePrice)
	case "purchase_price":
		return parsePrice(value, &v.PurchasePrice)
	case "stock":
		return parseStock(value, &v.Stock)
	case "status":
		v.Status = value
	case "default_image":
		v.DefaultImage = value
	default:
		return fmt.Errorf("%w: variation %q", ErrUnknownField, field)
	}
	return nil
}

// SetField sets a general or inventory field by its form name.
func (d *Draft) SetField(field, value string) error {
	g := &d.General
	switch normalizeField(field) {
	case "name":
		g.Name = value
	case "category":
		g.Category = value
	case "description":
		g.Description = value
	case "size_guide", "sizeguide":
		g.SizeGuide = value
	case "brand":
		g.Brand = value
	case "vendor":
		g.Vendor = value
	case "video_link":
		g.VideoLink = value
	case "status":
		g.Status = value
	case "warranty":
		w, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: warranty %q", ErrInvalidDraft, value)
		}
		g.Warranty = w
	case "sku":
		d.Inventory.SKU = strings.TrimSpace(value)
	case "sale_price":
		return parsePrice(value, &d.Inventory.SalePrice)
	case "purchase_price":
		return parsePrice(value, &d.Inventory.PurchasePrice)
	case "stock":
		return parseStock(value, &d.Inventory.Stock)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// AddTag selects a tag unless one with the same name is selected.
func (d *Draft) AddTag(t Tag) bool {
	if slices.ContainsFunc(d.Tags, func(x Tag) bool { return x.Name == t.Name }) {
		return false
	}
	d.Tags = append(d.Tags, t)
	return true
}

func (d *Draft) RemoveTag(name string) {
	d.Tags = slices.DeleteFunc(d.Tags, func(t Tag) bool { return t.Name == name })
}

func (d *Draft) AddImage(url string) {
	d.Images = append(d.Images, url)
}

func (d *Draft) RemoveImage(index int) error {
	if index < 0 || index >= len(d.Images) {
		return fmt.Errorf("%w: no image #%d", ErrInvalidDraft, index+1)
	}
	d.Images = slices.Delete(d.Images, index, index+1)
	return nil
}

// Validate checks the draft before it is sent. Missing prices count as
// zero.
func (d Draft) Validate() error {
	if _, err := ParseType(string(d.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(d.General.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDraft)
	}
	if d.Type == TypeVariable {
		if len(d.Variations) == 0 {
			return fmt.Errorf("%w: variable product must have at least one variation", ErrInvalidDraft)
		}
		for i, v := range d.Variations {
			if v.PurchasePrice.Decimal.GreaterThan(v.SalePrice.Decimal) {
				return fmt.Errorf("%w: variation #%d purchase price exceeds sale price", ErrInvalidDraft, i+1)
			}
		}
		return nil
	}
	if d.Inventory.PurchasePrice.Decimal.GreaterThan(d.Inventory.SalePrice.Decimal) {
		return fmt.Errorf("%w: purchase price exceeds sale price", ErrInvalidDraft)
	}
	return nil
}

// SKUs lists the codes that need a barcode once the product is saved.
func (d Draft) SKUs() []string {
	if d.Type == TypeSimple {
		if d.Inventory.SKU == "" {
			return nil
		}
		return []string{d.Inventory.SKU}
	}
	var skus []string
	for _, v := range d.Variations {
		if v.SKU != "" {
			skus = append(skus, v.SKU)
		}
	}
	return skus
}

// Payload builds the create/update request body.
func (d Draft) Payload() backend.ProductPayload {
	p := backend.ProductPayload{
		Name:              d.General.Name,
		Category:          d.General.Category,
		Description:       d.General.Description,
		SizeGuide:         d.General.SizeGuide,
		PurchasePrice:     nullFloat(d.Inventory.PurchasePrice),
		SalePrice:         nullFloat(d.Inventory.SalePrice),
		SKU:               d.Inventory.SKU,
		Stock:             d.Inventory.Stock,
		Images:            nonNil(d.Images),
		VideoLink:         d.General.VideoLink,
		Brand:             d.General.Brand,
		Vendor:            d.General.Vendor,
		Status:            d.General.Status,
		Warranty:          d.General.Warranty,
		Type:              string(d.Type),
		Tags:              []backend.Ref{},
		Attributes:        []backend.ProductAttribute{},
		Variations:        []backend.ProductVariation{},
		DefaultAttributes: []backend.DefaultAttribute{},
	}
	for _, t := range d.Tags {
		p.Tags = append(p.Tags, backend.Ref{ID: t.ID, Name: t.Name})
	}
	for _, a := range d.Attributes {
		p.Attributes = append(p.Attributes, backend.ProductAttribute{
			ID:     a.ID,
			Name:   a.Name,
			Values: backend.StringList(nonNil(a.Values)),
		})
	}
	for _, def := range d.DefaultAttributes {
		p.DefaultAttributes = append(p.DefaultAttributes, backend.DefaultAttribute{
			ID:    def.ID,
			Name:  def.Name,
			Value: def.Value,
		})
	}
	if d.Type == TypeVariable {
		for _, v := range d.Variations {
			p.Variations = append(p.Variations, variationPayload(v))
		}
	}
	return p
}

func variationPayload(v Variation) backend.ProductVariation {
	attrs := make([]backend.AttributeValue, 0, len(v.Attributes))
	for _, a := range v.Attributes {
		attrs = append(attrs, backend.AttributeValue{Name: a.Name, Value: a.Value})
	}
	stock := 0
	if v.Stock != nil {
		stock = *v.Stock
	}
	return backend.ProductVariation{
		SKU:           v.SKU,
		SalePrice:     v.SalePrice.Decimal.InexactFloat64(),
		PurchasePrice: v.PurchasePrice.Decimal.InexactFloat64(),
		Stock:         stock,
		Attributes:    attrs,
		Images:        nonNil(v.Images),
		Status:        v.Status,
		DefaultImage:  v.DefaultImage,
	}
}

// FromRecord seeds an edit draft from a stored product.
func FromRecord(rec backend.ProductRecord) Draft {
	d := NewDraft()
	if t, err := ParseType(rec.Type); err == nil {
		d.Type = t
	}
	d.General = General{
		Name:        rec.Name,
		Category:    rec.Category.ID,
		Description: rec.Description,
		SizeGuide:   rec.SizeGuide.ID,
		Brand:       rec.Brand.ID,
		Vendor:      rec.Vendor.ID,
		VideoLink:   rec.VideoLink,
		Status:      rec.Status,
		Warranty:    rec.Warranty,
	}
	if d.General.Status == "" {
		d.General.Status = defaultStatus
	}
	stock := rec.Stock.Total
	d.Inventory = Inventory{
		SKU:           rec.SKU,
		PurchasePrice: decimal.NewNullDecimal(decimal.NewFromFloat(rec.PurchasePrice)),
		SalePrice:     decimal.NewNullDecimal(decimal.NewFromFloat(rec.SalePrice)),
		Stock:         &stock,
	}
	d.Images = slices.Clone(rec.Images)
	for _, t := range rec.Tags {
		d.Tags = append(d.Tags, Tag{ID: t.ID, Name: t.Name})
	}
	for _, a := range rec.Attributes {
		d.Attributes = append(d.Attributes, Attribute{ID: a.ID, Name: a.Name, Values: slices.Clone([]string(a.Values))})
	}
	for _, def := range rec.DefaultAttributes {
		d.DefaultAttributes = append(d.DefaultAttributes, DefaultAttribute{ID: def.ID, Name: def.Name, Value: def.Value})
	}
	for _, v := range rec.Variations {
		vs := v.Stock
		if n, ok := rec.Stock.BySKU[v.SKU]; ok && n > 0 {
			vs = n
		}
		variation := Variation{
			SKU:           v.SKU,
			PurchasePrice: decimal.NewNullDecimal(decimal.NewFromFloat(v.PurchasePrice)),
			SalePrice:     decimal.NewNullDecimal(decimal.NewFromFloat(v.SalePrice)),
			Stock:         &vs,
			Images:        nonNil(slices.Clone(v.Images)),
			Status:        v.Status,
			DefaultImage:  v.DefaultImage,
		}
		for _, a := range v.Attributes {
			variation.Attributes = append(variation.Attributes, AttributeValue{Name: a.Name, Value: a.Value})
		}
		d.Variations = append(d.Variations, variation)
	}
	return d
}

func combinationKey(attrs []AttributeValue) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, a.Name+"="+a.Value)
	}
	slices.Sort(parts)
	return strings.Join(parts, "\x00")
}

func normalizeField(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	return strings.NewReplacer("-", "_", " ", "_").Replace(f)
}

func parsePrice(value string, dst *decimal.NullDecimal) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*dst = decimal.NullDecimal{}
		return nil
	}
	p, err := decimal.NewFromString(value)
	if err != nil || p.IsNegative() {
		return fmt.Errorf("%w: price %q", ErrInvalidDraft, value)
	}
	*dst = decimal.NewNullDecimal(p)
	return nil
}

func parseStock(value string, dst **int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*dst = nil
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("%w: stock %q", ErrInvalidDraft, value)
	}
	*dst = &n
	return nil
}

func nullFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
