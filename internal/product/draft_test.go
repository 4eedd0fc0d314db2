package product

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"shoe_pos/internal/backend"

	"github.com/shopspring/decimal"
)

func sequentialSKUs(t *testing.T) {
	t.Helper()
	n := 0
	orig := NewSKU
	NewSKU = func() string {
		n++
		return fmt.Sprintf("SKU%03d", n)
	}
	t.Cleanup(func() { NewSKU = orig })
}

func variableDraft(t *testing.T) Draft {
	t.Helper()
	d := NewDraft()
	if err := d.SetType(TypeVariable); err != nil {
		t.Fatal(err)
	}
	d.General.Name = "Trail Runner"
	for _, v := range []string{"41", "42"} {
		if err := d.AddAttributeValue("size", "Size", v); err != nil {
			t.Fatal(err)
		}
	}
	for _, v := range []string{"Black", "White"} {
		if err := d.AddAttributeValue("color", "Color", v); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestAddAttributeValueByType(t *testing.T) {
	simple := NewDraft()
	_ = simple.AddAttributeValue("size", "Size", "41")
	_ = simple.AddAttributeValue("size", "Size", "42")
	if got := simple.Attributes[0].Values; len(got) != 1 || got[0] != "42" {
		t.Errorf("simple values = %v, want [42]", got)
	}

	variable := variableDraft(t)
	_ = variable.AddAttributeValue("size", "Size", "42")
	if got := variable.Attributes[0].Values; strings.Join(got, ",") != "41,42" {
		t.Errorf("variable values = %v, want [41 42]", got)
	}

	if err := variable.AddAttributeValue("", "Size", "43"); !errors.Is(err, ErrInvalidDraft) {
		t.Errorf("missing id err = %v", err)
	}
}

func TestSetTypeClearsAttributes(t *testing.T) {
	d := variableDraft(t)
	_ = d.SetDefaultAttribute("size", "42")

	if err := d.SetType(TypeSimple); err != nil {
		t.Fatal(err)
	}
	if len(d.Attributes) != 0 || len(d.DefaultAttributes) != 0 {
		t.Errorf("attributes survived type switch: %+v %+v", d.Attributes, d.DefaultAttributes)
	}
	if err := d.SetType("bundle"); !errors.Is(err, ErrInvalidDraft) {
		t.Errorf("unknown type err = %v", err)
	}
}

func TestRemoveAttributeValue(t *testing.T) {
	d := variableDraft(t)
	d.RemoveAttributeValue("Size", "41")
	if got := d.Attributes[0].Values; len(got) != 1 || got[0] != "42" {
		t.Errorf("values = %v", got)
	}

	simple := NewDraft()
	_ = simple.AddAttributeValue("size", "Size", "41")
	simple.RemoveAttributeValue("Size", "anything")
	if len(simple.Attributes[0].Values) != 0 {
		t.Errorf("simple value not cleared: %v", simple.Attributes[0].Values)
	}
}

func TestRemoveAttributePrunesDefaults(t *testing.T) {
	d := variableDraft(t)
	if err := d.SetDefaultAttribute("size", "42"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetDefaultAttribute("color", "Black"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetDefaultAttribute("size", "41"); err != nil {
		t.Fatal(err)
	}
	if len(d.DefaultAttributes) != 2 || d.DefaultAttributes[0].Value != "41" || d.DefaultAttributes[0].Name != "Size" {
		t.Fatalf("defaults = %+v", d.DefaultAttributes)
	}

	d.RemoveAttribute("Size")
	if len(d.DefaultAttributes) != 1 || d.DefaultAttributes[0].ID != "color" {
		t.Errorf("defaults after removal = %+v", d.DefaultAttributes)
	}
	if err := d.SetDefaultAttribute("size", "42"); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("default for removed attribute err = %v", err)
	}
}

func TestGenerateVariationsKeepsExisting(t *testing.T) {
	sequentialSKUs(t)
	d := variableDraft(t)

	if n := d.GenerateVariations(); n != 4 {
		t.Fatalf("generated %d variations, want 4", n)
	}
	var labels []string
	for _, v := range d.Variations {
		labels = append(labels, v.Label())
	}
	if got := strings.Join(labels, ","); got != "41 / Black,41 / White,42 / Black,42 / White" {
		t.Errorf("combinations = %s", got)
	}

	if err := d.UpdateVariation(1, "sale_price", "1500"); err != nil {
		t.Fatal(err)
	}
	keptSKU := d.Variations[1].SKU

	_ = d.AddAttributeValue("size", "Size", "43")
	if n := d.GenerateVariations(); n != 6 {
		t.Fatalf("regenerated %d variations, want 6", n)
	}
	if d.Variations[1].SKU != keptSKU || !d.Variations[1].SalePrice.Decimal.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("existing combination lost its data: %+v", d.Variations[1])
	}
	if d.Variations[4].SKU != "SKU005" || d.Variations[4].Status != "active" {
		t.Errorf("new combination = %+v", d.Variations[4])
	}
}

func TestAddVariationDeduplicates(t *testing.T) {
	sequentialSKUs(t)
	d := variableDraft(t)

	combo := []AttributeValue{{Name: "Size", Value: "42"}, {Name: "Color", Value: "Black"}}
	if !d.AddVariation(combo) {
		t.Fatal("first add rejected")
	}
	reordered := []AttributeValue{{Name: "Color", Value: "Black"}, {Name: "Size", Value: "42"}}
	if d.AddVariation(reordered) {
		t.Error("same combination added twice")
	}
	if !d.AddVariation([]AttributeValue{{Name: "Size", Value: "41"}, {Name: "Color", Value: "Black"}}) {
		t.Error("distinct combination rejected")
	}
	if len(d.Variations) != 2 {
		t.Errorf("variations = %d, want 2", len(d.Variations))
	}

	if err := d.RemoveVariation(0); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveVariation(5); !errors.Is(err, ErrVariationNotFound) {
		t.Errorf("remove out of range err = %v", err)
	}
}

func TestUpdateVariationFields(t *testing.T) {
	d := variableDraft(t)
	d.AddVariation([]AttributeValue{{Name: "Size", Value: "42"}})

	tests := []struct {
		field, value string
		wantErr      error
	}{
		{field: "sku", value: " RUN-42 "},
		{field: "sale-price", value: "1500.50"},
		{field: "purchase_price", value: "900"},
		{field: "stock", value: "7"},
		{field: "stock", value: "-1", wantErr: ErrInvalidDraft},
		{field: "sale_price", value: "abc", wantErr: ErrInvalidDraft},
		{field: "colour", value: "red", wantErr: ErrUnknownField},
	}
	for _, tt := range tests {
		err := d.UpdateVariation(0, tt.field, tt.value)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s=%s: err = %v, want %v", tt.field, tt.value, err, tt.wantErr)
		}
	}

	v := d.Variations[0]
	if v.SKU != "RUN-42" || v.Stock == nil || *v.Stock != 7 || v.SalePrice.Decimal.String() != "1500.5" {
		t.Errorf("variation = %+v", v)
	}
	if err := d.UpdateVariation(3, "sku", "x"); !errors.Is(err, ErrVariationNotFound) {
		t.Errorf("out of range err = %v", err)
	}
}

func TestTagsAndImages(t *testing.T) {
	d := NewDraft()
	if !d.AddTag(Tag{ID: "t1", Name: "running"}) || d.AddTag(Tag{ID: "t9", Name: "running"}) {
		t.Error("tags not deduplicated by name")
	}
	d.AddTag(Tag{ID: "t2", Name: "sale"})
	d.RemoveTag("running")
	if len(d.Tags) != 1 || d.Tags[0].ID != "t2" {
		t.Errorf("tags = %+v", d.Tags)
	}

	d.AddImage("a.jpg")
	d.AddImage("b.jpg")
	if err := d.RemoveImage(0); err != nil {
		t.Fatal(err)
	}
	if len(d.Images) != 1 || d.Images[0] != "b.jpg" {
		t.Errorf("images = %v", d.Images)
	}
	if err := d.RemoveImage(4); err == nil {
		t.Error("expected error for missing image")
	}
}

func TestValidate(t *testing.T) {
	simple := func(purchase, sale string) Draft {
		d := NewDraft()
		d.General.Name = "Socks"
		_ = d.SetField("purchase_price", purchase)
		_ = d.SetField("sale_price", sale)
		return d
	}

	tests := []struct {
		name    string
		draft   Draft
		wantErr bool
	}{
		{name: "simple ok", draft: simple("80", "200")},
		{name: "simple equal prices", draft: simple("200", "200")},
		{name: "simple purchase above sale", draft: simple("250", "200"), wantErr: true},
		{name: "simple missing sale price", draft: simple("80", ""), wantErr: true},
		{name: "missing name", draft: NewDraft(), wantErr: true},
		{name: "variable without variations", draft: variableDraft(t), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDraft) {
				t.Errorf("error does not wrap ErrInvalidDraft: %v", err)
			}
		})
	}

	d := variableDraft(t)
	d.GenerateVariations()
	_ = d.UpdateVariation(2, "purchase_price", "10")
	if err := d.Validate(); err == nil || !strings.Contains(err.Error(), "#3") {
		t.Errorf("variation price check = %v", err)
	}
}

func TestPayloadSimple(t *testing.T) {
	d := NewDraft()
	_ = d.SetField("name", "Cotton Socks")
	_ = d.SetField("sku", "SOCK-1")
	_ = d.SetField("sale_price", "200")
	_ = d.SetField("stock", "12")
	_ = d.SetField("warranty", "true")
	_ = d.AddAttributeValue("size", "Size", "Free")
	d.AddTag(Tag{ID: "t1", Name: "basics"})

	raw, err := json.Marshal(d.Payload())
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}

	if got["type"] != "simple" || got["sku"] != "SOCK-1" || got["sale_price"] != 200.0 || got["stock"] != 12.0 {
		t.Errorf("payload = %s", raw)
	}
	if got["purchase_price"] != nil {
		t.Errorf("unset purchase price sent as %v", got["purchase_price"])
	}
	if got["status"] != "Draft" || got["warranty"] != true {
		t.Errorf("general fields = %v %v", got["status"], got["warranty"])
	}
	if tags := got["tags"].([]any); len(tags) != 1 || tags[0] != "t1" {
		t.Errorf("tags = %v", got["tags"])
	}
	if vs := got["variations"].([]any); len(vs) != 0 {
		t.Errorf("simple product sent variations: %v", vs)
	}
	if d.SKUs()[0] != "SOCK-1" {
		t.Errorf("SKUs = %v", d.SKUs())
	}
}

func TestPayloadVariable(t *testing.T) {
	sequentialSKUs(t)
	d := variableDraft(t)
	d.GenerateVariations()
	_ = d.UpdateVariation(0, "stock", "3")
	_ = d.SetDefaultAttribute("size", "42")

	p := d.Payload()
	if len(p.Variations) != 4 || p.Variations[0].Stock != 3 || p.Variations[1].Stock != 0 {
		t.Fatalf("variations = %+v", p.Variations)
	}
	if p.Variations[0].Attributes[0] != (backend.AttributeValue{Name: "Size", Value: "41"}) {
		t.Errorf("attributes = %+v", p.Variations[0].Attributes)
	}
	if len(p.DefaultAttributes) != 1 || p.DefaultAttributes[0].ID != "size" {
		t.Errorf("defaults = %+v", p.DefaultAttributes)
	}
	if got := strings.Join(d.SKUs(), ","); got != "SKU001,SKU002,SKU003,SKU004" {
		t.Errorf("SKUs = %s", got)
	}
}

func TestFromRecord(t *testing.T) {
	const body = `{
		"_id": "p1",
		"name": "Trail Runner",
		"type": "variable",
		"category": {"_id": "c1", "name": "Shoes"},
		"brand": "b1",
		"sizeGuide": null,
		"stock": [{"sku": "RUN-41", "stock": 4}, {"sku": "RUN-42", "stock": 0}],
		"tags": [{"_id": "t1", "name": "running"}],
		"attributes": [{"_id": "size", "name": "Size", "values": ["41", "42"]}],
		"default_attributes": [{"_id": "size", "name": "Size", "value": "42"}],
		"variations": [
			{"sku": "RUN-41", "sale_price": 1500, "purchase_price": 900, "stock": 1, "attributes": [{"name": "Size", "value": "41"}]},
			{"sku": "RUN-42", "sale_price": 1500, "purchase_price": 900, "stock": 2, "attributes": [{"name": "Size", "value": "42"}]}
		]
	}`
	var rec backend.ProductRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatal(err)
	}

	d := FromRecord(rec)
	if d.Type != TypeVariable || d.General.Category != "c1" || d.General.Brand != "b1" || d.General.Status != "Draft" {
		t.Errorf("general = %+v", d.General)
	}
	if *d.Variations[0].Stock != 4 || *d.Variations[1].Stock != 2 {
		t.Errorf("variation stock = %d, %d", *d.Variations[0].Stock, *d.Variations[1].Stock)
	}
	if len(d.Tags) != 1 || d.Tags[0].Name != "running" {
		t.Errorf("tags = %+v", d.Tags)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("record draft invalid: %v", err)
	}
}
