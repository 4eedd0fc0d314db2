package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shoe_pos/internal/product"
)

const productUsage = `usage: pos-admin product [--edit] <command>
  new [simple|variable]          start a new product draft
  edit <product-id>              load a product into the edit draft
  show                           show the draft
  type simple|variable           switch type (clears attributes)
  set <field> <value...>         name, category, description, size_guide, brand,
                                 vendor, video_link, status, warranty, sku,
                                 sale_price, purchase_price, stock
  attr add <name> <value> [--id id] | attr rm <name> [value]
  default <attribute-id> <value> | default rm <attribute-id>
  variations                     generate every attribute combination
  variation add <name=value>... | rm <n> | set <n> <field> <value>
  tag add <name> [--id id] | tag rm <name>
  image add <url> | image rm <n>
  submit                         create the product (or update with --edit)
  update                         send the edit draft
  reset                          discard the draft`

func (r *Runner) runProduct(ctx context.Context, args []string) error {
	fs := r.flags("product")
	edit := fs.Bool("edit", false, "Work on the edit draft")
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()
	if len(args) == 0 {
		return errors.New(productUsage)
	}
	sub, rest := args[0], args[1:]
	drafts := r.products.Drafts()

	switch sub {
	case "new":
		d := product.NewDraft()
		if len(rest) > 0 {
			t, err := product.ParseType(rest[0])
			if err != nil {
				return err
			}
			d.Type = t
		}
		if err := drafts.SaveCreate(d); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "New %s product draft started.\n", d.Type)
		return nil
	case "edit":
		if len(rest) != 1 {
			return errors.New("usage: product edit <product-id>")
		}
		e, err := r.products.BeginEdit(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Editing %s (%s). Use 'product --edit ...' to change it.\n", e.Draft.General.Name, e.ProductID)
		return r.showDraft(e.Draft)
	case "submit", "update":
		if *edit || sub == "update" {
			msg, err := r.products.SubmitEdit(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(r.out, msg)
			return nil
		}
		return r.createProduct(ctx)
	case "reset":
		if *edit {
			return drafts.ResetEdit()
		}
		return drafts.ResetCreate()
	}

	d, save, err := r.openDraft(*edit)
	if err != nil {
		return err
	}
	if sub == "show" {
		return r.showDraft(*d)
	}
	if err := editDraft(d, sub, rest); err != nil {
		return err
	}
	if err := save(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return r.showDraft(*d)
}

// openDraft loads the create or edit draft and returns a function that
// persists the changes made through the returned pointer.
func (r *Runner) openDraft(edit bool) (*product.Draft, func() error, error) {
	drafts := r.products.Drafts()
	if edit {
		e, err := drafts.LoadEdit()
		if err != nil {
			return nil, nil, err
		}
		return &e.Draft, func() error { return drafts.SaveEdit(e) }, nil
	}
	d, err := drafts.LoadCreate()
	if err != nil {
		return nil, nil, err
	}
	return &d, func() error { return drafts.SaveCreate(d) }, nil
}

func editDraft(d *product.Draft, sub string, args []string) error {
	switch sub {
	case "type":
		if len(args) != 1 {
			return errors.New("usage: product type simple|variable")
		}
		t, err := product.ParseType(args[0])
		if err != nil {
			return err
		}
		return d.SetType(t)
	case "set":
		if len(args) < 2 {
			return errors.New("usage: product set <field> <value...>")
		}
		return d.SetField(args[0], strings.Join(args[1:], " "))
	case "attr":
		return editAttribute(d, args)
	case "default":
		switch {
		case len(args) == 2 && args[0] == "rm":
			d.RemoveDefaultAttribute(args[1])
			return nil
		case len(args) == 2:
			return d.SetDefaultAttribute(args[0], args[1])
		}
		return errors.New("usage: product default <attribute-id> <value> | default rm <attribute-id>")
	case "variations":
		d.GenerateVariations()
		return nil
	case "variation":
		return editVariation(d, args)
	case "tag":
		return editTag(d, args)
	case "image":
		switch {
		case len(args) == 2 && args[0] == "add":
			d.AddImage(args[1])
			return nil
		case len(args) == 2 && args[0] == "rm":
			n, err := position(args[1])
			if err != nil {
				return err
			}
			return d.RemoveImage(n)
		}
		return errors.New("usage: product image add <url> | image rm <n>")
	}
	return fmt.Errorf("unknown product command %q\n%s", sub, productUsage)
}

func editAttribute(d *product.Draft, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: product attr add <name> <value> [--id id] | attr rm <name> [value]")
	}
	switch args[0] {
	case "add":
		id, rest := optionValue(args[1:], "--id")
		if len(rest) != 2 {
			return errors.New("usage: product attr add <name> <value> [--id id]")
		}
		if id == "" {
			id = rest[0]
		}
		return d.AddAttributeValue(id, rest[0], rest[1])
	case "rm":
		switch len(args) {
		case 2:
			d.RemoveAttribute(args[1])
			return nil
		case 3:
			d.RemoveAttributeValue(args[1], args[2])
			return nil
		}
	}
	return errors.New("usage: product attr add <name> <value> [--id id] | attr rm <name> [value]")
}

func editVariation(d *product.Draft, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: product variation add <name=value>... | rm <n> | set <n> <field> <value>")
	}
	switch args[0] {
	case "add":
		var attrs []product.AttributeValue
		for _, kv := range args[1:] {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || name == "" || value == "" {
				return fmt.Errorf("attribute %q must look like name=value", kv)
			}
			attrs = append(attrs, product.AttributeValue{Name: name, Value: value})
		}
		if len(attrs) == 0 {
			return errors.New("usage: product variation add <name=value>...")
		}
		if !d.AddVariation(attrs) {
			return errors.New("that combination already exists")
		}
		return nil
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: product variation rm <n>")
		}
		n, err := position(args[1])
		if err != nil {
			return err
		}
		return d.RemoveVariation(n)
	case "set":
		if len(args) < 4 {
			return errors.New("usage: product variation set <n> <field> <value>")
		}
		n, err := position(args[1])
		if err != nil {
			return err
		}
		return d.UpdateVariation(n, args[2], strings.Join(args[3:], " "))
	}
	return fmt.Errorf("unknown variation command %q", args[0])
}

func editTag(d *product.Draft, args []string) error {
	if len(args) >= 2 && args[0] == "add" {
		id, rest := optionValue(args[1:], "--id")
		name := strings.Join(rest, " ")
		if name == "" {
			return errors.New("usage: product tag add <name> [--id id]")
		}
		if !d.AddTag(product.Tag{ID: id, Name: name}) {
			return fmt.Errorf("tag %q is already selected", name)
		}
		return nil
	}
	if len(args) >= 2 && args[0] == "rm" {
		d.RemoveTag(strings.Join(args[1:], " "))
		return nil
	}
	return errors.New("usage: product tag add <name> [--id id] | tag rm <name>")
}

// optionValue extracts "name value" or "name=value" from args.
func optionValue(args []string, name string) (string, []string) {
	var (
		value string
		rest  []string
	)
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == name && i+1 < len(args):
			value = args[i+1]
			i++
		case strings.HasPrefix(args[i], name+"="):
			value = strings.TrimPrefix(args[i], name+"=")
		default:
			rest = append(rest, args[i])
		}
	}
	return value, rest
}

// position turns a 1-based list number into an index.
func position(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a list number", s)
	}
	return n - 1, nil
}

func (r *Runner) createProduct(ctx context.Context) error {
	res, err := r.products.Create(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, res.Message)
	for _, b := range res.Barcodes {
		if b.Err != nil {
			fmt.Fprintf(r.out, "  barcode %s: failed (%s)\n", b.SKU, describe(b.Err))
			continue
		}
		fmt.Fprintf(r.out, "  barcode %s: registered\n", b.SKU)
	}
	return nil
}

func (r *Runner) showDraft(d product.Draft) error {
	if r.globals.JSON {
		return r.printJSON(d)
	}

	g := d.General
	fmt.Fprintf(r.out, "%s product %q [%s]\n", d.Type, g.Name, g.Status)
	for _, f := range [][2]string{
		{"Category", g.Category},
		{"Brand", g.Brand},
		{"Vendor", g.Vendor},
		{"Size guide", g.SizeGuide},
		{"Video", g.VideoLink},
		{"Description", truncate(g.Description, 60)},
	} {
		if f[1] != "" {
			fmt.Fprintf(r.out, "  %-12s %s\n", f[0]+":", f[1])
		}
	}
	if g.Warranty {
		fmt.Fprintln(r.out, "  Warranty:    yes")
	}

	if d.Type == product.TypeSimple {
		inv := d.Inventory
		fmt.Fprintf(r.out, "  SKU %s  sale %s  purchase %s  stock %s\n",
			orDash(inv.SKU), nullPrice(inv.SalePrice.Valid, inv.SalePrice.Decimal.String()),
			nullPrice(inv.PurchasePrice.Valid, inv.PurchasePrice.Decimal.String()), stockText(inv.Stock))
	}
	for _, a := range d.Attributes {
		fmt.Fprintf(r.out, "  Attribute %s (%s): %s\n", a.Name, a.ID, strings.Join(a.Values, ", "))
	}
	for _, def := range d.DefaultAttributes {
		fmt.Fprintf(r.out, "  Default %s: %s\n", def.Name, def.Value)
	}
	if len(d.Variations) > 0 {
		tw := newTable(r.out)
		fmt.Fprintln(tw, "  #\tVARIATION\tSKU\tSALE\tPURCHASE\tSTOCK\tSTATUS")
		for i, v := range d.Variations {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\t%s\t%s\n", i+1, v.Label(), v.SKU,
				nullPrice(v.SalePrice.Valid, v.SalePrice.Decimal.String()),
				nullPrice(v.PurchasePrice.Valid, v.PurchasePrice.Decimal.String()),
				stockText(v.Stock), v.Status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(d.Tags) > 0 {
		names := make([]string, 0, len(d.Tags))
		for _, t := range d.Tags {
			names = append(names, t.Name)
		}
		fmt.Fprintf(r.out, "  Tags: %s\n", strings.Join(names, ", "))
	}
	for i, img := range d.Images {
		fmt.Fprintf(r.out, "  Image %d: %s\n", i+1, img)
	}

	if err := d.Validate(); err != nil {
		fmt.Fprintf(r.out, "Not ready: %v\n", err)
	} else {
		fmt.Fprintln(r.out, "Ready to submit.")
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func nullPrice(valid bool, value string) string {
	if !valid {
		return "-"
	}
	return value
}

func stockText(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}
