package llm

import openrouter "github.com/revrost/go-openrouter"

const (
	ToolSalesSummary    = "SalesSummary"
	ToolListSales       = "ListSales"
	ToolFindSale        = "FindSaleByInvoice"
	ToolSalesTrend      = "SalesTrend"
	ToolListStock       = "ListStock"
	ToolStockHistory    = "StockHistory"
	ToolLookupProduct   = "LookupProduct"
	ToolDashboardCounts = "DashboardCounts"
)

func ToolSchemas() []openrouter.Tool {
	return []openrouter.Tool{
		function(ToolSalesSummary,
			"Totals for sales in a date range: number of sales, items sold, revenue, profit, average ticket and counts per status. Use for 'how much did we sell' questions.",
			object(map[string]any{
				"from":   dateParam("First day, inclusive. Omit for no lower bound."),
				"to":     dateParam("Last day, inclusive. Omit for today."),
				"status": statusParam(),
			}),
		),
		function(ToolListSales,
			"List individual sales, newest first, with invoice number, date, customer, total, payment method and status.",
			object(map[string]any{
				"from":   dateParam("First day, inclusive."),
				"to":     dateParam("Last day, inclusive."),
				"search": stringParam("Matches invoice number, customer name or phone."),
				"status": statusParam(),
				"limit":  intParam("Maximum sales to return (default 10, max 50)."),
			}),
		),
		function(ToolFindSale,
			"Fetch one sale with its line items by invoice number.",
			object(map[string]any{
				"invoice_no": stringParam("Invoice number, e.g. INV-000123."),
			}, "invoice_no"),
		),
		function(ToolSalesTrend,
			"Sales count, revenue and profit bucketed over time: 7 days for week, 4 weeks for month, 12 months for year.",
			object(map[string]any{
				"range": map[string]any{
					"type": "string",
					"enum": []string{"week", "month", "year"},
				},
			}),
		),
		function(ToolListStock,
			"Current stock per product or variation, with branch breakdown when available.",
			object(map[string]any{
				"search": stringParam("Product name or SKU fragment."),
				"page":   intParam("Page number starting at 1."),
			}),
		),
		function(ToolStockHistory,
			"Stock movements (sales, adjustments) of one stock entry. The summary_id comes from ListStock.",
			object(map[string]any{
				"summary_id": stringParam("Stock summary id from ListStock."),
				"page":       intParam("Page number starting at 1."),
			}, "summary_id"),
		),
		function(ToolLookupProduct,
			"Resolve a barcode or SKU to product name, price and current stock.",
			object(map[string]any{
				"identifier": stringParam("Barcode or SKU (3-50 letters, digits, - or _)."),
			}, "identifier"),
		),
		function(ToolDashboardCounts,
			"Headline counters of the admin dashboard (products, sales, customers and similar totals).",
			object(map[string]any{}),
		),
	}
}

func function(name, description string, params map[string]any) openrouter.Tool {
	return openrouter.Tool{
		Type: openrouter.ToolTypeFunction,
		Function: &openrouter.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

func object(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intParam(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func dateParam(description string) map[string]any {
	return map[string]any{"type": "string", "format": "date", "description": description}
}

func statusParam() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Sale status filter: Completed, Returned, Replaced, Cancelled or all.",
	}
}
