package llm

import (
	"fmt"
	"strings"
	"time"
)

// SystemPrompt describes the shop data the assistant can reach. now anchors
// relative dates such as "yesterday" or "last week".
func SystemPrompt(now time.Time, shop string, interactive bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the sales assistant of %s, a shoe shop. ", orDefault(shop, "the shop"))
	b.WriteString("Answer questions about sales, stock and products using the tools. ")
	b.WriteString("Never invent figures; if a tool fails, say what could not be fetched. ")
	b.WriteString("Amounts are in BDT (Tk.). Prefer SalesSummary over ListSales when only totals are asked for. ")
	fmt.Fprintf(&b, "Today is %s (%s). Dates passed to tools use YYYY-MM-DD. ", now.Format("2006-01-02"), now.Weekday())
	if interactive {
		b.WriteString("The operator is at the counter: keep answers to a few short lines and ask when a period or product is ambiguous.")
	} else {
		b.WriteString("This is a one-shot question: pick the most reasonable period (default the last 7 days) and answer directly.")
	}
	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
