package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shoe_pos/internal/analytics"
	"shoe_pos/internal/backend"
	"shoe_pos/internal/llm"
	"shoe_pos/internal/pos"
	"shoe_pos/internal/receipt"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

const (
	maxToolRounds      = 4
	defaultToolLimit   = 10
	maxToolLimit       = 50
	stockToolPageLimit = 20
)

// assistant is the chat model behind ask.
type assistant interface {
	Enabled() bool
	Chat(ctx context.Context, messages []openrouter.ChatCompletionMessage, tools []openrouter.Tool) (openrouter.ChatCompletionResponse, error)
}

type toolCallRecord struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	MS   int64          `json:"ms"`
	OK   bool           `json:"ok"`
	Err  string         `json:"err,omitempty"`
}

type answer struct {
	Question  string           `json:"question"`
	Text      string           `json:"answer"`
	ToolCalls []toolCallRecord `json:"tool_calls,omitempty"`
}

func (r *Runner) ask(ctx context.Context, args []string) error {
	if !r.assistant.Enabled() {
		return llm.ErrNotConfigured
	}
	history := NewHistory(defaultHistoryMaxMessages, defaultHistoryMaxTokens, r.logger)

	if question := strings.TrimSpace(strings.Join(args, " ")); question != "" {
		history.Reset(openrouter.SystemMessage(llm.SystemPrompt(r.now(), r.shop.Name, false)))
		ans, err := r.answer(ctx, history, question)
		if err != nil {
			return err
		}
		return r.writeAnswer(ans)
	}
	return r.askREPL(ctx, history)
}

func (r *Runner) askREPL(ctx context.Context, history *History) error {
	reset := func() {
		history.Reset(openrouter.SystemMessage(llm.SystemPrompt(r.now(), r.shop.Name, true)))
	}
	reset()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go readLines(ctx, r.in, lines)
	fmt.Fprintln(r.out, "Sales assistant ('/clear' forgets, '/history' shows context, 'exit' quits)")

	for {
		fmt.Fprint(r.out, "ask> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/clear":
			reset()
			fmt.Fprintln(r.out, "Conversation cleared.")
			continue
		case "/history":
			r.printHistory(history)
			continue
		}

		ans, err := r.answer(ctx, history, line)
		if err != nil {
			if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, context.Canceled) {
				return err
			}
			r.report(err)
			continue
		}
		if err := r.writeAnswer(ans); err != nil {
			return err
		}
	}
}

func (r *Runner) printHistory(h *History) {
	messages := h.Messages()
	fmt.Fprintf(r.out, "%d messages, ~%d tokens\n", len(messages), h.TokenCount())
	for i, m := range messages {
		preview := messagePreview(m)
		if preview == "" {
			preview = "(empty)"
		}
		fmt.Fprintf(r.out, "%d) %s: %s\n", i+1, m.Role, preview)
	}
}

func (r *Runner) writeAnswer(ans answer) error {
	if r.globals.JSON {
		return r.printJSON(ans)
	}
	text := ans.Text
	if text == "" {
		text = "(empty answer)"
	}
	fmt.Fprintln(r.out, text)
	return nil
}

// answer runs the tool loop for one question. The question, the model's
// tool calls and their results stay in history for follow-ups.
func (r *Runner) answer(ctx context.Context, history *History, question string) (answer, error) {
	r.logger.Info("assistant question", zap.String("question", question))
	history.Append(openrouter.UserMessage(question))
	ans := answer{Question: question}

	for round := range maxToolRounds {
		resp, err := r.assistant.Chat(ctx, history.Messages(), llm.ToolSchemas())
		if err != nil {
			return ans, fmt.Errorf("assistant: %w", err)
		}
		logLLMUsage(r.logger, resp)
		if len(resp.Choices) == 0 {
			return ans, errors.New("assistant returned no answer")
		}

		msg := resp.Choices[0].Message
		history.Append(msg)
		if len(msg.ToolCalls) == 0 {
			ans.Text = strings.TrimSpace(msg.Content.Text)
			return ans, nil
		}

		r.logger.Debug("assistant tool round", zap.Int("round", round+1), zap.Int("calls", len(msg.ToolCalls)))
		results, records, err := r.executeToolCalls(ctx, msg.ToolCalls)
		ans.ToolCalls = append(ans.ToolCalls, records...)
		history.Append(results...)
		if err != nil {
			return ans, err
		}
	}

	ans.Text = "I could not finish within the step limit. Try a narrower question, e.g. a shorter period or one product."
	return ans, nil
}

// executeToolCalls answers every call. Tool failures go back to the model
// as error payloads; only a rejected session stops the loop.
func (r *Runner) executeToolCalls(ctx context.Context, calls []llm.ToolCall) ([]openrouter.ChatCompletionMessage, []toolCallRecord, error) {
	messages := make([]openrouter.ChatCompletionMessage, 0, len(calls))
	records := make([]toolCallRecord, 0, len(calls))

	for _, call := range calls {
		args := map[string]any{}
		if strings.TrimSpace(call.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				record := toolCallRecord{Name: call.Function.Name, Err: fmt.Sprintf("invalid tool args: %v", err)}
				records = append(records, record)
				messages = append(messages, openrouter.ToolMessage(call.ID, toolErrorPayload(record.Err)))
				continue
			}
		}

		result, record, err := r.dispatchToolCall(ctx, call.Function.Name, args)
		records = append(records, record)
		if err != nil {
			messages = append(messages, openrouter.ToolMessage(call.ID, toolErrorPayload(describe(err))))
			if errors.Is(err, backend.ErrUnauthorized) {
				return messages, records, err
			}
			continue
		}

		payload, err := json.Marshal(result)
		if err != nil {
			messages = append(messages, openrouter.ToolMessage(call.ID, toolErrorPayload(err.Error())))
			continue
		}
		messages = append(messages, openrouter.ToolMessage(call.ID, string(payload)))
	}
	return messages, records, nil
}

type saleBrief struct {
	InvoiceNo string `json:"invoice_no"`
	Date      string `json:"date"`
	Customer  string `json:"customer,omitempty"`
	Items     int    `json:"items"`
	Total     string `json:"total"`
	Profit    string `json:"profit"`
	Payment   string `json:"payment"`
	Status    string `json:"status"`
}

type periodSummary struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	salesReport
}

func (r *Runner) dispatchToolCall(ctx context.Context, name string, args map[string]any) (any, toolCallRecord, error) {
	switch name {
	case llm.ToolSalesSummary:
		f := toolSaleFilter(args)
		return trackCall(r.logger, name, args, func() (periodSummary, error) {
			sales, err := r.loadSales(ctx, f)
			if err != nil {
				return periodSummary{}, err
			}
			return periodSummary{
				From: f.from,
				To:   f.to,
				salesReport: salesReport{
					Summary:        analytics.Summarize(sales),
					PaymentMethods: analytics.PaymentMethods(sales),
					Statuses:       analytics.Statuses(sales),
				},
			}, nil
		})
	case llm.ToolListSales:
		f := toolSaleFilter(args)
		f.search, _ = getStringArg(args, "search")
		limit := min(max(getIntArg(args, "limit", defaultToolLimit), 1), maxToolLimit)
		return trackCall(r.logger, name, args, func() ([]saleBrief, error) {
			sales, err := r.loadSales(ctx, f)
			if err != nil {
				return nil, err
			}
			out := make([]saleBrief, 0, min(limit, len(sales)))
			for _, s := range sales[:min(limit, len(sales))] {
				out = append(out, briefSale(s))
			}
			return out, nil
		})
	case llm.ToolFindSale:
		invoice, _ := getStringArg(args, "invoice_no")
		return trackCall(r.logger, name, args, func() (backend.SaleRecord, error) {
			return r.api.FindSaleByInvoice(ctx, invoice)
		})
	case llm.ToolSalesTrend:
		rangeArg, _ := getStringArg(args, "range")
		return trackCall(r.logger, name, args, func() ([]analytics.Bucket, error) {
			rng, err := analytics.ParseRange(rangeArg)
			if err != nil {
				return nil, err
			}
			sales, err := r.loadSales(ctx, saleFilter{})
			if err != nil {
				return nil, err
			}
			return analytics.Trend(sales, rng, r.now()), nil
		})
	case llm.ToolListStock:
		search, _ := getStringArg(args, "search")
		page := max(getIntArg(args, "page", 1), 1)
		return trackCall(r.logger, name, args, func() (backend.StockPage, error) {
			return r.api.ListStock(ctx, page, stockToolPageLimit, search)
		})
	case llm.ToolStockHistory:
		id, _ := getStringArg(args, "summary_id")
		page := max(getIntArg(args, "page", 1), 1)
		return trackCall(r.logger, name, args, func() (backend.StockHistoryPage, error) {
			if id == "" {
				return backend.StockHistoryPage{}, errors.New("summary_id is required")
			}
			return r.api.StockHistory(ctx, id, page, stockToolPageLimit, "")
		})
	case llm.ToolLookupProduct:
		raw, _ := getStringArg(args, "identifier")
		return trackCall(r.logger, name, args, func() (backend.ProductLookup, error) {
			id, err := pos.ParseIdentifier(raw)
			if err != nil {
				return backend.ProductLookup{}, err
			}
			return r.api.LookupProduct(ctx, id)
		})
	case llm.ToolDashboardCounts:
		return trackCall(r.logger, name, args, func() (map[string]float64, error) {
			return r.api.DashboardCounts(ctx)
		})
	default:
		err := fmt.Errorf("unknown tool: %s", name)
		return nil, toolCallRecord{Name: name, Args: args, Err: err.Error()}, err
	}
}

func toolSaleFilter(args map[string]any) saleFilter {
	var f saleFilter
	f.from, _ = getStringArg(args, "from")
	f.to, _ = getStringArg(args, "to")
	f.status, _ = getStringArg(args, "status")
	return f
}

func briefSale(s pos.Sale) saleBrief {
	b := saleBrief{
		InvoiceNo: s.InvoiceNo,
		Date:      s.CreatedAt.Local().Format("2006-01-02 15:04"),
		Items:     s.Totals.TotalQuantity,
		Total:     receipt.Amount(s.Totals.TotalAmount),
		Profit:    receipt.Amount(s.Totals.Profit),
		Payment:   string(s.PaymentMethod),
		Status:    s.Status,
	}
	if s.Customer != nil {
		b.Customer = strings.TrimSpace(s.Customer.Name + " " + s.Customer.Phone)
	}
	return b
}

func trackCall[T any](logger *zap.Logger, name string, args map[string]any, fn func() (T, error)) (T, toolCallRecord, error) {
	start := time.Now()
	result, err := fn()
	record := toolCallRecord{
		Name: name,
		Args: args,
		MS:   time.Since(start).Milliseconds(),
		OK:   err == nil,
	}
	if err != nil {
		record.Err = err.Error()
	}
	logger.Info("tool call",
		zap.String("name", name),
		zap.Any("args", args),
		zap.Int64("ms", record.MS),
		zap.Bool("ok", record.OK),
		zap.String("err", record.Err),
	)
	return result, record, err
}

func getStringArg(args map[string]any, key string) (string, bool) {
	value, ok := args[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func getIntArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func toolErrorPayload(message string) string {
	encoded, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"tool failed"}`
	}
	return string(encoded)
}

func logLLMUsage(logger *zap.Logger, resp openrouter.ChatCompletionResponse) {
	if resp.Usage == nil {
		return
	}
	logger.Info("llm usage",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Float64("cost", resp.Usage.Cost),
	)
}
