package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"shoe_pos/internal/backend"
	"shoe_pos/internal/llm"

	openrouter "github.com/revrost/go-openrouter"
)

// fakeAssistant replays canned completions; the last one repeats.
type fakeAssistant struct {
	enabled   bool
	responses []string
	err       error
	seen      [][]openrouter.ChatCompletionMessage
}

func (f *fakeAssistant) Enabled() bool { return f.enabled }

func (f *fakeAssistant) Chat(_ context.Context, messages []openrouter.ChatCompletionMessage, _ []openrouter.Tool) (openrouter.ChatCompletionResponse, error) {
	f.seen = append(f.seen, messages)
	if f.err != nil {
		return openrouter.ChatCompletionResponse{}, f.err
	}
	raw := f.responses[min(len(f.seen), len(f.responses))-1]
	var resp openrouter.ChatCompletionResponse
	err := json.Unmarshal([]byte(raw), &resp)
	return resp, err
}

func completion(message map[string]any) string {
	message["role"] = "assistant"
	if _, ok := message["content"]; !ok {
		message["content"] = ""
	}
	b, _ := json.Marshal(map[string]any{
		"id":      "gen-1",
		"choices": []any{map[string]any{"index": 0, "message": message}},
	})
	return string(b)
}

func textReply(text string) string {
	return completion(map[string]any{"content": text})
}

type toolCall struct{ id, name, args string }

func toolReply(calls ...toolCall) string {
	list := make([]any, 0, len(calls))
	for _, c := range calls {
		list = append(list, map[string]any{
			"id":       c.id,
			"type":     "function",
			"function": map[string]any{"name": c.name, "arguments": c.args},
		})
	}
	return completion(map[string]any{"tool_calls": list})
}

func toolMessages(h *History) []openrouter.ChatCompletionMessage {
	var out []openrouter.ChatCompletionMessage
	for _, m := range h.Messages() {
		if m.Role == openrouter.ChatMessageRoleTool {
			out = append(out, m)
		}
	}
	return out
}

func newHistory() *History {
	h := NewHistory(0, 0, nil)
	h.Reset(openrouter.SystemMessage("You are the shop assistant."))
	return h
}

func TestAnswerRunsToolsAndKeepsContext(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	bot := &fakeAssistant{enabled: true, responses: []string{
		toolReply(toolCall{id: "c1", name: llm.ToolSalesSummary, args: `{"from":"2026-03-14"}`}),
		textReply("Revenue since yesterday is BDT 3,000."),
	}}
	r.assistant = bot
	history := newHistory()

	ans, err := r.answer(context.Background(), history, "How did we do since yesterday?")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "Revenue since yesterday is BDT 3,000." {
		t.Errorf("text = %q", ans.Text)
	}
	if len(ans.ToolCalls) != 1 || !ans.ToolCalls[0].OK || ans.ToolCalls[0].Args["from"] != "2026-03-14" {
		t.Errorf("tool calls = %+v", ans.ToolCalls)
	}

	tools := toolMessages(history)
	if len(tools) != 1 {
		t.Fatalf("tool messages = %d", len(tools))
	}
	if body := tools[0].Content.Text; !strings.Contains(body, `"sales":2`) || !strings.Contains(body, `"revenue":"3000"`) {
		t.Errorf("tool result = %s", body)
	}
	if tools[0].ToolCallID != "c1" {
		t.Errorf("tool call id = %q", tools[0].ToolCallID)
	}
	if n := len(history.Messages()); n != 5 {
		t.Errorf("history = %d messages, want system, user, call, result, answer", n)
	}
	if len(bot.seen) != 2 || len(bot.seen[1]) != 4 {
		t.Errorf("second round saw %d messages", len(bot.seen[1]))
	}
}

func TestAnswerFeedsToolErrorsBack(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	r.assistant = &fakeAssistant{enabled: true, responses: []string{
		toolReply(
			toolCall{id: "c1", name: "DropDatabase", args: `{}`},
			toolCall{id: "c2", name: llm.ToolLookupProduct, args: `{"identifier":`},
			toolCall{id: "c3", name: llm.ToolLookupProduct, args: `{"identifier":"NOPE1"}`},
		),
		textReply("I could not find that product."),
	}}
	history := newHistory()

	ans, err := r.answer(context.Background(), history, "Find NOPE1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.ToolCalls) != 3 {
		t.Fatalf("tool calls = %+v", ans.ToolCalls)
	}
	for _, rec := range ans.ToolCalls {
		if rec.OK || rec.Err == "" {
			t.Errorf("record = %+v, want failure", rec)
		}
	}
	if !strings.Contains(ans.ToolCalls[0].Err, "unknown tool") || !strings.Contains(ans.ToolCalls[1].Err, "invalid tool args") {
		t.Errorf("errors = %q, %q", ans.ToolCalls[0].Err, ans.ToolCalls[1].Err)
	}

	tools := toolMessages(history)
	if len(tools) != 3 {
		t.Fatalf("tool messages = %d", len(tools))
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(tools[2].Content.Text), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["error"] != "not found" {
		t.Errorf("payload = %v", payload)
	}
	if ans.Text != "I could not find that product." {
		t.Errorf("text = %q", ans.Text)
	}
}

func TestAnswerStopsAfterToolRoundLimit(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	bot := &fakeAssistant{enabled: true, responses: []string{
		toolReply(toolCall{id: "c1", name: llm.ToolDashboardCounts, args: ``}),
	}}
	r.assistant = bot

	ans, err := r.answer(context.Background(), newHistory(), "Loop forever")
	if err != nil {
		t.Fatal(err)
	}
	if len(bot.seen) != maxToolRounds || len(ans.ToolCalls) != maxToolRounds {
		t.Errorf("rounds = %d, calls = %d", len(bot.seen), len(ans.ToolCalls))
	}
	if !strings.Contains(ans.Text, "step limit") {
		t.Errorf("text = %q", ans.Text)
	}
}

func TestAnswerAbortsOnRejectedSession(t *testing.T) {
	api := salesAPI()
	api.salesErr = backend.ErrUnauthorized
	r := loggedIn(t, api, "")
	bot := &fakeAssistant{enabled: true, responses: []string{
		toolReply(toolCall{id: "c1", name: llm.ToolListSales, args: `{"limit":5}`}),
		textReply("unreachable"),
	}}
	r.assistant = bot

	_, err := r.answer(context.Background(), newHistory(), "Latest sales?")
	if !errors.Is(err, backend.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if len(bot.seen) != 1 {
		t.Errorf("assistant called %d times after the session was rejected", len(bot.seen))
	}
}

func TestAskOneShot(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	r.assistant = &fakeAssistant{enabled: true, responses: []string{textReply("  All good today.  ")}}

	if out := r.run(t, "ask", "how", "are", "sales?"); out != "All good today.\n" {
		t.Errorf("output = %q", out)
	}

	r.globals.JSON = true
	var ans answer
	if err := json.Unmarshal([]byte(r.run(t, "ask", "again?")), &ans); err != nil {
		t.Fatal(err)
	}
	if ans.Question != "again?" || ans.Text != "All good today." {
		t.Errorf("answer = %+v", ans)
	}
}

func TestAskWithoutModel(t *testing.T) {
	r := loggedIn(t, salesAPI(), "")
	err := r.Run(context.Background(), []string{"ask", "hello"})
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestAskREPL(t *testing.T) {
	r := loggedIn(t, salesAPI(), "hello\n\n/history\n/clear\n/history\nexit\n")
	bot := &fakeAssistant{enabled: true, responses: []string{textReply("Hi Rina.")}}
	r.assistant = bot

	out := r.run(t, "ask")
	for _, want := range []string{
		"ask> ",
		"Hi Rina.",
		"3 messages",
		"2) user: hello",
		"Conversation cleared.",
		"1 messages",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(bot.seen) != 1 {
		t.Errorf("assistant called %d times", len(bot.seen))
	}
}

func TestAskREPLReportsErrorsAndContinues(t *testing.T) {
	r := loggedIn(t, salesAPI(), "first\nsecond\nexit\n")
	bot := &fakeAssistant{enabled: true, err: backend.ErrTimeout}
	r.assistant = bot

	out := r.run(t, "ask")
	if strings.Count(out, "! the server did not answer in time") != 2 {
		t.Errorf("output = %q", out)
	}
}

func TestToolArgs(t *testing.T) {
	args := map[string]any{"s": "  x ", "f": float64(7), "i": 3, "n": "12", "bad": "x"}
	if v, ok := getStringArg(args, "s"); !ok || v != "x" {
		t.Errorf("string = %q %v", v, ok)
	}
	if v, _ := getStringArg(args, "f"); v != "7" {
		t.Errorf("float as string = %q", v)
	}
	if _, ok := getStringArg(args, "missing"); ok {
		t.Error("missing key reported present")
	}
	for key, want := range map[string]int{"f": 7, "i": 3, "n": 12, "bad": 9, "missing": 9} {
		if got := getIntArg(args, key, 9); got != want {
			t.Errorf("getIntArg(%q) = %d, want %d", key, got, want)
		}
	}
}
