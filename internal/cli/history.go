package cli

import (
	"strings"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

const (
	defaultHistoryMaxMessages = 24
	defaultHistoryMaxTokens   = 3000
)

// History is the assistant conversation of one ask session. The system
// prompt at index 0 is never trimmed.
type History struct {
	messages    []openrouter.ChatCompletionMessage
	maxMessages int
	maxTokens   int
	logger      *zap.Logger
}

func NewHistory(maxMessages, maxTokens int, logger *zap.Logger) *History {
	if maxMessages <= 1 {
		maxMessages = defaultHistoryMaxMessages
	}
	if maxTokens <= 0 {
		maxTokens = defaultHistoryMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{maxMessages: maxMessages, maxTokens: maxTokens, logger: logger}
}

// Reset starts over from a system prompt.
func (h *History) Reset(system openrouter.ChatCompletionMessage) {
	h.messages = []openrouter.ChatCompletionMessage{system}
}

func (h *History) Append(messages ...openrouter.ChatCompletionMessage) {
	h.messages = append(h.messages, messages...)
	h.trim()
}

func (h *History) Messages() []openrouter.ChatCompletionMessage {
	out := make([]openrouter.ChatCompletionMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) TokenCount() int {
	total := 0
	for _, m := range h.messages {
		total += estimateTokens(m)
	}
	return total
}

// trim drops the oldest exchanges past the limits. A tool result whose
// assistant call was dropped goes with it, since the API rejects orphaned
// tool messages.
func (h *History) trim() {
	first := 0
	if len(h.messages) > 0 && h.messages[0].Role == openrouter.ChatMessageRoleSystem {
		first = 1
	}

	dropped := 0
	for len(h.messages) > first+1 &&
		(len(h.messages) > h.maxMessages || h.TokenCount() > h.maxTokens) {
		h.messages = append(h.messages[:first], h.messages[first+1:]...)
		dropped++
	}
	for len(h.messages) > first && h.messages[first].Role == openrouter.ChatMessageRoleTool {
		h.messages = append(h.messages[:first], h.messages[first+1:]...)
		dropped++
	}

	if dropped > 0 {
		h.logger.Debug("assistant history trimmed",
			zap.Int("dropped", dropped),
			zap.Int("messages", len(h.messages)),
			zap.Int("tokens", h.TokenCount()),
		)
	}
}

// estimateTokens counts words, which is close enough for trimming.
func estimateTokens(m openrouter.ChatCompletionMessage) int {
	n := len(strings.Fields(m.Content.Text))
	for _, part := range m.Content.Multi {
		n += len(strings.Fields(part.Text))
	}
	for _, call := range m.ToolCalls {
		n += 1 + len(strings.Fields(call.Function.Arguments))
	}
	return n
}

func messagePreview(m openrouter.ChatCompletionMessage) string {
	text := strings.TrimSpace(m.Content.Text)
	if text == "" && len(m.ToolCalls) > 0 {
		names := make([]string, 0, len(m.ToolCalls))
		for _, c := range m.ToolCalls {
			names = append(names, c.Function.Name)
		}
		return "calls " + strings.Join(names, ", ")
	}
	return truncate(strings.Join(strings.Fields(text), " "), 100)
}
