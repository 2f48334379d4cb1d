package oracle

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicCompleter uses the Messages API. It has no JSON mode, so the
// first top-level JSON object in the reply is extracted.
type AnthropicCompleter struct {
	client      *anthropic.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewAnthropicCompleter(apiKey, model string, temperature float32) *AnthropicCompleter {
	return &AnthropicCompleter{
		client:      anthropic.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   1024,
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := c.temperature
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
		MultiSystem: []anthropic.MessageSystemPart{{Type: "text", Text: system}},
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(user)},
		}},
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	obj, ok := extractJSONObject(text.String())
	if !ok {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("no JSON object in reply")}
	}
	return obj, nil
}

// extractJSONObject returns the first balanced {...} span, skipping braces
// inside string literals.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
