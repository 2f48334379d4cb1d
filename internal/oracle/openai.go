package oracle

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAICompleter talks to any OpenAI-compatible chat completion endpoint
// (Groq, OpenAI, DeepSeek, Ollama, LM Studio) in JSON-object mode.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	jsonMode    bool
}

// NewOpenAICompleter builds a completer. An empty baseURL means api.openai.com.
func NewOpenAICompleter(apiKey, model, baseURL string, temperature float32, jsonMode bool) *OpenAICompleter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		jsonMode:    jsonMode,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := c.temperature
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: &temperature,
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("empty response from %s", c.model)}
	}
	return resp.Choices[0].Message.Content, nil
}
