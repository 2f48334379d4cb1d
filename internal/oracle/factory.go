package oracle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAPIKey is returned when a hosted provider has no key configured.
var ErrMissingAPIKey = errors.New("oracle: api key not set")

// ProviderConfig selects and parameterizes a completer.
type ProviderConfig struct {
	Provider    string // groq, openai, deepseek, ollama, lmstudio, anthropic
	APIKey      string
	Model       string // empty selects the provider default
	BaseURL     string // empty selects the provider default
	Temperature float32
}

type providerSpec struct {
	baseURL   string
	model     string
	keyless   bool
	anthropic bool
}

var providers = map[string]providerSpec{
	"groq":      {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.3-70b-versatile"},
	"openai":    {model: "gpt-4o-mini"},
	"deepseek":  {baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	"ollama":    {baseURL: "http://localhost:11434/v1", model: "llama3.1", keyless: true},
	"lmstudio":  {baseURL: "http://localhost:1234/v1", model: "local-model", keyless: true},
	"anthropic": {model: "claude-3-5-haiku-latest", anthropic: true},
}

// Providers returns the supported provider names.
func Providers() []string {
	return []string{"groq", "openai", "deepseek", "ollama", "lmstudio", "anthropic"}
}

// NewCompleter builds the completer for cfg.Provider and returns the model
// it resolved to.
func NewCompleter(cfg ProviderConfig) (Completer, string, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "groq"
	}
	spec, ok := providers[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown LLM_PROVIDER: %s (supported: %s)", cfg.Provider, strings.Join(Providers(), ", "))
	}

	model := cfg.Model
	if model == "" {
		model = spec.model
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		if !spec.keyless {
			return nil, "", fmt.Errorf("%w for provider %s", ErrMissingAPIKey, name)
		}
		apiKey = name
	}

	if spec.anthropic {
		return NewAnthropicCompleter(apiKey, model, cfg.Temperature), model, nil
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = spec.baseURL
	}
	// local servers often reject response_format
	jsonMode := !spec.keyless
	return NewOpenAICompleter(apiKey, model, baseURL, cfg.Temperature, jsonMode), model, nil
}

// RequiresKey reports whether provider needs an API key. Unknown providers
// are an error.
func RequiresKey(provider string) (bool, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = "groq"
	}
	spec, ok := providers[name]
	if !ok {
		return false, fmt.Errorf("unknown LLM_PROVIDER: %s (supported: %s)", provider, strings.Join(Providers(), ", "))
	}
	return !spec.keyless, nil
}
