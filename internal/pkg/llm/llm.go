// Package llm wraps the configured text-generation providers behind a single
// Generator interface. OpenAI and Anthropic go through their official SDKs
// via go.jetify.com/ai; "openai-compatible" endpoints use plain chat
// completions over HTTP.
package llm

import (
	"context"
	"errors"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	appcfg "github.com/paperlens/core/internal/config"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

// ErrRateLimited signals upstream quota exhaustion. Callers surface it to the
// user as an explicit retryable condition instead of a generic failure.
var ErrRateLimited = errors.New("llm: provider rate limited")

// ErrNotConfigured indicates no enabled provider or missing credentials.
var ErrNotConfigured = errors.New("llm: no usable provider configured")

// Request is one generation call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Generator maps a prompt plus system instruction to generated text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderGenerator dispatches requests to a configured AI provider.
type ProviderGenerator struct {
	provider *appcfg.AIProvider
}

func NewProviderGenerator(provider *appcfg.AIProvider) *ProviderGenerator {
	return &ProviderGenerator{provider: provider}
}

func (g *ProviderGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.provider == nil {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(g.provider.APIKey) == "" {
		return "", ErrNotConfigured
	}

	if isOpenAICompatibleProviderType(g.provider.Type) {
		return chatCompletions(ctx, g.provider, req)
	}

	model, err := buildLanguageModel(g.provider)
	if err != nil {
		return "", err
	}

	opts := []jetai.GenerateOption{
		jetai.WithModel(model),
		jetai.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, jetai.WithMaxOutputTokens(req.MaxTokens))
	}

	resp, err := jetai.GenerateText(ctx, buildPromptMessages(req.System, req.Prompt), opts...)
	if err != nil {
		return "", classifyProviderError(err)
	}
	return extractText(resp)
}

func buildPromptMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractText(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from AI")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

func buildLanguageModel(provider *appcfg.AIProvider) (jetapi.LanguageModel, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	modelID := strings.TrimSpace(provider.DefaultModel)
	endpoint := strings.TrimSpace(provider.Endpoint)

	if isAnthropicProviderType(provider.Type) {
		if modelID == "" {
			modelID = "claude-haiku-4-5-20251001"
		}
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	}

	if modelID == "" {
		modelID = "gpt-4o-mini"
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
}

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func isAnthropicProviderType(raw string) bool {
	return normalizeProviderType(raw) == "anthropic"
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

// classifyProviderError maps SDK failures onto the package taxonomy.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") {
		return errors.Join(ErrRateLimited, err)
	}
	return err
}
