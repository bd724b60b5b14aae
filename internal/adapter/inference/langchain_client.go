package inference

import (
	"context"
	"fmt"
	"time"

	"openlet/internal/domain"
	"openlet/internal/prompt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// LangchainClient implements domain.InferenceClient on top of any langchaingo model.
type LangchainClient struct {
	llm     llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenRouterModel builds a langchaingo OpenAI-compatible client for baseURL.
func NewOpenRouterModel(baseURL, apiKey, defaultModel string) (llms.Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("inference API key cannot be empty")
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(defaultModel),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangchainGo OpenAI client: %w", err)
	}
	return llm, nil
}

// NewLangchainClient wraps llm. Every call is bounded by timeout when it is positive.
func NewLangchainClient(llm llms.Model, timeout time.Duration, logger *zap.Logger) *LangchainClient {
	return &LangchainClient{llm: llm, timeout: timeout, logger: logger}
}

// ExtractText sends the OCR system prompt and every image in one request.
func (c *LangchainClient) ExtractText(ctx context.Context, model string, images ...domain.ImagePayload) (string, error) {
	if len(images) == 0 {
		return "", domain.NewInvalidInputError(domain.MsgNoInput)
	}

	parts := make([]llms.ContentPart, 0, len(images))
	for _, img := range images {
		parts = append(parts, llms.ImageURLContent{URL: DataURL(img)})
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.OCRSystemPrompt),
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	c.logger.Debug("Sending extraction request", zap.String("model", model), zap.Int("images", len(images)))
	return c.generate(ctx, messages, llms.WithModel(model))
}

// Complete sends a single user prompt at temperature 0.
func (c *LangchainClient) Complete(ctx context.Context, model string, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	c.logger.Debug("Sending completion request", zap.String("model", model), zap.Int("prompt_len", len(userPrompt)))
	return c.generate(ctx, messages, llms.WithModel(model), llms.WithTemperature(0))
}

func (c *LangchainClient) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.llm.GenerateContent(callCtx, messages, opts...)
	if err != nil {
		c.logger.Error("Inference call failed", zap.Error(err))
		return "", wrapCallError(err, c.timeout)
	}

	contents := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		contents = append(contents, choice.Content)
	}
	return firstChoice(contents)
}

var _ domain.InferenceClient = (*LangchainClient)(nil)
