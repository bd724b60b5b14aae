package inference

import (
	"context"
	"math"
	"time"

	"openlet/internal/domain"
	"openlet/internal/prompt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient implements domain.InferenceClient with go-openai.
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIClient targets baseURL, or the OpenAI API when it is empty.
func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		timeout: timeout,
		logger:  logger,
	}
}

func (c *OpenAIClient) ExtractText(ctx context.Context, model string, images ...domain.ImagePayload) (string, error) {
	if len(images) == 0 {
		return "", domain.NewInvalidInputError(domain.MsgNoInput)
	}

	parts := make([]openai.ChatMessagePart, 0, len(images))
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: DataURL(img), Detail: openai.ImageURLDetailAuto},
		})
	}

	return c.create(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.OCRSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
}

func (c *OpenAIClient) Complete(ctx context.Context, model string, userPrompt string) (string, error) {
	return c.create(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		// A literal 0 is dropped by omitempty and the provider default applies.
		Temperature: math.SmallestNonzeroFloat32,
	})
}

func (c *OpenAIClient) create(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, req)
	if err != nil {
		c.logger.Error("Chat completion failed", zap.String("model", req.Model), zap.Error(err))
		return "", wrapCallError(err, c.timeout)
	}

	contents := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		contents = append(contents, choice.Message.Content)
	}
	return firstChoice(contents)
}

var _ domain.InferenceClient = (*OpenAIClient)(nil)
