package repository

import (
	"context"
	"fmt"
	"time"

	"golang-analyst-gateway/internal/gateway/config"
	"golang-analyst-gateway/pkg/logger"
	"golang-analyst-gateway/pkg/ratelimit"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ChatModelRepository is the conversational model client. ChatWithTools is the
// first-pass call with the tool registry; Chat forces a final answer without
// tool access. Embed produces query vectors for the document store.
type ChatModelRepository interface {
	ChatWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*openai.ChatCompletionMessage, error)
	Chat(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionRepository serves small single-shot completions (ticker fallback,
// name translation). Selected by the ai.provider config.
type CompletionRepository interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

type openAIRepository struct {
	client         *openai.Client
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
}

// NewOpenAIRepository creates the OpenAI chat model client with request and
// token throttling.
func NewOpenAIRepository(cfg *config.Config, log *logger.Logger) *openAIRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.OpenAI.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.OpenAI.MaxTokenPerMinute)

	return &openAIRepository{
		client:         openai.NewClient(cfg.OpenAI.APIKey),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
	}
}

func (r *openAIRepository) ChatWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*openai.ChatCompletionMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:               r.cfg.OpenAI.Model,
		Messages:            messages,
		MaxCompletionTokens: r.cfg.Gateway.MaxCompletionTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	resp, err := r.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return &resp.Choices[0].Message, nil
}

func (r *openAIRepository) Chat(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := r.send(ctx, openai.ChatCompletionRequest{
		Model:               r.cfg.OpenAI.Model,
		Messages:            messages,
		MaxCompletionTokens: r.cfg.Gateway.MaxCompletionTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

func (r *openAIRepository) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := r.send(ctx, openai.ChatCompletionRequest{
		Model: r.cfg.OpenAI.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxCompletionTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

func (r *openAIRepository) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := r.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(r.cfg.OpenAI.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (r *openAIRepository) send(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		r.logger.Error("failed to wait for request limit", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenAI response")
	}

	if resp.Usage.TotalTokens > r.cfg.OpenAI.MaxTokenPerMinute/2 {
		r.logger.Warn("Token has exceeded 50% of the limit", logger.IntField("remaining", r.tokenLimiter.GetRemaining()))
	}

	if err := r.tokenLimiter.Wait(ctx, resp.Usage.TotalTokens); err != nil {
		r.logger.Error("failed to wait for token limit", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}

	return &resp, nil
}
