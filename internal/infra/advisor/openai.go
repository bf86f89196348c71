package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/resilience/circuitbreaker"
	"jules-backend/internal/resilience/retry"
	"jules-backend/pkg/config"
)

const (
	opOutfit  = "fit_check"
	opProfile = "profile_pic_review"
	opReply   = "chat_reply"

	outfitPrompt = `You are Jules, a candid personal stylist. Review the outfit the user describes or shows.
Respond with a JSON object {"rating": <integer 1-10>, "feedback": "<three sentences at most>"}.`
	profilePrompt = `You are Jules, a dating-profile coach. Review the profile picture the user describes or shows.
Respond with a JSON object {"rating": <integer 1-10>, "feedback": "<three sentences at most>"}.`
	chatPrompt = `You are Jules, a friendly style and dating coach. Keep replies short and specific.`

	// maxHistory bounds the turns sent with a chat reply request.
	maxHistory = 20
)

// OpenAIConfig configures the OpenAI-backed advisor.
type OpenAIConfig struct {
	Model     string
	MaxTokens int
	// Timeout bounds a single call including retries.
	Timeout time.Duration
	Retry   retry.Config
}

// LoadOpenAIConfig reads OPENAI_MODEL, OPENAI_MAX_TOKENS and OPENAI_TIMEOUT.
func LoadOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:     config.GetEnvString("OPENAI_MODEL", openai.GPT4oMini),
		MaxTokens: config.GetEnvInt("OPENAI_MAX_TOKENS", 400),
		Timeout:   config.GetEnvDuration("OPENAI_TIMEOUT", 45*time.Second),
		Retry:     retry.AIAPIConfig(),
	}
}

func (c OpenAIConfig) Validate() error {
	if c.Model == "" {
		return errors.New("model cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// OpenAI implements Advisor with the Chat Completions API behind a circuit
// breaker and retry with backoff.
type OpenAI struct {
	client  *openai.Client
	breaker *circuitbreaker.CircuitBreaker
	cfg     OpenAIConfig
	metrics MetricsRecorder
	logger  *slog.Logger
}

// NewOpenAI builds an advisor using the public API endpoint.
func NewOpenAI(apiKey string, cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	return NewOpenAIWithClientConfig(openai.DefaultConfig(apiKey), cfg, logger)
}

// NewOpenAIWithClientConfig allows pointing the client at another base URL.
func NewOpenAIWithClientConfig(clientCfg openai.ClientConfig, cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		breaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		cfg:     cfg,
		metrics: NewPrometheusMetrics(),
		logger:  logger,
	}
}

// Breaker exposes the API circuit breaker for health reporting.
func (o *OpenAI) Breaker() *circuitbreaker.CircuitBreaker { return o.breaker }

// WithMetrics replaces the metrics recorder.
func (o *OpenAI) WithMetrics(m MetricsRecorder) *OpenAI {
	o.metrics = m
	return o
}

func (o *OpenAI) ReviewOutfit(ctx context.Context, req ReviewRequest) (*Review, error) {
	return o.review(ctx, opOutfit, outfitPrompt, req)
}

func (o *OpenAI) ReviewProfilePicture(ctx context.Context, req ReviewRequest) (*Review, error) {
	return o.review(ctx, opProfile, profilePrompt, req)
}

func (o *OpenAI) Reply(ctx context.Context, history []entity.Message) (string, error) {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: chatPrompt})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == entity.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return o.complete(ctx, opReply, openai.ChatCompletionRequest{
		Model:     o.cfg.Model,
		MaxTokens: o.cfg.MaxTokens,
		Messages:  msgs,
	})
}

func (o *OpenAI) review(ctx context.Context, op, prompt string, req ReviewRequest) (*Review, error) {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: reviewText(req.Context),
	}}
	if req.ImageURL != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: req.ImageURL, Detail: openai.ImageURLDetailLow},
		})
	}

	raw, err := o.complete(ctx, op, openai.ChatCompletionRequest{
		Model:     o.cfg.Model,
		MaxTokens: o.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, err
	}

	var rv Review
	if err := json.Unmarshal([]byte(raw), &rv); err != nil {
		return nil, fmt.Errorf("decode %s review: %w", op, err)
	}
	rv.Rating = clampRating(rv.Rating)
	rv.Feedback = strings.TrimSpace(rv.Feedback)
	if rv.Feedback == "" {
		return nil, fmt.Errorf("decode %s review: empty feedback", op)
	}
	return &rv, nil
}

func reviewText(context string) string {
	context = strings.TrimSpace(context)
	if context == "" {
		return "No extra context."
	}
	return "Context: " + context
}

// complete runs one chat completion through retry and the circuit breaker.
func (o *OpenAI) complete(ctx context.Context, op string, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	start := time.Now()
	var out string
	err := retry.WithBackoff(ctx, o.cfg.Retry, func() error {
		res, err := circuitbreaker.Do(o.breaker, func() (string, error) {
			return o.doComplete(ctx, req)
		})
		if circuitbreaker.Rejected(err) {
			o.logger.Warn("advisor circuit breaker open, request rejected",
				slog.String("operation", op),
				slog.String("state", o.breaker.State().String()))
			return ErrUnavailable
		}
		out = res
		return err
	})
	o.metrics.RecordRequest(op, time.Since(start), err)

	if err != nil {
		o.logger.ErrorContext(ctx, "advisor request failed",
			slog.String("operation", op),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (o *OpenAI) doComplete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai api error: %w", &retry.HTTPError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message})
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", fmt.Errorf("openai request error: %w", &retry.HTTPError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()})
		}
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai api returned empty response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai api returned empty content")
	}
	return content, nil
}
