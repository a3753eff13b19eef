package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicConfig defines configuration options for the Anthropic assistant.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Logger      zerolog.Logger
}

// AnthropicAssistant implements Assistant against the Anthropic Messages API.
type AnthropicAssistant struct {
	client anthropic.Client
	cfg    AnthropicConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewAnthropicAssistant builds a new assistant using the provided configuration.
func NewAnthropicAssistant(cfg AnthropicConfig) (*AnthropicAssistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL), option.WithMaxRetries(0))
	}

	return &AnthropicAssistant{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/codequest-api/pkg/ai/anthropic"),
		logger: cfg.Logger.With().Str("component", "anthropic_assistant").Logger(),
	}, nil
}

// Ask sends the learner question to Anthropic and joins the text blocks of the reply.
func (a *AnthropicAssistant) Ask(parent context.Context, request AssistantRequest) (AssistantReply, error) {
	ctx, span := a.tracer.Start(parent, "anthropic.ask", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.cfg.Model),
		MaxTokens:   int64(a.cfg.MaxTokens),
		Temperature: anthropic.Float(a.cfg.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: assistantSystemPrompt()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildAssistantPrompt(request))),
		},
	})
	assistantDuration.WithLabelValues(ProviderAnthropic, a.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return AssistantReply{}, a.fail(span, fmt.Errorf("anthropic ask: %w", err))
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}

	answer := strings.TrimSpace(strings.Join(parts, ""))
	if answer == "" {
		return AssistantReply{}, a.fail(span, fmt.Errorf("anthropic response contained no text"))
	}

	a.logger.Debug().
		Int64("input_tokens", msg.Usage.InputTokens).
		Int64("output_tokens", msg.Usage.OutputTokens).
		Msg("anthropic answer received")

	return AssistantReply{Answer: answer, Provider: ProviderAnthropic, Model: a.cfg.Model}, nil
}

func (a *AnthropicAssistant) fail(span trace.Span, err error) error {
	assistantFailures.WithLabelValues(ProviderAnthropic, a.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
