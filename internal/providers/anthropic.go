package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultClaudeModel     = "claude-3-5-haiku-latest"
	defaultClaudeMaxTokens = 1024
)

// AnthropicProvider implements Provider on the Anthropic Messages API.
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
}

type AnthropicOption func(*anthropicSettings)

type anthropicSettings struct {
	model   string
	baseURL string
	retries int
}

func WithAnthropicModel(model string) AnthropicOption {
	return func(s *anthropicSettings) {
		if model != "" {
			s.model = model
		}
	}
}

func WithAnthropicBaseURL(baseURL string) AnthropicOption {
	return func(s *anthropicSettings) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithAnthropicRetries(n int) AnthropicOption {
	return func(s *anthropicSettings) { s.retries = n }
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	s := anthropicSettings{model: defaultClaudeModel, retries: DefaultRetryConfig().Attempts - 1}
	for _, o := range opts {
		o(&s)
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(s.retries)}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(reqOpts...),
		defaultModel: s.model,
	}
}

func (p *AnthropicProvider) Name() string         { return "anthropic" }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	system, convo := splitSystem(req.Messages)
	var messages []anthropic.MessageParam
	for _, m := range convo {
		switch m.Role {
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(defaultClaudeMaxTokens)
	if v, ok := optInt(req.Options, OptMaxTokens); ok && v > 0 {
		maxTokens = int64(v)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if v, ok := optFloat(req.Options, OptTemperature); ok {
		// Anthropic caps temperature at 1.0.
		params.Temperature = anthropic.Float(min(v, 1.0))
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &HTTPError{Status: apiErr.StatusCode, Body: "anthropic: " + apiErr.Error()}
		}
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}

	finish := "stop"
	if msg.StopReason == anthropic.StopReasonMaxTokens {
		finish = "length"
	}
	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return &ChatResponse{
		Content:      sb.String(),
		FinishReason: finish,
		Usage:        &Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}, nil
}
