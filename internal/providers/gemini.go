package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Provider on the Gemini API through the genai SDK.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
	retryConfig  RetryConfig
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, defaultModel: model, retryConfig: DefaultRetryConfig()}, nil
}

func (p *GeminiProvider) Name() string         { return "gemini" }
func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	system, convo := splitSystem(req.Messages)
	contents := make([]*genai.Content, 0, len(convo))
	for _, m := range convo {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if v, ok := optFloat(req.Options, OptTemperature); ok {
		t := float32(v)
		cfg.Temperature = &t
	}
	if v, ok := optInt(req.Options, OptMaxTokens); ok {
		cfg.MaxOutputTokens = int32(v)
	}

	resp, err := RetryDo(ctx, p.retryConfig, func() (*genai.GenerateContentResponse, error) {
		r, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &HTTPError{Status: apiErr.Code, Body: "gemini: " + apiErr.Message}
		}
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	result := &ChatResponse{FinishReason: "stop"}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		cand := resp.Candidates[0]
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
		result.Content = sb.String()
		if cand.FinishReason == genai.FinishReasonMaxTokens {
			result.FinishReason = "length"
		}
	}
	if u := resp.UsageMetadata; u != nil {
		result.Usage = &Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return result, nil
}
