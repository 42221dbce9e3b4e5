package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// geminiModels maps friendly names to Gemini model IDs.
var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.5-flash",
	"gemini-pro":   "gemini-2.5-pro",
}

// GeminiProvider implements Provider using the Google Gemini SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  resolveModel(cfg.Model, geminiModels),
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
	}

	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, buildGeminiContents(req.Messages), config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	text := result.Text()
	if text == "" {
		return nil, &ErrInvalidResponse{
			Err: fmt.Errorf("no text content in Gemini response"),
		}
	}

	resp := &Response{
		Text:       text,
		Model:      p.model,
		StopReason: mapGeminiStopReason(result),
	}

	if result.UsageMetadata != nil {
		resp.Usage = Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(result.UsageMetadata.TotalTokenCount),
		}
	}

	return resp, nil
}

func (p *GeminiProvider) ModelID() string {
	return p.model
}

func buildGeminiContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, len(msgs))
	for i, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out[i] = &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		}
	}
	return out
}

func mapGeminiStopReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) > 0 && result.Candidates[0].FinishReason == "MAX_TOKENS" {
		return "max_tokens"
	}
	return "end"
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyGeminiError(apiErr.Code, apiErr.Status, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyGeminiError(apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message, err)
	}
	return classifyHTTPError(0, "", err)
}

// classifyGeminiError treats RESOURCE_EXHAUSTED responses that mention
// quota as quota exhaustion rather than ordinary rate limiting.
func classifyGeminiError(code int, status, message string, err error) error {
	if code == http.StatusTooManyRequests && status == "RESOURCE_EXHAUSTED" &&
		strings.Contains(strings.ToLower(message), "quota") &&
		!strings.Contains(strings.ToLower(message), "per minute") {
		return &ErrQuotaExhausted{Err: err}
	}
	return classifyHTTPError(code, message, err)
}
