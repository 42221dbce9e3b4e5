package llm

import (
	"fmt"
	"net/http"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider is the OpenAI provider pointed at OpenRouter's
// compatible endpoint, with app attribution headers on every request.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}

	hc := &http.Client{Transport: &attributionTransport{
		base:  http.DefaultTransport,
		title: cfg.AppTitle,
		url:   cfg.AppURL,
	}}
	inner := newOpenAIProviderRaw(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}, hc)
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}

type attributionTransport struct {
	base  http.RoundTripper
	title string
	url   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.title == "" && t.url == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	if t.url != "" {
		req.Header.Set("HTTP-Referer", t.url)
	}
	return t.base.RoundTrip(req)
}
