package extraction

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ProviderConfig selects and configures a VisionClient.
type ProviderConfig struct {
	Provider      string // "openai", "bedrock" or "gemini"
	Model         string
	MaxTokens     int
	OpenAIBaseURL string
	OpenAIAPIKey  string
	BedrockRegion string
	GeminiAPIKey  string
}

// NewVisionClient builds the VisionClient named by cfg.Provider.
func NewVisionClient(ctx context.Context, cfg ProviderConfig) (VisionClient, error) {
	var (
		client VisionClient
		err    error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		client, err = NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model, cfg.MaxTokens, &http.Client{})
	case "bedrock":
		client, err = NewBedrockClient(ctx, cfg.BedrockRegion, cfg.Model, cfg.MaxTokens)
	case "gemini":
		client, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unsupported extraction provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
