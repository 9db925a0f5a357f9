package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mojiscan/internal/domain"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIGenerator calls an OpenAI-compatible Chat Completions endpoint with an
// image_url content part.
type OpenAIGenerator struct {
	client      *resty.Client
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
}

// NewOpenAIGenerator creates a generator for any OpenAI-compatible API.
func NewOpenAIGenerator(cfg *Config) *OpenAIGenerator {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeoutOrDefault(cfg.Timeout))

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &OpenAIGenerator{
		client:      client,
		model:       cfg.Model,
		baseURL:     baseURL,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns "openai".
func (g *OpenAIGenerator) Name() string { return string(ProviderOpenAI) }

// Model returns the model name being used.
func (g *OpenAIGenerator) Model() string { return g.model }

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string        `json:"role"`
	Content []interface{} `json:"content"`
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (e *openAIError) message() string {
	if e == nil || e.Error == nil {
		return ""
	}
	return e.Error.Message
}

// Generate sends the prompt and the image as one user message.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - prompt: instruction text.
//   - image: validated image payload, sent as a base64 data URL.
//
// Returns:
//   - string: the first choice's message content.
//   - error: non-nil on transport failure, non-2xx status, refusal or no choices.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, image domain.ImagePayload) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", image.MIMEType(), base64.StdEncoding.EncodeToString(image.Bytes()))

	req := openAIRequest{
		Model: g.model,
		Messages: []openAIMessage{
			{
				Role: "user",
				Content: []interface{}{
					openAITextContent{Type: "text", Text: prompt},
					openAIImageContent{
						Type: "image_url",
						// High detail for small handwritten strokes
						ImageURL: openAIImageURL{URL: dataURL, Detail: "high"},
					},
				},
			},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	var (
		resp   openAIResponse
		apiErr openAIError
	)
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(g.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to call openai API: %w", err)
	}

	if httpResp.IsError() || httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return "", statusError("openai", httpResp.StatusCode(), apiErr.message(), httpResp.Body())
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices (status: %d)", ErrEmptyResponse, httpResp.StatusCode())
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, choice.Message.Refusal)
	}
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: finish_reason=content_filter", ErrBlocked)
	}

	return choice.Message.Content, nil
}

// Verify fetches the model descriptor to prove the key and model are accepted.
func (g *OpenAIGenerator) Verify(ctx context.Context) error {
	var apiErr openAIError
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetError(&apiErr).
		Get(g.baseURL + "/models/" + g.model)
	if err != nil {
		return fmt.Errorf("failed to reach openai API: %w", err)
	}
	if httpResp.IsError() {
		return verifyError("openai", httpResp.StatusCode(), apiErr.message(), httpResp.Body())
	}
	return nil
}
