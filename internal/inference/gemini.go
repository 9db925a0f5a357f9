package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mojiscan/internal/domain"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiGenerator calls the Gemini generateContent REST endpoint with an inline image part.
type GeminiGenerator struct {
	client      *resty.Client
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
}

// NewGeminiGenerator creates a Gemini generator.
func NewGeminiGenerator(cfg *Config) *GeminiGenerator {
	client := resty.New()
	client.SetHeader("x-goog-api-key", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeoutOrDefault(cfg.Timeout))

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &GeminiGenerator{
		client:      client,
		model:       strings.TrimPrefix(cfg.Model, "models/"),
		baseURL:     baseURL,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns "gemini".
func (g *GeminiGenerator) Name() string { return string(ProviderGemini) }

// Model returns the model name being used.
func (g *GeminiGenerator) Model() string { return g.model }

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (e *geminiError) message() string {
	if e == nil || e.Error == nil {
		return ""
	}
	if e.Error.Status != "" {
		return e.Error.Status + ": " + e.Error.Message
	}
	return e.Error.Message
}

// finish reasons that mean the candidate text was withheld
var geminiBlockedFinish = map[string]bool{
	"SAFETY":             true,
	"RECITATION":         true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
	"IMAGE_SAFETY":       true,
}

// Generate sends [prompt, image] as one user turn.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - prompt: instruction text.
//   - image: validated image payload, sent inline as base64.
//
// Returns:
//   - string: concatenated text parts of the first candidate.
//   - error: non-nil on transport failure, non-2xx status, blocked prompt or no candidates.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, image domain.ImagePayload) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{Text: prompt},
					{InlineData: &geminiBlob{
						MimeType: image.MIMEType(),
						Data:     base64.StdEncoding.EncodeToString(image.Bytes()),
					}},
				},
			},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     g.temperature,
			MaxOutputTokens: g.maxTokens,
		},
	}

	var (
		resp   geminiResponse
		apiErr geminiError
	)
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model))
	if err != nil {
		return "", fmt.Errorf("failed to call gemini API: %w", err)
	}

	if httpResp.IsError() || httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return "", statusError("gemini", httpResp.StatusCode(), apiErr.message(), httpResp.Body())
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", ErrBlocked, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: no candidates (status: %d)", ErrEmptyResponse, httpResp.StatusCode())
	}

	candidate := resp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		if geminiBlockedFinish[candidate.FinishReason] {
			return "", fmt.Errorf("%w: finishReason=%s", ErrBlocked, candidate.FinishReason)
		}
		return "", fmt.Errorf("%w: candidate has no parts (finishReason=%s)", ErrEmptyResponse, candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// Verify fetches the model resource to prove the key and model are accepted.
func (g *GeminiGenerator) Verify(ctx context.Context) error {
	var apiErr geminiError
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetError(&apiErr).
		Get(fmt.Sprintf("%s/models/%s", g.baseURL, g.model))
	if err != nil {
		return fmt.Errorf("failed to reach gemini API: %w", err)
	}
	if httpResp.IsError() {
		return verifyError("gemini", httpResp.StatusCode(), apiErr.message(), httpResp.Body())
	}
	return nil
}
