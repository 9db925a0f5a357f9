package inference

import (
	"context"
	"errors"

	"github.com/timmy/mojiscan/internal/domain"
)

var (
	// ErrEmptyResponse is returned when the backend answers without any candidate text.
	ErrEmptyResponse = errors.New("empty response from inference backend")

	// ErrBlocked is returned when the backend refuses the prompt or withholds the output.
	ErrBlocked = errors.New("response blocked by inference backend")
)

// Generator defines the interface for a hosted multimodal model
type Generator interface {
	// Generate submits one instruction and one image as a single request and
	// returns the model's text as received (untrimmed).
	Generate(ctx context.Context, prompt string, image domain.ImagePayload) (string, error)

	// Verify checks that the credential and model are accepted by the backend
	Verify(ctx context.Context) error

	// Name returns the provider name (gemini, openai)
	Name() string

	// Model returns the model identifier requests are sent to
	Model() string
}
