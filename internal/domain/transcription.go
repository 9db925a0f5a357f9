package domain

import (
	"errors"
	"fmt"
)

// PromptVariant identifies which instruction a transcription call was made with.
type PromptVariant int

const (
	PromptBase PromptVariant = iota
	PromptVariantAlt
	PromptArbitration
)

// String returns the lowercase variant name used in logs, metrics and JSON.
func (v PromptVariant) String() string {
	switch v {
	case PromptBase:
		return "base"
	case PromptVariantAlt:
		return "variant"
	case PromptArbitration:
		return "arbitration"
	default:
		return "unknown"
	}
}

var (
	// ErrConfiguration marks a missing or invalid setup value, such as an absent API credential.
	// It is fatal at startup.
	ErrConfiguration = errors.New("configuration failure")

	// ErrTranscription marks a failed call to the inference backend.
	ErrTranscription = errors.New("transcription failure")
)

// TranscriptionError is the single failure type of a transcription call.
// It carries the prompt variant and the underlying cause for display.
type TranscriptionError struct {
	Variant PromptVariant
	Cause   error
}

// NewTranscriptionError wraps cause as a TranscriptionError for variant.
func NewTranscriptionError(variant PromptVariant, cause error) *TranscriptionError {
	return &TranscriptionError{Variant: variant, Cause: cause}
}

func (e *TranscriptionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s transcription failed", e.Variant)
	}
	return fmt.Sprintf("%s transcription failed: %v", e.Variant, e.Cause)
}

// Unwrap exposes both the ErrTranscription sentinel and the cause.
func (e *TranscriptionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrTranscription}
	}
	return []error{ErrTranscription, e.Cause}
}
