package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/timmy/mojiscan/internal/domain"
	"github.com/timmy/mojiscan/internal/inference"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errEmptyPrompt = errors.New("prompt is empty")

// TranscriberConfig holds configuration for the transcriber.
type TranscriberConfig struct {
	// CallTimeout bounds each backend call. Zero leaves only the caller's deadline.
	CallTimeout time.Duration
}

// Transcriber turns one (image, prompt) pair into text with a single backend call.
type Transcriber struct {
	generator   inference.Generator
	cache       *ResultCache
	metrics     *observe.Metrics
	logger      *logger.Logger
	callTimeout time.Duration
}

// NewTranscriber creates a new transcriber.
// Parameters:
//   - generator: inference backend client, shared process-wide.
//   - cache: optional result cache; nil disables memoization.
//   - metrics: optional metrics; nil uses observe.DefaultMetrics().
//   - log: logger instance; nil uses the default logger.
//   - cfg: optional settings.
//
// Returns:
//   - *Transcriber: ready for concurrent use.
func NewTranscriber(
	generator inference.Generator,
	cache *ResultCache,
	metrics *observe.Metrics,
	log *logger.Logger,
	cfg *TranscriberConfig,
) *Transcriber {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	t := &Transcriber{
		generator: generator,
		cache:     cache,
		metrics:   metrics,
		logger:    log,
	}
	if cfg != nil {
		t.callTimeout = cfg.CallTimeout
	}
	return t
}

func (t *Transcriber) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil && l != logger.GetDefault() {
		return l
	}
	return t.logger
}

// Transcribe submits prompt and image to the backend and returns the trimmed text.
// An empty result is a legitimate transcription; every failure is a
// *domain.TranscriptionError.
func (t *Transcriber) Transcribe(ctx context.Context, image domain.ImagePayload, variant domain.PromptVariant, prompt string) (string, error) {
	text, _, err := t.transcribe(ctx, image, variant, prompt)
	return text, err
}

// transcribe also reports whether the text was served from the cache.
func (t *Transcriber) transcribe(ctx context.Context, image domain.ImagePayload, variant domain.PromptVariant, prompt string) (string, bool, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", false, domain.NewTranscriptionError(variant, errEmptyPrompt)
	}
	if image.IsZero() {
		return "", false, domain.NewTranscriptionError(variant, domain.ErrEmptyImage)
	}

	ctx, span := observe.StartSpan(ctx, "transcribe."+variant.String(),
		trace.WithAttributes(
			attribute.String("provider", t.generator.Name()),
			attribute.String("model", t.generator.Model()),
			attribute.String("image_id", image.ShortID()),
		),
	)

	compute := func(ctx context.Context) (string, error) {
		return t.call(ctx, image, variant, prompt)
	}

	var (
		text string
		hit  bool
		err  error
	)
	if t.cache != nil {
		key := NewCacheKey(image.ID(), t.generator.Name()+"/"+t.generator.Model(), prompt)
		text, hit, err = t.cache.GetOrCompute(ctx, key, compute)
		t.metrics.RecordCacheLookup(ctx, hit)
	} else {
		text, err = compute(ctx)
	}
	span.SetAttributes(attribute.Bool("cache_hit", hit))
	observe.EndSpan(span, err)

	if err != nil {
		return "", false, domain.NewTranscriptionError(variant, err)
	}
	if hit {
		t.log(ctx).WithFields(logger.Fields{
			logger.FieldVariant: variant.String(),
			logger.FieldImageID: image.ShortID(),
		}).Debug("Transcription served from cache")
	}
	return text, hit, nil
}

// call makes exactly one backend request.
func (t *Transcriber) call(ctx context.Context, image domain.ImagePayload, variant domain.PromptVariant, prompt string) (string, error) {
	if t.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.callTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := t.generator.Generate(ctx, prompt, image)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	t.metrics.RecordBackendCall(ctx, t.generator.Name(), variant.String(), status, elapsed.Seconds())

	fields := logger.Fields{
		logger.FieldVariant:    variant.String(),
		logger.FieldProvider:   t.generator.Name(),
		logger.FieldModel:      t.generator.Model(),
		logger.FieldImageID:    image.ShortID(),
		logger.FieldDurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		t.log(ctx).WithFields(fields).WithError(err).Warn("Backend transcription call failed")
		return "", err
	}

	text := strings.TrimSpace(raw)
	fields[logger.FieldSize] = len(text)
	t.log(ctx).WithFields(fields).Debug("Backend transcription call succeeded")
	return text, nil
}
