package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/timmy/mojiscan/internal/domain"
	"github.com/timmy/mojiscan/internal/inference/mock"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/observe"
	"go.opentelemetry.io/otel/metric/noop"
)

func testImage(t *testing.T, shade uint8) domain.ImagePayload {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	img.SetGray(0, 0, color.Gray{Y: shade ^ 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	payload, err := domain.NewImagePayload(buf.Bytes())
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	return payload
}

func quietLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Output: io.Discard})
}

func noopMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newTestTranscriber(t *testing.T, gen *mock.Generator, cache *ResultCache, cfg *TranscriberConfig) *Transcriber {
	t.Helper()
	return NewTranscriber(gen, cache, noopMetrics(t), quietLogger(), cfg)
}
