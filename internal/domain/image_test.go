package domain

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int, fill color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestNewImagePayload(t *testing.T) {
	pngData := encodePNG(t, 4, 3, color.White)
	jpegData := encodeJPEG(t, 2, 2)

	tests := []struct {
		name       string
		data       []byte
		allowed    []string
		wantErr    error
		wantFormat string
		wantMIME   string
	}{
		{name: "png", data: pngData, wantFormat: "png", wantMIME: "image/png"},
		{name: "jpeg", data: jpegData, wantFormat: "jpeg", wantMIME: "image/jpeg"},
		{name: "jpg alias in allowed list", data: jpegData, allowed: []string{"jpg"}, wantFormat: "jpeg", wantMIME: "image/jpeg"},
		{name: "empty", data: nil, wantErr: ErrEmptyImage},
		{name: "garbage", data: []byte("not an image at all"), wantErr: ErrUnsupportedImage},
		{name: "format not allowed", data: pngData, allowed: []string{"jpeg"}, wantErr: ErrUnsupportedImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewImagePayload(tt.data, tt.allowed...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if !p.IsZero() {
					t.Error("expected zero payload on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Format() != tt.wantFormat {
				t.Errorf("expected format %q, got %q", tt.wantFormat, p.Format())
			}
			if p.MIMEType() != tt.wantMIME {
				t.Errorf("expected MIME %q, got %q", tt.wantMIME, p.MIMEType())
			}
			if len(p.ID()) != 64 {
				t.Errorf("expected 64-char hex id, got %d chars", len(p.ID()))
			}
			if p.Size() != len(tt.data) {
				t.Errorf("expected size %d, got %d", len(tt.data), p.Size())
			}
		})
	}
}

func TestImagePayloadIdentityFollowsContent(t *testing.T) {
	white := encodePNG(t, 4, 4, color.White)
	black := encodePNG(t, 4, 4, color.Black)

	a, err := NewImagePayload(white)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewImagePayload(append([]byte(nil), white...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := NewImagePayload(black)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.ID() != b.ID() {
		t.Errorf("same bytes should share an id: %s != %s", a.ID(), b.ID())
	}
	if a.ID() == c.ID() {
		t.Errorf("different bytes should have different ids: %s", a.ID())
	}
}

func TestImagePayloadIsImmutable(t *testing.T) {
	data := encodePNG(t, 2, 2, color.White)
	p, err := NewImagePayload(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := p.ID()

	data[0] ^= 0xFF
	out := p.Bytes()
	out[1] ^= 0xFF

	if p.Bytes()[0] == data[0] {
		t.Error("payload observed a mutation of the caller's slice")
	}
	if p.Bytes()[1] == out[1] {
		t.Error("payload observed a mutation of a returned copy")
	}
	if p.ID() != id {
		t.Error("payload id changed")
	}
	if w, h := p.Dimensions(); w != 2 || h != 2 {
		t.Errorf("expected 2x2, got %dx%d", w, h)
	}
}

func TestTranscriptionErrorUnwrap(t *testing.T) {
	cause := errors.New("HTTP 503: overloaded")
	err := error(NewTranscriptionError(PromptVariantAlt, cause))

	if !errors.Is(err, ErrTranscription) {
		t.Error("expected errors.Is(err, ErrTranscription)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is(err, cause)")
	}
	var te *TranscriptionError
	if !errors.As(err, &te) || te.Variant != PromptVariantAlt {
		t.Errorf("expected TranscriptionError for variant, got %v", err)
	}
	if got, want := err.Error(), "variant transcription failed: HTTP 503: overloaded"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
