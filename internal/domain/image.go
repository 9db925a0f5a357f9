package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyImage is returned when an upload carries no bytes.
	ErrEmptyImage = errors.New("image is empty")

	// ErrUnsupportedImage is returned when the bytes are not a decodable raster
	// image in one of the accepted formats.
	ErrUnsupportedImage = errors.New("unsupported image")
)

// DefaultImageFormats lists the raster formats accepted when no explicit set is configured.
var DefaultImageFormats = []string{"png", "jpeg"}

// ImagePayload is an uploaded image together with its content-derived identity.
// The zero value is not a valid payload; use NewImagePayload.
type ImagePayload struct {
	data   []byte
	id     string
	format string
	width  int
	height int
}

// NewImagePayload validates raw upload bytes and captures them as an immutable payload.
// Parameters:
//   - data: raw image bytes; copied, so later changes by the caller are not observed.
//   - allowed: accepted format names (png, jpeg, webp); empty uses DefaultImageFormats.
//
// Returns:
//   - ImagePayload: the captured payload.
//   - error: ErrEmptyImage or ErrUnsupportedImage (wrapped with the decoder cause).
func NewImagePayload(data []byte, allowed ...string) (ImagePayload, error) {
	if len(data) == 0 {
		return ImagePayload{}, ErrEmptyImage
	}
	if len(allowed) == 0 {
		allowed = DefaultImageFormats
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImagePayload{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if !formatAllowed(format, allowed) {
		return ImagePayload{}, fmt.Errorf("%w: format %q not accepted (allowed: %s)",
			ErrUnsupportedImage, format, strings.Join(allowed, ", "))
	}

	owned := make([]byte, len(data))
	copy(owned, data)
	sum := sha256.Sum256(owned)

	return ImagePayload{
		data:   owned,
		id:     hex.EncodeToString(sum[:]),
		format: format,
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

func formatAllowed(format string, allowed []string) bool {
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "jpg" {
			a = "jpeg"
		}
		if a == format {
			return true
		}
	}
	return false
}

// ID returns the hex SHA-256 of the image bytes.
func (p ImagePayload) ID() string { return p.id }

// Format returns the detected format name (png, jpeg, webp).
func (p ImagePayload) Format() string { return p.format }

// Size returns the payload length in bytes.
func (p ImagePayload) Size() int { return len(p.data) }

// Dimensions returns the decoded width and height.
func (p ImagePayload) Dimensions() (int, int) { return p.width, p.height }

// IsZero reports whether the payload was not built by NewImagePayload.
func (p ImagePayload) IsZero() bool { return len(p.data) == 0 }

// Bytes returns a copy of the image bytes.
func (p ImagePayload) Bytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// MIMEType returns the media type matching the detected format.
func (p ImagePayload) MIMEType() string {
	switch p.format {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// ShortID returns the first 12 hex characters of ID, for log lines.
func (p ImagePayload) ShortID() string {
	if len(p.id) > 12 {
		return p.id[:12]
	}
	return p.id
}
