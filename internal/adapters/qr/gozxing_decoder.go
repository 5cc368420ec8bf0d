package qr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/core"
)

// DefaultMaxImagePixels bounds the decoded image size when no limit is configured
const DefaultMaxImagePixels = 16_000_000

// GozxingDecoder implements core.QRDecoder using the gozxing QR reader
type GozxingDecoder struct {
	maxBytes  int64
	maxPixels int64
	logger    *zap.Logger
}

// NewGozxingDecoder creates a decoder. Uploads larger than maxBytes and images whose
// declared width*height exceeds maxPixels are rejected before any pixel data is decoded.
// maxBytes <= 0 disables the byte limit; maxPixels <= 0 uses DefaultMaxImagePixels.
func NewGozxingDecoder(maxBytes, maxPixels int64, logger *zap.Logger) *GozxingDecoder {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}
	return &GozxingDecoder{maxBytes: maxBytes, maxPixels: maxPixels, logger: logger}
}

// Decode implements core.QRDecoder
func (d *GozxingDecoder) Decode(r io.Reader) (string, error) {
	if d.maxBytes > 0 {
		r = io.LimitReader(r, d.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecodeFailed, err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return "", fmt.Errorf("%w: image exceeds %d bytes", core.ErrDecodeFailed, d.maxBytes)
	}

	// Only the header is read here; pixel buffers are sized from these dimensions
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecodeFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > d.maxPixels {
		d.logger.Debug("Rejecting QR image by dimensions",
			zap.String("format", format),
			zap.Int("width", cfg.Width),
			zap.Int("height", cfg.Height),
			zap.Int64("max_pixels", d.maxPixels))
		return "", fmt.Errorf("%w: image is %dx%d, limit is %d pixels", core.ErrDecodeFailed, cfg.Width, cfg.Height, d.maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecodeFailed, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecodeFailed, err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		d.logger.Debug("No QR code found in image",
			zap.String("format", format),
			zap.Error(err))
		return "", core.ErrNoPayload
	}

	text := result.GetText()
	if strings.TrimSpace(text) == "" {
		return "", core.ErrNoPayload
	}
	return text, nil
}
