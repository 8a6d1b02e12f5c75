// Package media compresses trade screenshots so they fit a byte budget.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Registered decoders for screenshots pasted from charting tools.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	errs "zellax/internal/errors"
)

// ContentType of every compressed image.
const ContentType = "image/jpeg"

// Options bounds the compression search.
type Options struct {
	MaxBytes     int
	MaxDimension int
	MinQuality   int
}

// Result is a compressed image together with the settings that produced it.
type Result struct {
	Data    []byte
	Width   int
	Height  int
	Quality int
	Passes  int
}

const (
	startQuality = 90
	qualityStep  = 10
	scaleStep    = 0.8
	minDimension = 64

	// maxAreaFactor bounds the decoded pixel count to this many times the
	// area of the target square.
	maxAreaFactor = 16
	// defaultMaxPixels applies when no MaxDimension is set.
	defaultMaxPixels = 8192 * 8192
)

// maxPixels is the largest width*height Compress will decode.
func maxPixels(maxDim int) int64 {
	if maxDim <= 0 {
		return defaultMaxPixels
	}
	return int64(maxDim) * int64(maxDim) * maxAreaFactor
}

// Compress decodes a JPEG, PNG or GIF and re-encodes it as JPEG, lowering the
// quality first and then the resolution until the output fits MaxBytes.
// Images whose header declares more than MaxDimension²×16 pixels are rejected
// before any pixel data is decoded.
func Compress(raw []byte, opts Options) (*Result, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsupportedImage, err)
	}
	if limit := maxPixels(opts.MaxDimension); int64(cfg.Width)*int64(cfg.Height) > limit {
		return nil, fmt.Errorf("%w: %s image of %dx%d exceeds %d pixels", errs.ErrUnsupportedImage, format, cfg.Width, cfg.Height, limit)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsupportedImage, err)
	}

	img := fit(src, opts.MaxDimension)
	minQuality := opts.MinQuality
	if minQuality < 1 || minQuality > startQuality {
		minQuality = startQuality
	}

	passes := 0
	for {
		for q := startQuality; q >= minQuality; q -= qualityStep {
			passes++
			data, err := encode(img, q)
			if err != nil {
				return nil, err
			}
			if len(data) <= opts.MaxBytes {
				b := img.Bounds()
				return &Result{Data: data, Width: b.Dx(), Height: b.Dy(), Quality: q, Passes: passes}, nil
			}
		}

		b := img.Bounds()
		w, h := int(float64(b.Dx())*scaleStep), int(float64(b.Dy())*scaleStep)
		if w < minDimension || h < minDimension {
			return nil, fmt.Errorf("%w: %s image of %d bytes does not fit %d bytes", errs.ErrImageTooLarge, format, len(raw), opts.MaxBytes)
		}
		img = scale(img, w, h)
	}
}

// fit shrinks img so that its longest edge is at most maxDim, keeping the
// aspect ratio.
func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	if w >= h {
		return scale(img, maxDim, max(1, h*maxDim/w))
	}
	return scale(img, max(1, w*maxDim/h), maxDim)
}

func scale(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
