package media

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "zellax/internal/errors"
)

// noisePNG returns a PNG of random pixels, which JPEG compresses poorly.
func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func flatPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{20, 120, 200, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressSmallImageFirstPass(t *testing.T) {
	res, err := Compress(flatPNG(t, 320, 200), Options{MaxBytes: 1 << 20, MaxDimension: 2048, MinQuality: 40})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, startQuality, res.Quality)
	assert.Equal(t, 320, res.Width)
	assert.Equal(t, 200, res.Height)

	_, format, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestCompressFitsBudget(t *testing.T) {
	const budget = 30 * 1024
	res, err := Compress(noisePNG(t, 600, 400), Options{MaxBytes: budget, MaxDimension: 2048, MinQuality: 40})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Data), budget)
	assert.Less(t, res.Width, 600)
	assert.Greater(t, res.Passes, 1)
	// Aspect ratio survives downscaling.
	assert.InDelta(t, 1.5, float64(res.Width)/float64(res.Height), 0.05)
}

func TestCompressClampsDimension(t *testing.T) {
	res, err := Compress(flatPNG(t, 800, 200), Options{MaxBytes: 1 << 20, MaxDimension: 400, MinQuality: 40})
	require.NoError(t, err)
	assert.Equal(t, 400, res.Width)
	assert.Equal(t, 100, res.Height)
}

func TestCompressGivesUp(t *testing.T) {
	_, err := Compress(noisePNG(t, 200, 200), Options{MaxBytes: 100, MaxDimension: 2048, MinQuality: 40})
	assert.ErrorIs(t, err, errs.ErrImageTooLarge)
}

func TestCompressRejectsUnknownFormat(t *testing.T) {
	_, err := Compress([]byte("not an image"), Options{MaxBytes: 1024, MaxDimension: 64, MinQuality: 40})
	assert.ErrorIs(t, err, errs.ErrUnsupportedImage)
}

// withDeclaredSize rewrites the IHDR dimensions of a PNG without touching its
// pixel data, so only the header claims the new size.
func withDeclaredSize(t *testing.T, pngData []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), pngData...)
	// 8 byte signature, 4 byte length, then "IHDR" and its 13 byte body.
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestCompressRejectsOversizedPixelCount(t *testing.T) {
	// 200x200 is 40000 pixels against a 16*16*16 = 4096 pixel bound.
	_, err := Compress(flatPNG(t, 200, 200), Options{MaxBytes: 1 << 20, MaxDimension: 16, MinQuality: 40})
	assert.ErrorIs(t, err, errs.ErrUnsupportedImage)
	assert.Contains(t, err.Error(), "exceeds 4096 pixels")

	_, err = Compress(flatPNG(t, 64, 64), Options{MaxBytes: 1 << 20, MaxDimension: 16, MinQuality: 40})
	assert.NoError(t, err)
}

func TestCompressRejectsDeclaredSizeBeforeDecoding(t *testing.T) {
	forged := withDeclaredSize(t, flatPNG(t, 8, 8), 100000, 100000)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(forged))
	require.NoError(t, err)
	require.Equal(t, 100000, cfg.Width)

	for _, maxDim := range []int{0, 2048} {
		assert.NotPanics(t, func() {
			_, err = Compress(forged, Options{MaxBytes: 1 << 20, MaxDimension: maxDim, MinQuality: 40})
		})
		assert.ErrorIs(t, err, errs.ErrUnsupportedImage)
		assert.Contains(t, err.Error(), "100000x100000")
	}
}
