package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, name string, w, h int) string {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestPrepare_ShrinksLargeJPEG(t *testing.T) {
	path := writeTestImage(t, "scrap.jpeg", 800, 400)

	out, err := Prepare(path, Options{MaxDimension: 200})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.MimeType)
	assert.Equal(t, "scrap.jpg", out.Filename)
	assert.Equal(t, 200, out.Width)
	assert.Equal(t, 100, out.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), decoded.Bounds())
}

func TestPrepare_KeepsSmallImageSize(t *testing.T) {
	path := writeTestImage(t, "small.jpg", 120, 80)

	out, err := Prepare(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 120, out.Width)
	assert.Equal(t, 80, out.Height)
}

func TestPrepare_PNGStaysPNG(t *testing.T) {
	path := writeTestImage(t, "scrap.png", 300, 600)

	out, err := Prepare(path, Options{MaxDimension: 150})
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MimeType)
	assert.Equal(t, "scrap.png", out.Filename)

	decoded, err := png.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(75, 150), decoded.Bounds().Size())
}

func TestPrepare_Errors(t *testing.T) {
	_, err := Prepare(filepath.Join(t.TempDir(), "missing.jpg"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(t.TempDir(), "garbage.jpg")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o600))
	_, err = Prepare(garbage, Options{})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSniff(t *testing.T) {
	ct, err := Sniff(writeTestImage(t, "a.png", 10, 10))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	text := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello world"), 0o600))
	_, err = Sniff(text)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestBounds(t *testing.T) {
	size, err := Bounds(writeTestImage(t, "b.jpg", 64, 32))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 32), size)
}
