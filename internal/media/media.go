// Package media prepares local photos for upload as order images.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	DefaultMaxDimension = 1600
	DefaultJPEGQuality  = 80
)

var (
	ErrUnsupportedFormat = errors.New("media: unsupported image format")
	ErrDecode            = errors.New("media: cannot decode image")
)

// Options controls re-encoding.
type Options struct {
	// MaxDimension bounds the longer edge in pixels. Zero means DefaultMaxDimension.
	MaxDimension int
	// JPEGQuality is 1-100. Zero means DefaultJPEGQuality.
	JPEGQuality int
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	return o
}

// Image is an encoded image ready to send.
type Image struct {
	Filename string
	MimeType string
	Data     []byte
	Width    int
	Height   int
}

// Prepare decodes the file at path, applies its EXIF orientation, shrinks it
// to fit within MaxDimension and re-encodes it. PNG input stays PNG; every
// other format becomes JPEG.
func Prepare(path string, opts Options) (*Image, error) {
	opts = opts.withDefaults()

	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.JPEG
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open image: %w", err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(path), err)
	}

	b := img.Bounds()
	if b.Dx() > opts.MaxDimension || b.Dy() > opts.MaxDimension {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
	}

	out := imaging.JPEG
	mimeType := "image/jpeg"
	ext := ".jpg"
	if format == imaging.PNG {
		out, mimeType, ext = imaging.PNG, "image/png", ".png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, out, imaging.JPEGQuality(opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return &Image{
		Filename: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ext,
		MimeType: mimeType,
		Data:     buf.Bytes(),
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}, nil
}

// Sniff returns the content type of the file at path. Files that are not
// images fail with ErrUnsupportedFormat.
func Sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return "", fmt.Errorf("read image: %w", err)
	}
	ct := http.DetectContentType(head[:n])
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ct)
	}
	return ct, nil
}

// Bounds reads only the image header and returns its size.
func Bounds(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}
