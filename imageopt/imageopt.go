// Package imageopt resizes and recompresses uploaded images per upload type.
package imageopt

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

type UploadType string

const (
	Profile    UploadType = "profile"
	Banner     UploadType = "banner"
	Submission UploadType = "submission"
)

// Preset describes how one upload type is processed. Height 0 keeps the aspect
// ratio and only bounds the width.
type Preset struct {
	Width    int
	Height   int
	Quality  int
	MaxBytes int
}

var Presets = map[UploadType]Preset{
	Profile:    {Width: 400, Height: 400, Quality: 80, MaxBytes: 500 << 10},
	Banner:     {Width: 1920, Height: 400, Quality: 80, MaxBytes: 800 << 10},
	Submission: {Width: 1200, Height: 0, Quality: 85, MaxBytes: 2 << 20},
}

const minQuality = 50

var optimizable = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Result is the processed upload. When Optimized is false the fields echo
// the input unchanged.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
	Optimized   bool
}

// Optimizer processes an upload before it is stored. Callers keep the
// original bytes when Optimize returns an error.
type Optimizer interface {
	Optimize(kind UploadType, filename, contentType string, data []byte) (Result, error)
}

// Imaging is the Optimizer backed by disintegration/imaging.
type Imaging struct {
	Log *zap.Logger
}

func New(log *zap.Logger) *Imaging {
	return &Imaging{Log: log}
}

func (o *Imaging) Optimize(kind UploadType, filename, contentType string, data []byte) (Result, error) {
	original := Result{Data: data, Filename: filename, ContentType: contentType}

	p, ok := Presets[kind]
	if !ok {
		return original, nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !optimizable[ext] {
		return original, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return original, fmt.Errorf("decode %s: %w", filename, err)
	}
	img = resize(img, p)

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	var out Result
	switch ext {
	case ".png", ".gif":
		// PNG output has no quality knob, so the size retry below is JPEG only.
		buf, err := encode(img, imaging.PNG, 0)
		if err != nil {
			return original, err
		}
		out = Result{Data: buf, Filename: base + ".png", ContentType: "image/png", Optimized: true}
	default:
		buf, err := encode(img, imaging.JPEG, p.Quality)
		if err != nil {
			return original, err
		}
		if len(buf) > p.MaxBytes {
			q := p.Quality * p.MaxBytes / len(buf)
			if q < minQuality {
				q = minQuality
			}
			if buf, err = encode(img, imaging.JPEG, q); err != nil {
				return original, err
			}
		}
		name := filename
		if ext == ".webp" {
			name = base + ".jpg"
		}
		out = Result{Data: buf, Filename: name, ContentType: "image/jpeg", Optimized: true}
	}

	if o.Log != nil {
		o.Log.Debug("image optimized",
			zap.String("type", string(kind)),
			zap.Int("before_bytes", len(data)),
			zap.Int("after_bytes", len(out.Data)),
		)
	}
	return out, nil
}

func resize(img image.Image, p Preset) image.Image {
	if p.Height > 0 {
		return imaging.Fill(img, p.Width, p.Height, imaging.Center, imaging.Lanczos)
	}
	if img.Bounds().Dx() <= p.Width {
		return img
	}
	return imaging.Resize(img, p.Width, 0, imaging.Lanczos)
}

func encode(img image.Image, format imaging.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var opts []imaging.EncodeOption
	switch format {
	case imaging.JPEG:
		opts = append(opts, imaging.JPEGQuality(quality))
	case imaging.PNG:
		opts = append(opts, imaging.PNGCompressionLevel(png.BestCompression))
	}
	if err := imaging.Encode(&buf, img, format, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Nop returns every upload unchanged.
type Nop struct{}

func (Nop) Optimize(kind UploadType, filename, contentType string, data []byte) (Result, error) {
	return Result{Data: data, Filename: filename, ContentType: contentType}, nil
}
