package core

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	thumbnailJPEGQuality = 85
	// maxThumbnailPixels caps the decoded size of a source image.
	maxThumbnailPixels = 40_000_000
)

var (
	errNoEncoder     = errors.New("no encoder for image format")
	errImageTooLarge = errors.New("image dimensions too large")
)

// gifPalette reserves index 0 for full transparency.
var gifPalette = append(color.Palette{color.Transparent}, palette.WebSafe...)

// thumbnailSize fits w×h into maxW×maxH keeping the aspect ratio. Images
// that already fit keep their size.
func thumbnailSize(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return nw, nh
}

// WriteThumbnail scales the image at src to fit maxW×maxH and writes it to
// dst in the source format. PNG and GIF transparency survives. An image that
// already fits is copied unchanged. Callers fall back to copying the
// original when an error is returned.
func WriteThumbnail(src, dst string, maxW, maxH int) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", filepath.Base(src), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxThumbnailPixels {
		return fmt.Errorf("%w: %s is %dx%d", errImageTooLarge, filepath.Base(src), cfg.Width, cfg.Height)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	img, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(src), err)
	}

	b := img.Bounds()
	nw, nh := thumbnailSize(b.Dx(), b.Dy(), maxW, maxH)
	if nw == b.Dx() && nh == b.Dy() {
		return copyFile(src, dst)
	}

	var encode func(io.Writer) error
	rect := image.Rect(0, 0, nw, nh)
	switch format {
	case "jpeg":
		scaled := image.NewRGBA(rect)
		draw.CatmullRom.Scale(scaled, rect, img, b, draw.Src, nil)
		encode = func(w io.Writer) error {
			return jpeg.Encode(w, scaled, &jpeg.Options{Quality: thumbnailJPEGQuality})
		}
	case "png":
		scaled := image.NewNRGBA(rect)
		draw.CatmullRom.Scale(scaled, rect, img, b, draw.Src, nil)
		encode = func(w io.Writer) error { return png.Encode(w, scaled) }
	case "gif":
		scaled := image.NewNRGBA(rect)
		draw.CatmullRom.Scale(scaled, rect, img, b, draw.Src, nil)
		paletted := image.NewPaletted(rect, gifPalette)
		draw.FloydSteinberg.Draw(paletted, rect, scaled, image.Point{})
		encode = func(w io.Writer) error { return gif.Encode(w, paletted, nil) }
	default:
		return fmt.Errorf("%w: %s", errNoEncoder, format)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := encode(out); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("encoding thumbnail: %w", err)
	}
	return out.Close()
}
