package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/Brownie44l1/paddy-api/internal/model"
)

var ErrDecode = errors.New("invalid image")

// MaxPixels caps the decoded size of an image. A small compressed file can
// declare dimensions that would need gigabytes once decoded.
const MaxPixels = 50_000_000

// CheckSize reads only the image header and rejects images that are empty or
// larger than MaxPixels.
func CheckSize(r io.Reader) error {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image", ErrDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}
	return nil
}

// Decode reads a png or jpeg, applying any EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := CheckSize(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return img, nil
}

// Tensor resizes img to the model's square input and flattens it in the model's layout.
func Tensor(img image.Image, metadata model.Metadata) []float32 {
	size := uint(metadata.ImageSize)
	resized := resize.Resize(size, size, img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	scale := float32(1)
	if metadata.Rescale {
		scale = 1.0 / 255.0
	}

	data := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rv := float32(r>>8) * scale
			gv := float32(g>>8) * scale
			bv := float32(b>>8) * scale

			pixel := y*width + x
			if metadata.Layout == model.LayoutNCHW {
				data[pixel] = rv
				data[plane+pixel] = gv
				data[2*plane+pixel] = bv
			} else {
				data[3*pixel] = rv
				data[3*pixel+1] = gv
				data[3*pixel+2] = bv
			}
		}
	}

	return data
}

// Image decodes r and returns the model input for it.
func Image(r io.Reader, metadata model.Metadata) ([]float32, error) {
	img, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Tensor(img, metadata), nil
}
