package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Thumbnail scales the payload to the given width, preserving aspect ratio,
// and encodes the result as JPEG regardless of the source format.
func Thumbnail(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("imaging: thumbnail width must be positive, got %d", width)
	}
	src, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("imaging: thumbnail: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("imaging: thumbnail: source has no pixels")
	}

	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, nil); err != nil {
		return nil, fmt.Errorf("imaging: thumbnail encode: %w", err)
	}
	return buf.Bytes(), nil
}
