package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// MimeJPEG and friends are the media types the service understands.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

// ErrUndecodable is returned when a payload cannot be decoded as an image.
var ErrUndecodable = errors.New("imaging: undecodable payload")

// Decode parses the payload into an in-memory image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return img, nil
}

// Dimensions reports the decoded width and height without decoding pixel
// data.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return cfg.Width, cfg.Height, nil
}

// GrayVariance computes the variance of grayscale pixel values as a
// sharpness estimate. It is a Laplacian-variance proxy: flat or heavily
// blurred images score low, detailed images score high.
func GrayVariance(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var sum float64
	lumas := make([]float64, 0, total)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, scaled to 0-255.
			luma := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			lumas = append(lumas, luma)
			sum += luma
		}
	}

	mean := sum / float64(total)
	var variance float64
	for _, l := range lumas {
		d := l - mean
		variance += d * d
	}
	return variance / float64(total)
}

// Normalize transcodes payloads in a non-canonical input format to JPEG and
// passes web-native formats through untouched. It returns the bytes to
// store, their media type and the storage key extension.
func Normalize(data []byte, mimeType string) ([]byte, string, string, error) {
	switch mimeType {
	case MimeJPEG:
		return data, MimeJPEG, "jpg", nil
	case MimePNG:
		return data, MimePNG, "png", nil
	case MimeWebP:
		img, err := Decode(data)
		if err != nil {
			return nil, "", "", fmt.Errorf("imaging: normalize: %w", err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, nil); err != nil {
			return nil, "", "", fmt.Errorf("imaging: normalize encode: %w", err)
		}
		return buf.Bytes(), MimeJPEG, "jpg", nil
	default:
		// Unknown but decodable formats are stored as-is under a neutral
		// extension; the allow-list normally filters these out earlier.
		return data, mimeType, "bin", nil
	}
}
