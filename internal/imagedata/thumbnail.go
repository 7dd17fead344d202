package imagedata

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultThumbnailMaxDimension is the maximum dimension (width or height) for thumbnails.
const DefaultThumbnailMaxDimension = 512

// Thumbnail creates a low-resolution JPEG preview of an image payload.
// WebP payloads are returned unmodified (no pure-Go encoder in the stack and
// previews are typically small already).
func Thumbnail(img Image, maxDimension int) (Image, error) {
	var decoded image.Image
	var err error

	switch img.MediaType {
	case "image/jpeg":
		decoded, err = jpeg.Decode(bytes.NewReader(img.Data))
	case "image/png":
		decoded, err = png.Decode(bytes.NewReader(img.Data))
	case "image/gif":
		decoded, err = gif.Decode(bytes.NewReader(img.Data))
	case "image/webp":
		return img, nil
	default:
		return Image{}, fmt.Errorf("unsupported media type for thumbnail: %s", img.MediaType)
	}
	if err != nil {
		return Image{}, fmt.Errorf("decode image for thumbnail: %w", err)
	}

	bounds := decoded.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()
	newWidth, newHeight := thumbnailDimensions(origWidth, origHeight, maxDimension)

	out := decoded
	if newWidth != origWidth || newHeight != origHeight {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), decoded, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 80}); err != nil {
		return Image{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated")

	return Image{MediaType: "image/jpeg", Data: buf.Bytes()}, nil
}

// Dimensions reports the pixel size of a decodable payload, or (0, 0) when
// the payload cannot be decoded.
func Dimensions(img Image) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// thumbnailDimensions calculates new dimensions maintaining aspect ratio.
func thumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newWidth := maxDimension
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return newWidth, newHeight
	}

	newHeight := maxDimension
	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return newWidth, newHeight
}
