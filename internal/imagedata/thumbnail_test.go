package imagedata

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x % 256), A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test PNG: %v", err)
	}
	return Image{MediaType: "image/png", Data: buf.Bytes()}
}

func TestThumbnailDownscalesLargeImage(t *testing.T) {
	src := encodePNG(t, 800, 400)

	thumb, err := Thumbnail(src, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thumb.MediaType != "image/jpeg" {
		t.Errorf("media type = %s, want image/jpeg", thumb.MediaType)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(thumb.Data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 200 || bounds.Dy() != 100 {
		t.Errorf("thumbnail = %dx%d, want 200x100 (aspect preserved)", bounds.Dx(), bounds.Dy())
	}
}

func TestThumbnailKeepsSmallImageSize(t *testing.T) {
	src := encodePNG(t, 100, 60)

	thumb, err := Thumbnail(src, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(thumb.Data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if decoded.Bounds().Dx() != 100 || decoded.Bounds().Dy() != 60 {
		t.Errorf("small image was resized: %v", decoded.Bounds())
	}
}

func TestThumbnailPassesWebPThrough(t *testing.T) {
	src := Image{MediaType: "image/webp", Data: []byte("RIFF....WEBP")}
	thumb, err := Thumbnail(src, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(thumb.Data, src.Data) {
		t.Error("webp payload should pass through unmodified")
	}
}

func TestDimensions(t *testing.T) {
	src := encodePNG(t, 320, 240)
	w, h := Dimensions(src)
	if w != 320 || h != 240 {
		t.Errorf("dimensions = %dx%d, want 320x240", w, h)
	}

	w, h = Dimensions(Image{MediaType: "image/jpeg", Data: []byte("garbage")})
	if w != 0 || h != 0 {
		t.Errorf("undecodable payload should report 0x0, got %dx%d", w, h)
	}
}
