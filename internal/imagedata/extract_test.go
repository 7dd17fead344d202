package imagedata

import (
	"bytes"
	"encoding/base64"
	"testing"
)

var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00")
	webpBytes = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
)

func TestExtractDataURIRoundTrip(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	img, err := Extract(uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MediaType != "image/png" {
		t.Errorf("media type = %s, want declared image/png", img.MediaType)
	}
	if !bytes.Equal(img.Data, pngBytes) {
		t.Error("payload bytes not recovered exactly")
	}
}

func TestExtractNormalizesJpgDeclaration(t *testing.T) {
	uri := "data:image/jpg;base64," + base64.StdEncoding.EncodeToString(jpegBytes)

	img, err := Extract(uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MediaType != "image/jpeg" {
		t.Errorf("media type = %s, want image/jpg normalized to image/jpeg", img.MediaType)
	}
}

func TestExtractDisallowedDeclarationFallsBackToSniffing(t *testing.T) {
	// Declared TIFF is outside the allow-list; the PNG signature wins.
	uri := "data:image/tiff;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	img, err := Extract(uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MediaType != "image/png" {
		t.Errorf("media type = %s, want sniffed image/png", img.MediaType)
	}
}

func TestExtractBareBase64Sniffs(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegBytes, "image/jpeg"},
		{"png", pngBytes, "image/png"},
		{"gif", gifBytes, "image/gif"},
		{"webp", webpBytes, "image/webp"},
		{"unknown defaults to jpeg", []byte("not an image at all"), "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Extract(base64.StdEncoding.EncodeToString(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.MediaType != tt.want {
				t.Errorf("media type = %s, want %s", img.MediaType, tt.want)
			}
			if !bytes.Equal(img.Data, tt.data) {
				t.Error("payload bytes not preserved")
			}
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	uri := "data:image/webp;base64," + base64.StdEncoding.EncodeToString(webpBytes)
	first, err := Extract(uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Extract(uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.MediaType != second.MediaType || !bytes.Equal(first.Data, second.Data) {
		t.Error("same input must always yield the same output")
	}
}

func TestExtractRejectsMalformedPayloads(t *testing.T) {
	for _, payload := range []string{
		"data:image/png",               // no comma
		"data:image/png;utf8,abc",      // not base64-encoded
		"this is definitely not b64!!", // undecodable body
	} {
		if _, err := Extract(payload); err == nil {
			t.Errorf("Extract(%q): expected error", payload)
		}
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	img := Image{MediaType: "image/gif", Data: gifBytes}
	back, err := Extract(img.DataURI())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.MediaType != img.MediaType || !bytes.Equal(back.Data, img.Data) {
		t.Error("DataURI/Extract round trip lost data")
	}
}
