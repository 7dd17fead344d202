// Package imagedata normalizes opaque image payloads into a (media type,
// bytes) pair usable by the generation and verification calls, and renders
// preview thumbnails for the web surface.
package imagedata

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

// Image is a decoded image payload with its normalized media type.
type Image struct {
	MediaType string `json:"mediaType"`
	Data      []byte `json:"data"`
}

// allowedMediaTypes is the set of declared types accepted as-is. Anything
// else falls back to signature sniffing.
var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Extract normalizes an opaque payload into an Image. The payload is either a
// self-describing data URI ("data:image/png;base64,...") or a bare base64
// body. Declared media types outside the allow-list are replaced by sniffing
// the decoded bytes. Deterministic: same input always yields the same output.
func Extract(payload string) (Image, error) {
	payload = strings.TrimSpace(payload)

	if strings.HasPrefix(payload, "data:") {
		return extractDataURI(payload)
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode image payload: %w", err)
	}
	return Image{MediaType: Sniff(data), Data: data}, nil
}

// FromBytes wraps already-decoded image bytes, inferring the media type from
// the leading bytes.
func FromBytes(data []byte) Image {
	return Image{MediaType: Sniff(data), Data: data}
}

// DataURI renders the image as a self-describing data URI.
func (img Image) DataURI() string {
	return "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func extractDataURI(payload string) (Image, error) {
	rest := strings.TrimPrefix(payload, "data:")
	comma := strings.Index(rest, ",")
	if comma == -1 {
		return Image{}, fmt.Errorf("malformed data URI: no comma separator")
	}

	meta := rest[:comma]
	body := rest[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return Image{}, fmt.Errorf("unsupported data URI encoding: %q", meta)
	}
	declared := strings.TrimSuffix(meta, ";base64")

	data, err := decodeBase64(body)
	if err != nil {
		return Image{}, fmt.Errorf("decode data URI body: %w", err)
	}

	mediaType := NormalizeMediaType(declared)
	if !allowedMediaTypes[mediaType] {
		mediaType = Sniff(data)
	}
	return Image{MediaType: mediaType, Data: data}, nil
}

// NormalizeMediaType lowercases the declared type and maps the common
// "image/jpg" misspelling to "image/jpeg".
func NormalizeMediaType(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

// Sniff infers the media type from the leading bytes of an encoded image.
// Defaults to JPEG when no signature matches.
func Sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
		return "image/gif"
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// decodeBase64 accepts standard base64 with or without padding.
func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
