package main

import (
	"archive/zip"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

func init() {
	// Register Zstandard as a ZIP compressor. Images are already entropy-coded
	// so the win is modest, but exports bundle JSON reports too.
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
}

// GET /api/assets/export.zip — bundle every asset's original image, fixed
// image when one exists, and compliance report into one ZIP download.
func handleExportZip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := assetRegistry.all()
	if len(entries) == 0 {
		httpError(w, http.StatusNotFound, "no assets registered")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="listing-images.zip"`)
	w.WriteHeader(http.StatusOK)

	zipWriter := zip.NewWriter(w)
	now := time.Now()
	files := 0

	for _, entry := range entries {
		asset := entry.asset
		if err := writeZipEntry(zipWriter, asset.ID+"-original"+extFor(asset.Image.MediaType), asset.Image.Data, now); err != nil {
			log.Warn().Err(err).Str("asset", asset.ID).Msg("Failed to write original to export ZIP")
			continue
		}
		files++
		if asset.FixedImage != nil {
			if err := writeZipEntry(zipWriter, asset.ID+"-fixed"+extFor(asset.FixedImage.MediaType), asset.FixedImage.Data, now); err != nil {
				log.Warn().Err(err).Str("asset", asset.ID).Msg("Failed to write fixed image to export ZIP")
				continue
			}
			files++
		}
		if entry.report != nil {
			report, err := json.MarshalIndent(entry.report, "", "  ")
			if err == nil {
				err = writeZipEntry(zipWriter, asset.ID+"-report.json", report, now)
			}
			if err != nil {
				log.Warn().Err(err).Str("asset", asset.ID).Msg("Failed to write report to export ZIP")
				continue
			}
			files++
		}
	}

	if err := zipWriter.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to finalize export ZIP")
		return
	}

	log.Info().Int("files", files).Int("assets", len(entries)).Msg("Asset export ZIP served")
}

func writeZipEntry(zw *zip.Writer, name string, data []byte, modTime time.Time) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zipMethodZstd,
		Modified: modTime,
	}
	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = writer.Write(data)
	return err
}

// extFor maps a media type to a download-friendly file extension.
func extFor(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
