package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shopaudit/imagefix/internal/compliance"
	"github.com/shopaudit/imagefix/internal/imagedata"
)

// assetStore is the in-memory registry of assets under management. Durable
// storage belongs to the caller; this registry only holds what the fix loop
// needs while runs are live.
type assetStore struct {
	mu     sync.Mutex
	assets map[string]*storedAsset
}

type storedAsset struct {
	asset  *compliance.Asset
	report *compliance.ComplianceResult
}

func newAssetStore() *assetStore {
	return &assetStore{assets: make(map[string]*storedAsset)}
}

func (s *assetStore) put(asset *compliance.Asset, report *compliance.ComplianceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.ID] = &storedAsset{asset: asset, report: report}
}

func (s *assetStore) get(id string) (*storedAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.assets[id]
	return entry, ok
}

// mainAsset returns the MAIN-role asset, used as the identity reference for
// secondary-image fixes.
func (s *assetStore) mainAsset() *compliance.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.assets {
		if entry.asset.Role == compliance.RoleMain {
			return entry.asset
		}
	}
	return nil
}

func (s *assetStore) all() []*storedAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*storedAsset, 0, len(s.assets))
	for _, entry := range s.assets {
		out = append(out, entry)
	}
	return out
}

// POST /api/assets
// Body: {"image": "<data URI or base64>", "role": "MAIN"|"SECONDARY", "report": {...}}
func handleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Image  string                       `json:"image"`
		Role   compliance.AssetRole         `json:"role"`
		Report *compliance.ComplianceResult `json:"report"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Image == "" {
		httpError(w, http.StatusBadRequest, "image payload is required")
		return
	}

	img, err := imagedata.Extract(req.Image)
	if err != nil {
		httpError(w, http.StatusBadRequest, "unreadable image payload", err.Error())
		return
	}

	role := req.Role
	if role == "" {
		role = compliance.RoleSecondary
	}

	width, height := imagedata.Dimensions(img)
	asset := &compliance.Asset{
		ID:     uuid.NewString(),
		Role:   role,
		Image:  img,
		Width:  width,
		Height: height,
	}
	assetRegistry.put(asset, req.Report)

	log.Info().
		Str("asset", asset.ID).
		Str("role", string(role)).
		Str("media_type", img.MediaType).
		Int("bytes", len(img.Data)).
		Msg("Asset registered")

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"assetId":   asset.ID,
		"mediaType": img.MediaType,
		"width":     width,
		"height":    height,
	})
}

// GET /api/asset?id=<assetId>
func handleAssetGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entry, ok := assetRegistry.get(r.URL.Query().Get("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "asset not found")
		return
	}

	asset := entry.asset
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assetId":   asset.ID,
		"role":      asset.Role,
		"mediaType": asset.Image.MediaType,
		"width":     asset.Width,
		"height":    asset.Height,
		"hasFixed":  asset.FixedImage != nil,
		"report":    entry.report,
	})
}

// GET /api/asset/image?id=<assetId>&variant=original|fixed
func handleAssetImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entry, ok := assetRegistry.get(r.URL.Query().Get("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "asset not found")
		return
	}

	img := entry.asset.Image
	if r.URL.Query().Get("variant") == "fixed" {
		if entry.asset.FixedImage == nil {
			httpError(w, http.StatusNotFound, "no fixed image for asset")
			return
		}
		img = *entry.asset.FixedImage
	}

	w.Header().Set("Content-Type", img.MediaType)
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}

// GET /api/asset/thumbnail?id=<assetId>&variant=original|fixed
func handleAssetThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entry, ok := assetRegistry.get(r.URL.Query().Get("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "asset not found")
		return
	}

	img := entry.asset.Image
	if r.URL.Query().Get("variant") == "fixed" && entry.asset.FixedImage != nil {
		img = *entry.asset.FixedImage
	}

	thumb, err := imagedata.Thumbnail(img, imagedata.DefaultThumbnailMaxDimension)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "thumbnail generation failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", thumb.MediaType)
	w.WriteHeader(http.StatusOK)
	w.Write(thumb.Data)
}
