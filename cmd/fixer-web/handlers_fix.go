package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/shopaudit/imagefix/internal/fixer"
)

// POST /api/fix/start
// Body: {"assetId": "...", "maxAttempts": 3, "customPrompt": "...",
//
//	"satisfactionThreshold": 80, "category": "lifestyle", ...}
func handleFixStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		AssetID               string   `json:"assetId"`
		MaxAttempts           int      `json:"maxAttempts"`
		CustomPrompt          string   `json:"customPrompt"`
		SatisfactionThreshold int      `json:"satisfactionThreshold"`
		Category              string   `json:"category"`
		EnhancementType       string   `json:"enhancementType"`
		TargetImprovements    []string `json:"targetImprovements"`
		PreserveElements      []string `json:"preserveElements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AssetID == "" {
		httpError(w, http.StatusBadRequest, "assetId is required")
		return
	}
	if req.MaxAttempts < 0 {
		httpError(w, http.StatusBadRequest, "maxAttempts must be >= 1")
		return
	}

	entry, ok := assetRegistry.get(req.AssetID)
	if !ok {
		httpError(w, http.StatusNotFound, "asset not found")
		return
	}

	opts := fixer.Options{
		MaxAttempts:           req.MaxAttempts,
		SatisfactionThreshold: req.SatisfactionThreshold,
		CustomPrompt:          req.CustomPrompt,
		Category:              req.Category,
		EnhancementType:       req.EnhancementType,
		TargetImprovements:    req.TargetImprovements,
		PreserveElements:      req.PreserveElements,
	}

	// The run outlives this request; its context is cancelled via the
	// cancel endpoint, not by the client hanging up.
	stream, err := fixService.StartFix(context.Background(), entry.asset, entry.report, assetRegistry.mainAsset(), opts)
	if err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	go drain(stream)

	log.Info().Str("asset", req.AssetID).Msg("Fix run started")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"assetId": req.AssetID,
		"phase":   string(fixer.PhaseGenerating),
	})
}

// GET /api/fix/progress?assetId=<id>
func handleFixProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	assetID := r.URL.Query().Get("assetId")
	state, ok := fixService.Progress(assetID)
	if !ok {
		httpError(w, http.StatusNotFound, "no fix run for asset")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"state": state,
		"steps": fixer.Project(state),
	})
}

// GET /api/fix/stream?assetId=<id> — Server-Sent Events stream of state
// snapshots, one event per transition, closing when the run ends.
func handleFixStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	assetID := r.URL.Query().Get("assetId")
	stream, ok := fixService.Subscribe(assetID)
	if !ok {
		httpError(w, http.StatusNotFound, "no fix run for asset")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			return
		case state, open := <-stream:
			if !open {
				return
			}
			payload, err := json.Marshal(map[string]interface{}{
				"state": state,
				"steps": fixer.Project(state),
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// POST /api/fix/cancel
// Body: {"assetId": "..."}
func handleFixCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		AssetID string `json:"assetId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !fixService.Cancel(req.AssetID) {
		httpError(w, http.StatusNotFound, "no fix run in flight for asset")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"assetId": req.AssetID, "status": "cancelling"})
}

// drain consumes a snapshot stream nobody subscribed to, so runs started
// without a live SSE consumer still progress.
func drain(stream <-chan fixer.FixProgressState) {
	for range stream {
	}
}
