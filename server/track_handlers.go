package server

import (
	"net/http"
	"strconv"

	"chromafm/core/ingest"
	"chromafm/model"

	"github.com/gorilla/mux"
)

// GetTrackHandler returns a single track by external id.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	spotifyID := mux.Vars(r)["id"]
	track, err := h.service.GetTrackBySpotifyID(r.Context(), spotifyID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// GetTracksBulkHandler returns the tracks matching a submitted id list.
func (h *APIHandler) GetTracksBulkHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, err)
		return
	}
	tracks, err := h.service.GetTracksBySpotifyIDs(r.Context(), body.IDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// GetAlbumTracksHandler returns all tracks linked to an album external id.
// An unknown album yields an empty list.
func (h *APIHandler) GetAlbumTracksHandler(w http.ResponseWriter, r *http.Request) {
	albumID := mux.Vars(r)["id"]
	tracks, err := h.service.GetTracksByAlbumSpotifyID(r.Context(), albumID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// CreateTrackHandler creates a single track. Duplicate submission is a
// 200-level soft conflict, not an error.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	var input ingest.TrackInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, err)
		return
	}
	result, err := h.service.CreateTrack(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	if !result.Created {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":    false,
			"message":    result.Message,
			"existingId": result.Track.ID,
			"existing":   result.Track,
		})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"insertedId": result.Track.ID,
		"track":      result.Track,
	})
}

// CreateBulkTracksHandler creates a batch of tracks in one transaction.
func (h *APIHandler) CreateBulkTracksHandler(w http.ResponseWriter, r *http.Request) {
	var inputs []ingest.TrackInput
	if err := decodeJSON(r, &inputs); err != nil {
		respondError(w, err)
		return
	}
	result, err := h.service.CreateBulkTracks(r.Context(), inputs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// PatchTrackHandler partially updates a track.
func (h *APIHandler) PatchTrackHandler(w http.ResponseWriter, r *http.Request) {
	spotifyID := mux.Vars(r)["id"]
	var patch ingest.TrackPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, err)
		return
	}
	track, err := h.service.PatchTrack(r.Context(), spotifyID, patch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "track": track})
}

// UpdateAudioFeaturesHandler writes back audio features and a new status.
func (h *APIHandler) UpdateAudioFeaturesHandler(w http.ResponseWriter, r *http.Request) {
	spotifyID := mux.Vars(r)["id"]
	var body struct {
		model.AudioFeatures
		Status model.AudioFeatureStatus `json:"audioFeaturesStatus"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, err)
		return
	}
	track, err := h.service.UpdateAudioFeatures(r.Context(), spotifyID, body.AudioFeatures, body.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "track": track})
}

// UpdateStatusHandler sets the enrichment status alone.
func (h *APIHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	spotifyID := mux.Vars(r)["id"]
	var body struct {
		Status model.AudioFeatureStatus `json:"audioFeaturesStatus"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, err)
		return
	}
	track, err := h.service.UpdateProcessingStatus(r.Context(), spotifyID, body.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "track": track})
}

// ListUnprocessedHandler lists the oldest unprocessed tracks.
func (h *APIHandler) ListUnprocessedHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	tracks, err := h.service.ListUnprocessedTracks(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// ClaimUnprocessedHandler atomically claims a batch of unprocessed tracks
// for an enrichment worker.
func (h *APIHandler) ClaimUnprocessedHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	tracks, err := h.service.ClaimUnprocessedTracks(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
