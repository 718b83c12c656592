package server

import (
	"net/http"

	"chromafm/core/ingest"

	"github.com/gorilla/mux"
)

// CreateAlbumHandler creates an album directly. Duplicate submission is a
// 200-level soft conflict.
func (h *APIHandler) CreateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	var input ingest.AlbumInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, err)
		return
	}
	result, err := h.service.CreateAlbum(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	if !result.Created {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":    false,
			"message":    result.Message,
			"existingId": result.Album.ID,
			"existing":   result.Album,
		})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"insertedId": result.Album.ID,
		"album":      result.Album,
	})
}

// PatchAlbumHandler partially updates an album.
func (h *APIHandler) PatchAlbumHandler(w http.ResponseWriter, r *http.Request) {
	spotifyID := mux.Vars(r)["id"]
	var patch ingest.AlbumPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, err)
		return
	}
	album, err := h.service.PatchAlbum(r.Context(), spotifyID, patch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "album": album})
}
