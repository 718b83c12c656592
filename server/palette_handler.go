package server

import (
	"net/http"
	"strconv"

	"chromafm/core/palette"
)

// PalettizerHandler generates a colour palette from a cover image URL.
func (h *APIHandler) PalettizerHandler(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("image_url")
	bucketSize := palette.DefaultBucketSize
	if raw := r.URL.Query().Get("bucket_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			bucketSize = parsed
		}
	}

	result, err := h.paletteGen.FromURL(r.Context(), url, bucketSize)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
