package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"chromafm/core/ingest"
	"chromafm/core/palette"
	"chromafm/errs"
	"chromafm/logger"
)

// APIHandler handles all API requests.
type APIHandler struct {
	service    *ingest.Service
	paletteGen *palette.Generator
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(service *ingest.Service, paletteGen *palette.Generator) *APIHandler {
	return &APIHandler{service: service, paletteGen: paletteGen}
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode response", logger.Err(err))
		}
	}
}

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// respondError translates the engine's error taxonomy into HTTP statuses.
// Dispatch is on error kind only; message text is never inspected.
func respondError(w http.ResponseWriter, err error) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		body := errorBody{Error: err.Error()}
		var engineErr *errs.Error
		if errors.As(err, &engineErr) {
			body.Fields = engineErr.Fields
		}
		respondJSON(w, http.StatusBadRequest, body)
	case errs.KindNotFound:
		respondJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		logger.Error("request failed", logger.Err(err))
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Validationf("invalid JSON body: %v", err)
	}
	return nil
}
