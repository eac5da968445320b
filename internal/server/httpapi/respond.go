package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/linkdeck/internal/common"
)

// envelope is the wire shape of every response. Fields beyond Success and
// APIVersion are populated per endpoint.
type envelope map[string]any

func newEnvelope(success bool) envelope {
	return envelope{"success": success, "apiVersion": common.APIVersion}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	body := newEnvelope(false)
	body["error"] = message
	writeJSON(w, status, body)
}

// writeStoreError normalizes store-layer errors into status codes. Internal
// details never leak beyond the sentinel's message.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
	case errors.Is(err, common.ErrMalformedBackupKey), errors.Is(err, common.ErrInvalidDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, common.ErrNotFound.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
