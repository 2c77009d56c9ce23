package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-logr/logr"
)

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logr.FromContextOrDiscard(r.Context()).Error(err, "failed to marshal json")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logr.FromContextOrDiscard(r.Context()).Error(err, "failed to unmarshal request")
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}
