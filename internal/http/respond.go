package http

import (
	"encoding/json"
	"net/http"
)

// writeJSON answers 200 with a JSON body. The API has no status-code
// contract beyond that; errors ride inside the payload.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON forwards an already-encoded JSON body untouched.
func writeRawJSON(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func errorBody(msg string) map[string]any {
	return map[string]any{"error": msg}
}
