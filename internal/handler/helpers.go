package handler

import (
	"encoding/json"
	"net/http"

	"github.com/talk2data/talk2data/internal/model"
)

// writeJSON serializes v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope. The optional ctx map adds
// context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]any) {
	var ctxMap map[string]any
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body into v and closes it.
func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
