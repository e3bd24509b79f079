package kit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the body of every failed API call. The dashboard shows
// Error verbatim and lists Details (missing field names) when present.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes v with the given status. Inventory responses are never
// cached since stock changes with every sale and rental.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse tagged with the request id. An empty
// msg falls back to the status text.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, ErrorResponse{
		Error:     msg,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// WriteSuccess writes {"success": true, "message": msg} merged with payload,
// e.g. the product, sale or rental a mutation produced. Payload keys cannot
// override success or message.
func WriteSuccess(w http.ResponseWriter, status int, msg string, payload map[string]any) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	body["message"] = msg
	WriteJSON(w, status, body)
}
