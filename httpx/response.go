// Package httpx holds the JSON response helpers shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// JSON writes payload with the given status. The body is encoded up front so
// a marshal failure never leaves a half-written response behind.
func JSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// JSONError writes the API's uniform error shape, {"error":"<code>"}.
func JSONError(w http.ResponseWriter, status int, code string) {
	JSON(w, status, struct {
		Error string `json:"error"`
	}{code})
}
