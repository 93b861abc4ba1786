package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the JSON error shape of the API handlers.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, message, action, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   message,
		Message: message,
		Action:  action,
		Code:    code,
	})
}
