package utils

import (
	"context"
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Error(context.Background(), "failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func WriteError(w http.ResponseWriter, err *APIError) {
	WriteJSON(w, err.Code, ErrorResponse{
		Error:   err.Message,
		Code:    err.Reason,
		Details: err.Details,
	})
}
