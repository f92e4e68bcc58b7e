package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	phoneKey  contextKey = "phone"
)

// WithIdentity stores the authenticated caller on the request context.
func WithIdentity(ctx context.Context, userID, phone string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, phoneKey, phone)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// ErrorResponse is the JSON body of every failed HTTP call.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError maps err onto the taxonomy in errors.go. Server errors keep the
// generic message and report the cause in the error field.
func WriteError(w http.ResponseWriter, message string, err error) {
	status := HTTPStatus(err)
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	WriteJSON(w, status, resp)
}

// WriteServiceError reports a service error. Client errors carry the error
// text as the message, server errors a generic one.
func WriteServiceError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		WriteError(w, "Server error", err)
		return
	}
	WriteJSON(w, status, ErrorResponse{Message: err.Error()})
}

// RequireIdentity rejects a request whose bearer token names a different user
// than targetID. Anonymous requests pass.
func RequireIdentity(r *http.Request, targetID string) error {
	if userID, ok := UserIDFromContext(r.Context()); ok && userID != targetID {
		return fmt.Errorf("%w: token does not belong to this user", ErrUnauthorized)
	}
	return nil
}
