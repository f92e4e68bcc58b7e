package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatr/internal/dbmysql"
	"chatr/internal/protocol"
)

// APIError is a non-2xx answer from the REST surface.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// API is the REST fallback used for history and for sends while the live
// channel is down.
type API struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewAPI(baseURL string, timeout time.Duration) *API {
	return &API{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (a *API) SetToken(token string) { a.token = token }

type LoginResult struct {
	Token string          `json:"token"`
	User  dbmysql.Profile `json:"user"`
}

func (a *API) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"phone": phone, "password": password}
	if err := a.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) FetchConversation(ctx context.Context, userID, otherUserID string) ([]protocol.Message, error) {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("otherUserId", otherUserID)

	var out []protocol.Message
	if err := a.do(ctx, http.MethodGet, "/messages?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) PostMessage(ctx context.Context, senderID, receiverID, text string) (*protocol.Message, error) {
	body := map[string]string{"senderId": senderID, "receiverId": receiverID, "text": text}

	var out protocol.Message
	if err := a.do(ctx, http.MethodPost, "/messages", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListChats(ctx context.Context, userID string) ([]dbmysql.Profile, error) {
	var out []dbmysql.Profile
	if err := a.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/chats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
