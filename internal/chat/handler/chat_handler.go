// Package handler serves the message history and submission endpoints.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"chatr/internal/chat/service"
	"chatr/internal/common"
	"chatr/internal/protocol"
	"chatr/internal/realtime"
)

type ChatHandler struct {
	chatService service.ChatService
	relay       realtime.MessageRelay
}

func NewChatHandler(chatService service.ChatService, relay realtime.MessageRelay) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		relay:       relay,
	}
}

func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/messages", h.GetConversation).Methods(http.MethodGet)
	r.HandleFunc("/messages", h.PostMessage).Methods(http.MethodPost)
}

type postMessageRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp,omitempty"`
}

// GetConversation returns both directions of the pair, oldest first.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, otherUserID := q.Get("userId"), q.Get("otherUserId")
	if userID == "" || otherUserID == "" {
		common.WriteJSON(w, http.StatusBadRequest, common.ErrorResponse{Message: "userId and otherUserId are required"})
		return
	}

	messages, err := h.chatService.GetConversation(r.Context(), userID, otherUserID)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	common.WriteJSON(w, http.StatusOK, service.ToWireList(messages))
}

// PostMessage stores a message and notifies live peers like send-message does.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteServiceError(w, fmt.Errorf("%w: invalid request body", common.ErrInvalidRequest))
		return
	}
	if req.SenderID == "" || req.ReceiverID == "" || req.Text == "" {
		common.WriteJSON(w, http.StatusBadRequest, common.ErrorResponse{Message: "senderId, receiverId, and text are required"})
		return
	}

	caller, _ := common.UserIDFromContext(r.Context())
	saved, _, err := h.relay.Send(r.Context(), realtime.SendRequest{
		SenderID:        req.SenderID,
		ReceiverID:      req.ReceiverID,
		Text:            req.Text,
		ClientTimestamp: protocol.ClientTime(req.Timestamp),
		Caller:          caller,
	})
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	common.WriteJSON(w, http.StatusCreated, service.ToWire(saved))
}
