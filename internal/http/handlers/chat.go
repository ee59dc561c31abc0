package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"receptionist/internal/agent"
	"receptionist/internal/schedule"
	"receptionist/pkg/logging"
)

// ChatHandler exposes the conversational receptionist over HTTP.
type ChatHandler struct {
	orchestrator *agent.Orchestrator
	logger       *logging.Logger
}

// NewChatHandler creates the chat endpoints. orchestrator may be nil when no
// model is configured; endpoints then report service unavailable.
func NewChatHandler(orchestrator *agent.Orchestrator, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{orchestrator: orchestrator, logger: logger}
}

// Start opens a new conversation.
// POST /chat/start
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}
	id, err := h.orchestrator.StartConversation(r.Context())
	if err != nil {
		h.logger.Error("failed to start conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start conversation")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"conversation_id": id})
}

// MessageRequest is the body for sending one user message.
type MessageRequest struct {
	ConversationID string `json:"conversation_id"`
	UserEmail      string `json:"user_email"`
	Message        string `json:"message"`
}

// Message runs one orchestration turn for the conversation.
// POST /chat/message
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "conversation_id and message are required")
		return
	}

	sess := agent.Session{ConversationID: req.ConversationID, UserEmail: strings.TrimSpace(req.UserEmail)}
	reply, err := h.orchestrator.HandleMessage(r.Context(), sess, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrUnknownConversation):
			writeResult(w, http.StatusOK, schedule.Fail(schedule.KindNotFound, "Unknown conversation. Start a new one first."))
		case errors.Is(err, agent.ErrModelCallFailed):
			h.logger.Error("model call budget exhausted", "error", err, "conversation_id", req.ConversationID)
			writeResult(w, http.StatusOK, schedule.Fail(schedule.KindModelCallFailed, "The assistant is temporarily unavailable. Please try again."))
		default:
			h.logger.Error("chat turn failed", "error", err, "conversation_id", req.ConversationID)
			writeResult(w, http.StatusOK, schedule.Fail(schedule.KindOperationFailed, "Failed to process message."))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"conversation_id": req.ConversationID,
		"reply":           reply,
	})
}
