// Package smsgateway is a local stand-in for the Q-SMS HTTP API. It accepts
// the send call the notifier makes and keeps the most recent messages for
// inspection.
package smsgateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultHistory = 100

type SendRequest struct {
	APIToken  string `json:"api_token" validate:"required"`
	Recipient string `json:"recipient" validate:"required,numeric,min=9,max=15"`
	SenderID  string `json:"sender_id" validate:"required,max=11"`
	Type      string `json:"type" validate:"required,oneof=plain unicode"`
	Message   string `json:"message" validate:"required"`
}

type Message struct {
	UID       string    `json:"uid"`
	Recipient string    `json:"recipient"`
	SenderID  string    `json:"sender_id"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

type sendResponse struct {
	Status string      `json:"status"`
	Data   *sendData   `json:"data,omitempty"`
	Error  string      `json:"message,omitempty"`
	Fields fieldErrors `json:"errors,omitempty"`
}

type sendData struct {
	UID string `json:"uid"`
}

type fieldErrors map[string]string

type Handler struct {
	logger   *slog.Logger
	validate *validator.Validate
	maxDelay time.Duration

	mu       sync.Mutex
	messages []Message
	history  int
}

type Option func(*Handler)

// WithMaxDelay makes every send sleep a random duration up to d, to mimic a
// remote gateway.
func WithMaxDelay(d time.Duration) Option {
	return func(h *Handler) {
		h.maxDelay = d
	}
}

func WithHistory(n int) Option {
	return func(h *Handler) {
		h.history = n
	}
}

func NewHandler(logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:   logger,
		validate: validator.New(),
		history:  defaultHistory,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, sendResponse{Status: "error", Error: "invalid request body"})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		fields := fieldErrors{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		h.logger.Warn("rejected sms", "recipient", req.Recipient, "error", err)
		h.writeJSON(w, http.StatusUnprocessableEntity, sendResponse{Status: "error", Error: "validation failed", Fields: fields})
		return
	}

	if h.maxDelay > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(h.maxDelay))))
	}

	msg := Message{
		UID:       uuid.NewString(),
		Recipient: req.Recipient,
		SenderID:  req.SenderID,
		Message:   req.Message,
		SentAt:    time.Now().UTC(),
	}
	h.remember(msg)

	h.logger.Info("sms accepted", "uid", msg.UID, "recipient", msg.Recipient, "sender_id", msg.SenderID)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "success", Data: &sendData{UID: msg.UID}})
}

// HandleList returns accepted messages, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Messages())
}

func (h *Handler) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Message, len(h.messages))
	for i, m := range h.messages {
		out[len(h.messages)-1-i] = m
	}
	return out
}

func (h *Handler) remember(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	if over := len(h.messages) - h.history; over > 0 {
		h.messages = h.messages[over:]
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
