package smsgateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler(opts ...Option) *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

const validBody = `{"api_token":"t","recipient":"255712345678","sender_id":"INFO","type":"plain","message":"hello"}`

func TestHandler_HandleSend(t *testing.T) {
	t.Run("accepts a valid message", func(t *testing.T) {
		h := newTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/http/sms/send", strings.NewReader(validBody))
		rec := httptest.NewRecorder()
		h.HandleSend(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Status string `json:"status"`
			Data   struct {
				UID string `json:"uid"`
			} `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "success" || resp.Data.UID == "" {
			t.Errorf("unexpected response %+v", resp)
		}

		msgs := h.Messages()
		if len(msgs) != 1 || msgs[0].Recipient != "255712345678" || msgs[0].Message != "hello" {
			t.Errorf("unexpected stored messages %+v", msgs)
		}
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		h := newTestHandler()

		rec := httptest.NewRecorder()
		h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/api/http/sms/send", strings.NewReader("{")))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("reports field errors", func(t *testing.T) {
		h := newTestHandler()
		body := `{"api_token":"","recipient":"07-12","sender_id":"WAY-TOO-LONG-ID","type":"plain","message":"hi"}`

		rec := httptest.NewRecorder()
		h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/api/http/sms/send", strings.NewReader(body)))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		want := map[string]string{"APIToken": "required", "Recipient": "numeric", "SenderID": "max"}
		for field, tag := range want {
			if resp.Errors[field] != tag {
				t.Errorf("expected %s=%s, got %q", field, tag, resp.Errors[field])
			}
		}
		if len(h.Messages()) != 0 {
			t.Error("expected rejected message not to be stored")
		}
	})
}

func TestHandler_History(t *testing.T) {
	h := newTestHandler(WithHistory(2))

	for _, recipient := range []string{"255700000001", "255700000002", "255700000003"} {
		body := strings.Replace(validBody, "255712345678", recipient, 1)
		rec := httptest.NewRecorder()
		h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/api/http/sms/send", strings.NewReader(body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

	var msgs []Message
	if err := json.NewDecoder(rec.Body).Decode(&msgs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Recipient != "255700000003" || msgs[1].Recipient != "255700000002" {
		t.Errorf("expected newest first, got %s, %s", msgs[0].Recipient, msgs[1].Recipient)
	}
}
