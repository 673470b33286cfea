// Package sms talks to the Q-SMS HTTP gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://sms.qbiez.com"
	SendPath       = "/api/http/sms/send"
)

var (
	tracer = otel.Tracer("sms/client")
	meter  = otel.Meter("sms/client")
)

// ErrMissingField is returned before any network call when the token,
// recipient or message is empty.
var ErrMissingField = errors.New("missing required sms field")

// TransportError wraps a failure to reach the gateway.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "sms transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Request is built per send and never stored.
type Request struct {
	Recipient string
	Message   string
	SenderID  string
	Token     string
}

type sendPayload struct {
	APIToken  string `json:"api_token"`
	Recipient string `json:"recipient"`
	SenderID  string `json:"sender_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	attempts   metric.Int64Counter
}

func NewClient(baseURL string, client *http.Client, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	attempts, err := meter.Int64Counter("sms.dispatch.attempts",
		metric.WithDescription("SMS gateway dispatch attempts by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("create dispatch counter: %w", err)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
		attempts:   attempts,
	}, nil
}

// Send makes exactly one POST to the gateway. The response is not
// inspected: a reachable gateway counts as success even if it rejected the
// message.
func (c *Client) Send(ctx context.Context, req Request) error {
	if req.Token == "" || req.Recipient == "" || req.Message == "" {
		c.logger.Error("sms send failed", "error", ErrMissingField, "recipient", req.Recipient)
		c.record(ctx, "missing_field")
		return ErrMissingField
	}

	ctx, span := tracer.Start(ctx, "sms.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("sms.sender_id", req.SenderID)),
	)
	defer span.End()

	if err := c.post(ctx, req); err != nil {
		terr := &TransportError{Err: err}
		span.RecordError(terr)
		span.SetStatus(codes.Error, terr.Error())
		c.logger.Error("sms send failed", "error", terr, "recipient", req.Recipient)
		c.record(ctx, "transport_failure")
		return terr
	}

	c.logger.Info("sms sent", "recipient", req.Recipient, "message", req.Message)
	c.record(ctx, "sent")
	return nil
}

func (c *Client) post(ctx context.Context, req Request) error {
	data, err := json.Marshal(sendPayload{
		APIToken:  req.Token,
		Recipient: req.Recipient,
		SenderID:  req.SenderID,
		Type:      "plain",
		Message:   req.Message,
	})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SendPath, bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) record(ctx context.Context, result string) {
	c.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
