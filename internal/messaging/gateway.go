package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"support-bridge-backend/internal/env"
)

// MessageHandle identifies an accepted outbound message at the transport.
type MessageHandle struct {
	SID string
}

// Gateway sends outbound WhatsApp messages. Implementations must be safe for
// concurrent use.
type Gateway interface {
	Send(ctx context.Context, toPhone, body, mediaURL string) (MessageHandle, error)
}

const defaultAPIBaseURL = "https://api.twilio.com"

// NewGatewayFromEnv builds the REST gateway when transport credentials are
// configured and a no-op gateway otherwise, so environments without
// credentials still persist messages normally.
func NewGatewayFromEnv(logger *zap.Logger) Gateway {
	sid := env.Get(env.WhatsAppSID)
	token := env.Get(env.WhatsAppToken)
	from := env.Get(env.WhatsAppFrom)

	if sid == "" || token == "" || from == "" {
		logger.Warn("whatsapp credentials absent, outbound sends disabled")
		return &disabledGateway{logger: logger}
	}

	return &restGateway{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		accountSID: sid,
		authToken:  token,
		fromNumber: from,
		baseURL:    env.GetOrDefault(env.WhatsAppBaseURL, defaultAPIBaseURL),
		logger:     logger,
	}
}

type restGateway struct {
	httpClient *http.Client
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	logger     *zap.Logger
}

type sendResponse struct {
	SID string `json:"sid"`
}

func (g *restGateway) Send(ctx context.Context, toPhone, body, mediaURL string) (MessageHandle, error) {
	toPhone = normalizePhone(toPhone)
	if toPhone == "" {
		return MessageHandle{}, fmt.Errorf("messaging send: recipient phone is required")
	}

	form := url.Values{}
	form.Set("To", "whatsapp:"+toPhone)
	form.Set("From", "whatsapp:"+g.fromNumber)
	form.Set("Body", body)
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(g.baseURL, "/"), g.accountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return MessageHandle{}, fmt.Errorf("messaging send: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(g.accountSID, g.authToken)

	res, err := g.httpClient.Do(req)
	if err != nil {
		return MessageHandle{}, fmt.Errorf("messaging send: %w", err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return MessageHandle{}, fmt.Errorf("messaging send: read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return MessageHandle{}, fmt.Errorf("messaging send: gateway returned %d: %s", res.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed sendResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return MessageHandle{}, fmt.Errorf("messaging send: decode response: %w", err)
	}
	if parsed.SID == "" {
		return MessageHandle{}, fmt.Errorf("messaging send: gateway response missing sid")
	}

	g.logger.Debug("outbound message accepted",
		zap.String("to", toPhone),
		zap.String("sid", parsed.SID))

	return MessageHandle{SID: parsed.SID}, nil
}

// disabledGateway returns synthetic handles so the rest of the pipeline
// (message persistence, conversation updates) proceeds unaffected.
type disabledGateway struct {
	logger *zap.Logger
}

func (g *disabledGateway) Send(ctx context.Context, toPhone, body, mediaURL string) (MessageHandle, error) {
	handle := MessageHandle{SID: "disabled-" + uuid.NewString()}
	g.logger.Debug("outbound send skipped, transport disabled",
		zap.String("to", normalizePhone(toPhone)))
	return handle, nil
}
