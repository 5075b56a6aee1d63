package endpoints

import (
	"support-bridge-backend/internal/messaging"
	conversationservice "support-bridge-backend/internal/service/conversation"
	webhookservice "support-bridge-backend/internal/service/webhook"
	"support-bridge-backend/internal/websocket"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// twimlEmpty is the provider acknowledgement. Replies go out through the REST
// gateway, never inline in the webhook response.
const twimlEmpty = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

type WebhookEndpoints interface {
	Incoming(http.ResponseWriter, *http.Request) error
}

type webhookEndpoints struct {
	service *webhookservice.Service
}

func NewWebhookEndpoints(service *webhookservice.Service) WebhookEndpoints {
	return &webhookEndpoints{service: service}
}

func (h *webhookEndpoints) Incoming(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleIncoming,
	})
}

func (h *webhookEndpoints) handleIncoming(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid form payload",
			ErrorLog:   fmt.Errorf("parse webhook form: %w", err),
		}
	}

	result, err := h.service.Process(r.Context(), r.PostForm)
	if err != nil {
		// A malformed payload is the sender's fault; anything else is ours,
		// and answering 5xx lets the transport retry the delivery.
		if isWebhookPayloadError(err) {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Invalid webhook payload",
				ErrorLog:   fmt.Errorf("process webhook: %w", err),
			}
		}
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Webhook processing failed",
			ErrorLog:   fmt.Errorf("process webhook: %w", err),
		}
	}

	h.broadcast(result)

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(twimlEmpty))
	return nil
}

func isWebhookPayloadError(err error) bool {
	if errors.Is(err, messaging.ErrMissingSender) || errors.Is(err, messaging.ErrMissingBody) {
		return true
	}
	var svcErr *conversationservice.Error
	return errors.As(err, &svcErr) && svcErr.Code == conversationservice.ErrorCodeValidation
}

// broadcast tells the dashboard about webhook activity over Redis. The
// webhook server hosts no websocket clients itself, ws-server instances pick
// the events up from the channel.
func (h *webhookEndpoints) broadcast(result webhookservice.Result) {
	if result.ConversationID == "" {
		return
	}

	eventType := "conversation.updated"
	if result.Kind == messaging.EventStatus {
		eventType = "message.status"
	} else if result.HandedOff {
		eventType = "conversation.handoff"
	}

	payload := map[string]interface{}{
		"type":           eventType,
		"conversationId": result.ConversationID,
		"replied":        result.Replied,
		"handedOff":      result.HandedOff,
		"broadcastedAt":  time.Now().UTC().Format(time.RFC3339),
	}

	if err := websocket.Publish(result.ConversationID, payload); err != nil {
		fmt.Printf("failed to publish webhook event for room %s: %v\n", result.ConversationID, err)
	}
	if err := websocket.Publish(agentNotificationRoom, payload); err != nil {
		fmt.Printf("failed to publish webhook event for room %s: %v\n", agentNotificationRoom, err)
	}
}
