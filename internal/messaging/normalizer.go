// Package messaging covers both directions of the WhatsApp transport: parsing
// raw inbound webhook payloads into canonical events and sending outbound
// messages through the REST gateway.
package messaging

import (
	"errors"
	"net/url"
	"strings"

	"support-bridge-backend/internal/model"
)

type EventKind string

const (
	// EventContent is an actual user message and enters the routing pipeline.
	EventContent EventKind = "content"
	// EventStatus is a delivery callback (sent/delivered/read); it is logged
	// and may update a message's delivery status, but never routes.
	EventStatus EventKind = "status"
)

var (
	ErrMissingSender = errors.New("messaging: inbound payload missing sender phone")
	ErrMissingBody   = errors.New("messaging: inbound payload missing message body")
)

// InboundEvent is the canonical shape of one webhook delivery.
type InboundEvent struct {
	Kind        EventKind
	FromPhone   string
	ToChannel   string
	Text        string
	ProfileName string
	MediaURL    string
	ContentType model.ContentType
	StatusEvent string
	MessageSID  string
}

// ParseInbound normalizes a form-encoded webhook payload. A payload carrying
// MessageStatus is a status event regardless of other fields; everything else
// must have a sender and a body to be a content event.
func ParseInbound(form url.Values) (InboundEvent, error) {
	status := strings.TrimSpace(form.Get("MessageStatus"))
	if status != "" {
		return InboundEvent{
			Kind:        EventStatus,
			StatusEvent: strings.ToLower(status),
			FromPhone:   normalizePhone(form.Get("From")),
			ToChannel:   normalizePhone(form.Get("To")),
			MessageSID:  strings.TrimSpace(form.Get("MessageSid")),
		}, nil
	}

	from := normalizePhone(form.Get("From"))
	if from == "" {
		return InboundEvent{}, ErrMissingSender
	}

	body := strings.TrimSpace(form.Get("Body"))
	if body == "" {
		return InboundEvent{}, ErrMissingBody
	}

	event := InboundEvent{
		Kind:        EventContent,
		FromPhone:   from,
		ToChannel:   normalizePhone(form.Get("To")),
		Text:        body,
		ProfileName: strings.TrimSpace(form.Get("ProfileName")),
		MediaURL:    strings.TrimSpace(form.Get("MediaUrl0")),
		ContentType: model.ContentTypeText,
		MessageSID:  strings.TrimSpace(form.Get("MessageSid")),
	}
	if event.MediaURL != "" {
		event.ContentType = contentTypeFromMIME(form.Get("MediaContentType0"))
	}

	return event, nil
}

// normalizePhone strips the channel prefix ("whatsapp:+52...") down to the
// bare number used as the contact id.
func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "whatsapp:")
	return strings.TrimSpace(raw)
}

func contentTypeFromMIME(mime string) model.ContentType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.ContentTypeImage
	case strings.HasPrefix(mime, "video/"):
		return model.ContentTypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return model.ContentTypeAudio
	case mime == "":
		return model.ContentTypeText
	default:
		return model.ContentTypeDocument
	}
}
