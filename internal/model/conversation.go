package model

import "fmt"

type ConversationStatus string

const (
	ConversationStatusOpen     ConversationStatus = "open"
	ConversationStatusPending  ConversationStatus = "pending"
	ConversationStatusResolved ConversationStatus = "resolved"
	ConversationStatusClosed   ConversationStatus = "closed"
)

// Assignment values for ConversationItem.AssignedTo. Anything other than
// these two constants is a specific human agent id, which counts as human
// for stickiness purposes.
const (
	AssignedToAI    = "ai"
	AssignedToHuman = "human"
)

func MessagePK(conversationID, messageID string) string {
	return fmt.Sprintf("%s#%s", conversationID, messageID)
}

// ContactItem is keyed by the phone number itself, so repeated first-contact
// webhooks cannot mint duplicate contacts.
type ContactItem struct {
	Phone       string `dynamodbav:"phone"`
	DisplayName string `dynamodbav:"displayName,omitempty"`
	CreatedAt   string `dynamodbav:"createdAt"`
	LastSeenAt  string `dynamodbav:"lastSeenAt"`
}

type ConversationItem struct {
	ConversationID string             `dynamodbav:"conversationId"`
	ContactPhone   string             `dynamodbav:"contactPhone"`
	Status         ConversationStatus `dynamodbav:"status"`
	AssignedTo     string             `dynamodbav:"assignedTo"`
	Branch         string             `dynamodbav:"branch,omitempty"`
	LastMessage    string             `dynamodbav:"lastMessage"`
	LastMessageAt  string             `dynamodbav:"lastMessageAt"`
	UnreadCount    int                `dynamodbav:"unreadCount"`
	NeedsHuman     bool               `dynamodbav:"needsHuman"`
	Tags           []string           `dynamodbav:"tags,omitempty"`
	Summary        string             `dynamodbav:"summary,omitempty"`
	SummarizedAt   string             `dynamodbav:"summarizedAt,omitempty"`
	ClosedAt       string             `dynamodbav:"closedAt,omitempty"`
	ReopenedAt     string             `dynamodbav:"reopenedAt,omitempty"`
	CreatedAt      string             `dynamodbav:"createdAt"`
	UpdatedAt      string             `dynamodbav:"updatedAt"`
}

// AssignedToHumanAny reports whether the conversation is under human control,
// either the generic marker or a specific agent id.
func (c ConversationItem) AssignedToHumanAny() bool {
	return c.AssignedTo != "" && c.AssignedTo != AssignedToAI
}

// OpenConversationItem is a one-item lock per contact: it exists exactly while
// that contact has an open conversation. Creation uses a conditional put so
// two concurrent first-contact webhooks cannot both open a conversation.
type OpenConversationItem struct {
	ContactPhone   string `dynamodbav:"contactPhone"`
	ConversationID string `dynamodbav:"conversationId"`
	CreatedAt      string `dynamodbav:"createdAt"`
}

type SenderType string

const (
	SenderTypeContact SenderType = "contact"
	SenderTypeAgent   SenderType = "agent"
	SenderTypeSystem  SenderType = "system"
)

type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeVideo    ContentType = "video"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeDocument ContentType = "document"
)

type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
)

type MessageItem struct {
	PK             string         `dynamodbav:"pk"`
	ConversationID string         `dynamodbav:"conversationId"`
	MessageID      string         `dynamodbav:"messageId"`
	SenderType     SenderType     `dynamodbav:"senderType"`
	SenderID       string         `dynamodbav:"senderId"`
	Body           string         `dynamodbav:"body"`
	ContentType    ContentType    `dynamodbav:"contentType"`
	MediaURL       string         `dynamodbav:"mediaUrl,omitempty"`
	ExternalID     string         `dynamodbav:"externalId,omitempty"`
	Status         DeliveryStatus `dynamodbav:"status,omitempty"`
	CreatedAt      string         `dynamodbav:"createdAt"`
}

type NoteItem struct {
	PK             string `dynamodbav:"pk"`
	ConversationID string `dynamodbav:"conversationId"`
	NoteID         string `dynamodbav:"noteId"`
	AuthorID       string `dynamodbav:"authorId"`
	Body           string `dynamodbav:"body"`
	CreatedAt      string `dynamodbav:"createdAt"`
}
