package dto

type ConversationDTO struct {
	ConversationID string   `json:"conversationId"`
	ContactPhone   string   `json:"contactPhone"`
	Status         string   `json:"status"`
	AssignedTo     string   `json:"assignedTo,omitempty"`
	Branch         string   `json:"branch,omitempty"`
	LastMessage    string   `json:"lastMessage,omitempty"`
	LastMessageAt  string   `json:"lastMessageAt,omitempty"`
	UnreadCount    int      `json:"unreadCount"`
	NeedsHuman     bool     `json:"needsHuman"`
	Tags           []string `json:"tags,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	SummarizedAt   string   `json:"summarizedAt,omitempty"`
	ClosedAt       string   `json:"closedAt,omitempty"`
	ReopenedAt     string   `json:"reopenedAt,omitempty"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

type MessageDTO struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	SenderType     string `json:"senderType"`
	SenderID       string `json:"senderId,omitempty"`
	Body           string `json:"body"`
	ContentType    string `json:"contentType"`
	MediaURL       string `json:"mediaUrl,omitempty"`
	ExternalID     string `json:"externalId,omitempty"`
	Status         string `json:"status,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type NoteDTO struct {
	NoteID         string `json:"noteId"`
	ConversationID string `json:"conversationId"`
	AuthorID       string `json:"authorId"`
	Body           string `json:"body"`
	CreatedAt      string `json:"createdAt"`
}

type AlertDTO struct {
	AlertID        string `json:"alertId"`
	ConversationID string `json:"conversationId"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	CreatedAt      string `json:"createdAt"`
}

type ListConversationsResponse struct {
	Conversations []ConversationDTO `json:"conversations"`
}

type ConversationDetailResponse struct {
	Conversation ConversationDTO `json:"conversation"`
	Messages     []MessageDTO    `json:"messages"`
	Notes        []NoteDTO       `json:"notes"`
}

type ListMessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
}

type PostAgentMessageRequest struct {
	AgentID string `json:"agentId"`
	Body    string `json:"body"`
}

// AssignRequest moves a conversation to the named agent, or back to the
// assistant when AgentID is "ai".
type AssignRequest struct {
	AgentID string `json:"agentId"`
}

type TagsRequest struct {
	Tags []string `json:"tags"`
}

type BranchRequest struct {
	Branch string `json:"branch"`
}

type NoteRequest struct {
	AuthorID string `json:"authorId"`
	Body     string `json:"body"`
}

type SummaryResponse struct {
	ConversationID string `json:"conversationId"`
	Summary        string `json:"summary"`
}

type ListAlertsResponse struct {
	Alerts []AlertDTO `json:"alerts"`
}

type SweepResponse struct {
	Examined int      `json:"examined"`
	Closed   []string `json:"closed"`
}
