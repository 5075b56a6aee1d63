package model

import "fmt"

const (
	ContactsTable          = "Contacts"
	ConversationsTable     = "Conversations"
	OpenConversationsTable = "OpenConversations"
	MessagesTable          = "Messages"
	NotesTable             = "Notes"
	AgentsTable            = "Agents"
	ContextDocumentsTable  = "ContextDocuments"
	AlertsTable            = "Alerts"
	SystemLogsTable        = "SystemLogs"
	ProductsTable          = "Products"
)

type AgentKind string

const (
	AgentKindHuman AgentKind = "human"
	AgentKindAI    AgentKind = "ai"
)

// AgentItem stores both agent variants in one table. Human agents carry
// credentials, a role and assigned branches; AI agents carry the system
// prompt, which is read on every generation rather than cached.
type AgentItem struct {
	AgentID      string    `dynamodbav:"agentId"`
	Kind         AgentKind `dynamodbav:"kind"`
	Name         string    `dynamodbav:"name"`
	Email        string    `dynamodbav:"email,omitempty"`
	PasswordHash string    `dynamodbav:"passwordHash,omitempty"`
	Role         string    `dynamodbav:"role,omitempty"`
	Branches     []string  `dynamodbav:"branches,omitempty"`
	SystemPrompt string    `dynamodbav:"systemPrompt,omitempty"`
	Active       bool      `dynamodbav:"active"`
	CreatedAt    string    `dynamodbav:"createdAt"`
	UpdatedAt    string    `dynamodbav:"updatedAt"`
}

type ContextDocumentItem struct {
	DocumentID string `dynamodbav:"documentId"`
	Name       string `dynamodbav:"name"`
	Content    string `dynamodbav:"content"`
	Active     bool   `dynamodbav:"active"`
	SizeBytes  int    `dynamodbav:"sizeBytes"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

type AlertType string

const AlertTypeHandOff AlertType = "handOff"

// AlertItem records a hand-off event. Append-only; only the hand-off path
// writes these.
type AlertItem struct {
	AlertID        string    `dynamodbav:"alertId"`
	ConversationID string    `dynamodbav:"conversationId"`
	Type           AlertType `dynamodbav:"type"`
	Message        string    `dynamodbav:"message"`
	CreatedAt      string    `dynamodbav:"createdAt"`
}

type SystemLogType string

const (
	SystemLogWebhookIncoming SystemLogType = "webhook_incoming"
	SystemLogWebhookStatus   SystemLogType = "webhook_status"
	SystemLogWebhookError    SystemLogType = "webhook_error"
	SystemLogAIError         SystemLogType = "ai_error"
	SystemLogSendError       SystemLogType = "send_error"
	SystemLogSweep           SystemLogType = "sweep"
)

type SystemLogItem struct {
	LogID     string        `dynamodbav:"logId"`
	Type      SystemLogType `dynamodbav:"type"`
	Payload   string        `dynamodbav:"payload"`
	CreatedAt string        `dynamodbav:"createdAt"`
}

type ProductItem struct {
	ProductID   string `dynamodbav:"productId"`
	Name        string `dynamodbav:"name"`
	SKU         string `dynamodbav:"sku"`
	Price       string `dynamodbav:"price"`
	Description string `dynamodbav:"description,omitempty"`
	Category    string `dynamodbav:"category,omitempty"`
	CreatedAt   string `dynamodbav:"createdAt"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
}

func NotePK(conversationID, noteID string) string {
	return fmt.Sprintf("%s#%s", conversationID, noteID)
}
