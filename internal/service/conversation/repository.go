package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"support-bridge-backend/internal/database"
	"support-bridge-backend/internal/model"
)

var (
	ErrNotFound = errors.New("conversation repository: not found")
	// ErrConflict reports a lost conditional write: an open-conversation lock
	// that already exists, or a status transition whose precondition no
	// longer holds.
	ErrConflict = errors.New("conversation repository: conflict")
)

type Repository interface {
	GetContact(ctx context.Context, phone string) (model.ContactItem, error)
	CreateContact(ctx context.Context, contact model.ContactItem) error
	TouchContact(ctx context.Context, phone, lastSeenAt string) error

	GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error)
	CreateConversation(ctx context.Context, conversation model.ConversationItem) error
	GetOpenConversationID(ctx context.Context, contactPhone string) (string, error)
	LockOpenConversation(ctx context.Context, lock model.OpenConversationItem) error
	ReleaseOpenConversation(ctx context.Context, contactPhone string) error
	RecordContactActivity(ctx context.Context, conversationID, lastMessage, at string) (model.ConversationItem, error)
	RecordAgentActivity(ctx context.Context, conversationID, lastMessage, at string) error
	MarkHandOff(ctx context.Context, conversationID, assignedTo, branch, at string) error
	MarkNeedsHuman(ctx context.Context, conversationID, at string) error
	SetAssignment(ctx context.Context, conversationID, assignedTo string, needsHuman bool, at string) error
	SetBranch(ctx context.Context, conversationID, branch, at string) error
	SetTags(ctx context.Context, conversationID string, tags []string, at string) error
	SetSummary(ctx context.Context, conversationID, summary, at string) error
	CloseConversation(ctx context.Context, conversationID, summary, at string) error
	ReopenConversation(ctx context.Context, conversationID, at string) error
	ListConversations(ctx context.Context, filter ListFilter) ([]model.ConversationItem, error)
	ListContactConversations(ctx context.Context, contactPhone string) ([]model.ConversationItem, error)

	CreateMessage(ctx context.Context, message model.MessageItem) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error)
	UpdateMessageStatus(ctx context.Context, externalID string, status model.DeliveryStatus) error

	CreateNote(ctx context.Context, note model.NoteItem) error
	ListNotes(ctx context.Context, conversationID string) ([]model.NoteItem, error)
	DeleteNote(ctx context.Context, conversationID, noteID string) error

	CreateAlert(ctx context.Context, alert model.AlertItem) error
	ListAlerts(ctx context.Context, conversationID string, limit int) ([]model.AlertItem, error)
}

// ListFilter narrows conversation listings. Zero values mean "any".
type ListFilter struct {
	Status     model.ConversationStatus
	NeedsHuman *bool
	Limit      int
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetContact(ctx context.Context, phone string) (model.ContactItem, error) {
	var contact model.ContactItem
	err := r.db.Client.GetItem(
		ctx,
		model.ContactsTable,
		map[string]types.AttributeValue{
			"phone": &types.AttributeValueMemberS{Value: phone},
		},
		&contact,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ContactItem{}, ErrNotFound
		}
		return model.ContactItem{}, err
	}
	return contact, nil
}

func (r *DynamoRepository) CreateContact(ctx context.Context, contact model.ContactItem) error {
	err := r.db.Client.PutItemConditional(ctx, model.ContactsTable, contact, "attribute_not_exists(phone)")
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) TouchContact(ctx context.Context, phone, lastSeenAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ContactsTable,
		map[string]types.AttributeValue{
			"phone": &types.AttributeValueMemberS{Value: phone},
		},
		"SET #lastSeenAt = :lastSeenAt",
		map[string]types.AttributeValue{
			":lastSeenAt": &types.AttributeValueMemberS{Value: lastSeenAt},
		},
		map[string]string{
			"#lastSeenAt": "lastSeenAt",
		},
		nil,
	)
}

func (r *DynamoRepository) GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	var conversation model.ConversationItem
	err := r.db.Client.GetItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		&conversation,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ConversationItem{}, ErrNotFound
		}
		return model.ConversationItem{}, err
	}
	return conversation, nil
}

func (r *DynamoRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	return r.db.Client.PutItem(ctx, model.ConversationsTable, conversation)
}

func (r *DynamoRepository) GetOpenConversationID(ctx context.Context, contactPhone string) (string, error) {
	var lock model.OpenConversationItem
	err := r.db.Client.GetItem(
		ctx,
		model.OpenConversationsTable,
		map[string]types.AttributeValue{
			"contactPhone": &types.AttributeValueMemberS{Value: contactPhone},
		},
		&lock,
	)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return lock.ConversationID, nil
}

func (r *DynamoRepository) LockOpenConversation(ctx context.Context, lock model.OpenConversationItem) error {
	err := r.db.Client.PutItemConditional(ctx, model.OpenConversationsTable, lock, "attribute_not_exists(contactPhone)")
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) ReleaseOpenConversation(ctx context.Context, contactPhone string) error {
	return r.db.Client.DeleteItem(
		ctx,
		model.OpenConversationsTable,
		map[string]types.AttributeValue{
			"contactPhone": &types.AttributeValueMemberS{Value: contactPhone},
		},
	)
}

// RecordContactActivity applies the rolling inbound-message update. The
// unread counter uses an ADD expression so concurrent webhook deliveries
// cannot lose increments; assignedTo is deliberately not part of the
// expression (stickiness rule).
func (r *DynamoRepository) RecordContactActivity(ctx context.Context, conversationID, lastMessage, at string) (model.ConversationItem, error) {
	var updated model.ConversationItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #lastMessage = :lastMessage, #lastMessageAt = :at, #updatedAt = :at ADD #unreadCount :one",
		map[string]types.AttributeValue{
			":lastMessage": &types.AttributeValueMemberS{Value: lastMessage},
			":at":          &types.AttributeValueMemberS{Value: at},
			":one":         &types.AttributeValueMemberN{Value: "1"},
		},
		map[string]string{
			"#lastMessage":   "lastMessage",
			"#lastMessageAt": "lastMessageAt",
			"#updatedAt":     "updatedAt",
			"#unreadCount":   "unreadCount",
		},
		&updated,
	)
	if err != nil {
		return model.ConversationItem{}, err
	}
	return updated, nil
}

// RecordAgentActivity refreshes activity fields after an outbound message and
// clears the unread counter.
func (r *DynamoRepository) RecordAgentActivity(ctx context.Context, conversationID, lastMessage, at string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #lastMessage = :lastMessage, #lastMessageAt = :at, #updatedAt = :at, #unreadCount = :zero",
		map[string]types.AttributeValue{
			":lastMessage": &types.AttributeValueMemberS{Value: lastMessage},
			":at":          &types.AttributeValueMemberS{Value: at},
			":zero":        &types.AttributeValueMemberN{Value: "0"},
		},
		map[string]string{
			"#lastMessage":   "lastMessage",
			"#lastMessageAt": "lastMessageAt",
			"#updatedAt":     "updatedAt",
			"#unreadCount":   "unreadCount",
		},
		nil,
	)
}

func (r *DynamoRepository) MarkHandOff(ctx context.Context, conversationID, assignedTo, branch, at string) error {
	updateExpr := "SET #assignedTo = :assignedTo, #needsHuman = :true, #updatedAt = :at"
	exprValues := map[string]types.AttributeValue{
		":assignedTo": &types.AttributeValueMemberS{Value: assignedTo},
		":true":       &types.AttributeValueMemberBOOL{Value: true},
		":at":         &types.AttributeValueMemberS{Value: at},
	}
	attrNames := map[string]string{
		"#assignedTo": "assignedTo",
		"#needsHuman": "needsHuman",
		"#updatedAt":  "updatedAt",
	}

	if branch != "" {
		updateExpr += ", #branch = :branch"
		exprValues[":branch"] = &types.AttributeValueMemberS{Value: branch}
		attrNames["#branch"] = "branch"
	}

	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		updateExpr,
		exprValues,
		attrNames,
		nil,
	)
}

func (r *DynamoRepository) MarkNeedsHuman(ctx context.Context, conversationID, at string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #needsHuman = :true, #updatedAt = :at",
		map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":at":   &types.AttributeValueMemberS{Value: at},
		},
		map[string]string{
			"#needsHuman": "needsHuman",
			"#updatedAt":  "updatedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) SetAssignment(ctx context.Context, conversationID, assignedTo string, needsHuman bool, at string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #assignedTo = :assignedTo, #needsHuman = :needsHuman, #updatedAt = :at",
		map[string]types.AttributeValue{
			":assignedTo": &types.AttributeValueMemberS{Value: assignedTo},
			":needsHuman": &types.AttributeValueMemberBOOL{Value: needsHuman},
			":at":         &types.AttributeValueMemberS{Value: at},
		},
		map[string]string{
			"#assignedTo": "assignedTo",
			"#needsHuman": "needsHuman",
			"#updatedAt":  "updatedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) SetBranch(ctx context.Context, conversationID, branch, at string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #branch = :branch, #updatedAt = :at",
		map[string]types.AttributeValue{
			":branch": &types.AttributeValueMemberS{Value: branch},
			":at":     &types.AttributeValueMemberS{Value: at},
		},
		map[string]string{
			"#branch":    "branch",
			"#updatedAt": "updatedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) SetTags(ctx context.Context, conversationID string, tags []string, at string) error {
	tagList := make([]types.AttributeValue, 0, len(tags))
	for _, tag := range tags {
		tagList = append(tagList, &types.AttributeValueMemberS{Value: tag})
	}
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #tags = :tags, #updatedAt = :at",
		map[string]types.AttributeValue{
			":tags": &types.AttributeValueMemberL{Value: tagList},
			":at":   &types.AttributeValueMemberS{Value: at},
		},
		map[string]string{
			"#tags":      "tags",
			"#updatedAt": "updatedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) SetSummary(ctx context.Context, conversationID, summary, at string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #summary = :summary, #summarizedAt = :at, #updatedAt = :at",
		map[string]types.AttributeValue{
			":summary": &types.AttributeValueMemberS{Value: summary},
			":at":      &types.AttributeValueMemberS{Value: at},
		},
		map[string]string{
			"#summary":      "summary",
			"#summarizedAt": "summarizedAt",
			"#updatedAt":    "updatedAt",
		},
		nil,
	)
}

// CloseConversation transitions to closed only while the conversation is not
// already closed, so the sweep and an explicit close cannot double-process.
func (r *DynamoRepository) CloseConversation(ctx context.Context, conversationID, summary, at string) error {
	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #status = :closed, #closedAt = :at, #summary = :summary, #summarizedAt = :at, #updatedAt = :at",
		"#status <> :closed",
		map[string]types.AttributeValue{
			":closed":  &types.AttributeValueMemberS{Value: string(model.ConversationStatusClosed)},
			":summary": &types.AttributeValueMemberS{Value: summary},
			":at":      &types.AttributeValueMemberS{Value: at},
		},
		map[string]string{
			"#status":       "status",
			"#closedAt":     "closedAt",
			"#summary":      "summary",
			"#summarizedAt": "summarizedAt",
			"#updatedAt":    "updatedAt",
		},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) ReopenConversation(ctx context.Context, conversationID, at string) error {
	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #status = :open, #reopenedAt = :at, #updatedAt = :at",
		"#status = :closed",
		map[string]types.AttributeValue{
			":open":   &types.AttributeValueMemberS{Value: string(model.ConversationStatusOpen)},
			":closed": &types.AttributeValueMemberS{Value: string(model.ConversationStatusClosed)},
			":at":     &types.AttributeValueMemberS{Value: at},
		},
		map[string]string{
			"#status":     "status",
			"#reopenedAt": "reopenedAt",
			"#updatedAt":  "updatedAt",
		},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrConflict
	}
	return err
}

func (r *DynamoRepository) ListConversations(ctx context.Context, filter ListFilter) ([]model.ConversationItem, error) {
	var items []map[string]types.AttributeValue
	var err error

	if filter.Status != "" {
		items, err = r.db.Client.ScanAllWithFilter(
			ctx,
			model.ConversationsTable,
			"#status = :status",
			map[string]types.AttributeValue{
				":status": &types.AttributeValueMemberS{Value: string(filter.Status)},
			},
			map[string]string{
				"#status": "status",
			},
		)
	} else {
		items, err = r.db.Client.ScanAll(ctx, model.ConversationsTable)
	}
	if err != nil {
		return nil, err
	}

	conversations := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conversation model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conversation); err != nil {
			return nil, err
		}
		if filter.NeedsHuman != nil && conversation.NeedsHuman != *filter.NeedsHuman {
			continue
		}
		conversations = append(conversations, conversation)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt > conversations[j].LastMessageAt
	})

	if filter.Limit > 0 && len(conversations) > filter.Limit {
		conversations = conversations[:filter.Limit]
	}

	return conversations, nil
}

func (r *DynamoRepository) ListContactConversations(ctx context.Context, contactPhone string) ([]model.ConversationItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		model.ConversationsTable,
		aws.String("byContact"),
		"contactPhone = :contactPhone",
		map[string]types.AttributeValue{
			":contactPhone": &types.AttributeValueMemberS{Value: contactPhone},
		},
	)
	if err != nil {
		return nil, err
	}

	conversations := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conversation model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conversation); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt > conversations[j].CreatedAt
	})

	return conversations, nil
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	return r.db.Client.PutItem(ctx, model.MessagesTable, message)
}

func (r *DynamoRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error) {
	scanForward := true
	items, err := r.db.Client.QueryItems(
		ctx,
		model.MessagesTable,
		aws.String("byConversation"),
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		nil,
		&scanForward,
	)
	if err != nil {
		return nil, err
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	sort.Slice(messages, func(i, j int) bool {
		ti := parseTime(messages[i].CreatedAt)
		tj := parseTime(messages[j].CreatedAt)
		return ti.Before(tj)
	})

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

func (r *DynamoRepository) UpdateMessageStatus(ctx context.Context, externalID string, status model.DeliveryStatus) error {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.MessagesTable,
		"externalId = :externalId",
		map[string]types.AttributeValue{
			":externalId": &types.AttributeValueMemberS{Value: externalID},
		},
		nil,
	)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrNotFound
	}

	var message model.MessageItem
	if err := attributevalue.UnmarshalMap(items[0], &message); err != nil {
		return err
	}

	return r.db.Client.UpdateItem(
		ctx,
		model.MessagesTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: message.PK},
		},
		"SET #status = :status",
		map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		map[string]string{
			"#status": "status",
		},
		nil,
	)
}

func (r *DynamoRepository) CreateNote(ctx context.Context, note model.NoteItem) error {
	return r.db.Client.PutItem(ctx, model.NotesTable, note)
}

func (r *DynamoRepository) ListNotes(ctx context.Context, conversationID string) ([]model.NoteItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.NotesTable,
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	notes := make([]model.NoteItem, 0, len(items))
	for _, item := range items {
		var note model.NoteItem
		if err := attributevalue.UnmarshalMap(item, &note); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt < notes[j].CreatedAt
	})

	return notes, nil
}

func (r *DynamoRepository) DeleteNote(ctx context.Context, conversationID, noteID string) error {
	return r.db.Client.DeleteItem(
		ctx,
		model.NotesTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.NotePK(conversationID, noteID)},
		},
	)
}

func (r *DynamoRepository) CreateAlert(ctx context.Context, alert model.AlertItem) error {
	return r.db.Client.PutItem(ctx, model.AlertsTable, alert)
}

func (r *DynamoRepository) ListAlerts(ctx context.Context, conversationID string, limit int) ([]model.AlertItem, error) {
	var items []map[string]types.AttributeValue
	var err error

	if conversationID != "" {
		items, err = r.db.Client.ScanAllWithFilter(
			ctx,
			model.AlertsTable,
			"conversationId = :conversationId",
			map[string]types.AttributeValue{
				":conversationId": &types.AttributeValueMemberS{Value: conversationID},
			},
			nil,
		)
	} else {
		items, err = r.db.Client.ScanAll(ctx, model.AlertsTable)
	}
	if err != nil {
		return nil, err
	}

	alerts := make([]model.AlertItem, 0, len(items))
	for _, item := range items {
		var alert model.AlertItem
		if err := attributevalue.UnmarshalMap(item, &alert); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt > alerts[j].CreatedAt
	})

	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}

	return alerts, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}

func parseTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
