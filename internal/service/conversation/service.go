package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"support-bridge-backend/internal/ai"
	"support-bridge-backend/internal/database"
	"support-bridge-backend/internal/model"
)

// summaryPlaceholder is stored when the summarizer is unreachable at close
// time, so the close itself never waits on the AI backend.
const summaryPlaceholder = "Resumen no disponible (error al generar)."

type Service struct {
	repo      Repository
	responder ai.Responder
	now       func() time.Time
	threshold time.Duration
	logger    *zap.Logger
}

func New(db *database.Database, responder ai.Responder, threshold time.Duration, logger *zap.Logger) *Service {
	return NewWithRepository(NewDynamoRepository(db), responder, threshold, logger, time.Now)
}

func NewWithRepository(repo Repository, responder ai.Responder, threshold time.Duration, logger *zap.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:      repo,
		responder: responder,
		now:       now,
		threshold: threshold,
		logger:    logger,
	}
}

// RecordInbound ensures the contact exists, routes the message into the
// contact's single open conversation (creating one when none exists) and
// persists the message. The open-conversation lock keeps concurrent
// first-contact deliveries from opening two conversations: the loser of the
// conditional put re-reads the pointer and reuses the winner's conversation.
func (s *Service) RecordInbound(ctx context.Context, params InboundParams) (InboundResult, error) {
	phone := strings.TrimSpace(params.Phone)
	if phone == "" {
		return InboundResult{}, newError(ErrorCodeValidation, "missing contact phone", nil)
	}
	if strings.TrimSpace(params.Body) == "" && params.MediaURL == "" {
		return InboundResult{}, newError(ErrorCodeValidation, "missing message body", nil)
	}

	now := s.now().UTC().Format(time.RFC3339)

	if err := s.ensureContact(ctx, phone, params.ProfileName, now); err != nil {
		return InboundResult{}, newError(ErrorCodeInternal, "failed to resolve contact", err)
	}

	conversation, created, err := s.resolveOpenConversation(ctx, phone, params.Body, now)
	if err != nil {
		return InboundResult{}, newError(ErrorCodeInternal, "failed to resolve conversation", err)
	}

	if !created {
		updated, err := s.repo.RecordContactActivity(ctx, conversation.ConversationID, params.Body, now)
		if err != nil {
			return InboundResult{}, newError(ErrorCodeInternal, "failed to update conversation activity", err)
		}
		conversation = updated
	}

	contentType := params.ContentType
	if contentType == "" {
		contentType = model.ContentTypeText
	}

	messageID := uuid.NewString()
	message := model.MessageItem{
		PK:             model.MessagePK(conversation.ConversationID, messageID),
		ConversationID: conversation.ConversationID,
		MessageID:      messageID,
		SenderType:     model.SenderTypeContact,
		SenderID:       phone,
		Body:           params.Body,
		ContentType:    contentType,
		MediaURL:       params.MediaURL,
		ExternalID:     params.ExternalID,
		CreatedAt:      now,
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return InboundResult{}, newError(ErrorCodeInternal, "failed to store message", err)
	}

	return InboundResult{
		Conversation: conversation,
		Message:      message,
		Created:      created,
	}, nil
}

func (s *Service) ensureContact(ctx context.Context, phone, profileName, now string) error {
	_, err := s.repo.GetContact(ctx, phone)
	if err == nil {
		return s.repo.TouchContact(ctx, phone, now)
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	contact := model.ContactItem{
		Phone:       phone,
		DisplayName: profileName,
		CreatedAt:   now,
		LastSeenAt:  now,
	}
	if err := s.repo.CreateContact(ctx, contact); err != nil {
		// Lost the creation race; the contact exists now.
		if errors.Is(err, ErrConflict) {
			return s.repo.TouchContact(ctx, phone, now)
		}
		return err
	}
	return nil
}

func (s *Service) resolveOpenConversation(ctx context.Context, phone, firstMessage, now string) (model.ConversationItem, bool, error) {
	conversationID, err := s.repo.GetOpenConversationID(ctx, phone)
	if err == nil {
		conversation, err := s.repo.GetConversation(ctx, conversationID)
		if err == nil {
			return conversation, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return model.ConversationItem{}, false, err
		}
		// Dangling pointer: the conversation item is gone. Drop the lock and
		// open a fresh conversation below.
		if err := s.repo.ReleaseOpenConversation(ctx, phone); err != nil {
			return model.ConversationItem{}, false, err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return model.ConversationItem{}, false, err
	}

	conversationID = uuid.NewString()
	lock := model.OpenConversationItem{
		ContactPhone:   phone,
		ConversationID: conversationID,
		CreatedAt:      now,
	}

	if err := s.repo.LockOpenConversation(ctx, lock); err != nil {
		if errors.Is(err, ErrConflict) {
			// Another delivery opened the conversation first; reuse it.
			existingID, err := s.repo.GetOpenConversationID(ctx, phone)
			if err != nil {
				return model.ConversationItem{}, false, err
			}
			conversation, err := s.repo.GetConversation(ctx, existingID)
			if err != nil {
				return model.ConversationItem{}, false, err
			}
			return conversation, false, nil
		}
		return model.ConversationItem{}, false, err
	}

	conversation := model.ConversationItem{
		ConversationID: conversationID,
		ContactPhone:   phone,
		Status:         model.ConversationStatusOpen,
		AssignedTo:     model.AssignedToAI,
		LastMessage:    firstMessage,
		LastMessageAt:  now,
		UnreadCount:    1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return model.ConversationItem{}, false, err
	}

	return conversation, true, nil
}

// RecordOutbound stores an agent, assistant or system message and refreshes
// the conversation's activity fields.
func (s *Service) RecordOutbound(ctx context.Context, params OutboundParams) (model.MessageItem, error) {
	if params.ConversationID == "" {
		return model.MessageItem{}, newError(ErrorCodeValidation, "missing conversation id", nil)
	}
	if strings.TrimSpace(params.Body) == "" {
		return model.MessageItem{}, newError(ErrorCodeValidation, "missing message body", nil)
	}

	now := s.now().UTC().Format(time.RFC3339)
	messageID := uuid.NewString()
	message := model.MessageItem{
		PK:             model.MessagePK(params.ConversationID, messageID),
		ConversationID: params.ConversationID,
		MessageID:      messageID,
		SenderType:     params.SenderType,
		SenderID:       params.SenderID,
		Body:           params.Body,
		ContentType:    model.ContentTypeText,
		ExternalID:     params.ExternalID,
		Status:         model.DeliveryStatusSent,
		CreatedAt:      now,
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to store message", err)
	}

	if err := s.repo.RecordAgentActivity(ctx, params.ConversationID, params.Body, now); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to update conversation activity", err)
	}

	return message, nil
}

// HandOff moves the conversation to human control. Idempotent: a conversation
// already flagged and under human control is left untouched and no duplicate
// alert is recorded.
func (s *Service) HandOff(ctx context.Context, params HandOffParams) (model.ConversationItem, error) {
	conversation, err := s.getConversation(ctx, params.ConversationID)
	if err != nil {
		return model.ConversationItem{}, err
	}

	if conversation.NeedsHuman && conversation.AssignedToHumanAny() {
		return conversation, nil
	}

	now := s.now().UTC().Format(time.RFC3339)

	if err := s.repo.MarkHandOff(ctx, conversation.ConversationID, model.AssignedToHuman, params.Branch, now); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to mark hand-off", err)
	}

	alertMessage := params.Reason
	if alertMessage == "" {
		alertMessage = "conversation handed off to a human agent"
	}
	alert := model.AlertItem{
		AlertID:        uuid.NewString(),
		ConversationID: conversation.ConversationID,
		Type:           model.AlertTypeHandOff,
		Message:        alertMessage,
		CreatedAt:      now,
	}
	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		// The hand-off itself succeeded; a missing alert is recoverable.
		s.logger.Error("failed to record hand-off alert",
			zap.String("conversationId", conversation.ConversationID),
			zap.Error(err),
		)
	}

	conversation.AssignedTo = model.AssignedToHuman
	conversation.NeedsHuman = true
	if params.Branch != "" {
		conversation.Branch = params.Branch
	}
	conversation.UpdatedAt = now
	return conversation, nil
}

// DeferBranchChoice flags the conversation for a human without changing the
// assignment, used while the contact is still picking a branch from the menu.
func (s *Service) DeferBranchChoice(ctx context.Context, conversationID string) error {
	conversation, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conversation.NeedsHuman {
		return nil
	}

	now := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.MarkNeedsHuman(ctx, conversationID, now); err != nil {
		return newError(ErrorCodeInternal, "failed to flag conversation", err)
	}
	return nil
}

func (s *Service) AssignToAgent(ctx context.Context, conversationID, agentID string) error {
	if agentID == "" {
		return newError(ErrorCodeValidation, "missing agent id", nil)
	}
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.SetAssignment(ctx, conversationID, agentID, true, now); err != nil {
		return newError(ErrorCodeInternal, "failed to assign conversation", err)
	}
	return nil
}

// AssignToAI returns the conversation to the assistant. Only an explicit call
// here moves a human conversation back; inbound traffic never does.
func (s *Service) AssignToAI(ctx context.Context, conversationID string) error {
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.SetAssignment(ctx, conversationID, model.AssignedToAI, false, now); err != nil {
		return newError(ErrorCodeInternal, "failed to assign conversation", err)
	}
	return nil
}

func (s *Service) SetBranch(ctx context.Context, conversationID, branch string) error {
	if branch == "" {
		return newError(ErrorCodeValidation, "missing branch", nil)
	}
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.SetBranch(ctx, conversationID, branch, now); err != nil {
		return newError(ErrorCodeInternal, "failed to set branch", err)
	}
	return nil
}

func (s *Service) SetTags(ctx context.Context, conversationID string, tags []string) error {
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.SetTags(ctx, conversationID, tags, now); err != nil {
		return newError(ErrorCodeInternal, "failed to set tags", err)
	}
	return nil
}

// Close summarizes the transcript and transitions the conversation to closed.
// A conversation with no messages closes with an empty summary and no AI
// call; a summarizer failure closes with a placeholder instead of blocking.
func (s *Service) Close(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	conversation, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return model.ConversationItem{}, err
	}
	if conversation.Status == model.ConversationStatusClosed {
		return model.ConversationItem{}, newError(ErrorCodeConflict, "conversation already closed", nil)
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load messages", err)
	}

	summary := ""
	if len(messages) > 0 {
		summary, err = s.responder.Summarize(ctx, Transcript(messages))
		if err != nil {
			s.logger.Error("summary generation failed",
				zap.String("conversationId", conversationID),
				zap.Error(err),
			)
			summary = summaryPlaceholder
		}
	}

	now := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.CloseConversation(ctx, conversationID, summary, now); err != nil {
		if errors.Is(err, ErrConflict) {
			return model.ConversationItem{}, newError(ErrorCodeConflict, "conversation already closed", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to close conversation", err)
	}

	if err := s.repo.ReleaseOpenConversation(ctx, conversation.ContactPhone); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to release open conversation", err)
	}

	conversation.Status = model.ConversationStatusClosed
	conversation.Summary = summary
	conversation.SummarizedAt = now
	conversation.ClosedAt = now
	conversation.UpdatedAt = now
	return conversation, nil
}

// Reopen returns a closed conversation to open, keeping its summary. The lock
// is taken first so the contact cannot end up with two open conversations.
func (s *Service) Reopen(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	conversation, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return model.ConversationItem{}, err
	}
	if conversation.Status != model.ConversationStatusClosed {
		return model.ConversationItem{}, newError(ErrorCodeConflict, "conversation is not closed", nil)
	}

	now := s.now().UTC().Format(time.RFC3339)
	lock := model.OpenConversationItem{
		ContactPhone:   conversation.ContactPhone,
		ConversationID: conversationID,
		CreatedAt:      now,
	}
	if err := s.repo.LockOpenConversation(ctx, lock); err != nil {
		if errors.Is(err, ErrConflict) {
			return model.ConversationItem{}, newError(ErrorCodeConflict, "contact already has an open conversation", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to lock open conversation", err)
	}

	if err := s.repo.ReopenConversation(ctx, conversationID, now); err != nil {
		// Roll the lock back; the pointer must not outlive a failed reopen.
		if releaseErr := s.repo.ReleaseOpenConversation(ctx, conversation.ContactPhone); releaseErr != nil {
			s.logger.Error("failed to release open conversation after reopen failure",
				zap.String("conversationId", conversationID),
				zap.Error(releaseErr),
			)
		}
		if errors.Is(err, ErrConflict) {
			return model.ConversationItem{}, newError(ErrorCodeConflict, "conversation is not closed", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to reopen conversation", err)
	}

	conversation.Status = model.ConversationStatusOpen
	conversation.ReopenedAt = now
	conversation.UpdatedAt = now
	return conversation, nil
}

// EligibleForClose reports whether the inactivity sweep should close the
// conversation: open, under human control and quiet past the threshold. AI
// conversations are never swept.
func EligibleForClose(conversation model.ConversationItem, now time.Time, threshold time.Duration) bool {
	if conversation.Status != model.ConversationStatusOpen {
		return false
	}
	if !conversation.AssignedToHumanAny() {
		return false
	}

	last := parseTime(conversation.LastMessageAt)
	if last.IsZero() {
		return false
	}
	return now.Sub(last) >= threshold
}

// SweepInactive closes every human-assigned conversation without activity for
// the configured threshold. Each close goes through the conditional update,
// so two overlapping sweeps cannot close a conversation twice.
func (s *Service) SweepInactive(ctx context.Context) (SweepResult, error) {
	open, err := s.repo.ListConversations(ctx, ListFilter{Status: model.ConversationStatusOpen})
	if err != nil {
		return SweepResult{}, newError(ErrorCodeInternal, "failed to list open conversations", err)
	}

	result := SweepResult{Examined: len(open)}
	now := s.now().UTC()

	for _, conversation := range open {
		if !EligibleForClose(conversation, now, s.threshold) {
			continue
		}

		if _, err := s.Close(ctx, conversation.ConversationID); err != nil {
			var svcErr *Error
			if errors.As(err, &svcErr) && svcErr.Code == ErrorCodeConflict {
				continue
			}
			s.logger.Error("sweep close failed",
				zap.String("conversationId", conversation.ConversationID),
				zap.Error(err),
			)
			continue
		}
		result.Closed = append(result.Closed, conversation.ConversationID)
	}

	return result, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]model.ConversationItem, error) {
	conversations, err := s.repo.ListConversations(ctx, filter)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list conversations", err)
	}
	return conversations, nil
}

func (s *Service) Get(ctx context.Context, conversationID string) (DetailResult, error) {
	conversation, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return DetailResult{}, err
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return DetailResult{}, newError(ErrorCodeInternal, "failed to load messages", err)
	}

	notes, err := s.repo.ListNotes(ctx, conversationID)
	if err != nil {
		return DetailResult{}, newError(ErrorCodeInternal, "failed to load notes", err)
	}

	return DetailResult{
		Conversation: conversation,
		Messages:     messages,
		Notes:        notes,
	}, nil
}

func (s *Service) History(ctx context.Context, contactPhone string) ([]model.ConversationItem, error) {
	if contactPhone == "" {
		return nil, newError(ErrorCodeValidation, "missing contact phone", nil)
	}
	conversations, err := s.repo.ListContactConversations(ctx, contactPhone)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list contact conversations", err)
	}
	return conversations, nil
}

// Summarize regenerates the stored summary on demand without changing the
// conversation status.
func (s *Service) Summarize(ctx context.Context, conversationID string) (string, error) {
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return "", err
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return "", newError(ErrorCodeInternal, "failed to load messages", err)
	}
	if len(messages) == 0 {
		return "", newError(ErrorCodeValidation, "conversation has no messages", nil)
	}

	summary, err := s.responder.Summarize(ctx, Transcript(messages))
	if err != nil {
		return "", newError(ErrorCodeInternal, "failed to generate summary", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.SetSummary(ctx, conversationID, summary, now); err != nil {
		return "", newError(ErrorCodeInternal, "failed to store summary", err)
	}
	return summary, nil
}

func (s *Service) AddNote(ctx context.Context, params NoteParams) (model.NoteItem, error) {
	if strings.TrimSpace(params.Body) == "" {
		return model.NoteItem{}, newError(ErrorCodeValidation, "missing note body", nil)
	}
	if _, err := s.getConversation(ctx, params.ConversationID); err != nil {
		return model.NoteItem{}, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	noteID := uuid.NewString()
	note := model.NoteItem{
		PK:             model.NotePK(params.ConversationID, noteID),
		ConversationID: params.ConversationID,
		NoteID:         noteID,
		AuthorID:       params.AuthorID,
		Body:           params.Body,
		CreatedAt:      now,
	}

	if err := s.repo.CreateNote(ctx, note); err != nil {
		return model.NoteItem{}, newError(ErrorCodeInternal, "failed to store note", err)
	}
	return note, nil
}

func (s *Service) DeleteNote(ctx context.Context, conversationID, noteID string) error {
	if noteID == "" {
		return newError(ErrorCodeValidation, "missing note id", nil)
	}
	if err := s.repo.DeleteNote(ctx, conversationID, noteID); err != nil {
		return newError(ErrorCodeInternal, "failed to delete note", err)
	}
	return nil
}

func (s *Service) ListAlerts(ctx context.Context, conversationID string, limit int) ([]model.AlertItem, error) {
	alerts, err := s.repo.ListAlerts(ctx, conversationID, limit)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list alerts", err)
	}
	return alerts, nil
}

// UpdateDeliveryStatus records a delivery receipt for an outbound message,
// looked up by the provider's message id.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, externalID string, status model.DeliveryStatus) error {
	if externalID == "" {
		return newError(ErrorCodeValidation, "missing external message id", nil)
	}

	switch status {
	case model.DeliveryStatusSent, model.DeliveryStatusDelivered, model.DeliveryStatusRead:
	default:
		return newError(ErrorCodeValidation, fmt.Sprintf("unknown delivery status %q", status), nil)
	}

	if err := s.repo.UpdateMessageStatus(ctx, externalID, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "message not found", err)
		}
		return newError(ErrorCodeInternal, "failed to update delivery status", err)
	}
	return nil
}

func (s *Service) getConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	if conversationID == "" {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "missing conversation id", nil)
	}

	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load conversation", err)
	}
	return conversation, nil
}

// Transcript renders messages oldest-first with speaker labels for the
// summarizer.
func Transcript(messages []model.MessageItem) string {
	var b strings.Builder
	for _, message := range messages {
		label := "Sistema"
		switch message.SenderType {
		case model.SenderTypeContact:
			label = "Cliente"
		case model.SenderTypeAgent:
			label = "Agente"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, message.Body)
	}
	return b.String()
}
