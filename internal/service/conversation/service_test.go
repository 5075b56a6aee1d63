package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"support-bridge-backend/internal/ai"
	"support-bridge-backend/internal/model"
)

type memoryRepository struct {
	mu            sync.Mutex
	contacts      map[string]model.ContactItem
	conversations map[string]model.ConversationItem
	openLocks     map[string]model.OpenConversationItem
	messages      map[string][]model.MessageItem
	notes         map[string]model.NoteItem
	alerts        []model.AlertItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		contacts:      make(map[string]model.ContactItem),
		conversations: make(map[string]model.ConversationItem),
		openLocks:     make(map[string]model.OpenConversationItem),
		messages:      make(map[string][]model.MessageItem),
		notes:         make(map[string]model.NoteItem),
	}
}

func (m *memoryRepository) GetContact(ctx context.Context, phone string) (model.ContactItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	contact, ok := m.contacts[phone]
	if !ok {
		return model.ContactItem{}, ErrNotFound
	}
	return contact, nil
}

func (m *memoryRepository) CreateContact(ctx context.Context, contact model.ContactItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[contact.Phone]; ok {
		return ErrConflict
	}
	m.contacts[contact.Phone] = contact
	return nil
}

func (m *memoryRepository) TouchContact(ctx context.Context, phone, lastSeenAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	contact, ok := m.contacts[phone]
	if !ok {
		return ErrNotFound
	}
	contact.LastSeenAt = lastSeenAt
	m.contacts[phone] = contact
	return nil
}

func (m *memoryRepository) GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return model.ConversationItem{}, ErrNotFound
	}
	return conversation, nil
}

func (m *memoryRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversation.ConversationID] = conversation
	return nil
}

func (m *memoryRepository) GetOpenConversationID(ctx context.Context, contactPhone string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.openLocks[contactPhone]
	if !ok {
		return "", ErrNotFound
	}
	return lock.ConversationID, nil
}

func (m *memoryRepository) LockOpenConversation(ctx context.Context, lock model.OpenConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.openLocks[lock.ContactPhone]; ok {
		return ErrConflict
	}
	m.openLocks[lock.ContactPhone] = lock
	return nil
}

func (m *memoryRepository) ReleaseOpenConversation(ctx context.Context, contactPhone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.openLocks, contactPhone)
	return nil
}

func (m *memoryRepository) RecordContactActivity(ctx context.Context, conversationID, lastMessage, at string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return model.ConversationItem{}, ErrNotFound
	}
	conversation.LastMessage = lastMessage
	conversation.LastMessageAt = at
	conversation.UpdatedAt = at
	conversation.UnreadCount++
	m.conversations[conversationID] = conversation
	return conversation, nil
}

func (m *memoryRepository) RecordAgentActivity(ctx context.Context, conversationID, lastMessage, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.LastMessage = lastMessage
	conversation.LastMessageAt = at
	conversation.UpdatedAt = at
	conversation.UnreadCount = 0
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) MarkHandOff(ctx context.Context, conversationID, assignedTo, branch, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.AssignedTo = assignedTo
	conversation.NeedsHuman = true
	if branch != "" {
		conversation.Branch = branch
	}
	conversation.UpdatedAt = at
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) MarkNeedsHuman(ctx context.Context, conversationID, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.NeedsHuman = true
	conversation.UpdatedAt = at
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) SetAssignment(ctx context.Context, conversationID, assignedTo string, needsHuman bool, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.AssignedTo = assignedTo
	conversation.NeedsHuman = needsHuman
	conversation.UpdatedAt = at
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) SetBranch(ctx context.Context, conversationID, branch, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.Branch = branch
	conversation.UpdatedAt = at
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) SetTags(ctx context.Context, conversationID string, tags []string, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.Tags = tags
	conversation.UpdatedAt = at
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) SetSummary(ctx context.Context, conversationID, summary, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conversation.Summary = summary
	conversation.SummarizedAt = at
	conversation.UpdatedAt = at
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) CloseConversation(ctx context.Context, conversationID, summary, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	if conversation.Status == model.ConversationStatusClosed {
		return ErrConflict
	}
	conversation.Status = model.ConversationStatusClosed
	conversation.Summary = summary
	conversation.SummarizedAt = at
	conversation.ClosedAt = at
	conversation.UpdatedAt = at
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) ReopenConversation(ctx context.Context, conversationID, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	if conversation.Status != model.ConversationStatusClosed {
		return ErrConflict
	}
	conversation.Status = model.ConversationStatusOpen
	conversation.ReopenedAt = at
	conversation.UpdatedAt = at
	m.conversations[conversationID] = conversation
	return nil
}

func (m *memoryRepository) ListConversations(ctx context.Context, filter ListFilter) ([]model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversations := make([]model.ConversationItem, 0, len(m.conversations))
	for _, conversation := range m.conversations {
		if filter.Status != "" && conversation.Status != filter.Status {
			continue
		}
		if filter.NeedsHuman != nil && conversation.NeedsHuman != *filter.NeedsHuman {
			continue
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

func (m *memoryRepository) ListContactConversations(ctx context.Context, contactPhone string) ([]model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversations := make([]model.ConversationItem, 0)
	for _, conversation := range m.conversations {
		if conversation.ContactPhone == contactPhone {
			conversations = append(conversations, conversation)
		}
	}
	return conversations, nil
}

func (m *memoryRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[message.ConversationID] = append(m.messages[message.ConversationID], message)
	return nil
}

func (m *memoryRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := append([]model.MessageItem(nil), m.messages[conversationID]...)
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (m *memoryRepository) UpdateMessageStatus(ctx context.Context, externalID string, status model.DeliveryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conversationID, messages := range m.messages {
		for i, message := range messages {
			if message.ExternalID == externalID {
				messages[i].Status = status
				m.messages[conversationID] = messages
				return nil
			}
		}
	}
	return ErrNotFound
}

func (m *memoryRepository) CreateNote(ctx context.Context, note model.NoteItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[note.PK] = note
	return nil
}

func (m *memoryRepository) ListNotes(ctx context.Context, conversationID string) ([]model.NoteItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := make([]model.NoteItem, 0)
	for _, note := range m.notes {
		if note.ConversationID == conversationID {
			notes = append(notes, note)
		}
	}
	return notes, nil
}

func (m *memoryRepository) DeleteNote(ctx context.Context, conversationID, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, model.NotePK(conversationID, noteID))
	return nil
}

func (m *memoryRepository) CreateAlert(ctx context.Context, alert model.AlertItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *memoryRepository) ListAlerts(ctx context.Context, conversationID string, limit int) ([]model.AlertItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alerts := make([]model.AlertItem, 0)
	for _, alert := range m.alerts {
		if conversationID != "" && alert.ConversationID != conversationID {
			continue
		}
		alerts = append(alerts, alert)
	}
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, nil
}

// fakeResponder scripts summarizer behavior and counts calls.
type fakeResponder struct {
	summary       string
	fail          bool
	summarizeCall int
}

func (f *fakeResponder) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return "respuesta", nil
}

func (f *fakeResponder) Summarize(ctx context.Context, transcript string) (string, error) {
	f.summarizeCall++
	if f.fail {
		return "", &ai.GenerationError{Op: "summarize", Err: errors.New("backend down")}
	}
	return f.summary, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTestService(repo Repository, responder ai.Responder) *Service {
	return NewWithRepository(repo, responder, 30*time.Minute, nil, fixedNow)
}

func TestRecordInboundCreatesContactAndConversationOnce(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{})

	first, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone:       "+5213312345678",
		ProfileName: "Ana",
		Body:        "Hola",
	})
	if err != nil {
		t.Fatalf("first inbound: %v", err)
	}
	if !first.Created {
		t.Fatal("expected first inbound to open a conversation")
	}
	if first.Conversation.AssignedTo != model.AssignedToAI {
		t.Fatalf("expected new conversation assigned to ai, got %s", first.Conversation.AssignedTo)
	}

	second, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5213312345678",
		Body:  "Sigo aquí",
	})
	if err != nil {
		t.Fatalf("second inbound: %v", err)
	}
	if second.Created {
		t.Fatal("expected second inbound to reuse the open conversation")
	}
	if second.Conversation.ConversationID != first.Conversation.ConversationID {
		t.Fatalf("expected same conversation, got %s and %s",
			first.Conversation.ConversationID, second.Conversation.ConversationID)
	}

	if len(repo.contacts) != 1 {
		t.Fatalf("expected one contact, got %d", len(repo.contacts))
	}
	if len(repo.conversations) != 1 {
		t.Fatalf("expected one conversation, got %d", len(repo.conversations))
	}
	if second.Conversation.UnreadCount != 2 {
		t.Fatalf("expected unread count 2, got %d", second.Conversation.UnreadCount)
	}
}

func TestRecordInboundReusesConversationWhenLockRaceLost(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{})

	// Simulate a conversation opened by a concurrent delivery after our lock
	// probe: a pre-existing lock with its conversation.
	now := fixedNow().UTC().Format(time.RFC3339)
	winner := model.ConversationItem{
		ConversationID: "conv-winner",
		ContactPhone:   "+5215550000001",
		Status:         model.ConversationStatusOpen,
		AssignedTo:     model.AssignedToAI,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.CreateConversation(context.Background(), winner); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	if err := repo.LockOpenConversation(context.Background(), model.OpenConversationItem{
		ContactPhone:   winner.ContactPhone,
		ConversationID: winner.ConversationID,
		CreatedAt:      now,
	}); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: winner.ContactPhone,
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if result.Created {
		t.Fatal("expected inbound to join the existing conversation")
	}
	if result.Conversation.ConversationID != winner.ConversationID {
		t.Fatalf("expected conversation %s, got %s", winner.ConversationID, result.Conversation.ConversationID)
	}
	if len(repo.conversations) != 1 {
		t.Fatalf("expected single conversation, got %d", len(repo.conversations))
	}
}

func TestInboundDoesNotStealHumanAssignment(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{})

	first, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000002",
		Body:  "Quiero hablar con una persona",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	if _, err := svc.HandOff(context.Background(), HandOffParams{
		ConversationID: first.Conversation.ConversationID,
	}); err != nil {
		t.Fatalf("hand off: %v", err)
	}

	after, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000002",
		Body:  "¿Sigues ahí?",
	})
	if err != nil {
		t.Fatalf("second inbound: %v", err)
	}
	if after.Conversation.AssignedTo != model.AssignedToHuman {
		t.Fatalf("expected assignment to stay human, got %s", after.Conversation.AssignedTo)
	}
	if !after.Conversation.NeedsHuman {
		t.Fatal("expected needsHuman to stay set")
	}
}

func TestHandOffIsIdempotent(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{})

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000003",
		Body:  "Transferir a un asesor",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	if _, err := svc.HandOff(context.Background(), HandOffParams{
		ConversationID: result.Conversation.ConversationID,
		Branch:         "gdl",
	}); err != nil {
		t.Fatalf("first hand off: %v", err)
	}
	if _, err := svc.HandOff(context.Background(), HandOffParams{
		ConversationID: result.Conversation.ConversationID,
		Branch:         "gdl",
	}); err != nil {
		t.Fatalf("second hand off: %v", err)
	}

	alerts, err := svc.ListAlerts(context.Background(), result.Conversation.ConversationID, 0)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one hand-off alert, got %d", len(alerts))
	}

	conversation, err := repo.GetConversation(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if conversation.Branch != "gdl" {
		t.Fatalf("expected branch gdl, got %s", conversation.Branch)
	}
}

func TestDeferBranchChoiceFlagsWithoutReassigning(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{})

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000004",
		Body:  "Quiero hablar con alguien",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	if err := svc.DeferBranchChoice(context.Background(), result.Conversation.ConversationID); err != nil {
		t.Fatalf("defer: %v", err)
	}

	conversation, err := repo.GetConversation(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if !conversation.NeedsHuman {
		t.Fatal("expected needsHuman set")
	}
	if conversation.AssignedTo != model.AssignedToAI {
		t.Fatalf("expected assignment to stay ai, got %s", conversation.AssignedTo)
	}
}

func TestCloseGeneratesSummaryAndReleasesLock(t *testing.T) {
	repo := newMemoryRepository()
	responder := &fakeResponder{summary: "- Intención: comprar\n- Resultado: resuelto"}
	svc := newTestService(repo, responder)

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000005",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	closed, err := svc.Close(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != model.ConversationStatusClosed {
		t.Fatalf("expected closed status, got %s", closed.Status)
	}
	if closed.Summary != responder.summary {
		t.Fatalf("expected stored summary, got %q", closed.Summary)
	}
	if _, ok := repo.openLocks[result.Conversation.ContactPhone]; ok {
		t.Fatal("expected open-conversation lock to be released")
	}

	// A new inbound from the same contact opens a fresh conversation.
	next, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000005",
		Body:  "Otra cosa",
	})
	if err != nil {
		t.Fatalf("inbound after close: %v", err)
	}
	if !next.Created {
		t.Fatal("expected a new conversation after close")
	}
	if next.Conversation.ConversationID == result.Conversation.ConversationID {
		t.Fatal("expected a different conversation id after close")
	}
}

func TestCloseWithoutMessagesSkipsSummarizer(t *testing.T) {
	repo := newMemoryRepository()
	responder := &fakeResponder{summary: "should not be used"}
	svc := newTestService(repo, responder)

	now := fixedNow().UTC().Format(time.RFC3339)
	conversation := model.ConversationItem{
		ConversationID: "conv-empty",
		ContactPhone:   "+5215550000006",
		Status:         model.ConversationStatusOpen,
		AssignedTo:     model.AssignedToAI,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.CreateConversation(context.Background(), conversation); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	closed, err := svc.Close(context.Background(), conversation.ConversationID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Summary != "" {
		t.Fatalf("expected empty summary, got %q", closed.Summary)
	}
	if responder.summarizeCall != 0 {
		t.Fatalf("expected no summarizer call, got %d", responder.summarizeCall)
	}
}

func TestCloseStoresPlaceholderWhenSummarizerFails(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{fail: true})

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000007",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	closed, err := svc.Close(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != model.ConversationStatusClosed {
		t.Fatalf("expected closed status, got %s", closed.Status)
	}
	if closed.Summary != summaryPlaceholder {
		t.Fatalf("expected placeholder summary, got %q", closed.Summary)
	}
}

func TestCloseTwiceReturnsConflict(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{summary: "resumen"})

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000008",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	if _, err := svc.Close(context.Background(), result.Conversation.ConversationID); err != nil {
		t.Fatalf("first close: %v", err)
	}
	_, err = svc.Close(context.Background(), result.Conversation.ConversationID)
	if err == nil {
		t.Fatal("expected conflict on second close")
	}
	if svcErr, ok := err.(*Error); !ok || svcErr.Code != ErrorCodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestReopenPreservesSummary(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{summary: "- resumen original"})

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000009",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	closed, err := svc.Close(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := svc.Reopen(context.Background(), closed.ConversationID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != model.ConversationStatusOpen {
		t.Fatalf("expected open status, got %s", reopened.Status)
	}

	stored, err := repo.GetConversation(context.Background(), closed.ConversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if stored.Summary != "- resumen original" {
		t.Fatalf("expected summary preserved, got %q", stored.Summary)
	}
	if _, ok := repo.openLocks[result.Conversation.ContactPhone]; !ok {
		t.Fatal("expected reopen to re-take the open-conversation lock")
	}
}

func TestReopenFailsWhileAnotherConversationIsOpen(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{summary: "resumen"})

	first, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000010",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if _, err := svc.Close(context.Background(), first.Conversation.ConversationID); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000010",
		Body:  "Nuevo tema",
	})
	if err != nil {
		t.Fatalf("second inbound: %v", err)
	}
	if !second.Created {
		t.Fatal("expected a second conversation")
	}

	_, err = svc.Reopen(context.Background(), first.Conversation.ConversationID)
	if err == nil {
		t.Fatal("expected reopen to fail while another conversation is open")
	}
	if svcErr, ok := err.(*Error); !ok || svcErr.Code != ErrorCodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestSweepClosesOnlyInactiveHumanConversations(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{summary: "resumen"})

	now := fixedNow()
	stale := now.Add(-45 * time.Minute).UTC().Format(time.RFC3339)
	fresh := now.Add(-5 * time.Minute).UTC().Format(time.RFC3339)

	seed := func(id, phone, assignedTo, lastMessageAt string) {
		conversation := model.ConversationItem{
			ConversationID: id,
			ContactPhone:   phone,
			Status:         model.ConversationStatusOpen,
			AssignedTo:     assignedTo,
			LastMessageAt:  lastMessageAt,
			CreatedAt:      lastMessageAt,
			UpdatedAt:      lastMessageAt,
		}
		if err := repo.CreateConversation(context.Background(), conversation); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
		if err := repo.LockOpenConversation(context.Background(), model.OpenConversationItem{
			ContactPhone:   phone,
			ConversationID: id,
			CreatedAt:      lastMessageAt,
		}); err != nil {
			t.Fatalf("seed lock %s: %v", id, err)
		}
	}

	seed("conv-stale-human", "+5215550000020", "agent-1", stale)
	seed("conv-fresh-human", "+5215550000021", model.AssignedToHuman, fresh)
	seed("conv-stale-ai", "+5215550000022", model.AssignedToAI, stale)

	result, err := svc.SweepInactive(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.Closed) != 1 || result.Closed[0] != "conv-stale-human" {
		t.Fatalf("expected only conv-stale-human closed, got %v", result.Closed)
	}

	// A second pass finds nothing left to close.
	again, err := svc.SweepInactive(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(again.Closed) != 0 {
		t.Fatalf("expected idempotent sweep, got %v", again.Closed)
	}
}

func TestEligibleForClose(t *testing.T) {
	now := fixedNow()
	threshold := 30 * time.Minute
	stale := now.Add(-31 * time.Minute).UTC().Format(time.RFC3339)

	cases := []struct {
		name         string
		conversation model.ConversationItem
		want         bool
	}{
		{
			name: "stale human conversation",
			conversation: model.ConversationItem{
				Status:        model.ConversationStatusOpen,
				AssignedTo:    model.AssignedToHuman,
				LastMessageAt: stale,
			},
			want: true,
		},
		{
			name: "stale specific agent",
			conversation: model.ConversationItem{
				Status:        model.ConversationStatusOpen,
				AssignedTo:    "agent-7",
				LastMessageAt: stale,
			},
			want: true,
		},
		{
			name: "ai conversation never swept",
			conversation: model.ConversationItem{
				Status:        model.ConversationStatusOpen,
				AssignedTo:    model.AssignedToAI,
				LastMessageAt: stale,
			},
			want: false,
		},
		{
			name: "closed conversation",
			conversation: model.ConversationItem{
				Status:        model.ConversationStatusClosed,
				AssignedTo:    model.AssignedToHuman,
				LastMessageAt: stale,
			},
			want: false,
		},
		{
			name: "missing last activity",
			conversation: model.ConversationItem{
				Status:     model.ConversationStatusOpen,
				AssignedTo: model.AssignedToHuman,
			},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EligibleForClose(tc.conversation, now, threshold); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestUpdateDeliveryStatus(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{})

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000030",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	if _, err := svc.RecordOutbound(context.Background(), OutboundParams{
		ConversationID: result.Conversation.ConversationID,
		SenderType:     model.SenderTypeAgent,
		SenderID:       "ai",
		Body:           "respuesta",
		ExternalID:     "SM123",
	}); err != nil {
		t.Fatalf("outbound: %v", err)
	}

	if err := svc.UpdateDeliveryStatus(context.Background(), "SM123", model.DeliveryStatusDelivered); err != nil {
		t.Fatalf("update status: %v", err)
	}

	messages, err := repo.ListMessages(context.Background(), result.Conversation.ConversationID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	var found bool
	for _, message := range messages {
		if message.ExternalID == "SM123" {
			found = true
			if message.Status != model.DeliveryStatusDelivered {
				t.Fatalf("expected delivered status, got %s", message.Status)
			}
		}
	}
	if !found {
		t.Fatal("expected outbound message in store")
	}

	if err := svc.UpdateDeliveryStatus(context.Background(), "SM999", model.DeliveryStatusRead); err == nil {
		t.Fatal("expected error for unknown external id")
	}
	if err := svc.UpdateDeliveryStatus(context.Background(), "SM123", model.DeliveryStatus("bounced")); err == nil {
		t.Fatal("expected error for unknown status value")
	}
}

func TestTranscriptLabelsSenders(t *testing.T) {
	messages := []model.MessageItem{
		{SenderType: model.SenderTypeContact, Body: "Hola"},
		{SenderType: model.SenderTypeAgent, Body: "¿En qué puedo ayudarte?"},
		{SenderType: model.SenderTypeSystem, Body: "Conversación transferida"},
	}

	transcript := Transcript(messages)
	want := "Cliente: Hola\nAgente: ¿En qué puedo ayudarte?\nSistema: Conversación transferida\n"
	if transcript != want {
		t.Fatalf("unexpected transcript:\n%s", transcript)
	}
}

func TestRecordOutboundClearsUnread(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{})

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000031",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if result.Conversation.UnreadCount == 0 {
		t.Fatal("expected nonzero unread after inbound")
	}

	if _, err := svc.RecordOutbound(context.Background(), OutboundParams{
		ConversationID: result.Conversation.ConversationID,
		SenderType:     model.SenderTypeAgent,
		SenderID:       "agent-1",
		Body:           "Hola, ¿cómo te ayudo?",
	}); err != nil {
		t.Fatalf("outbound: %v", err)
	}

	conversation, err := repo.GetConversation(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if conversation.UnreadCount != 0 {
		t.Fatalf("expected unread reset, got %d", conversation.UnreadCount)
	}
	if conversation.LastMessage != "Hola, ¿cómo te ayudo?" {
		t.Fatalf("unexpected last message %q", conversation.LastMessage)
	}
}

func TestNotesLifecycle(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{})

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000032",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	note, err := svc.AddNote(context.Background(), NoteParams{
		ConversationID: result.Conversation.ConversationID,
		AuthorID:       "agent-1",
		Body:           "cliente frecuente",
	})
	if err != nil {
		t.Fatalf("add note: %v", err)
	}

	detail, err := svc.Get(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Notes) != 1 || detail.Notes[0].Body != "cliente frecuente" {
		t.Fatalf("unexpected notes %#v", detail.Notes)
	}

	if err := svc.DeleteNote(context.Background(), result.Conversation.ConversationID, note.NoteID); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	detail, err = svc.Get(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if len(detail.Notes) != 0 {
		t.Fatalf("expected no notes, got %d", len(detail.Notes))
	}
}

func TestSummarizeOnDemandStoresSummary(t *testing.T) {
	repo := newMemoryRepository()
	responder := &fakeResponder{summary: "- resumen bajo demanda"}
	svc := newTestService(repo, responder)

	result, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000033",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	summary, err := svc.Summarize(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != responder.summary {
		t.Fatalf("unexpected summary %q", summary)
	}

	stored, err := repo.GetConversation(context.Background(), result.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if stored.Summary != responder.summary {
		t.Fatalf("expected summary stored, got %q", stored.Summary)
	}
	if stored.Status != model.ConversationStatusOpen {
		t.Fatalf("expected status unchanged, got %s", stored.Status)
	}
}

func TestHistoryListsAllContactConversations(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &fakeResponder{summary: "resumen"})

	first, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000034",
		Body:  "Hola",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if _, err := svc.Close(context.Background(), first.Conversation.ConversationID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.RecordInbound(context.Background(), InboundParams{
		Phone: "+5215550000034",
		Body:  "Otro tema",
	}); err != nil {
		t.Fatalf("second inbound: %v", err)
	}

	history, err := svc.History(context.Background(), "+5215550000034")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(history))
	}
}

func TestRecordInboundValidation(t *testing.T) {
	svc := newTestService(newMemoryRepository(), &fakeResponder{})

	cases := []struct {
		name   string
		params InboundParams
	}{
		{name: "missing phone", params: InboundParams{Body: "Hola"}},
		{name: "missing body", params: InboundParams{Phone: "+521555"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordInbound(context.Background(), tc.params)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if svcErr, ok := err.(*Error); !ok || svcErr.Code != ErrorCodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
