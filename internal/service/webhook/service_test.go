package webhook

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"support-bridge-backend/internal/config"
	"support-bridge-backend/internal/messaging"
	"support-bridge-backend/internal/model"
	"support-bridge-backend/internal/routing"
	"support-bridge-backend/internal/service/conversation"
)

type fakeConversations struct {
	conversations map[string]*model.ConversationItem
	outbound      []conversation.OutboundParams
	handOffs      []conversation.HandOffParams
	deferred      []string
	statusUpdates map[string]model.DeliveryStatus
	inboundErr    error
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{
		conversations: make(map[string]*model.ConversationItem),
		statusUpdates: make(map[string]model.DeliveryStatus),
	}
}

func (f *fakeConversations) seed(conv model.ConversationItem) {
	f.conversations[conv.ContactPhone] = &conv
}

func (f *fakeConversations) RecordInbound(ctx context.Context, params conversation.InboundParams) (conversation.InboundResult, error) {
	if f.inboundErr != nil {
		return conversation.InboundResult{}, f.inboundErr
	}

	conv, ok := f.conversations[params.Phone]
	if !ok {
		conv = &model.ConversationItem{
			ConversationID: "conv-" + params.Phone,
			ContactPhone:   params.Phone,
			Status:         model.ConversationStatusOpen,
			AssignedTo:     model.AssignedToAI,
		}
		f.conversations[params.Phone] = conv
	}
	conv.LastMessage = params.Body
	conv.UnreadCount++
	return conversation.InboundResult{Conversation: *conv, Created: !ok}, nil
}

func (f *fakeConversations) RecordOutbound(ctx context.Context, params conversation.OutboundParams) (model.MessageItem, error) {
	f.outbound = append(f.outbound, params)
	return model.MessageItem{MessageID: "msg", Body: params.Body}, nil
}

func (f *fakeConversations) HandOff(ctx context.Context, params conversation.HandOffParams) (model.ConversationItem, error) {
	f.handOffs = append(f.handOffs, params)
	for _, conv := range f.conversations {
		if conv.ConversationID == params.ConversationID {
			conv.AssignedTo = model.AssignedToHuman
			conv.NeedsHuman = true
			if params.Branch != "" {
				conv.Branch = params.Branch
			}
			return *conv, nil
		}
	}
	return model.ConversationItem{}, errors.New("conversation not found")
}

func (f *fakeConversations) DeferBranchChoice(ctx context.Context, conversationID string) error {
	f.deferred = append(f.deferred, conversationID)
	for _, conv := range f.conversations {
		if conv.ConversationID == conversationID {
			conv.NeedsHuman = true
		}
	}
	return nil
}

func (f *fakeConversations) UpdateDeliveryStatus(ctx context.Context, externalID string, status model.DeliveryStatus) error {
	f.statusUpdates[externalID] = status
	return nil
}

type fakePrompts struct {
	agent model.AgentItem
	err   error
}

func (f *fakePrompts) ActiveAIAgent(ctx context.Context) (model.AgentItem, error) {
	if f.err != nil {
		return model.AgentItem{}, f.err
	}
	return f.agent, nil
}

type fakeContexts struct {
	block string
}

func (f *fakeContexts) BuildContextBlock(ctx context.Context) (string, error) {
	return f.block, nil
}

type scriptedResponder struct {
	reply      string
	err        error
	lastPrompt string
	lastInput  string
}

func (r *scriptedResponder) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	r.lastPrompt = systemPrompt
	r.lastInput = userMessage
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

type captureGateway struct {
	sent []string
	err  error
}

func (g *captureGateway) Send(ctx context.Context, toPhone, body, mediaURL string) (messaging.MessageHandle, error) {
	if g.err != nil {
		return messaging.MessageHandle{}, g.err
	}
	g.sent = append(g.sent, body)
	return messaging.MessageHandle{SID: "SM-test"}, nil
}

type memoryLogs struct {
	entries []model.SystemLogItem
}

func (m *memoryLogs) CreateLog(ctx context.Context, log model.SystemLogItem) error {
	m.entries = append(m.entries, log)
	return nil
}

func (m *memoryLogs) ListLogs(ctx context.Context, logType model.SystemLogType, limit int) ([]model.SystemLogItem, error) {
	logs := make([]model.SystemLogItem, 0)
	for _, entry := range m.entries {
		if logType != "" && entry.Type != logType {
			continue
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

func (m *memoryLogs) countByType(logType model.SystemLogType) int {
	n := 0
	for _, entry := range m.entries {
		if entry.Type == logType {
			n++
		}
	}
	return n
}

type pipeline struct {
	svc           *Service
	conversations *fakeConversations
	responder     *scriptedResponder
	gateway       *captureGateway
	logs          *memoryLogs
}

func newPipeline() *pipeline {
	cfg := config.Default()
	conversations := newFakeConversations()
	responder := &scriptedResponder{reply: "Claro, con gusto te ayudo."}
	gateway := &captureGateway{}
	logs := &memoryLogs{}

	svc := New(Config{
		Conversations: conversations,
		Prompts: &fakePrompts{agent: model.AgentItem{
			AgentID:      "ai-1",
			Kind:         model.AgentKindAI,
			SystemPrompt: "Eres un asistente.",
			Active:       true,
		}},
		Contexts:  &fakeContexts{block: "## catálogo\nsillas y mesas"},
		Responder: responder,
		Gateway:   gateway,
		Detector:  routing.NewDetector(cfg.EscalationPatterns),
		Resolver:  routing.NewBranchResolver(cfg),
		Logs:      logs,
		Now: func() time.Time {
			return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		},
	})

	return &pipeline{
		svc:           svc,
		conversations: conversations,
		responder:     responder,
		gateway:       gateway,
		logs:          logs,
	}
}

func contentForm(from, body string) url.Values {
	form := url.Values{}
	form.Set("From", "whatsapp:"+from)
	form.Set("To", "whatsapp:+5213300000000")
	form.Set("Body", body)
	form.Set("MessageSid", "SM-inbound")
	return form
}

func TestProcessGeneratesAIReply(t *testing.T) {
	p := newPipeline()

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000001", "¿Tienen sillas?"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Replied {
		t.Fatal("expected a reply")
	}
	if len(p.gateway.sent) != 1 || p.gateway.sent[0] != "Claro, con gusto te ayudo." {
		t.Fatalf("unexpected sends %v", p.gateway.sent)
	}
	if !strings.Contains(p.responder.lastPrompt, "catálogo") {
		t.Fatalf("expected context block in system prompt, got %q", p.responder.lastPrompt)
	}
	if len(p.conversations.outbound) != 1 {
		t.Fatalf("expected reply persisted, got %d", len(p.conversations.outbound))
	}
	if p.conversations.outbound[0].ExternalID != "SM-test" {
		t.Fatalf("expected gateway sid stored, got %q", p.conversations.outbound[0].ExternalID)
	}
	if p.logs.countByType(model.SystemLogWebhookIncoming) != 1 {
		t.Fatal("expected incoming webhook logged")
	}
}

func TestProcessSkipsAIForHumanConversations(t *testing.T) {
	p := newPipeline()
	p.conversations.seed(model.ConversationItem{
		ConversationID: "conv-human",
		ContactPhone:   "+5215550000002",
		Status:         model.ConversationStatusOpen,
		AssignedTo:     "agent-7",
		NeedsHuman:     true,
	})

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000002", "¿Hola?"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Replied || result.MenuSent {
		t.Fatal("expected silence for a human conversation")
	}
	if len(p.gateway.sent) != 0 {
		t.Fatalf("unexpected sends %v", p.gateway.sent)
	}
}

func TestCustomerTransferPhraseWithCityHandsOffDirectly(t *testing.T) {
	p := newPipeline()

	result, err := p.svc.Process(context.Background(),
		contentForm("+5215550000003", "Quiero que me transfieran, transferir con un asesor, estoy en Guadalajara"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.HandedOff {
		t.Fatal("expected hand-off")
	}
	if len(p.conversations.handOffs) != 1 || p.conversations.handOffs[0].Branch != "gdl" {
		t.Fatalf("expected hand-off to gdl, got %+v", p.conversations.handOffs)
	}
	if len(p.gateway.sent) != 1 || !strings.Contains(p.gateway.sent[0], "asesor") {
		t.Fatalf("expected confirmation message, got %v", p.gateway.sent)
	}
}

func TestAIMarkerEscalationStripsMarkerAndHandsOff(t *testing.T) {
	p := newPipeline()
	p.responder.reply = "Entiendo tu molestia. [semáforo: rojo]"

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000004", "Esto es inaceptable"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.HandedOff {
		t.Fatal("expected direct hand-off when no location is mentioned")
	}
	if len(p.conversations.handOffs) != 1 {
		t.Fatalf("expected one hand-off, got %d", len(p.conversations.handOffs))
	}
	if p.conversations.handOffs[0].Branch != "" {
		t.Fatalf("expected hand-off without a branch, got %q", p.conversations.handOffs[0].Branch)
	}

	for _, sent := range p.gateway.sent {
		if strings.Contains(sent, "semáforo") {
			t.Fatalf("marker leaked to customer: %q", sent)
		}
	}
	if !strings.Contains(p.gateway.sent[0], "Entiendo tu molestia.") {
		t.Fatalf("expected visible reply first, got %v", p.gateway.sent)
	}
}

func TestEscalationFromStateWithoutBranchSendsMenu(t *testing.T) {
	p := newPipeline()
	p.responder.reply = "Te voy a transferir con un asesor."

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000005", "Estoy en Oaxaca y necesito ayuda"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.HandedOff {
		t.Fatal("expected no direct hand-off for a state without a branch")
	}
	if !result.MenuSent {
		t.Fatal("expected branch menu")
	}
	if len(p.conversations.handOffs) != 0 {
		t.Fatalf("unexpected hand-offs %+v", p.conversations.handOffs)
	}
	if len(p.conversations.deferred) != 1 {
		t.Fatalf("expected deferred branch choice, got %v", p.conversations.deferred)
	}
	last := p.gateway.sent[len(p.gateway.sent)-1]
	if !strings.Contains(last, "1. Guadalajara") {
		t.Fatalf("expected branch menu, got %v", p.gateway.sent)
	}
}

func TestBranchMenuAnswerByNumber(t *testing.T) {
	p := newPipeline()
	p.conversations.seed(model.ConversationItem{
		ConversationID: "conv-pending",
		ContactPhone:   "+5215550000006",
		Status:         model.ConversationStatusOpen,
		AssignedTo:     model.AssignedToAI,
		NeedsHuman:     true,
	})

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000006", "3"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.HandedOff {
		t.Fatal("expected hand-off after menu answer")
	}
	if len(p.conversations.handOffs) != 1 || p.conversations.handOffs[0].Branch != "mty" {
		t.Fatalf("expected hand-off to mty, got %+v", p.conversations.handOffs)
	}
}

func TestBranchMenuAnswerByName(t *testing.T) {
	p := newPipeline()
	p.conversations.seed(model.ConversationItem{
		ConversationID: "conv-pending",
		ContactPhone:   "+5215550000007",
		Status:         model.ConversationStatusOpen,
		AssignedTo:     model.AssignedToAI,
		NeedsHuman:     true,
	})

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000007", "La de Querétaro por favor"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.HandedOff {
		t.Fatal("expected hand-off after menu answer")
	}
	if p.conversations.handOffs[0].Branch != "qro" {
		t.Fatalf("expected hand-off to qro, got %+v", p.conversations.handOffs)
	}
}

func TestBranchMenuUnrecognizedAnswerResendsMenu(t *testing.T) {
	p := newPipeline()
	p.conversations.seed(model.ConversationItem{
		ConversationID: "conv-pending",
		ContactPhone:   "+5215550000008",
		Status:         model.ConversationStatusOpen,
		AssignedTo:     model.AssignedToAI,
		NeedsHuman:     true,
	})

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000008", "no sé"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.HandedOff {
		t.Fatal("expected no hand-off for unrecognized answer")
	}
	if !result.MenuSent {
		t.Fatal("expected menu re-sent")
	}
	if len(p.gateway.sent) != 1 || !strings.Contains(p.gateway.sent[0], "1. Guadalajara") {
		t.Fatalf("expected menu, got %v", p.gateway.sent)
	}
}

func TestAIFailureNeverFailsWebhook(t *testing.T) {
	p := newPipeline()
	p.responder.err = errors.New("model overloaded")

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000009", "Hola"))
	if err != nil {
		t.Fatalf("expected webhook to succeed despite ai failure, got %v", err)
	}
	if result.Replied {
		t.Fatal("expected no reply")
	}
	if p.logs.countByType(model.SystemLogAIError) != 1 {
		t.Fatal("expected ai error logged")
	}
	// The inbound message itself is still recorded.
	if p.conversations.conversations["+5215550000009"] == nil {
		t.Fatal("expected conversation created")
	}
}

func TestSendFailureStillPersistsReply(t *testing.T) {
	p := newPipeline()
	p.gateway.err = errors.New("gateway unreachable")

	result, err := p.svc.Process(context.Background(), contentForm("+5215550000010", "Hola"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Replied {
		t.Fatal("expected reply attempt recorded")
	}
	if len(p.conversations.outbound) != 1 {
		t.Fatalf("expected outbound persisted, got %d", len(p.conversations.outbound))
	}
	if p.conversations.outbound[0].ExternalID != "" {
		t.Fatalf("expected no external id on failed send, got %q", p.conversations.outbound[0].ExternalID)
	}
	if p.logs.countByType(model.SystemLogSendError) != 1 {
		t.Fatal("expected send error logged")
	}
}

func TestStatusCallbackUpdatesDelivery(t *testing.T) {
	p := newPipeline()

	form := url.Values{}
	form.Set("MessageSid", "SM-out-1")
	form.Set("MessageStatus", "Delivered")

	result, err := p.svc.Process(context.Background(), form)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Kind != messaging.EventStatus {
		t.Fatalf("expected status event, got %s", result.Kind)
	}
	if p.conversations.statusUpdates["SM-out-1"] != model.DeliveryStatusDelivered {
		t.Fatalf("expected delivered status recorded, got %v", p.conversations.statusUpdates)
	}
	if p.logs.countByType(model.SystemLogWebhookStatus) != 1 {
		t.Fatal("expected status webhook logged")
	}
}

func TestUnknownStatusIsLoggedNotStored(t *testing.T) {
	p := newPipeline()

	form := url.Values{}
	form.Set("MessageSid", "SM-out-2")
	form.Set("MessageStatus", "failed")

	if _, err := p.svc.Process(context.Background(), form); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(p.conversations.statusUpdates) != 0 {
		t.Fatalf("expected no stored update, got %v", p.conversations.statusUpdates)
	}
	if p.logs.countByType(model.SystemLogWebhookStatus) != 1 {
		t.Fatal("expected status webhook logged")
	}
}

func TestMalformedPayloadIsLoggedAndRejected(t *testing.T) {
	p := newPipeline()

	form := url.Values{}
	form.Set("Body", "mensaje sin remitente")

	_, err := p.svc.Process(context.Background(), form)
	if err == nil {
		t.Fatal("expected error for payload without sender")
	}
	if p.logs.countByType(model.SystemLogWebhookError) != 1 {
		t.Fatal("expected webhook error logged")
	}
}
