package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"support-bridge-backend/internal/config"
	"support-bridge-backend/internal/messaging"
	"support-bridge-backend/internal/model"
	"support-bridge-backend/internal/routing"
	"support-bridge-backend/internal/service/conversation"
)

// Conversations is the slice of the conversation service the pipeline needs.
type Conversations interface {
	RecordInbound(ctx context.Context, params conversation.InboundParams) (conversation.InboundResult, error)
	RecordOutbound(ctx context.Context, params conversation.OutboundParams) (model.MessageItem, error)
	HandOff(ctx context.Context, params conversation.HandOffParams) (model.ConversationItem, error)
	DeferBranchChoice(ctx context.Context, conversationID string) error
	UpdateDeliveryStatus(ctx context.Context, externalID string, status model.DeliveryStatus) error
}

// PromptSource yields the system prompt of the assistant that should answer.
type PromptSource interface {
	ActiveAIAgent(ctx context.Context) (model.AgentItem, error)
}

// ContextSource yields the knowledge block appended to the system prompt.
type ContextSource interface {
	BuildContextBlock(ctx context.Context) (string, error)
}

// Responder mirrors ai.Responder for the single call the pipeline makes.
type Responder interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Result describes what one webhook delivery caused, for the HTTP layer's
// access log.
type Result struct {
	Kind           messaging.EventKind
	ConversationID string
	Replied        bool
	HandedOff      bool
	MenuSent       bool
}

const branchMenuPreamble = "Con gusto te comunico con una sucursal. ¿Cuál te queda más cerca?"
const handOffConfirmation = "Listo, en un momento te atiende un asesor."

type Service struct {
	conversations Conversations
	prompts       PromptSource
	contexts      ContextSource
	responder     Responder
	gateway       messaging.Gateway
	detector      *routing.Detector
	resolver      *routing.BranchResolver
	logs          LogRepository
	logger        *zap.Logger
	now           func() time.Time
}

type Config struct {
	Conversations Conversations
	Prompts       PromptSource
	Contexts      ContextSource
	Responder     Responder
	Gateway       messaging.Gateway
	Detector      *routing.Detector
	Resolver      *routing.BranchResolver
	Logs          LogRepository
	Logger        *zap.Logger
	Now           func() time.Time
}

func New(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Service{
		conversations: cfg.Conversations,
		prompts:       cfg.Prompts,
		contexts:      cfg.Contexts,
		responder:     cfg.Responder,
		gateway:       cfg.Gateway,
		detector:      cfg.Detector,
		resolver:      cfg.Resolver,
		logs:          cfg.Logs,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
}

// Process handles one raw webhook delivery end to end. Failures past payload
// validation are absorbed and logged: the provider retries on non-2xx, and a
// retry of an already-persisted message would duplicate it.
func (s *Service) Process(ctx context.Context, form url.Values) (Result, error) {
	event, err := messaging.ParseInbound(form)
	if err != nil {
		s.log(ctx, model.SystemLogWebhookError, map[string]string{
			"error":   err.Error(),
			"payload": form.Encode(),
		})
		return Result{}, err
	}

	if event.Kind == messaging.EventStatus {
		return s.processStatus(ctx, event)
	}
	return s.processContent(ctx, event)
}

func (s *Service) processStatus(ctx context.Context, event messaging.InboundEvent) (Result, error) {
	s.log(ctx, model.SystemLogWebhookStatus, map[string]string{
		"messageSid": event.MessageSID,
		"status":     event.StatusEvent,
	})

	if event.MessageSID == "" {
		return Result{Kind: event.Kind}, nil
	}

	status := model.DeliveryStatus(event.StatusEvent)
	switch status {
	case model.DeliveryStatusSent, model.DeliveryStatusDelivered, model.DeliveryStatusRead:
	default:
		// Queued, failed and other provider states are logged but not stored.
		return Result{Kind: event.Kind}, nil
	}

	if err := s.conversations.UpdateDeliveryStatus(ctx, event.MessageSID, status); err != nil {
		s.logger.Warn("delivery status update failed",
			zap.String("messageSid", event.MessageSID),
			zap.Error(err),
		)
	}
	return Result{Kind: event.Kind}, nil
}

func (s *Service) processContent(ctx context.Context, event messaging.InboundEvent) (Result, error) {
	s.log(ctx, model.SystemLogWebhookIncoming, map[string]string{
		"from":        event.FromPhone,
		"body":        event.Text,
		"contentType": string(event.ContentType),
	})

	inbound, err := s.conversations.RecordInbound(ctx, conversation.InboundParams{
		Phone:       event.FromPhone,
		ProfileName: event.ProfileName,
		Body:        event.Text,
		ContentType: event.ContentType,
		MediaURL:    event.MediaURL,
		ExternalID:  event.MessageSID,
	})
	if err != nil {
		s.log(ctx, model.SystemLogWebhookError, map[string]string{
			"from":  event.FromPhone,
			"error": err.Error(),
		})
		return Result{Kind: event.Kind}, err
	}

	conv := inbound.Conversation
	result := Result{Kind: event.Kind, ConversationID: conv.ConversationID}

	// Human conversations get no automated response; the message is stored
	// and waits for the agent.
	if conv.AssignedToHumanAny() {
		return result, nil
	}

	// Pending branch choice: the contact is answering the menu.
	if conv.NeedsHuman {
		return s.processBranchChoice(ctx, conv, event, result)
	}

	return s.processAIResponse(ctx, conv, event, result)
}

// processBranchChoice interprets the inbound text as a menu answer, by number
// or by name. An unrecognized answer re-sends the menu.
func (s *Service) processBranchChoice(ctx context.Context, conv model.ConversationItem, event messaging.InboundEvent, result Result) (Result, error) {
	branch, ok := s.resolveBranchChoice(event.Text)
	if !ok {
		s.reply(ctx, conv, branchMenuPreamble+"\n"+s.resolver.BranchMenuText())
		result.MenuSent = true
		return result, nil
	}

	if _, err := s.conversations.HandOff(ctx, conversation.HandOffParams{
		ConversationID: conv.ConversationID,
		Branch:         branch.ID,
		Reason:         fmt.Sprintf("customer chose branch %s", branch.ID),
	}); err != nil {
		s.logger.Error("hand-off after branch choice failed",
			zap.String("conversationId", conv.ConversationID),
			zap.Error(err),
		)
		return result, nil
	}
	result.HandedOff = true

	s.reply(ctx, conv, handOffConfirmation)
	result.Replied = true
	return result, nil
}

func (s *Service) resolveBranchChoice(text string) (config.Branch, bool) {
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil {
		return s.resolver.BranchByIndex(n)
	}
	return s.resolver.DetectBranch(text)
}

func (s *Service) processAIResponse(ctx context.Context, conv model.ConversationItem, event messaging.InboundEvent, result Result) (Result, error) {
	// A transfer request in the customer's own words short-circuits the AI.
	if s.detector.IsEscalation(event.Text) {
		return s.escalate(ctx, conv, event.Text, result)
	}

	agent, err := s.prompts.ActiveAIAgent(ctx)
	if err != nil {
		s.log(ctx, model.SystemLogAIError, map[string]string{
			"conversationId": conv.ConversationID,
			"error":          err.Error(),
		})
		return result, nil
	}

	systemPrompt := agent.SystemPrompt
	if block, err := s.contexts.BuildContextBlock(ctx); err != nil {
		s.logger.Warn("context block unavailable",
			zap.String("conversationId", conv.ConversationID),
			zap.Error(err),
		)
	} else if block != "" {
		systemPrompt = systemPrompt + "\n\n" + block
	}

	replyText, err := s.responder.Generate(ctx, systemPrompt, event.Text)
	if err != nil {
		s.log(ctx, model.SystemLogAIError, map[string]string{
			"conversationId": conv.ConversationID,
			"error":          err.Error(),
		})
		return result, nil
	}

	// The AI can also signal a hand-off inside its reply; the marker never
	// reaches the customer.
	if s.detector.IsEscalation(replyText) {
		visible := s.detector.Strip(replyText)
		if visible != "" {
			s.replyAs(ctx, conv, visible, agent.AgentID)
			result.Replied = true
		}
		return s.escalate(ctx, conv, event.Text+"\n"+replyText, result)
	}

	if replyText != "" {
		s.replyAs(ctx, conv, replyText, agent.AgentID)
		result.Replied = true
	}
	return result, nil
}

// escalate routes a hand-off: a matched branch, or no location signal at all,
// goes straight to a human. A state the company has no office in is ambiguous,
// so the contact gets the branch menu and final assignment is deferred.
func (s *Service) escalate(ctx context.Context, conv model.ConversationItem, text string, result Result) (Result, error) {
	decision := s.resolver.Resolve(text)

	if decision.StateLabel != "" {
		if err := s.conversations.DeferBranchChoice(ctx, conv.ConversationID); err != nil {
			s.logger.Error("defer branch choice failed",
				zap.String("conversationId", conv.ConversationID),
				zap.Error(err),
			)
			return result, nil
		}
		s.reply(ctx, conv, branchMenuPreamble+"\n"+s.resolver.BranchMenuText())
		result.MenuSent = true
		return result, nil
	}

	reason := "escalation signal detected"
	if decision.BranchID != "" {
		reason = fmt.Sprintf("escalation routed to branch %s", decision.BranchID)
	}

	if _, err := s.conversations.HandOff(ctx, conversation.HandOffParams{
		ConversationID: conv.ConversationID,
		Branch:         decision.BranchID,
		Reason:         reason,
	}); err != nil {
		s.logger.Error("hand-off failed",
			zap.String("conversationId", conv.ConversationID),
			zap.Error(err),
		)
		return result, nil
	}
	result.HandedOff = true

	s.reply(ctx, conv, handOffConfirmation)
	result.Replied = true
	return result, nil
}

func (s *Service) reply(ctx context.Context, conv model.ConversationItem, body string) {
	s.replyAs(ctx, conv, body, "system")
}

// replyAs sends body to the contact and persists it. A transport failure is
// logged and the message stored anyway so the dashboard shows what the system
// tried to say.
func (s *Service) replyAs(ctx context.Context, conv model.ConversationItem, body, senderID string) {
	externalID := ""
	handle, err := s.gateway.Send(ctx, conv.ContactPhone, body, "")
	if err != nil {
		s.log(ctx, model.SystemLogSendError, map[string]string{
			"conversationId": conv.ConversationID,
			"error":          err.Error(),
		})
	} else {
		externalID = handle.SID
	}

	senderType := model.SenderTypeAgent
	if senderID == "system" {
		senderType = model.SenderTypeSystem
	}

	if _, err := s.conversations.RecordOutbound(ctx, conversation.OutboundParams{
		ConversationID: conv.ConversationID,
		SenderType:     senderType,
		SenderID:       senderID,
		Body:           body,
		ExternalID:     externalID,
	}); err != nil {
		s.logger.Error("failed to persist outbound message",
			zap.String("conversationId", conv.ConversationID),
			zap.Error(err),
		)
	}
}

func (s *Service) log(ctx context.Context, logType model.SystemLogType, payload map[string]string) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", payload))
	}

	entry := model.SystemLogItem{
		LogID:     uuid.NewString(),
		Type:      logType,
		Payload:   string(encoded),
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.logs.CreateLog(ctx, entry); err != nil {
		s.logger.Warn("system log write failed",
			zap.String("type", string(logType)),
			zap.Error(err),
		)
	}
}

// ListLogs exposes the audit trail to the dashboard's reports page.
func (s *Service) ListLogs(ctx context.Context, logType model.SystemLogType, limit int) ([]model.SystemLogItem, error) {
	return s.logs.ListLogs(ctx, logType, limit)
}
