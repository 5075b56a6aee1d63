package endpoints

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/dto"
	internaljwt "support-bridge-backend/internal/jwt"
	"support-bridge-backend/internal/messaging"
	"support-bridge-backend/internal/model"
	"support-bridge-backend/internal/routing"
	conversationservice "support-bridge-backend/internal/service/conversation"
	"support-bridge-backend/internal/websocket"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// agentNotificationRoom is the shared room every dashboard session joins for
// cross-conversation events.
const agentNotificationRoom = "notifications:agents"

type ConversationEndpoints interface {
	Conversations(http.ResponseWriter, *http.Request) error
	ConversationResource(http.ResponseWriter, *http.Request) error
	ContactHistory(http.ResponseWriter, *http.Request) error
	Websocket(http.ResponseWriter, *http.Request) error
	NotificationsWebsocket(http.ResponseWriter, *http.Request) error
}

type ConversationPaths struct {
	ConversationsPath  string
	ConversationPrefix string
	ContactPrefix      string
	WebsocketPrefix    string
	NotificationPath   string
}

type conversationEndpoints struct {
	service  *conversationservice.Service
	gateway  messaging.Gateway
	handler  *websocket.Handler
	resolver *routing.BranchResolver
	paths    ConversationPaths
}

func NewConversationEndpoints(service *conversationservice.Service, gateway messaging.Gateway, handler *websocket.Handler, resolver *routing.BranchResolver, prefix string) ConversationEndpoints {
	base := strings.TrimRight(prefix, "/")
	return NewConversationEndpointsWithPaths(service, gateway, handler, resolver, ConversationPaths{
		ConversationsPath:  base + "/conversations",
		ConversationPrefix: base + "/conversations/",
		ContactPrefix:      base + "/contacts/",
		WebsocketPrefix:    base + "/ws/conversations/",
		NotificationPath:   base + "/ws/notifications",
	})
}

func NewConversationEndpointsWithPaths(service *conversationservice.Service, gateway messaging.Gateway, handler *websocket.Handler, resolver *routing.BranchResolver, paths ConversationPaths) ConversationEndpoints {
	return &conversationEndpoints{
		service:  service,
		gateway:  gateway,
		handler:  handler,
		resolver: resolver,
		paths:    paths,
	}
}

func (h *conversationEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListConversations,
	})
}

// ConversationResource dispatches /conversations/{id} and its subresources.
func (h *conversationEndpoints) ConversationResource(w http.ResponseWriter, r *http.Request) error {
	parts, err := h.resourceParts(r.URL.Path)
	if err != nil {
		return err
	}

	if len(parts) == 1 {
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: h.handleGetConversation,
		})
	}

	switch parts[1] {
	case "messages":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet:  h.handleListMessages,
			http.MethodPost: h.handlePostAgentMessage,
		})
	case "close":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleClose,
		})
	case "reopen":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleReopen,
		})
	case "assign":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleAssign,
		})
	case "tags":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPut: h.handleSetTags,
		})
	case "branch":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPut: h.handleSetBranch,
		})
	case "notes":
		if len(parts) == 3 {
			return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
				http.MethodDelete: h.handleDeleteNote,
			})
		}
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleAddNote,
		})
	case "summary":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleSummarize,
		})
	case "alerts":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: h.handleListAlerts,
		})
	default:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("unknown conversation action: %s", parts[1]),
		}
	}
}

func (h *conversationEndpoints) ContactHistory(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleContactHistory,
	})
}

func (h *conversationEndpoints) handleListConversations(w http.ResponseWriter, r *http.Request) error {
	filter := conversationservice.ListFilter{
		Status: model.ConversationStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if needs := strings.TrimSpace(r.URL.Query().Get("needsHuman")); needs != "" {
		flag := needs == "true" || needs == "1"
		filter.NeedsHuman = &flag
	}

	conversations, err := h.service.List(r.Context(), filter)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListConversationsResponse{Conversations: make([]dto.ConversationDTO, len(conversations))}
	for i, conv := range conversations {
		resp.Conversations[i] = toConversationDTO(conv)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *conversationEndpoints) handleGetConversation(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	detail, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toConversationDetail(detail))
}

func (h *conversationEndpoints) handleListMessages(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	detail, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListMessagesResponse{Messages: make([]dto.MessageDTO, len(detail.Messages))}
	for i, msg := range detail.Messages {
		resp.Messages[i] = toMessageDTO(msg)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

// handlePostAgentMessage sends the reply over the WhatsApp transport first and
// persists it with the returned SID, so delivery callbacks can find it later.
func (h *conversationEndpoints) handlePostAgentMessage(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.PostAgentMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode agent message request: %w", err),
		}
	}

	if strings.TrimSpace(req.Body) == "" {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Message body is required",
			ErrorLog:   fmt.Errorf("agent message body empty"),
		}
	}

	detail, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	handle, err := h.gateway.Send(r.Context(), detail.Conversation.ContactPhone, req.Body, "")
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadGateway,
			Message:    "Failed to send message",
			ErrorLog:   fmt.Errorf("send agent message: %w", err),
		}
	}

	message, err := h.service.RecordOutbound(r.Context(), conversationservice.OutboundParams{
		ConversationID: conversationID,
		SenderType:     model.SenderTypeAgent,
		SenderID:       strings.TrimSpace(req.AgentID),
		Body:           req.Body,
		ExternalID:     handle.SID,
	})
	if err != nil {
		return h.serviceError(err)
	}

	detail.Conversation.LastMessage = message.Body
	detail.Conversation.LastMessageAt = message.CreatedAt
	h.broadcastEvent("message.created", detail.Conversation, message)

	return api.WriteJSON(w, http.StatusCreated, toMessageDTO(message))
}

func (h *conversationEndpoints) handleClose(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	conversation, err := h.service.Close(r.Context(), conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	h.broadcastEvent("conversation.closed", conversation, model.MessageItem{})

	return api.WriteJSON(w, http.StatusOK, toConversationDTO(conversation))
}

func (h *conversationEndpoints) handleReopen(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	conversation, err := h.service.Reopen(r.Context(), conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	h.broadcastEvent("conversation.reopened", conversation, model.MessageItem{})

	return api.WriteJSON(w, http.StatusOK, toConversationDTO(conversation))
}

func (h *conversationEndpoints) handleAssign(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode assign request: %w", err),
		}
	}

	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" || agentID == model.AssignedToAI {
		err = h.service.AssignToAI(r.Context(), conversationID)
	} else {
		err = h.service.AssignToAgent(r.Context(), conversationID, agentID)
	}
	if err != nil {
		return h.serviceError(err)
	}

	detail, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	h.broadcastEvent("conversation.assigned", detail.Conversation, model.MessageItem{})

	return api.WriteJSON(w, http.StatusOK, toConversationDTO(detail.Conversation))
}

func (h *conversationEndpoints) handleSetTags(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.TagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode tags request: %w", err),
		}
	}

	if err := h.service.SetTags(r.Context(), conversationID, req.Tags); err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Tags updated"})
}

func (h *conversationEndpoints) handleSetBranch(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.BranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode branch request: %w", err),
		}
	}

	branch := strings.TrimSpace(req.Branch)
	// An empty branch clears the assignment; anything else must name a
	// configured branch office.
	if branch != "" && h.resolver != nil {
		if _, ok := h.resolver.BranchByID(branch); !ok {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Unknown branch",
				ErrorLog:   fmt.Errorf("set branch: no configured branch %q", branch),
			}
		}
	}

	if err := h.service.SetBranch(r.Context(), conversationID, branch); err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Branch updated"})
}

func (h *conversationEndpoints) handleAddNote(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode note request: %w", err),
		}
	}

	note, err := h.service.AddNote(r.Context(), conversationservice.NoteParams{
		ConversationID: conversationID,
		AuthorID:       strings.TrimSpace(req.AuthorID),
		Body:           req.Body,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusCreated, toNoteDTO(note))
}

func (h *conversationEndpoints) handleDeleteNote(w http.ResponseWriter, r *http.Request) error {
	parts, err := h.resourceParts(r.URL.Path)
	if err != nil {
		return err
	}

	if err := h.service.DeleteNote(r.Context(), parts[0], parts[2]); err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Note deleted"})
}

func (h *conversationEndpoints) handleSummarize(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	summary, err := h.service.Summarize(r.Context(), conversationID)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, dto.SummaryResponse{
		ConversationID: conversationID,
		Summary:        summary,
	})
}

func (h *conversationEndpoints) handleListAlerts(w http.ResponseWriter, r *http.Request) error {
	conversationID, err := h.conversationID(r.URL.Path)
	if err != nil {
		return err
	}

	alerts, err := h.service.ListAlerts(r.Context(), conversationID, 50)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListAlertsResponse{Alerts: make([]dto.AlertDTO, len(alerts))}
	for i, alert := range alerts {
		resp.Alerts[i] = toAlertDTO(alert)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *conversationEndpoints) handleContactHistory(w http.ResponseWriter, r *http.Request) error {
	phone, err := h.extractContactPath(r.URL.Path)
	if err != nil {
		return err
	}

	conversations, err := h.service.History(r.Context(), phone)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListConversationsResponse{Conversations: make([]dto.ConversationDTO, len(conversations))}
	for i, conv := range conversations {
		resp.Conversations[i] = toConversationDTO(conv)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *conversationEndpoints) Websocket(w http.ResponseWriter, r *http.Request) error {
	convID, err := h.extractFromPath(r.URL.Path, h.paths.WebsocketPrefix)
	if err != nil {
		return err
	}
	convID = strings.Trim(convID, "/")
	if convID == "" {
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Conversation not found",
			ErrorLog:   fmt.Errorf("websocket conversation id missing"),
		}
	}

	agentID, err := h.agentFromQueryToken(r)
	if err != nil {
		return err
	}

	h.ensureRoom(convID)
	h.handler.JoinRoom(w, r, convID, agentID)
	return nil
}

func (h *conversationEndpoints) NotificationsWebsocket(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("notification websocket handler missing"),
		}
	}

	agentID, err := h.agentFromQueryToken(r)
	if err != nil {
		return err
	}

	h.ensureRoom(agentNotificationRoom)
	h.handler.JoinRoom(w, r, agentNotificationRoom, agentID)
	return nil
}

// agentFromQueryToken validates the ?token= JWT. Browsers cannot set headers
// on websocket upgrades, so the token travels in the query string here.
func (h *conversationEndpoints) agentFromQueryToken(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		return "", &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Missing token",
			ErrorLog:   fmt.Errorf("websocket missing token"),
		}
	}

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleAgent)
	if err != nil {
		return "", &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("websocket token invalid: %w", err),
		}
	}

	expires, ok := claims["exp"].(float64)
	if !ok || time.Now().Unix() > int64(expires) {
		return "", &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Token expired",
			ErrorLog:   fmt.Errorf("websocket token expired"),
		}
	}

	agentID, _ := claims["id"].(string)
	if agentID == "" {
		return "", &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("websocket token missing agent id"),
		}
	}

	return agentID, nil
}

func (h *conversationEndpoints) conversationID(path string) (string, error) {
	parts, err := h.resourceParts(path)
	if err != nil {
		return "", err
	}
	return parts[0], nil
}

func (h *conversationEndpoints) resourceParts(path string) ([]string, error) {
	prefix := h.paths.ConversationPrefix
	if prefix == "" {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Conversation not found", ErrorLog: fmt.Errorf("conversation route not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Conversation not found", ErrorLog: fmt.Errorf("conversation path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Conversation not found", ErrorLog: fmt.Errorf("conversation id missing: %s", path)}
	}
	return parts, nil
}

func (h *conversationEndpoints) extractContactPath(path string) (string, error) {
	prefix := h.paths.ContactPrefix
	if prefix == "" {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Contact not found", ErrorLog: fmt.Errorf("contact route not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Contact not found", ErrorLog: fmt.Errorf("contact path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "conversations" {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Contact not found", ErrorLog: fmt.Errorf("invalid contact path: %s", path)}
	}
	return parts[0], nil
}

func (h *conversationEndpoints) extractFromPath(path, prefix string) (string, error) {
	if prefix == "" {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("websocket not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("path mismatch: %s", path)}
	}
	return trimmed, nil
}

func (h *conversationEndpoints) ensureRoom(roomID string) {
	if roomID == "" || h.handler == nil {
		return
	}
	h.handler.CreateRoom(roomID)
}

func (h *conversationEndpoints) broadcastEvent(eventType string, conversation model.ConversationItem, message model.MessageItem) {
	payload := map[string]interface{}{
		"type":          eventType,
		"conversation":  toConversationDTO(conversation),
		"broadcastedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if message.MessageID != "" {
		payload["message"] = toMessageDTO(message)
	}

	h.notifyRoom(conversation.ConversationID, payload)
	h.notifyRoom(agentNotificationRoom, payload)
}

func (h *conversationEndpoints) notifyRoom(roomID string, payload interface{}) {
	if roomID == "" {
		return
	}

	if err := websocket.Publish(roomID, payload); err != nil {
		fmt.Printf("failed to publish websocket payload for room %s: %v\n", roomID, err)
	}

	if h.handler != nil {
		h.handler.NotifyRoom(roomID, payload)
	}
}

func (h *conversationEndpoints) serviceError(err error) error {
	return conversationServiceError(err)
}

func conversationServiceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*conversationservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("conversation service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case conversationservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}

func toConversationDTO(item model.ConversationItem) dto.ConversationDTO {
	return dto.ConversationDTO{
		ConversationID: item.ConversationID,
		ContactPhone:   item.ContactPhone,
		Status:         string(item.Status),
		AssignedTo:     item.AssignedTo,
		Branch:         item.Branch,
		LastMessage:    item.LastMessage,
		LastMessageAt:  item.LastMessageAt,
		UnreadCount:    item.UnreadCount,
		NeedsHuman:     item.NeedsHuman,
		Tags:           item.Tags,
		Summary:        item.Summary,
		SummarizedAt:   item.SummarizedAt,
		ClosedAt:       item.ClosedAt,
		ReopenedAt:     item.ReopenedAt,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

func toConversationDetail(detail conversationservice.DetailResult) dto.ConversationDetailResponse {
	resp := dto.ConversationDetailResponse{
		Conversation: toConversationDTO(detail.Conversation),
		Messages:     make([]dto.MessageDTO, len(detail.Messages)),
		Notes:        make([]dto.NoteDTO, len(detail.Notes)),
	}
	for i, msg := range detail.Messages {
		resp.Messages[i] = toMessageDTO(msg)
	}
	for i, note := range detail.Notes {
		resp.Notes[i] = toNoteDTO(note)
	}
	return resp
}

func toMessageDTO(item model.MessageItem) dto.MessageDTO {
	return dto.MessageDTO{
		MessageID:      item.MessageID,
		ConversationID: item.ConversationID,
		SenderType:     string(item.SenderType),
		SenderID:       item.SenderID,
		Body:           item.Body,
		ContentType:    string(item.ContentType),
		MediaURL:       item.MediaURL,
		ExternalID:     item.ExternalID,
		Status:         string(item.Status),
		CreatedAt:      item.CreatedAt,
	}
}

func toNoteDTO(item model.NoteItem) dto.NoteDTO {
	return dto.NoteDTO{
		NoteID:         item.NoteID,
		ConversationID: item.ConversationID,
		AuthorID:       item.AuthorID,
		Body:           item.Body,
		CreatedAt:      item.CreatedAt,
	}
}

func toAlertDTO(item model.AlertItem) dto.AlertDTO {
	return dto.AlertDTO{
		AlertID:        item.AlertID,
		ConversationID: item.ConversationID,
		Type:           string(item.Type),
		Message:        item.Message,
		CreatedAt:      item.CreatedAt,
	}
}
