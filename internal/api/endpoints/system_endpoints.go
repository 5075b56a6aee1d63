package endpoints

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/dto"
	"support-bridge-backend/internal/model"
	conversationservice "support-bridge-backend/internal/service/conversation"
	webhookservice "support-bridge-backend/internal/service/webhook"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type SystemEndpoints interface {
	Logs(http.ResponseWriter, *http.Request) error
	Report(http.ResponseWriter, *http.Request) error
	Sweep(http.ResponseWriter, *http.Request) error
}

type systemEndpoints struct {
	logs          webhookservice.LogRepository
	conversations *conversationservice.Service
}

func NewSystemEndpoints(logs webhookservice.LogRepository, conversations *conversationservice.Service) SystemEndpoints {
	return &systemEndpoints{
		logs:          logs,
		conversations: conversations,
	}
}

func (h *systemEndpoints) Logs(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListLogs,
	})
}

func (h *systemEndpoints) Report(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleReport,
	})
}

// Sweep triggers one inactivity pass on demand, the same pass the scheduler
// runs on its own.
func (h *systemEndpoints) Sweep(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSweep,
	})
}

func (h *systemEndpoints) handleListLogs(w http.ResponseWriter, r *http.Request) error {
	logType := model.SystemLogType(strings.TrimSpace(r.URL.Query().Get("type")))

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Invalid limit parameter",
				ErrorLog:   fmt.Errorf("parse limit %q: %v", raw, err),
			}
		}
		limit = parsed
	}

	logs, err := h.logs.ListLogs(r.Context(), logType, limit)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to list logs",
			ErrorLog:   fmt.Errorf("list system logs: %w", err),
		}
	}

	resp := dto.ListSystemLogsResponse{Logs: make([]dto.SystemLogDTO, len(logs))}
	for i, entry := range logs {
		resp.Logs[i] = dto.SystemLogDTO{
			LogID:     entry.LogID,
			Type:      string(entry.Type),
			Payload:   entry.Payload,
			CreatedAt: entry.CreatedAt,
		}
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *systemEndpoints) handleReport(w http.ResponseWriter, r *http.Request) error {
	conversations, err := h.conversations.List(r.Context(), conversationservice.ListFilter{})
	if err != nil {
		return conversationServiceError(err)
	}

	alerts, err := h.conversations.ListAlerts(r.Context(), "", 0)
	if err != nil {
		return conversationServiceError(err)
	}

	report := dto.ReportResponse{
		TotalConversations: len(conversations),
		HandOffs:           len(alerts),
	}
	for _, conversation := range conversations {
		switch conversation.Status {
		case model.ConversationStatusOpen:
			report.Open++
		case model.ConversationStatusClosed:
			report.Closed++
		}
		if conversation.NeedsHuman {
			report.NeedsHuman++
		}
	}

	return api.WriteJSON(w, http.StatusOK, report)
}

func (h *systemEndpoints) handleSweep(w http.ResponseWriter, r *http.Request) error {
	result, err := h.conversations.SweepInactive(r.Context())
	if err != nil {
		return conversationServiceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, dto.SweepResponse{
		Examined: result.Examined,
		Closed:   result.Closed,
	})
}
