package endpoints

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/api/middleware"
	"support-bridge-backend/internal/dto"
	internaljwt "support-bridge-backend/internal/jwt"
	"support-bridge-backend/internal/model"
	"support-bridge-backend/internal/queue"
	conversationservice "support-bridge-backend/internal/service/conversation"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func setupSystemTestHandler(t *testing.T) (http.Handler, *memoryRepository, *memoryLogRepository) {
	t.Helper()

	originalSecret := internaljwt.RoleSecrets[internaljwt.RoleAgent]
	internaljwt.RoleSecrets[internaljwt.RoleAgent] = "jwt-test-secret"
	t.Cleanup(func() {
		internaljwt.RoleSecrets[internaljwt.RoleAgent] = originalSecret
	})

	repo := newMemoryRepository()
	logs := &memoryLogRepository{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	conversations := conversationservice.NewWithRepository(repo, stubResponder{}, 30*time.Minute, nil, func() time.Time { return now })

	queueManager := queue.NewRequestQueueManager(10, 1)
	server := api.NewAPIServer(":0", queueManager, nil, nil)

	systemEndpoints := NewSystemEndpoints(logs, conversations)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/system/logs", server.MakeHTTPHandleFunc(systemEndpoints.Logs, middleware.ValidateAgentJWT))
	mux.HandleFunc("/api/system/report", server.MakeHTTPHandleFunc(systemEndpoints.Report, middleware.ValidateAgentJWT))
	mux.HandleFunc("/api/system/sweep", server.MakeHTTPHandleFunc(systemEndpoints.Sweep, middleware.ValidateAgentJWT))

	t.Cleanup(queueManager.Shutdown)

	return mux, repo, logs
}

func TestListSystemLogsFiltersByType(t *testing.T) {
	handler, _, logs := setupSystemTestHandler(t)
	logs.entries = []model.SystemLogItem{
		{LogID: "log-1", Type: model.SystemLogWebhookIncoming, Payload: `{"from":"+521555"}`, CreatedAt: "2024-05-01T11:00:00Z"},
		{LogID: "log-2", Type: model.SystemLogWebhookStatus, Payload: `{"conversationId":"conv-1"}`, CreatedAt: "2024-05-01T11:01:00Z"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/system/logs?type=webhook_incoming", nil)
	req.Header.Set("Authorization", agentAuthHeader(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ListSystemLogsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(resp.Logs))
	}
	if resp.Logs[0].LogID != "log-1" {
		t.Fatalf("unexpected log id %q", resp.Logs[0].LogID)
	}
}

func TestListSystemLogsRejectsBadLimit(t *testing.T) {
	handler, _, _ := setupSystemTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/system/logs?limit=abc", nil)
	req.Header.Set("Authorization", agentAuthHeader(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestReportSummarizesConversations(t *testing.T) {
	handler, repo, _ := setupSystemTestHandler(t)
	seedConversation(repo, "conv-1", "+5213312345678", model.ConversationStatusOpen, "agent-1")
	seedConversation(repo, "conv-2", "+5215550000002", model.ConversationStatusClosed, "ai")
	flagged := repo.conversations["conv-1"]
	flagged.NeedsHuman = true
	repo.conversations["conv-1"] = flagged
	repo.alerts = append(repo.alerts, model.AlertItem{
		AlertID:        "alert-1",
		ConversationID: "conv-1",
		Type:           model.AlertTypeHandOff,
		Message:        "hand-off",
		CreatedAt:      "2024-05-01T11:00:00Z",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/system/report", nil)
	req.Header.Set("Authorization", agentAuthHeader(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report dto.ReportResponse
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.TotalConversations != 2 || report.Open != 1 || report.Closed != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.NeedsHuman != 1 || report.HandOffs != 1 {
		t.Fatalf("unexpected flags: %+v", report)
	}
}

func TestSweepClosesStaleConversations(t *testing.T) {
	handler, repo, _ := setupSystemTestHandler(t)
	seedConversation(repo, "conv-stale", "+5213312345678", model.ConversationStatusOpen, "agent-1")
	seedConversation(repo, "conv-fresh", "+5215550000002", model.ConversationStatusOpen, "agent-1")
	fresh := repo.conversations["conv-fresh"]
	fresh.LastMessageAt = "2024-05-01T11:50:00Z"
	repo.conversations["conv-fresh"] = fresh

	req := httptest.NewRequest(http.MethodPost, "/api/system/sweep", nil)
	req.Header.Set("Authorization", agentAuthHeader(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.SweepResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Examined != 2 {
		t.Fatalf("expected 2 examined, got %d", resp.Examined)
	}
	if len(resp.Closed) != 1 || resp.Closed[0] != "conv-stale" {
		t.Fatalf("expected conv-stale closed, got %v", resp.Closed)
	}
	if repo.conversations["conv-fresh"].Status != model.ConversationStatusOpen {
		t.Fatal("expected fresh conversation left open")
	}
}
