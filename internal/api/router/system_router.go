package router

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/api/endpoints"
	"support-bridge-backend/internal/api/middleware"
	conversationservice "support-bridge-backend/internal/service/conversation"
	webhookservice "support-bridge-backend/internal/service/webhook"
	"net/http"
)

func SystemRoutes(prefix string, logs webhookservice.LogRepository, conversations *conversationservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		systemEndpoints := endpoints.NewSystemEndpoints(logs, conversations)

		mux.HandleFunc(prefix+"/system/logs", s.MakeHTTPHandleFunc(systemEndpoints.Logs, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/system/report", s.MakeHTTPHandleFunc(systemEndpoints.Report, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/system/sweep", s.MakeHTTPHandleFunc(systemEndpoints.Sweep, middleware.ValidateAgentJWT))
	}
}
