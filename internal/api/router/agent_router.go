package router

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/api/endpoints"
	"support-bridge-backend/internal/api/middleware"
	agentservice "support-bridge-backend/internal/service/agent"
	"net/http"
)

func AgentRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := agentservice.New(s.Database())
		agentEndpoints := endpoints.NewAgentEndpoints(service, prefix)

		mux.HandleFunc(prefix+"/auth/login", s.MakeHTTPHandleFunc(agentEndpoints.Login))
		mux.HandleFunc(prefix+"/auth/refresh", s.MakeHTTPHandleFunc(agentEndpoints.Refresh))
		mux.HandleFunc(prefix+"/auth/me", s.MakeHTTPHandleFunc(agentEndpoints.Me))
		mux.HandleFunc(prefix+"/agents", s.MakeHTTPHandleFunc(agentEndpoints.Agents, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/agents/", s.MakeHTTPHandleFunc(agentEndpoints.AgentResource, middleware.ValidateAgentJWT))
	}
}
