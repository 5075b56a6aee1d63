package router

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/api/endpoints"
	webhookservice "support-bridge-backend/internal/service/webhook"
	"net/http"
)

// WebhookRoutes exposes the provider callback. No auth middleware here, the
// provider signs requests instead of carrying a bearer token.
func WebhookRoutes(prefix string, service *webhookservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		webhookEndpoints := endpoints.NewWebhookEndpoints(service)
		mux.HandleFunc(prefix+"/webhook/whatsapp", s.MakeHTTPHandleFunc(webhookEndpoints.Incoming))
	}
}
