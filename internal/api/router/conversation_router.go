package router

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/api/endpoints"
	"support-bridge-backend/internal/api/middleware"
	"support-bridge-backend/internal/messaging"
	"support-bridge-backend/internal/routing"
	conversationservice "support-bridge-backend/internal/service/conversation"
	"net/http"
)

func ConversationRoutes(prefix string, service *conversationservice.Service, gateway messaging.Gateway, resolver *routing.BranchResolver) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		convEndpoints := endpoints.NewConversationEndpoints(service, gateway, s.Handler(), resolver, prefix)

		mux.HandleFunc(prefix+"/conversations", s.MakeHTTPHandleFunc(convEndpoints.Conversations, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/conversations/", s.MakeHTTPHandleFunc(convEndpoints.ConversationResource, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/contacts/", s.MakeHTTPHandleFunc(convEndpoints.ContactHistory, middleware.ValidateAgentJWT))
	}
}

// ConversationWebsocketRoutes carries no auth middleware; the endpoints
// validate the query token themselves before upgrading.
func ConversationWebsocketRoutes(prefix string, service *conversationservice.Service, gateway messaging.Gateway) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		convEndpoints := endpoints.NewConversationEndpoints(service, gateway, s.Handler(), nil, prefix)

		mux.HandleFunc(prefix+"/ws/conversations/", s.MakeHTTPHandleFunc(convEndpoints.Websocket))
		mux.HandleFunc(prefix+"/ws/notifications", s.MakeHTTPHandleFunc(convEndpoints.NotificationsWebsocket))
	}
}
