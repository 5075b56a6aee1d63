package router

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/api/endpoints"
	"support-bridge-backend/internal/api/middleware"
	contextdocservice "support-bridge-backend/internal/service/contextdoc"
	productservice "support-bridge-backend/internal/service/product"
	"net/http"
)

func CatalogRoutes(prefix string, documents *contextdocservice.Service, products *productservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		catalogEndpoints := endpoints.NewCatalogEndpoints(documents, products, prefix)

		mux.HandleFunc(prefix+"/context-documents", s.MakeHTTPHandleFunc(catalogEndpoints.ContextDocuments, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/context-documents/", s.MakeHTTPHandleFunc(catalogEndpoints.ContextDocumentResource, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/products", s.MakeHTTPHandleFunc(catalogEndpoints.Products, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/products/", s.MakeHTTPHandleFunc(catalogEndpoints.ProductResource, middleware.ValidateAgentJWT))
	}
}
