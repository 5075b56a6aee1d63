package endpoints

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/dto"
	"support-bridge-backend/internal/model"
	contextdocservice "support-bridge-backend/internal/service/contextdoc"
	productservice "support-bridge-backend/internal/service/product"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// importMaxBytes caps one CSV upload.
const importMaxBytes = 8 << 20

type CatalogEndpoints interface {
	ContextDocuments(http.ResponseWriter, *http.Request) error
	ContextDocumentResource(http.ResponseWriter, *http.Request) error
	Products(http.ResponseWriter, *http.Request) error
	ProductResource(http.ResponseWriter, *http.Request) error
}

type CatalogPaths struct {
	DocumentsPath  string
	DocumentPrefix string
	ProductsPath   string
	ProductPrefix  string
}

type catalogEndpoints struct {
	documents *contextdocservice.Service
	products  *productservice.Service
	paths     CatalogPaths
}

func NewCatalogEndpoints(documents *contextdocservice.Service, products *productservice.Service, prefix string) CatalogEndpoints {
	base := strings.TrimRight(prefix, "/")
	return &catalogEndpoints{
		documents: documents,
		products:  products,
		paths: CatalogPaths{
			DocumentsPath:  base + "/context-documents",
			DocumentPrefix: base + "/context-documents/",
			ProductsPath:   base + "/products",
			ProductPrefix:  base + "/products/",
		},
	}
}

func (h *catalogEndpoints) ContextDocuments(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListDocuments,
		http.MethodPost: h.handleCreateDocument,
	})
}

func (h *catalogEndpoints) ContextDocumentResource(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleGetDocument,
		http.MethodPatch:  h.handleUpdateDocument,
		http.MethodDelete: h.handleDeleteDocument,
	})
}

func (h *catalogEndpoints) Products(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListProducts,
		http.MethodPost: h.handleCreateProduct,
	})
}

func (h *catalogEndpoints) ProductResource(w http.ResponseWriter, r *http.Request) error {
	id, err := extractID(r.URL.Path, h.paths.ProductPrefix, "Product")
	if err != nil {
		return err
	}

	if id == "import" {
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleImportProducts,
		})
	}

	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleGetProduct,
		http.MethodPatch:  h.handleUpdateProduct,
		http.MethodDelete: h.handleDeleteProduct,
	})
}

func (h *catalogEndpoints) handleListDocuments(w http.ResponseWriter, r *http.Request) error {
	documents, err := h.documents.List(r.Context())
	if err != nil {
		return h.documentError(err)
	}

	resp := dto.ListContextDocumentsResponse{Documents: make([]dto.ContextDocumentDTO, len(documents))}
	for i, doc := range documents {
		resp.Documents[i] = toContextDocumentDTO(doc)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *catalogEndpoints) handleCreateDocument(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateContextDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create document request: %w", err),
		}
	}

	doc, err := h.documents.Create(r.Context(), contextdocservice.CreateParams{
		Name:    req.Name,
		Content: req.Content,
		Active:  req.Active,
	})
	if err != nil {
		return h.documentError(err)
	}

	return api.WriteJSON(w, http.StatusCreated, toContextDocumentDTO(doc))
}

func (h *catalogEndpoints) handleGetDocument(w http.ResponseWriter, r *http.Request) error {
	id, err := extractID(r.URL.Path, h.paths.DocumentPrefix, "Document")
	if err != nil {
		return err
	}

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		return h.documentError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toContextDocumentDTO(doc))
}

func (h *catalogEndpoints) handleUpdateDocument(w http.ResponseWriter, r *http.Request) error {
	id, err := extractID(r.URL.Path, h.paths.DocumentPrefix, "Document")
	if err != nil {
		return err
	}

	var req dto.UpdateContextDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode update document request: %w", err),
		}
	}

	doc, err := h.documents.Update(r.Context(), id, contextdocservice.UpdateParams{
		Name:    req.Name,
		Content: req.Content,
		Active:  req.Active,
	})
	if err != nil {
		return h.documentError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toContextDocumentDTO(doc))
}

func (h *catalogEndpoints) handleDeleteDocument(w http.ResponseWriter, r *http.Request) error {
	id, err := extractID(r.URL.Path, h.paths.DocumentPrefix, "Document")
	if err != nil {
		return err
	}

	if err := h.documents.Delete(r.Context(), id); err != nil {
		return h.documentError(err)
	}

	return api.WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Document deleted"})
}

func (h *catalogEndpoints) handleListProducts(w http.ResponseWriter, r *http.Request) error {
	products, err := h.products.List(r.Context())
	if err != nil {
		return h.productError(err)
	}

	resp := dto.ListProductsResponse{Products: make([]dto.ProductDTO, len(products))}
	for i, product := range products {
		resp.Products[i] = toProductDTO(product)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *catalogEndpoints) handleCreateProduct(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create product request: %w", err),
		}
	}

	product, err := h.products.Create(r.Context(), productservice.CreateParams{
		Name:        req.Name,
		SKU:         req.SKU,
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		return h.productError(err)
	}

	return api.WriteJSON(w, http.StatusCreated, toProductDTO(product))
}

func (h *catalogEndpoints) handleGetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := extractID(r.URL.Path, h.paths.ProductPrefix, "Product")
	if err != nil {
		return err
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		return h.productError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toProductDTO(product))
}

func (h *catalogEndpoints) handleUpdateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := extractID(r.URL.Path, h.paths.ProductPrefix, "Product")
	if err != nil {
		return err
	}

	var req dto.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode update product request: %w", err),
		}
	}

	product, err := h.products.Update(r.Context(), id, productservice.UpdateParams{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		return h.productError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toProductDTO(product))
}

func (h *catalogEndpoints) handleDeleteProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := extractID(r.URL.Path, h.paths.ProductPrefix, "Product")
	if err != nil {
		return err
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		return h.productError(err)
	}

	return api.WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Product deleted"})
}

// handleImportProducts accepts a multipart upload with the CSV in the "file"
// field and also a raw text/csv body for curl friendliness.
func (h *catalogEndpoints) handleImportProducts(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, importMaxBytes)

	contentType := r.Header.Get("Content-Type")
	reader := r.Body
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(importMaxBytes); err != nil {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Invalid upload",
				ErrorLog:   fmt.Errorf("parse multipart form: %w", err),
			}
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Missing file field",
				ErrorLog:   fmt.Errorf("read multipart file: %w", err),
			}
		}
		defer file.Close()
		reader = file
	}

	result, err := h.products.ImportCSV(r.Context(), reader)
	if err != nil {
		return h.productError(err)
	}

	return api.WriteJSON(w, http.StatusOK, dto.ImportProductsResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
	})
}

func extractID(path, prefix, label string) (string, error) {
	if prefix == "" {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: label + " not found", ErrorLog: fmt.Errorf("route not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: label + " not found", ErrorLog: fmt.Errorf("path mismatch: %s", path)}
	}
	id := strings.Trim(trimmed, "/")
	if id == "" || strings.Contains(id, "/") {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: label + " not found", ErrorLog: fmt.Errorf("invalid path: %s", path)}
	}
	return id, nil
}

func (h *catalogEndpoints) documentError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*contextdocservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("context document service: %w", err),
		}
	}

	switch svcErr.Code {
	case contextdocservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: svcErr}
	case contextdocservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: svcErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: svcErr}
	}
}

func (h *catalogEndpoints) productError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*productservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("product service: %w", err),
		}
	}

	switch svcErr.Code {
	case productservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: svcErr}
	case productservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: svcErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: svcErr}
	}
}

func toContextDocumentDTO(item model.ContextDocumentItem) dto.ContextDocumentDTO {
	return dto.ContextDocumentDTO{
		DocumentID: item.DocumentID,
		Name:       item.Name,
		Content:    item.Content,
		Active:     item.Active,
		SizeBytes:  item.SizeBytes,
		CreatedAt:  item.CreatedAt,
	}
}

func toProductDTO(item model.ProductItem) dto.ProductDTO {
	return dto.ProductDTO{
		ProductID:   item.ProductID,
		Name:        item.Name,
		SKU:         item.SKU,
		Price:       item.Price,
		Description: item.Description,
		Category:    item.Category,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}
