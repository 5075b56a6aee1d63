package dto

type ContextDocumentDTO struct {
	DocumentID string `json:"documentId"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Active     bool   `json:"active"`
	SizeBytes  int    `json:"sizeBytes"`
	CreatedAt  string `json:"createdAt"`
}

type CreateContextDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Active  bool   `json:"active"`
}

type UpdateContextDocumentRequest struct {
	Name    *string `json:"name,omitempty"`
	Content *string `json:"content,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

type ListContextDocumentsResponse struct {
	Documents []ContextDocumentDTO `json:"documents"`
}

type ProductDTO struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type CreateProductRequest struct {
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Price       *string `json:"price,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

type ListProductsResponse struct {
	Products []ProductDTO `json:"products"`
}

type ImportProductsResponse struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}
