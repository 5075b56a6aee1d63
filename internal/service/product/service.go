package product

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"support-bridge-backend/internal/database"
	"support-bridge-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type CreateParams struct {
	Name        string
	SKU         string
	Price       string
	Description string
	Category    string
}

type UpdateParams struct {
	Name        *string
	Price       *string
	Description *string
	Category    *string
}

// ImportResult reports one CSV import: created rows plus any skipped lines
// with the reason.
type ImportResult struct {
	Imported int
	Skipped  []string
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now)
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) Create(ctx context.Context, params CreateParams) (model.ProductItem, error) {
	name := strings.TrimSpace(params.Name)
	sku := strings.TrimSpace(params.SKU)
	if name == "" || sku == "" {
		return model.ProductItem{}, newError(ErrorCodeValidation, "missing product name or sku", nil)
	}

	now := s.now().UTC().Format(time.RFC3339)
	product := model.ProductItem{
		ProductID:   uuid.NewString(),
		Name:        name,
		SKU:         sku,
		Price:       strings.TrimSpace(params.Price),
		Description: params.Description,
		Category:    params.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return model.ProductItem{}, newError(ErrorCodeInternal, "failed to store product", err)
	}
	return product, nil
}

func (s *Service) Get(ctx context.Context, productID string) (model.ProductItem, error) {
	if productID == "" {
		return model.ProductItem{}, newError(ErrorCodeValidation, "missing product id", nil)
	}
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ProductItem{}, newError(ErrorCodeNotFound, "product not found", err)
		}
		return model.ProductItem{}, newError(ErrorCodeInternal, "failed to load product", err)
	}
	return product, nil
}

func (s *Service) Update(ctx context.Context, productID string, params UpdateParams) (model.ProductItem, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return model.ProductItem{}, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return model.ProductItem{}, newError(ErrorCodeValidation, "missing product name", nil)
		}
		product.Name = name
	}
	if params.Price != nil {
		product.Price = strings.TrimSpace(*params.Price)
	}
	if params.Description != nil {
		product.Description = *params.Description
	}
	if params.Category != nil {
		product.Category = *params.Category
	}
	product.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.repo.Update(ctx, product); err != nil {
		return model.ProductItem{}, newError(ErrorCodeInternal, "failed to update product", err)
	}
	return product, nil
}

func (s *Service) Delete(ctx context.Context, productID string) error {
	if _, err := s.Get(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return newError(ErrorCodeInternal, "failed to delete product", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]model.ProductItem, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list products", err)
	}
	return products, nil
}

// ImportCSV reads a catalog export with a name,sku,price,description,category
// header. Rows missing name or sku are skipped and reported, not fatal. Rows
// whose sku already exists update the stored product in place.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ImportResult{}, newError(ErrorCodeValidation, "failed to read csv header", err)
	}

	index := make(map[string]int, len(header))
	for i, column := range header {
		index[strings.ToLower(strings.TrimSpace(column))] = i
	}
	for _, column := range []string{"name", "sku"} {
		if _, ok := index[column]; !ok {
			return ImportResult{}, newError(ErrorCodeValidation,
				fmt.Sprintf("csv header missing %q column", column), nil)
		}
	}

	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := ImportResult{}
	now := s.now().UTC().Format(time.RFC3339)
	var created []model.ProductItem
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		name := field(record, "name")
		sku := field(record, "sku")
		if name == "" || sku == "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: missing name or sku", line))
			continue
		}

		existing, err := s.repo.GetBySKU(ctx, sku)
		if err == nil {
			existing.Name = name
			existing.Price = field(record, "price")
			existing.Description = field(record, "description")
			existing.Category = field(record, "category")
			existing.UpdatedAt = now
			if err := s.repo.Update(ctx, existing); err != nil {
				return result, newError(ErrorCodeInternal, "failed to update product", err)
			}
			result.Imported++
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return result, newError(ErrorCodeInternal, "failed to look up product", err)
		}

		created = append(created, model.ProductItem{
			ProductID:   uuid.NewString(),
			Name:        name,
			SKU:         sku,
			Price:       field(record, "price"),
			Description: field(record, "description"),
			Category:    field(record, "category"),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		result.Imported++
	}

	if len(created) > 0 {
		if err := s.repo.CreateBatch(ctx, created); err != nil {
			return ImportResult{}, newError(ErrorCodeInternal, "failed to store products", err)
		}
	}

	return result, nil
}
