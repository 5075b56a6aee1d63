package contextdoc

import (
	"context"
	"errors"
	"fmt"
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
	Name    string
	Content string
	Active  bool
}

type UpdateParams struct {
	Name    *string
	Content *string
	Active  *bool
}

type Service struct {
	repo        Repository
	maxDocBytes int
	budgetBytes int
	now         func() time.Time
}

func New(db *database.Database, maxDocBytes, budgetBytes int) *Service {
	return NewWithRepository(NewDynamoRepository(db), maxDocBytes, budgetBytes, time.Now)
}

func NewWithRepository(repo Repository, maxDocBytes, budgetBytes int, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:        repo,
		maxDocBytes: maxDocBytes,
		budgetBytes: budgetBytes,
		now:         now,
	}
}

func (s *Service) Create(ctx context.Context, params CreateParams) (model.ContextDocumentItem, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return model.ContextDocumentItem{}, newError(ErrorCodeValidation, "missing document name", nil)
	}
	if strings.TrimSpace(params.Content) == "" {
		return model.ContextDocumentItem{}, newError(ErrorCodeValidation, "missing document content", nil)
	}
	if size := len(params.Content); size > s.maxDocBytes {
		return model.ContextDocumentItem{}, newError(ErrorCodeValidation,
			fmt.Sprintf("document exceeds %d bytes (%d)", s.maxDocBytes, size), nil)
	}

	doc := model.ContextDocumentItem{
		DocumentID: uuid.NewString(),
		Name:       name,
		Content:    params.Content,
		Active:     params.Active,
		SizeBytes:  len(params.Content),
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return model.ContextDocumentItem{}, newError(ErrorCodeInternal, "failed to store document", err)
	}
	return doc, nil
}

func (s *Service) Get(ctx context.Context, documentID string) (model.ContextDocumentItem, error) {
	if documentID == "" {
		return model.ContextDocumentItem{}, newError(ErrorCodeValidation, "missing document id", nil)
	}
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ContextDocumentItem{}, newError(ErrorCodeNotFound, "document not found", err)
		}
		return model.ContextDocumentItem{}, newError(ErrorCodeInternal, "failed to load document", err)
	}
	return doc, nil
}

func (s *Service) Update(ctx context.Context, documentID string, params UpdateParams) (model.ContextDocumentItem, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return model.ContextDocumentItem{}, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return model.ContextDocumentItem{}, newError(ErrorCodeValidation, "missing document name", nil)
		}
		doc.Name = name
	}
	if params.Content != nil {
		if strings.TrimSpace(*params.Content) == "" {
			return model.ContextDocumentItem{}, newError(ErrorCodeValidation, "missing document content", nil)
		}
		if size := len(*params.Content); size > s.maxDocBytes {
			return model.ContextDocumentItem{}, newError(ErrorCodeValidation,
				fmt.Sprintf("document exceeds %d bytes (%d)", s.maxDocBytes, size), nil)
		}
		doc.Content = *params.Content
		doc.SizeBytes = len(*params.Content)
	}
	if params.Active != nil {
		doc.Active = *params.Active
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		return model.ContextDocumentItem{}, newError(ErrorCodeInternal, "failed to update document", err)
	}
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, documentID string) error {
	if _, err := s.Get(ctx, documentID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, documentID); err != nil {
		return newError(ErrorCodeInternal, "failed to delete document", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]model.ContextDocumentItem, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list documents", err)
	}
	return docs, nil
}

// BuildContextBlock concatenates active documents, newest first, stopping
// before the aggregate budget is exceeded. A document that does not fit is
// skipped whole rather than truncated mid-document.
func (s *Service) BuildContextBlock(ctx context.Context) (string, error) {
	docs, err := s.repo.ListActive(ctx)
	if err != nil {
		return "", newError(ErrorCodeInternal, "failed to list active documents", err)
	}

	var b strings.Builder
	used := 0
	for _, doc := range docs {
		section := fmt.Sprintf("## %s\n%s\n\n", doc.Name, doc.Content)
		if used+len(section) > s.budgetBytes {
			continue
		}
		b.WriteString(section)
		used += len(section)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
