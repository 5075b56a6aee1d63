package contextdoc

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"support-bridge-backend/internal/model"
)

type memoryRepository struct {
	mu   sync.Mutex
	docs map[string]model.ContextDocumentItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{docs: make(map[string]model.ContextDocumentItem)}
}

func (m *memoryRepository) Create(ctx context.Context, doc model.ContextDocumentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.DocumentID] = doc
	return nil
}

func (m *memoryRepository) Get(ctx context.Context, documentID string) (model.ContextDocumentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return model.ContextDocumentItem{}, ErrNotFound
	}
	return doc, nil
}

func (m *memoryRepository) Update(ctx context.Context, doc model.ContextDocumentItem) error {
	return m.Create(ctx, doc)
}

func (m *memoryRepository) Delete(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, documentID)
	return nil
}

func (m *memoryRepository) List(ctx context.Context) ([]model.ContextDocumentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]model.ContextDocumentItem, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	sortByCreatedDesc(docs)
	return docs, nil
}

func (m *memoryRepository) ListActive(ctx context.Context) ([]model.ContextDocumentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]model.ContextDocumentItem, 0)
	for _, doc := range m.docs {
		if doc.Active {
			docs = append(docs, doc)
		}
	}
	sortByCreatedDesc(docs)
	return docs, nil
}

func sortByCreatedDesc(docs []model.ContextDocumentItem) {
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			if docs[j].CreatedAt > docs[i].CreatedAt {
				docs[i], docs[j] = docs[j], docs[i]
			}
		}
	}
}

func newClock() func() time.Time {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestCreateRejectsOversizedDocument(t *testing.T) {
	svc := NewWithRepository(newMemoryRepository(), 100, 1000, newClock())

	_, err := svc.Create(context.Background(), CreateParams{
		Name:    "catalog",
		Content: strings.Repeat("x", 101),
		Active:  true,
	})
	if err == nil {
		t.Fatal("expected validation error for oversized document")
	}
	if svcErr, ok := err.(*Error); !ok || svcErr.Code != ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	doc, err := svc.Create(context.Background(), CreateParams{
		Name:    "catalog",
		Content: strings.Repeat("x", 100),
		Active:  true,
	})
	if err != nil {
		t.Fatalf("create at the limit: %v", err)
	}
	if doc.SizeBytes != 100 {
		t.Fatalf("expected size 100, got %d", doc.SizeBytes)
	}
}

func TestBuildContextBlockSkipsInactiveDocuments(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, 1000, 10000, newClock())

	if _, err := svc.Create(context.Background(), CreateParams{
		Name: "active", Content: "visible", Active: true,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateParams{
		Name: "inactive", Content: "hidden", Active: false,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	block, err := svc.BuildContextBlock(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(block, "visible") {
		t.Fatalf("expected active content, got %q", block)
	}
	if strings.Contains(block, "hidden") {
		t.Fatalf("inactive content leaked into block: %q", block)
	}
}

func TestBuildContextBlockRespectsBudgetNewestFirst(t *testing.T) {
	repo := newMemoryRepository()
	// Budget fits roughly one section of 60 bytes of content.
	svc := NewWithRepository(repo, 1000, 80, newClock())

	if _, err := svc.Create(context.Background(), CreateParams{
		Name: "old", Content: strings.Repeat("a", 60), Active: true,
	}); err != nil {
		t.Fatalf("create old: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateParams{
		Name: "new", Content: strings.Repeat("b", 60), Active: true,
	}); err != nil {
		t.Fatalf("create new: %v", err)
	}

	block, err := svc.BuildContextBlock(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(block, "bbb") {
		t.Fatalf("expected newest document in block, got %q", block)
	}
	if strings.Contains(block, "aaa") {
		t.Fatalf("expected oldest document dropped for budget, got %q", block)
	}
}

func TestUpdateTogglesActive(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, 1000, 10000, newClock())

	doc, err := svc.Create(context.Background(), CreateParams{
		Name: "faq", Content: "preguntas frecuentes", Active: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inactive := false
	updated, err := svc.Update(context.Background(), doc.DocumentID, UpdateParams{Active: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active {
		t.Fatal("expected document deactivated")
	}

	block, err := svc.BuildContextBlock(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if block != "" {
		t.Fatalf("expected empty block, got %q", block)
	}
}

func TestDeleteMissingDocument(t *testing.T) {
	svc := NewWithRepository(newMemoryRepository(), 1000, 10000, newClock())

	err := svc.Delete(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if svcErr, ok := err.(*Error); !ok || svcErr.Code != ErrorCodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
