package contextdoc

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"support-bridge-backend/internal/database"
	"support-bridge-backend/internal/model"
)

var ErrNotFound = errors.New("context document repository: not found")

type Repository interface {
	Create(ctx context.Context, doc model.ContextDocumentItem) error
	Get(ctx context.Context, documentID string) (model.ContextDocumentItem, error)
	Update(ctx context.Context, doc model.ContextDocumentItem) error
	Delete(ctx context.Context, documentID string) error
	List(ctx context.Context) ([]model.ContextDocumentItem, error)
	ListActive(ctx context.Context) ([]model.ContextDocumentItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) Create(ctx context.Context, doc model.ContextDocumentItem) error {
	return r.db.Client.PutItem(ctx, model.ContextDocumentsTable, doc)
}

func (r *DynamoRepository) Get(ctx context.Context, documentID string) (model.ContextDocumentItem, error) {
	var doc model.ContextDocumentItem
	err := r.db.Client.GetItem(
		ctx,
		model.ContextDocumentsTable,
		map[string]types.AttributeValue{
			"documentId": &types.AttributeValueMemberS{Value: documentID},
		},
		&doc,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ContextDocumentItem{}, ErrNotFound
		}
		return model.ContextDocumentItem{}, err
	}
	return doc, nil
}

func (r *DynamoRepository) Update(ctx context.Context, doc model.ContextDocumentItem) error {
	return r.db.Client.PutItem(ctx, model.ContextDocumentsTable, doc)
}

func (r *DynamoRepository) Delete(ctx context.Context, documentID string) error {
	return r.db.Client.DeleteItem(
		ctx,
		model.ContextDocumentsTable,
		map[string]types.AttributeValue{
			"documentId": &types.AttributeValueMemberS{Value: documentID},
		},
	)
}

func (r *DynamoRepository) List(ctx context.Context) ([]model.ContextDocumentItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.ContextDocumentsTable)
	if err != nil {
		return nil, err
	}
	return unmarshalDocs(items)
}

func (r *DynamoRepository) ListActive(ctx context.Context) ([]model.ContextDocumentItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.ContextDocumentsTable,
		"active = :true",
		map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return unmarshalDocs(items)
}

func unmarshalDocs(items []map[string]types.AttributeValue) ([]model.ContextDocumentItem, error) {
	docs := make([]model.ContextDocumentItem, 0, len(items))
	for _, item := range items {
		var doc model.ContextDocumentItem
		if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt > docs[j].CreatedAt
	})

	return docs, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
