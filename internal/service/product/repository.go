package product

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

var ErrNotFound = errors.New("product repository: not found")

type Repository interface {
	Create(ctx context.Context, product model.ProductItem) error
	CreateBatch(ctx context.Context, products []model.ProductItem) error
	Get(ctx context.Context, productID string) (model.ProductItem, error)
	GetBySKU(ctx context.Context, sku string) (model.ProductItem, error)
	Update(ctx context.Context, product model.ProductItem) error
	Delete(ctx context.Context, productID string) error
	List(ctx context.Context) ([]model.ProductItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) Create(ctx context.Context, product model.ProductItem) error {
	return r.db.Client.PutItem(ctx, model.ProductsTable, product)
}

func (r *DynamoRepository) CreateBatch(ctx context.Context, products []model.ProductItem) error {
	items := make([]interface{}, 0, len(products))
	for _, product := range products {
		items = append(items, product)
	}
	return r.db.Client.BatchWriteItem(ctx, model.ProductsTable, items, nil)
}

func (r *DynamoRepository) Get(ctx context.Context, productID string) (model.ProductItem, error) {
	var product model.ProductItem
	err := r.db.Client.GetItem(
		ctx,
		model.ProductsTable,
		map[string]types.AttributeValue{
			"productId": &types.AttributeValueMemberS{Value: productID},
		},
		&product,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ProductItem{}, ErrNotFound
		}
		return model.ProductItem{}, err
	}
	return product, nil
}

func (r *DynamoRepository) GetBySKU(ctx context.Context, sku string) (model.ProductItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.ProductsTable,
		"sku = :sku",
		map[string]types.AttributeValue{
			":sku": &types.AttributeValueMemberS{Value: sku},
		},
		nil,
	)
	if err != nil {
		return model.ProductItem{}, err
	}
	if len(items) == 0 {
		return model.ProductItem{}, ErrNotFound
	}

	var product model.ProductItem
	if err := attributevalue.UnmarshalMap(items[0], &product); err != nil {
		return model.ProductItem{}, err
	}
	return product, nil
}

func (r *DynamoRepository) Update(ctx context.Context, product model.ProductItem) error {
	return r.db.Client.PutItem(ctx, model.ProductsTable, product)
}

func (r *DynamoRepository) Delete(ctx context.Context, productID string) error {
	return r.db.Client.DeleteItem(
		ctx,
		model.ProductsTable,
		map[string]types.AttributeValue{
			"productId": &types.AttributeValueMemberS{Value: productID},
		},
	)
}

func (r *DynamoRepository) List(ctx context.Context) ([]model.ProductItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.ProductsTable)
	if err != nil {
		return nil, err
	}

	products := make([]model.ProductItem, 0, len(items))
	for _, item := range items {
		var product model.ProductItem
		if err := attributevalue.UnmarshalMap(item, &product); err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	sort.Slice(products, func(i, j int) bool {
		return products[i].Name < products[j].Name
	})

	return products, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
