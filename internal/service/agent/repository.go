package agent

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

var ErrNotFound = errors.New("agent repository: not found")

type Repository interface {
	Create(ctx context.Context, agent model.AgentItem) error
	Get(ctx context.Context, agentID string) (model.AgentItem, error)
	GetByEmail(ctx context.Context, email string) (model.AgentItem, error)
	Update(ctx context.Context, agent model.AgentItem) error
	List(ctx context.Context, kind model.AgentKind) ([]model.AgentItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) Create(ctx context.Context, agent model.AgentItem) error {
	return r.db.Client.PutItem(ctx, model.AgentsTable, agent)
}

func (r *DynamoRepository) Get(ctx context.Context, agentID string) (model.AgentItem, error) {
	var agent model.AgentItem
	err := r.db.Client.GetItem(
		ctx,
		model.AgentsTable,
		map[string]types.AttributeValue{
			"agentId": &types.AttributeValueMemberS{Value: agentID},
		},
		&agent,
	)
	if err != nil {
		if isNotFound(err) {
			return model.AgentItem{}, ErrNotFound
		}
		return model.AgentItem{}, err
	}
	return agent, nil
}

func (r *DynamoRepository) GetByEmail(ctx context.Context, email string) (model.AgentItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.AgentsTable,
		"email = :email",
		map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		nil,
	)
	if err != nil {
		return model.AgentItem{}, err
	}
	if len(items) == 0 {
		return model.AgentItem{}, ErrNotFound
	}

	var agent model.AgentItem
	if err := attributevalue.UnmarshalMap(items[0], &agent); err != nil {
		return model.AgentItem{}, err
	}
	return agent, nil
}

func (r *DynamoRepository) Update(ctx context.Context, agent model.AgentItem) error {
	return r.db.Client.PutItem(ctx, model.AgentsTable, agent)
}

func (r *DynamoRepository) List(ctx context.Context, kind model.AgentKind) ([]model.AgentItem, error) {
	var items []map[string]types.AttributeValue
	var err error

	if kind != "" {
		items, err = r.db.Client.ScanAllWithFilter(
			ctx,
			model.AgentsTable,
			"kind = :kind",
			map[string]types.AttributeValue{
				":kind": &types.AttributeValueMemberS{Value: string(kind)},
			},
			nil,
		)
	} else {
		items, err = r.db.Client.ScanAll(ctx, model.AgentsTable)
	}
	if err != nil {
		return nil, err
	}

	agents := make([]model.AgentItem, 0, len(items))
	for _, item := range items {
		var agent model.AgentItem
		if err := attributevalue.UnmarshalMap(item, &agent); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].CreatedAt < agents[j].CreatedAt
	})

	return agents, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
