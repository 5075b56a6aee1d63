package webhook

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"support-bridge-backend/internal/database"
	"support-bridge-backend/internal/model"
)

// LogRepository is the audit trail of raw webhook traffic and pipeline
// failures. Append-only.
type LogRepository interface {
	CreateLog(ctx context.Context, log model.SystemLogItem) error
	ListLogs(ctx context.Context, logType model.SystemLogType, limit int) ([]model.SystemLogItem, error)
}

type DynamoLogRepository struct {
	db *database.Database
}

func NewDynamoLogRepository(db *database.Database) LogRepository {
	return &DynamoLogRepository{db: db}
}

func (r *DynamoLogRepository) CreateLog(ctx context.Context, log model.SystemLogItem) error {
	return r.db.Client.PutItem(ctx, model.SystemLogsTable, log)
}

func (r *DynamoLogRepository) ListLogs(ctx context.Context, logType model.SystemLogType, limit int) ([]model.SystemLogItem, error) {
	var items []map[string]types.AttributeValue
	var err error

	if logType != "" {
		items, err = r.db.Client.ScanAllWithFilter(
			ctx,
			model.SystemLogsTable,
			"#type = :type",
			map[string]types.AttributeValue{
				":type": &types.AttributeValueMemberS{Value: string(logType)},
			},
			map[string]string{
				"#type": "type",
			},
		)
	} else {
		items, err = r.db.Client.ScanAll(ctx, model.SystemLogsTable)
	}
	if err != nil {
		return nil, err
	}

	logs := make([]model.SystemLogItem, 0, len(items))
	for _, item := range items {
		var log model.SystemLogItem
		if err := attributevalue.UnmarshalMap(item, &log); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt > logs[j].CreatedAt
	})

	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	return logs, nil
}
