package dynamodb

import (
	"context"
	"fmt"
	"time"

	"cartsync/application/ports"
	"cartsync/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const entityTypeSnapshot = "SNAPSHOT"

// API is the subset of the DynamoDB client the snapshot store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// SnapshotStore implements ports.KeyValueStore on a single DynamoDB table.
// Each storage key is one item: PK=SCOPE#<scope>, SK=SNAPSHOT#<name>.
type SnapshotStore struct {
	client    API
	tableName string
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewSnapshotStore creates a new DynamoDB-backed store. A zero ttl disables item expiry.
func NewSnapshotStore(client API, tableName string, ttl time.Duration, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// snapshotKey is the primary key of a snapshot item
type snapshotKey struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// snapshotItem represents the DynamoDB item structure for a snapshot
type snapshotItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Scope      string `dynamodbav:"Scope"`
	Name       string `dynamodbav:"Name"`
	Payload    string `dynamodbav:"Payload"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	ExpiresAt  int64  `dynamodbav:"ExpiresAt,omitempty"`
}

// Get retrieves the snapshot payload for key
func (s *SnapshotStore) Get(ctx context.Context, key ports.StorageKey) ([]byte, error) {
	pk, err := s.marshalKey(key)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            pk,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if result.Item == nil {
		return nil, ports.ErrKeyNotFound
	}

	var item snapshotItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	// TTL deletion is eventual; an expired item may still be returned
	if item.ExpiresAt > 0 && s.now().Unix() >= item.ExpiresAt {
		s.logger.Debug("Ignoring expired snapshot",
			zap.String("scope", key.Scope),
			zap.String("name", key.Name),
		)
		return nil, ports.ErrKeyNotFound
	}

	return []byte(item.Payload), nil
}

// Put upserts the snapshot payload for key
func (s *SnapshotStore) Put(ctx context.Context, key ports.StorageKey, value []byte) error {
	pk, err := s.marshalKey(key)
	if err != nil {
		return err
	}

	now := s.now()
	update := expression.Set(expression.Name("Payload"), expression.Value(string(value))).
		Set(expression.Name("EntityType"), expression.Value(entityTypeSnapshot)).
		Set(expression.Name("Scope"), expression.Value(key.Scope)).
		Set(expression.Name("Name"), expression.Value(key.Name)).
		Set(expression.Name("UpdatedAt"), expression.Value(utils.Timestamp(now)))

	if s.ttl > 0 {
		update = update.Set(expression.Name("ExpiresAt"), expression.Value(now.Add(s.ttl).Unix()))
	} else {
		update = update.Remove(expression.Name("ExpiresAt"))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       pk,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Debug("Saved snapshot",
		zap.String("scope", key.Scope),
		zap.String("name", key.Name),
		zap.Int("bytes", len(value)),
	)
	return nil
}

// Delete removes the snapshot item for key
func (s *SnapshotStore) Delete(ctx context.Context, key ports.StorageKey) error {
	pk, err := s.marshalKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       pk,
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) marshalKey(key ports.StorageKey) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(snapshotKey{
		PK: fmt.Sprintf("SCOPE#%s", key.Scope),
		SK: fmt.Sprintf("SNAPSHOT#%s", key.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}
	return av, nil
}
