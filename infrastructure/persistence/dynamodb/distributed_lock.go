package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartsync/application/ports"
	"cartsync/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LockAPI is the subset of the DynamoDB client the lock uses
type LockAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DistributedLock provides drain leases using DynamoDB conditional writes.
// It implements ports.DrainLock on the same table as the snapshots.
type DistributedLock struct {
	client    LockAPI
	tableName string
	owner     string
	logger    *zap.Logger
	now       func() time.Time
}

// lockRecord represents a lock record in DynamoDB
type lockRecord struct {
	PK         string `dynamodbav:"PK"`         // SCOPE#<scope>
	SK         string `dynamodbav:"SK"`         // LOCK#drain
	EntityType string `dynamodbav:"EntityType"` // LOCK
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  int64  `dynamodbav:"ExpiresAt"` // also the table TTL attribute
}

// NewDistributedLock creates a lock client; owner identifies this process in lock records
func NewDistributedLock(client LockAPI, tableName, owner string, logger *zap.Logger) *DistributedLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	if owner == "" {
		owner = uuid.NewString()
	}
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		owner:     owner,
		logger:    logger,
		now:       time.Now,
	}
}

func lockKey(scope string) snapshotKey {
	return snapshotKey{PK: "SCOPE#" + scope, SK: "LOCK#drain"}
}

// Acquire attempts to take the drain lease for scope
func (dl *DistributedLock) Acquire(ctx context.Context, scope string, ttl time.Duration) (func(context.Context) error, error) {
	now := dl.now()
	key := lockKey(scope)
	record := lockRecord{
		PK:         key.PK,
		SK:         key.SK,
		EntityType: "LOCK",
		LockID:     uuid.NewString(),
		Owner:      dl.owner,
		AcquiredAt: utils.Timestamp(now),
		ExpiresAt:  now.Add(ttl).Unix(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// free, or held by a lease that has run out
	cond := expression.AttributeNotExists(expression.Name("PK")).
		Or(expression.Name("ExpiresAt").LessThan(expression.Value(now.Unix())))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock condition: %w", err)
	}

	_, err = dl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(dl.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			dl.logger.Debug("Failed to acquire lock - already held", zap.String("scope", scope))
			return nil, ports.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	dl.logger.Debug("Lock acquired",
		zap.String("scope", scope),
		zap.String("lockID", record.LockID),
		zap.Duration("ttl", ttl),
	)

	return func(ctx context.Context) error {
		return dl.release(ctx, scope, record.LockID)
	}, nil
}

// release deletes the lock record if it is still ours
func (dl *DistributedLock) release(ctx context.Context, scope, lockID string) error {
	key, err := attributevalue.MarshalMap(lockKey(scope))
	if err != nil {
		return fmt.Errorf("failed to marshal lock key: %w", err)
	}

	cond := expression.Name("LockID").Equal(expression.Value(lockID)).
		And(expression.Name("Owner").Equal(expression.Value(dl.owner)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build release condition: %w", err)
	}

	_, err = dl.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(dl.tableName),
		Key:                       key,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			// expired and taken over; nothing of ours left to delete
			dl.logger.Warn("Lock already released or owned by someone else",
				zap.String("scope", scope),
				zap.String("lockID", lockID),
			)
			return nil
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
