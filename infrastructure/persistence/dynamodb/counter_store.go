package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CounterStore implements ratelimit.CounterStore on the shared table with a
// single atomic ADD per increment. The TTL attribute lets DynamoDB expire
// stale buckets on its own.
type CounterStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewCounterStore creates a DynamoDB-backed counter store.
func NewCounterStore(client *dynamodb.Client, tableName string) *CounterStore {
	return &CounterStore{client: client, tableName: tableName}
}

type counterItem struct {
	Count     int64 `dynamodbav:"Count"`
	ExpiresAt int64 `dynamodbav:"ExpiresAt"`
}

func counterKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "RATELIMIT#" + key},
		"SK": &types.AttributeValueMemberS{Value: "COUNTER"},
	}
}

// Increment atomically bumps a bucket counter and returns the new value,
// setting the expiry only when the bucket is created.
func (s *CounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	expiresAt := time.Now().Add(ttl).Unix()
	update := expression.Add(expression.Name("Count"), expression.Value(1)).
		Set(expression.Name("ExpiresAt"),
			expression.IfNotExists(expression.Name("ExpiresAt"), expression.Value(expiresAt))).
		Set(expression.Name("TTL"),
			expression.IfNotExists(expression.Name("TTL"), expression.Value(expiresAt)))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, fmt.Errorf("build counter update: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       counterKey(key),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}

	var item counterItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return 0, fmt.Errorf("unmarshal counter: %w", err)
	}
	return item.Count, nil
}

// Get returns a bucket counter, zero when absent or expired.
func (s *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            counterKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}
	if out.Item == nil {
		return 0, nil
	}

	var item counterItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return 0, fmt.Errorf("unmarshal counter: %w", err)
	}
	if item.ExpiresAt != 0 && time.Now().Unix() >= item.ExpiresAt {
		return 0, nil
	}
	return item.Count, nil
}
