package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"opino-backend/infrastructure/cache"
)

const cachePrefix = "CACHE#"

// KVStore implements cache.KeyValueStore on the shared table. Entries carry
// both a TTL attribute for DynamoDB's background reaper and an ExpiresAt
// check on read, because the reaper can lag by hours.
type KVStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewKVStore creates a DynamoDB-backed key-value store.
func NewKVStore(client *dynamodb.Client, tableName string) *KVStore {
	return &KVStore{client: client, tableName: tableName}
}

type kvItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Value     []byte `dynamodbav:"Value"`
	ExpiresAt int64  `dynamodbav:"ExpiresAt"`
	TTL       int64  `dynamodbav:"TTL"`
}

func cachePK(key string) string { return cachePrefix + key }

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: cachePK(key)},
			"SK": &types.AttributeValueMemberS{Value: "VALUE"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	if out.Item == nil {
		return nil, cache.ErrNotFound
	}

	var item kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	if time.Now().Unix() >= item.ExpiresAt {
		return nil, cache.ErrNotFound
	}
	return item.Value, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).Unix()
	av, err := attributevalue.MarshalMap(kvItem{
		PK:        cachePK(key),
		SK:        "VALUE",
		Value:     value,
		ExpiresAt: expiresAt,
		TTL:       expiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	const batchSize = 25

	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		writes := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: cachePK(key)},
					"SK": &types.AttributeValueMemberS{Value: "VALUE"},
				}},
			})
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: writes},
		})
		if err != nil {
			return fmt.Errorf("delete cache entries: %w", err)
		}
	}
	return nil
}

// Keys scans the cache partition-key space and matches the glob client-side.
// The literal prefix before the first '*' narrows the scan filter.
func (s *KVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	literal := pattern
	if idx := strings.IndexByte(pattern, '*'); idx >= 0 {
		literal = pattern[:idx]
	}

	filter := expression.Name("PK").BeginsWith(cachePrefix + literal)
	expr, err := expression.NewBuilder().
		WithFilter(filter).
		WithProjection(expression.NamesList(expression.Name("PK"), expression.Name("ExpiresAt"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build cache key scan: %w", err)
	}

	var keys []string
	now := time.Now().Unix()
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.tableName),
			FilterExpression:          expr.Filter(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan cache keys: %w", err)
		}

		for _, raw := range out.Items {
			var item kvItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			if item.ExpiresAt != 0 && now >= item.ExpiresAt {
				continue
			}
			key := strings.TrimPrefix(item.PK, cachePrefix)
			if cache.MatchPattern(pattern, key) {
				keys = append(keys, key)
			}
		}

		if out.LastEvaluatedKey == nil {
			return keys, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
