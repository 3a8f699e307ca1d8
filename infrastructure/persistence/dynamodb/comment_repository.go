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
	"go.uber.org/zap"

	"opino-backend/application/ports"
	"opino-backend/domain/model"
)

// CommentRepository implements ports.CommentStore on DynamoDB.
//
// Comments live in the site's partition so a whole thread is one Query; the
// owner index serves the dashboard listing and the comment index resolves a
// comment by ID for deletes.
type CommentRepository struct {
	client       *dynamodb.Client
	tableName    string
	ownerIndex   string
	commentIndex string
	logger       *zap.Logger
}

// NewCommentRepository creates a comment repository.
func NewCommentRepository(client *dynamodb.Client, tableName, ownerIndex, commentIndex string, logger *zap.Logger) *CommentRepository {
	return &CommentRepository{
		client:       client,
		tableName:    tableName,
		ownerIndex:   ownerIndex,
		commentIndex: commentIndex,
		logger:       logger,
	}
}

type commentItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK"`
	GSI2SK     string `dynamodbav:"GSI2SK"`
	EntityType string `dynamodbav:"EntityType"`
	CommentID  string `dynamodbav:"CommentID"`
	SiteID     string `dynamodbav:"SiteID"`
	PathID     string `dynamodbav:"PathID"`
	Message    string `dynamodbav:"Message"`
	Author     string `dynamodbav:"Author"`
	ParentID   string `dynamodbav:"ParentID,omitempty"`
	OwnerID    string `dynamodbav:"OwnerID"`
	Timestamp  string `dynamodbav:"Timestamp"`
}

// Path IDs never contain '#' (the validator forbids it), so the sort key
// COMMENT#<path>#<id> stays unambiguous.
func commentSK(pathID, commentID string) string {
	return fmt.Sprintf("COMMENT#%s#%s", pathID, commentID)
}

func commentPK(commentID string) string { return "COMMENT#" + commentID }

func (r *CommentRepository) GetByID(ctx context.Context, commentID string) (*model.Comment, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(commentPK(commentID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build comment lookup: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.commentIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ports.ErrNotFound
	}

	var item commentItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("unmarshal comment: %w", err)
	}
	return item.toComment(), nil
}

func (r *CommentRepository) ListThread(ctx context.Context, siteID, pathID string) ([]model.Comment, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(sitePK(siteID))).
		And(expression.Key("SK").BeginsWith("COMMENT#" + pathID + "#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build thread query: %w", err)
	}

	return r.queryComments(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
}

func (r *CommentRepository) ListByOwner(ctx context.Context, ownerID, siteID string) ([]model.Comment, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(ownerPK(ownerID))).
		And(expression.Key("GSI1SK").BeginsWith("COMMENT#"))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if siteID != "" {
		builder = builder.WithFilter(expression.Name("SiteID").Equal(expression.Value(siteID)))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build owner comment query: %w", err)
	}

	return r.queryComments(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.ownerIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false), // newest first
	})
}

func (r *CommentRepository) CountBySite(ctx context.Context, siteID string) (int, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(sitePK(siteID))).
		And(expression.Key("SK").BeginsWith("COMMENT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return 0, fmt.Errorf("build site comment count: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("count site comments: %w", err)
	}
	return int(out.Count), nil
}

func (r *CommentRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(ownerPK(ownerID))).
		And(expression.Key("GSI1SK").BeginsWith("COMMENT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return 0, fmt.Errorf("build owner comment count: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.ownerIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("count owner comments: %w", err)
	}
	return int(out.Count), nil
}

func (r *CommentRepository) Insert(ctx context.Context, comment *model.Comment) error {
	ts := comment.Timestamp.UTC().Format(time.RFC3339Nano)
	item := commentItem{
		PK:         sitePK(comment.SiteID),
		SK:         commentSK(comment.PathID, comment.ID),
		GSI1PK:     ownerPK(comment.OwnerID),
		GSI1SK:     fmt.Sprintf("COMMENT#%s#%s", ts, comment.ID),
		GSI2PK:     commentPK(comment.ID),
		GSI2SK:     "METADATA",
		EntityType: "COMMENT",
		CommentID:  comment.ID,
		SiteID:     comment.SiteID,
		PathID:     comment.PathID,
		Message:    comment.Message,
		Author:     comment.Author,
		ParentID:   comment.ParentID,
		OwnerID:    comment.OwnerID,
		Timestamp:  ts,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, commentID string) error {
	comment, err := r.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sitePK(comment.SiteID)},
			"SK": &types.AttributeValueMemberS{Value: commentSK(comment.PathID, comment.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) DeleteBySite(ctx context.Context, siteID string) (int, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(sitePK(siteID))).
		And(expression.Key("SK").BeginsWith("COMMENT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return 0, fmt.Errorf("build site comment sweep: %w", err)
	}

	deleted := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ProjectionExpression:      aws.String("PK, SK"),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return deleted, fmt.Errorf("sweep site comments: %w", err)
		}

		if err := r.batchDelete(ctx, out.Items); err != nil {
			return deleted, err
		}
		deleted += len(out.Items)

		if out.LastEvaluatedKey == nil {
			return deleted, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// batchDelete removes items by PK/SK in chunks of 25, the BatchWriteItem
// ceiling.
func (r *CommentRepository) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue) error {
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
					"PK": key["PK"],
					"SK": key["SK"],
				}},
			})
		}

		_, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: writes},
		})
		if err != nil {
			return fmt.Errorf("batch delete comments: %w", err)
		}
	}
	return nil
}

func (r *CommentRepository) queryComments(ctx context.Context, input *dynamodb.QueryInput) ([]model.Comment, error) {
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}

	comments := make([]model.Comment, 0, len(out.Items))
	for _, raw := range out.Items {
		var item commentItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("skipping unreadable comment item", zap.Error(err))
			continue
		}
		comments = append(comments, *item.toComment())
	}
	return comments, nil
}

func (i *commentItem) toComment() *model.Comment {
	ts, _ := time.Parse(time.RFC3339Nano, i.Timestamp)
	return &model.Comment{
		ID:        i.CommentID,
		SiteID:    i.SiteID,
		PathID:    i.PathID,
		Message:   i.Message,
		Author:    i.Author,
		ParentID:  i.ParentID,
		OwnerID:   i.OwnerID,
		Timestamp: ts,
	}
}
