// Package dynamodb persists sites, comments, cache entries, and rate-limit
// counters in one DynamoDB table. Key layout:
//
//	SITE#<id>            METADATA                site record
//	SITE#<id>            COMMENT#<path>#<id>     comment record
//	CACHE#<key>          VALUE                   cache entry (TTL attribute)
//	RATELIMIT#<key>      COUNTER                 rate-limit bucket
//
// GSI1 partitions site and comment records by owner for the dashboard
// queries; GSI2 resolves a comment by its ID.
package dynamodb

import (
	"context"
	"errors"
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

// SiteRepository implements ports.SiteStore on DynamoDB.
type SiteRepository struct {
	client     *dynamodb.Client
	tableName  string
	ownerIndex string
	logger     *zap.Logger
}

// NewSiteRepository creates a site repository.
func NewSiteRepository(client *dynamodb.Client, tableName, ownerIndex string, logger *zap.Logger) *SiteRepository {
	return &SiteRepository{
		client:     client,
		tableName:  tableName,
		ownerIndex: ownerIndex,
		logger:     logger,
	}
}

type siteItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	SiteID     string `dynamodbav:"SiteID"`
	Domain     string `dynamodbav:"Domain"`
	OwnerID    string `dynamodbav:"OwnerID"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func sitePK(siteID string) string   { return "SITE#" + siteID }
func ownerPK(ownerID string) string { return "OWNER#" + ownerID }

func (r *SiteRepository) GetByID(ctx context.Context, siteID string) (*model.Site, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sitePK(siteID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}
	if out.Item == nil {
		return nil, ports.ErrNotFound
	}

	var item siteItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal site: %w", err)
	}
	return item.toSite(), nil
}

func (r *SiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Site, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(ownerPK(ownerID))).
		And(expression.Key("GSI1SK").BeginsWith("SITE#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build site query: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.ownerIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false), // newest first
	})
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	sites := make([]model.Site, 0, len(out.Items))
	for _, raw := range out.Items {
		var item siteItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("skipping unreadable site item", zap.Error(err))
			continue
		}
		sites = append(sites, *item.toSite())
	}
	return sites, nil
}

func (r *SiteRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(ownerPK(ownerID))).
		And(expression.Key("GSI1SK").BeginsWith("SITE#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return 0, fmt.Errorf("build site count query: %w", err)
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
		return 0, fmt.Errorf("count sites: %w", err)
	}
	return int(out.Count), nil
}

func (r *SiteRepository) Create(ctx context.Context, site *model.Site) error {
	item := siteItem{
		PK:         sitePK(site.ID),
		SK:         "METADATA",
		GSI1PK:     ownerPK(site.OwnerID),
		GSI1SK:     fmt.Sprintf("SITE#%s#%s", site.CreatedAt.UTC().Format(time.RFC3339Nano), site.ID),
		EntityType: "SITE",
		SiteID:     site.ID,
		Domain:     site.Domain,
		OwnerID:    site.OwnerID,
		CreatedAt:  site.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal site: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

func (r *SiteRepository) UpdateDomain(ctx context.Context, siteID, domain string) error {
	update := expression.Set(expression.Name("Domain"), expression.Value(domain))
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build site update: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sitePK(siteID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ports.ErrNotFound
		}
		return fmt.Errorf("update site domain: %w", err)
	}
	return nil
}

func (r *SiteRepository) Delete(ctx context.Context, siteID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sitePK(siteID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	return nil
}

func (i *siteItem) toSite() *model.Site {
	createdAt, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	return &model.Site{
		ID:        i.SiteID,
		Domain:    i.Domain,
		OwnerID:   i.OwnerID,
		CreatedAt: createdAt,
	}
}
