package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"onboarding-proxy/internal/domain"
)

const (
	pkPrefixKind = "KIND#"
	skPrefixTS   = "TS#"

	defaultTTL = 30 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client writes interaction records to a DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a new repository Client. A non-positive ttl selects 30 days.
func New(api dynamodbAPI, tableName string, ttl time.Duration) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Client{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

// kindPK groups records by endpoint so they can be queried by time per kind.
func kindPK(kind domain.InteractionKind) string {
	return pkPrefixKind + string(kind)
}

func interactionSK(ts time.Time, id string) string {
	return skPrefixTS + ts.UTC().Format(time.RFC3339Nano) + "#" + id
}

// Record persists one interaction. Records are never overwritten.
func (c *Client) Record(ctx context.Context, in domain.Interaction) error {
	if in.ID == "" || in.Kind == "" {
		return errors.New("repository: Record: ID and Kind are required")
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.now()
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                interactionItem(in, createdAt, createdAt.Add(c.ttl).Unix()),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Record: %w", err)
	}
	return nil
}

func interactionItem(in domain.Interaction, createdAt time.Time, ttl int64) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: kindPK(in.Kind)},
		"SK":        &types.AttributeValueMemberS{Value: interactionSK(createdAt, in.ID)},
		"id":        &types.AttributeValueMemberS{Value: in.ID},
		"kind":      &types.AttributeValueMemberS{Value: string(in.Kind)},
		"status":    &types.AttributeValueMemberS{Value: in.Status},
		"createdAt": &types.AttributeValueMemberS{Value: createdAt.UTC().Format(time.RFC3339)},
		"ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttl)},
	}
	// Optional attributes are omitted rather than stored empty.
	putIfSet(item, "name", in.Name)
	putIfSet(item, "role", in.Role)
	putIfSet(item, "question", in.Question)
	putIfSet(item, "answer", in.Answer)
	return item
}

func putIfSet(item map[string]types.AttributeValue, key, value string) {
	if value == "" {
		return
	}
	item[key] = &types.AttributeValueMemberS{Value: value}
}
