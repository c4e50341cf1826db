package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// typeIndex is the GSI projecting items by their type attribute.
const typeIndex = "type-index"

// ErrItemNotFound indicates the requested content id does not exist.
var ErrItemNotFound = errors.New("content: item not found")

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store persists content items in the single DynamoDB content table.
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewStore builds a store backed by the provided DynamoDB client.
func NewStore(client dynamoAPI, tableName string, logger *logging.Logger) *Store {
	if client == nil {
		panic("content: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("content: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// GetByID fetches a single content item.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	if id == "" {
		return nil, errors.New("content: id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("content: failed to fetch item %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrItemNotFound
	}

	var item Item
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("content: failed to decode item %s: %w", id, err)
	}
	return &item, nil
}

// ListByType returns every item of the given category, newest first.
func (s *Store) ListByType(ctx context.Context, contentType string) ([]Item, error) {
	if contentType == "" {
		return nil, errors.New("content: type required")
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(typeIndex),
		KeyConditionExpression: aws.String("#t = :t"),
		ExpressionAttributeNames: map[string]string{
			"#t": "type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: contentType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("content: failed to query type %s: %w", contentType, err)
	}

	items := make([]Item, 0, len(out.Items))
	for _, raw := range out.Items {
		var item Item
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("content: failed to decode %s item: %w", contentType, err)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})
	return items, nil
}

// Put upserts a content item, stamping timestamps.
func (s *Store) Put(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("content: item cannot be nil")
	}
	if item.ID == "" || item.Type == "" {
		return errors.New("content: id and type required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if item.CreatedAt == "" {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("content: failed to marshal item %s: %w", item.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("content: failed to persist item %s: %w", item.ID, err)
	}
	return nil
}

// Delete removes a content item. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("content: id required")
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("content: failed to delete item %s: %w", id, err)
	}
	return nil
}
