package members

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// emailIndex is the GSI keyed by the email attribute.
const emailIndex = "email-index"

// ErrMemberNotFound indicates no member matches the lookup.
var ErrMemberNotFound = errors.New("members: member not found")

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store persists member records in DynamoDB.
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewStore builds a member store.
func NewStore(client dynamoAPI, tableName string, logger *logging.Logger) *Store {
	if client == nil {
		panic("members: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("members: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

// GetByID fetches a member by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Member, error) {
	if id == "" {
		return nil, errors.New("members: id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("members: failed to fetch member %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrMemberNotFound
	}

	var m Member
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, fmt.Errorf("members: failed to decode member %s: %w", id, err)
	}
	return &m, nil
}

// GetByEmail resolves a member through the email GSI. Emails are stored
// lower-cased.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("members: email required")
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(emailIndex),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("members: failed to query email %s: %w", email, err)
	}
	if len(out.Items) == 0 {
		return nil, ErrMemberNotFound
	}

	var m Member
	if err := attributevalue.UnmarshalMap(out.Items[0], &m); err != nil {
		return nil, fmt.Errorf("members: failed to decode member for %s: %w", email, err)
	}
	return &m, nil
}

// Put upserts a member record.
func (s *Store) Put(ctx context.Context, m *Member) error {
	if m == nil {
		return errors.New("members: member cannot be nil")
	}
	if m.ID == "" || m.Email == "" {
		return errors.New("members: id and email required")
	}
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))

	av, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("members: failed to marshal member %s: %w", m.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("members: failed to persist member %s: %w", m.ID, err)
	}
	return nil
}
