package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// ErrServiceNotFound indicates the requested service id does not exist.
var ErrServiceNotFound = errors.New("catalog: service not found")

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store reads the anusthan catalog from DynamoDB. The table is small
// reference data, so listing is a plain scan.
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewStore builds a catalog store.
func NewStore(client dynamoAPI, tableName string, logger *logging.Logger) *Store {
	if client == nil {
		panic("catalog: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("catalog: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

// GetByID fetches a single service.
func (s *Store) GetByID(ctx context.Context, id string) (*Service, error) {
	if id == "" {
		return nil, errors.New("catalog: id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to fetch service %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrServiceNotFound
	}

	var svc Service
	if err := attributevalue.UnmarshalMap(out.Item, &svc); err != nil {
		return nil, fmt.Errorf("catalog: failed to decode service %s: %w", id, err)
	}
	return &svc, nil
}

// List returns every catalog entry ordered by category then name.
func (s *Store) List(ctx context.Context) ([]Service, error) {
	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to list services: %w", err)
	}

	services := make([]Service, 0, len(out.Items))
	for _, raw := range out.Items {
		var svc Service
		if err := attributevalue.UnmarshalMap(raw, &svc); err != nil {
			return nil, fmt.Errorf("catalog: failed to decode service: %w", err)
		}
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].Category != services[j].Category {
			return services[i].Category < services[j].Category
		}
		return services[i].AnusthanName < services[j].AnusthanName
	})
	return services, nil
}

// Put upserts a catalog entry. Used by cmd/seed, not exposed over HTTP.
func (s *Store) Put(ctx context.Context, svc *Service) error {
	if svc == nil {
		return errors.New("catalog: service cannot be nil")
	}
	if svc.ID == "" || svc.AnusthanName == "" {
		return errors.New("catalog: id and anusthanName required")
	}
	av, err := attributevalue.MarshalMap(svc)
	if err != nil {
		return fmt.Errorf("catalog: failed to marshal service %s: %w", svc.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("catalog: failed to persist service %s: %w", svc.ID, err)
	}
	return nil
}

// CleaningFeeCents returns the flat cleaning fee from the catalog.
func (s *Store) CleaningFeeCents(ctx context.Context) (int64, error) {
	svc, err := s.GetByID(ctx, CleaningFeeID)
	if err != nil {
		return 0, fmt.Errorf("catalog: cleaning fee lookup: %w", err)
	}
	return svc.AmountCents, nil
}
