package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mpsingh12/imageshop/internal/domain"
)

const (
	// DefaultDynamoTable is the table the image baskets have always lived in.
	DefaultDynamoTable = "unishop"

	dynamoKeyAttribute = "uuid"
)

// dynamoAPI defines the subset of DynamoDB operations needed by DynamoStore.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Compile-time check that the real client satisfies dynamoAPI
var _ dynamoAPI = (*dynamodb.Client)(nil)

// DynamoStore implements Store on a DynamoDB table partitioned by owner ID.
type DynamoStore struct {
	client dynamoAPI
	table  string
	logger *slog.Logger
}

// NewDynamoStore creates a DynamoStore with the given AWS config. A non-empty
// endpoint overrides the service endpoint (LocalStack, DynamoDB Local).
func NewDynamoStore(cfg aws.Config, table, endpoint string, logger *slog.Logger) *DynamoStore {
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return newDynamoStore(client, table, logger)
}

func newDynamoStore(client dynamoAPI, table string, logger *slog.Logger) *DynamoStore {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = DefaultDynamoTable
	}
	return &DynamoStore{
		client: client,
		table:  table,
		logger: logger,
	}
}

// Ping checks that the table exists and is reachable.
func (d *DynamoStore) Ping(ctx context.Context) error {
	out, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.table),
	})
	if err != nil {
		return unavailable("describe table "+d.table, err)
	}
	if out.Table != nil {
		d.logger.Info("dynamodb table ready", "table", d.table, "status", out.Table.TableStatus)
	}
	return nil
}

func (d *DynamoStore) Get(ctx context.Context, key string) (*domain.Basket, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            dynamoKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, unavailable("get basket", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var basket domain.Basket
	if err := attributevalue.UnmarshalMap(out.Item, &basket); err != nil {
		return nil, unavailable("decode basket", err)
	}
	return &basket, nil
}

func (d *DynamoStore) Put(ctx context.Context, basket *domain.Basket) error {
	item, err := attributevalue.MarshalMap(basket)
	if err != nil {
		return fmt.Errorf("failed to marshal basket %s: %w", basket.OwnerID, err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return unavailable("put basket", err)
	}
	return nil
}

func (d *DynamoStore) Delete(ctx context.Context, basket *domain.Basket) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       dynamoKey(basket.OwnerID),
	})
	if err != nil {
		return unavailable("delete basket", err)
	}
	return nil
}

func dynamoKey(ownerID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		dynamoKeyAttribute: &types.AttributeValueMemberS{Value: ownerID},
	}
}
