package platform

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	appconfig "orderflow/config"
	"orderflow/logger"
	"orderflow/models"
)

// DynamoPointStore implements PointStore on DynamoDB. Orders are keyed by
// order_id, customers by customer_id; both writes are plain upserts.
type DynamoPointStore struct {
	client         *dynamodb.Client
	ordersTable    string
	customersTable string
	log            *logger.Log
}

// NewDynamoPointStore builds a point store over the configured tables.
func NewDynamoPointStore(cfg *appconfig.Config, awsConfig aws.Config) *DynamoPointStore {
	return &DynamoPointStore{
		client: dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
			if cfg.Stores.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Stores.DynamoDB.Endpoint)
			}
		}),
		ordersTable:    cfg.Stores.DynamoDB.OrdersTable,
		customersTable: cfg.Stores.DynamoDB.CustomersTable,
		log:            logger.GetLogger(),
	}
}

// UpsertOrder writes the full enriched record keyed by order_id. Money
// fields are re-encoded as exact decimal strings; DynamoDB numbers are
// decimal, and round-tripping float64s through the default encoder can
// shift the last digit.
func (d *DynamoPointStore) UpsertOrder(ctx context.Context, order *models.EnrichedOrder) error {
	item, err := marshalItem(order)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", order.OrderID, err)
	}
	for name, value := range map[string]float64{
		"price":               order.Price,
		"subtotal":            order.Subtotal,
		"discount_percentage": order.DiscountPercentage,
		"discount_amount":     order.DiscountAmount,
		"total_amount":        order.TotalAmount,
	} {
		item[name] = &ddbtypes.AttributeValueMemberN{Value: decimal.NewFromFloat(value).String()}
	}

	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.ordersTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("upsert order %s into %s: %w", order.OrderID, d.ordersTable, err)
	}
	return nil
}

// UpsertCustomer writes the customer profile keyed by customer_id. A
// missing customers table disables the write.
func (d *DynamoPointStore) UpsertCustomer(ctx context.Context, customer *models.CustomerProfile) error {
	if d.customersTable == "" {
		return nil
	}
	item, err := marshalItem(customer)
	if err != nil {
		return fmt.Errorf("marshal customer %s: %w", customer.CustomerID, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.customersTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("upsert customer %s into %s: %w", customer.CustomerID, d.customersTable, err)
	}
	return nil
}

// marshalItem encodes a record using its json tags so the attribute names
// match the wire schema everywhere else in the pipeline.
func marshalItem(v interface{}) (map[string]ddbtypes.AttributeValue, error) {
	return attributevalue.MarshalMapWithOptions(v, func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
}
