package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const (
	partitionKey = "pk" // collection path
	sortKey      = "sk" // document id
)

// Dynamo is a Store over a single DynamoDB table: partition key is the
// collection path, sort key is the document id, every other attribute is a
// document field. Queries that order by an arbitrary field sort client-side
// after the partition read.
type Dynamo struct {
	client *dynamodb.Client
	table  string
	now    func() time.Time
}

// DynamoConfig holds connection settings for the backing table.
type DynamoConfig struct {
	Table    string
	Region   string
	Endpoint string // non-empty for LocalStack
}

// NewDynamo creates a Store backed by the configured DynamoDB table, using
// the default AWS credential chain.
func NewDynamo(ctx context.Context, cfg DynamoConfig) (*Dynamo, error) {
	if cfg.Table == "" {
		return nil, Errorf(InvalidArgument, "table name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, NewError(Unavailable, "failed to load AWS config", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Dynamo{client: client, table: cfg.Table, now: time.Now}, nil
}

// NewDynamoFromClient wraps an existing client. Used by the Lambda entry
// point, which builds its client in init.
func NewDynamoFromClient(client *dynamodb.Client, table string) *Dynamo {
	return &Dynamo{client: client, table: table, now: time.Now}
}

// Get returns one document.
func (d *Dynamo) Get(ctx context.Context, collection, id string) (*Document, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       itemKey(collection, id),
	})
	if err != nil {
		return nil, mapDynamoError("get", collection, id, err)
	}
	if out.Item == nil {
		return nil, Errorf(NotFound, "document %s/%s does not exist", collection, id)
	}

	data, err := unmarshalItem(out.Item)
	if err != nil {
		return nil, NewError(MalformedData, fmt.Sprintf("document %s/%s is not readable", collection, id), err)
	}
	return &Document{ID: id, Data: data}, nil
}

// GetAll returns every document in the collection matching the query. The
// whole partition is read (paginated) and filtered/sorted in the client.
func (d *Dynamo) GetAll(ctx context.Context, collection string, q Query) ([]Document, error) {
	var docs []Document
	var startKey map[string]types.AttributeValue

	for {
		out, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.table),
			KeyConditionExpression: aws.String("#pk = :pk"),
			ExpressionAttributeNames: map[string]string{
				"#pk": partitionKey,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: collection},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, mapDynamoError("query", collection, "", err)
		}

		for _, item := range out.Items {
			id := itemID(item)
			data, err := unmarshalItem(item)
			if err != nil {
				return nil, NewError(MalformedData, fmt.Sprintf("document %s/%s is not readable", collection, id), err)
			}
			doc := Document{ID: id, Data: data}
			if matchesFilters(doc, q.Filters) {
				docs = append(docs, doc)
			}
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sortDocuments(docs, q)
	return docs, nil
}

// Set writes a document. Merge reads the current document and overlays the
// given fields; replace puts the item wholesale. Single-document replace is
// atomic; merge is read-modify-write and relies on the single-writer
// deployment of mutating paths.
func (d *Dynamo) Set(ctx context.Context, collection, id string, data map[string]any, opts SetOptions) error {
	resolved := resolveServerTime(data, d.now())

	if opts.Merge {
		existing, err := d.Get(ctx, collection, id)
		if err != nil && !IsNotFound(err) {
			return err
		}
		if existing != nil {
			merged := make(map[string]any, len(existing.Data)+len(resolved))
			for k, v := range existing.Data {
				merged[k] = v
			}
			for k, v := range resolved {
				merged[k] = v
			}
			resolved = merged
		}
	}

	item, err := marshalItem(collection, id, resolved)
	if err != nil {
		return NewError(MalformedData, fmt.Sprintf("document %s/%s is not serializable", collection, id), err)
	}

	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	}); err != nil {
		return mapDynamoError("set", collection, id, err)
	}
	return nil
}

// Delete removes a document.
func (d *Dynamo) Delete(ctx context.Context, collection, id string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       itemKey(collection, id),
	}); err != nil {
		return mapDynamoError("delete", collection, id, err)
	}
	return nil
}

// Batch starts an atomic batch committed through TransactWriteItems.
func (d *Dynamo) Batch() Batch {
	return &dynamoBatch{store: d}
}

type dynamoBatch struct {
	store *Dynamo
	ops   []batchOp
}

func (b *dynamoBatch) Set(collection, id string, data map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, data: data})
}

func (b *dynamoBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{del: true, collection: collection, id: id})
}

func (b *dynamoBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	// TransactWriteItems caps a transaction at MaxBatchOps items.
	if len(b.ops) > MaxBatchOps {
		return Errorf(InvalidArgument, "batch of %d operations exceeds the transaction limit", len(b.ops))
	}

	now := b.store.now()
	items := make([]types.TransactWriteItem, 0, len(b.ops))
	for _, op := range b.ops {
		if op.del {
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(b.store.table),
					Key:       itemKey(op.collection, op.id),
				},
			})
			continue
		}

		item, err := marshalItem(op.collection, op.id, resolveServerTime(op.data, now))
		if err != nil {
			return NewError(MalformedData, fmt.Sprintf("document %s/%s is not serializable", op.collection, op.id), err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(b.store.table),
				Item:      item,
			},
		})
	}

	if _, err := b.store.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	}); err != nil {
		return mapDynamoError("batch", "", "", err)
	}
	return nil
}

func itemKey(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		partitionKey: &types.AttributeValueMemberS{Value: collection},
		sortKey:      &types.AttributeValueMemberS{Value: id},
	}
}

func itemID(item map[string]types.AttributeValue) string {
	if sk, ok := item[sortKey].(*types.AttributeValueMemberS); ok {
		return sk.Value
	}
	return ""
}

func marshalItem(collection, id string, data map[string]any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return nil, err
	}
	item[partitionKey] = &types.AttributeValueMemberS{Value: collection}
	item[sortKey] = &types.AttributeValueMemberS{Value: id}
	return item, nil
}

func unmarshalItem(item map[string]types.AttributeValue) (map[string]any, error) {
	var data map[string]any
	if err := attributevalue.UnmarshalMap(item, &data); err != nil {
		return nil, err
	}
	delete(data, partitionKey)
	delete(data, sortKey)
	return data, nil
}

// mapDynamoError converts an AWS SDK failure into a categorized error with
// the cause preserved.
func mapDynamoError(op, collection, id string, err error) error {
	target := collection
	if id != "" {
		target = collection + "/" + id
	}
	msg := fmt.Sprintf("dynamodb %s %s failed", op, target)

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException":
			return NewError(PermissionDenied, msg, err)
		case "ResourceNotFoundException",
			"ProvisionedThroughputExceededException",
			"ThrottlingException",
			"RequestLimitExceeded",
			"InternalServerError",
			"ServiceUnavailable":
			return NewError(Unavailable, msg, err)
		case "TransactionCanceledException", "ConditionalCheckFailedException":
			return NewError(Unknown, msg, err)
		}
		return NewError(Unknown, msg, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewError(Unavailable, msg, err)
	}
	// Anything without an API error code is a transport-level failure.
	return NewError(Unavailable, msg, err)
}
