// Package dynamodb archives snapshots in a DynamoDB table keyed by stream
// and revision number.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// Client is the subset of the DynamoDB API the archive uses
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// snapshotItem is the stored form of one revision.
// PK = STREAM#<stream id>, SK = REV#<zero padded number>
type snapshotItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	versioning.Revision
	Payload []byte `dynamodbav:"Payload"`
}

// SnapshotArchive implements ports.SnapshotArchive on DynamoDB
type SnapshotArchive struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewSnapshotArchive creates an archive writing to tableName
func NewSnapshotArchive(client Client, tableName string, logger *zap.Logger) *SnapshotArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotArchive{client: client, tableName: tableName, logger: logger}
}

func partitionKey(streamID string) string { return "STREAM#" + streamID }

func sortKey(number int) string { return fmt.Sprintf("REV#%010d", number) }

func itemKey(streamID string, number int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partitionKey(streamID)},
		"SK": &types.AttributeValueMemberS{Value: sortKey(number)},
	}
}

// Save stores payload. Revisions are immutable, so saving a number twice is
// a conflict.
func (a *SnapshotArchive) Save(ctx context.Context, rev versioning.Revision, payload []byte) error {
	if rev.StreamID == "" || rev.Number < 1 {
		return fmt.Errorf("invalid revision %q/%d", rev.StreamID, rev.Number)
	}
	item, err := attributevalue.MarshalMap(snapshotItem{
		PK:       partitionKey(rev.StreamID),
		SK:       sortKey(rev.Number),
		Revision: rev,
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(a.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return classify(err, "save snapshot")
	}

	a.logger.Debug("Snapshot archived",
		zap.String("stream_id", rev.StreamID),
		zap.Int("number", rev.Number),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

// Load lists the revisions of a stream ordered by number. Payloads are not
// fetched.
func (a *SnapshotArchive) Load(ctx context.Context, streamID string) ([]versioning.Revision, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(partitionKey(streamID))).
		And(expression.Key("SK").BeginsWith("REV#"))
	projection := expression.NamesList(
		expression.Name("StreamID"), expression.Name("Number"), expression.Name("Kind"),
		expression.Name("Checksum"), expression.Name("NodeCount"), expression.Name("FaultCount"),
		expression.Name("CreatedAt"), expression.Name("Description"),
	)
	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithProjection(projection).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(a.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	}

	out := []versioning.Revision{}
	for {
		result, err := a.client.Query(ctx, input)
		if err != nil {
			return nil, classify(err, "load snapshots")
		}
		for _, item := range result.Items {
			var rev versioning.Revision
			if err := attributevalue.UnmarshalMap(item, &rev); err != nil {
				a.logger.Warn("Failed to parse snapshot item", zap.String("stream_id", streamID), zap.Error(err))
				continue
			}
			out = append(out, rev)
		}
		if len(result.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// Payload returns the stored snapshot of one revision
func (a *SnapshotArchive) Payload(ctx context.Context, streamID string, number int) ([]byte, error) {
	result, err := a.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(a.tableName),
		Key:                  itemKey(streamID, number),
		ProjectionExpression: aws.String("Payload"),
	})
	if err != nil {
		return nil, classify(err, "read snapshot")
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("revision %s/%d", streamID, number))
	}

	var item struct {
		Payload []byte `dynamodbav:"Payload"`
	}
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return item.Payload, nil
}

// classify maps DynamoDB API errors to application errors
func classify(err error, operation string) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return pkgerrors.NewStorageError(operation, err)
	}
	switch ae.ErrorCode() {
	case "ConditionalCheckFailedException":
		return pkgerrors.NewConflictError("revision already archived").WithCause(err)
	case "ResourceNotFoundException":
		return pkgerrors.NewUnavailableError("snapshot table").WithCause(err)
	case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
		return pkgerrors.NewUnavailableError("dynamodb").WithCause(err).WithDetail("retryable", true)
	default:
		return pkgerrors.NewStorageError(operation, err)
	}
}
