package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tmdt-buw/plasma-sub002/domain/versioning"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func revision(t *testing.T, number int) versioning.Revision {
	t.Helper()
	rev, err := versioning.NewRevision("schema:ds", versioning.KindSchema, number, []byte(`{}`), "finalized")
	require.NoError(t, err)
	return rev
}

func TestSaveWritesKeyedItem(t *testing.T) {
	client := &mockClient{}
	archive := NewSnapshotArchive(client, "snapshots", nil)

	client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		pk, _ := in.Item["PK"].(*types.AttributeValueMemberS)
		sk, _ := in.Item["SK"].(*types.AttributeValueMemberS)
		payload, _ := in.Item["Payload"].(*types.AttributeValueMemberB)
		return *in.TableName == "snapshots" &&
			pk != nil && pk.Value == "STREAM#schema:ds" &&
			sk != nil && sk.Value == "REV#0000000003" &&
			payload != nil && string(payload.Value) == `{}` &&
			in.ConditionExpression != nil
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()

	require.NoError(t, archive.Save(context.Background(), revision(t, 3), []byte(`{}`)))
	client.AssertExpectations(t)
}

func TestSaveClassifiesErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "conditional check",
			err:   &smithy.GenericAPIError{Code: "ConditionalCheckFailedException", Message: "exists"},
			check: pkgerrors.IsConflict,
		},
		{
			name:  "throttled",
			err:   &smithy.GenericAPIError{Code: "ThrottlingException"},
			check: func(err error) bool { return pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable) },
		},
		{
			name:  "other",
			err:   errors.New("connection reset"),
			check: func(err error) bool { return pkgerrors.IsType(err, pkgerrors.ErrorTypeStorage) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			client.On("PutItem", mock.Anything, mock.Anything).Return(nil, tt.err)
			err := NewSnapshotArchive(client, "snapshots", nil).Save(context.Background(), revision(t, 1), nil)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestLoadFollowsPages(t *testing.T) {
	client := &mockClient{}
	archive := NewSnapshotArchive(client, "snapshots", nil)

	page := func(t *testing.T, numbers ...int) []map[string]types.AttributeValue {
		var items []map[string]types.AttributeValue
		for _, n := range numbers {
			item, err := attributevalue.MarshalMap(revision(t, n))
			require.NoError(t, err)
			items = append(items, item)
		}
		return items
	}
	next := map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "x"}}

	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{Items: page(t, 1, 2), LastEvaluatedKey: next}, nil).Once()
	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.QueryOutput{Items: page(t, 3)}, nil).Once()

	revisions, err := archive.Load(context.Background(), "schema:ds")
	require.NoError(t, err)
	require.Len(t, revisions, 3)
	assert.Equal(t, 3, revisions[2].Number)
	assert.Equal(t, "schema:ds", revisions[0].StreamID)
	client.AssertExpectations(t)
}

func TestPayload(t *testing.T) {
	client := &mockClient{}
	archive := NewSnapshotArchive(client, "snapshots", nil)

	client.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		sk := in.Key["SK"].(*types.AttributeValueMemberS)
		return sk.Value == "REV#0000000001"
	})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"Payload": &types.AttributeValueMemberB{Value: []byte(`{"type":"object"}`)},
	}}, nil).Once()
	client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()

	payload, err := archive.Payload(context.Background(), "schema:ds", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object"}`, string(payload))

	_, err = archive.Payload(context.Background(), "schema:ds", 2)
	assert.True(t, pkgerrors.IsNotFound(err))
}
