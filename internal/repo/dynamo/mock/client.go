package mock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Types for mocking out DynamoDB

type GetItemFuncType func(ctx context.Context,
	params *dynamodb.GetItemInput,
	optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
type PutItemFuncType func(ctx context.Context,
	params *dynamodb.PutItemInput,
	optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
type DeleteItemFuncType func(ctx context.Context,
	params *dynamodb.DeleteItemInput,
	optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
type QueryFuncType func(ctx context.Context,
	params *dynamodb.QueryInput,
	optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
type ScanFuncType func(ctx context.Context,
	params *dynamodb.ScanInput,
	optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
type CreateTableFuncType func(ctx context.Context,
	params *dynamodb.CreateTableInput,
	optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
type DescribeTableFuncType func(ctx context.Context,
	params *dynamodb.DescribeTableInput,
	optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)

// Mock is a mock of the DynamoDB client.
type Mock struct {
	GetItemFunc       GetItemFuncType
	PutItemFunc       PutItemFuncType
	DeleteItemFunc    DeleteItemFuncType
	QueryFunc         QueryFuncType
	ScanFunc          ScanFuncType
	CreateTableFunc   CreateTableFuncType
	DescribeTableFunc DescribeTableFuncType
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) GetItem(
	ctx context.Context,
	params *dynamodb.GetItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, params, optFns...)
	}

	panic("mock GetItem not implemented")
}

func (m *Mock) PutItem(
	ctx context.Context,
	params *dynamodb.PutItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.PutItemOutput, error) {
	if m.PutItemFunc != nil {
		return m.PutItemFunc(ctx, params, optFns...)
	}

	panic("mock PutItem not implemented")
}

func (m *Mock) DeleteItem(
	ctx context.Context,
	params *dynamodb.DeleteItemInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.DeleteItemOutput, error) {
	if m.DeleteItemFunc != nil {
		return m.DeleteItemFunc(ctx, params, optFns...)
	}

	panic("mock DeleteItem not implemented")
}

func (m *Mock) Query(
	ctx context.Context,
	params *dynamodb.QueryInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.QueryOutput, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, params, optFns...)
	}

	panic("mock Query not implemented")
}

func (m *Mock) Scan(
	ctx context.Context,
	params *dynamodb.ScanInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.ScanOutput, error) {
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, params, optFns...)
	}

	panic("mock Scan not implemented")
}

func (m *Mock) CreateTable(
	ctx context.Context,
	params *dynamodb.CreateTableInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.CreateTableOutput, error) {
	if m.CreateTableFunc != nil {
		return m.CreateTableFunc(ctx, params, optFns...)
	}

	panic("mock CreateTable not implemented")
}

func (m *Mock) DescribeTable(
	ctx context.Context,
	params *dynamodb.DescribeTableInput,
	optFns ...func(*dynamodb.Options),
) (*dynamodb.DescribeTableOutput, error) {
	if m.DescribeTableFunc != nil {
		return m.DescribeTableFunc(ctx, params, optFns...)
	}

	panic("mock DescribeTable not implemented")
}

func (m *Mock) WithGetItemFunc(f GetItemFuncType) *Mock {
	m.GetItemFunc = f
	return m
}

func (m *Mock) WithPutItemFunc(f PutItemFuncType) *Mock {
	m.PutItemFunc = f
	return m
}

func (m *Mock) WithDeleteItemFunc(f DeleteItemFuncType) *Mock {
	m.DeleteItemFunc = f
	return m
}

func (m *Mock) WithQueryFunc(f QueryFuncType) *Mock {
	m.QueryFunc = f
	return m
}

func (m *Mock) WithScanFunc(f ScanFuncType) *Mock {
	m.ScanFunc = f
	return m
}

func (m *Mock) WithCreateTableFunc(f CreateTableFuncType) *Mock {
	m.CreateTableFunc = f
	return m
}

func (m *Mock) WithDescribeTableFunc(f DescribeTableFuncType) *Mock {
	m.DescribeTableFunc = f
	return m
}
