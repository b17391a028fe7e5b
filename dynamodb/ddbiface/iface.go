// Package ddbiface provides the table administration surface the
// provisioner talks to. It is satisfied both by the AWS SDK v2 DynamoDB
// client and by ddbstore.Store, so provisioning runs the same against real
// DynamoDB or local BadgerDB-backed storage.
package ddbiface

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// TableAdmin mirrors the table-level method signatures of *dynamodb.Client.
// It also satisfies dynamodb.DescribeTableAPIClient, so SDK waiters accept it.
type TableAdmin interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

var (
	_ TableAdmin                      = (*dynamodb.Client)(nil)
	_ dynamodb.DescribeTableAPIClient = (TableAdmin)(nil)
)
