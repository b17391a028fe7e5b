package ddbstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/acksell/moviesdemo/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
)

const maxListTablesLimit = 100

func validationError(format string, args ...any) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: fmt.Sprintf(format, args...),
		Fault:   smithy.FaultClient,
	}
}

func tableNotFound(name string) error {
	return &types.ResourceNotFoundException{
		Message: aws.String(fmt.Sprintf("Requested resource not found: Table: %s not found", name)),
	}
}

func tableInUse(name string) error {
	return &types.ResourceInUseException{
		Message: aws.String(fmt.Sprintf("Table already exists: %s", name)),
	}
}

// CreateTable registers a new table. Unlike DynamoDB the table is ACTIVE
// as soon as the call returns.
func (s *Store) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if params == nil {
		return nil, validationError("params is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.ProvisionedThroughput != nil {
		return nil, validationError("provisioned throughput is not supported, use PAY_PER_REQUEST")
	}
	def, err := table.FromCreateTableInput(params)
	if err != nil {
		return nil, validationError("%v", err)
	}
	if err := def.Validate(); err != nil {
		return nil, validationError("%v", err)
	}
	if len(params.AttributeDefinitions) != len(def.AttributeDefinitions()) {
		return nil, validationError("attribute definitions must declare exactly the key attributes of the table and its indexes")
	}

	entry := newCatalogEntry(def, ulid.Make().String(), s.now())
	val, err := encodeCatalogEntry(entry)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		existing, err := s.lookup(txn, def.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return tableInUse(def.Name)
		}
		return txn.Set(catalogKey(def.Name), val)
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent CreateTable for the same name committed first.
		return nil, tableInUse(def.Name)
	}
	if err != nil {
		return nil, err
	}

	desc, err := entry.description(s.region)
	if err != nil {
		return nil, err
	}
	return &dynamodb.CreateTableOutput{TableDescription: desc}, nil
}

// DescribeTable returns the stored description, or a ResourceNotFoundException.
func (s *Store) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if params == nil || aws.ToString(params.TableName) == "" {
		return nil, validationError("table name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := aws.ToString(params.TableName)

	var entry *catalogEntry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = s.lookup(txn, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, tableNotFound(name)
	}

	desc, err := entry.description(s.region)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: desc}, nil
}

// ListTables returns table names in ascending order, paginated like DynamoDB.
func (s *Store) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	if params == nil {
		params = &dynamodb.ListTablesInput{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := maxListTablesLimit
	if params.Limit != nil {
		if *params.Limit < 1 || *params.Limit > maxListTablesLimit {
			return nil, validationError("limit must be between 1 and %d", maxListTablesLimit)
		}
		limit = int(*params.Limit)
	}

	out := &dynamodb.ListTablesOutput{}
	prefix := catalogKeyPrefix()
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		if start := aws.ToString(params.ExclusiveStartTableName); start != "" {
			startKey := catalogKey(start)
			it.Seek(startKey)
			if it.Valid() && bytes.Equal(it.Item().Key(), startKey) {
				it.Next()
			}
		} else {
			it.Seek(prefix)
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(out.TableNames) == limit {
				out.LastEvaluatedTableName = aws.String(out.TableNames[len(out.TableNames)-1])
				break
			}
			out.TableNames = append(out.TableNames, tableNameFromKey(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
