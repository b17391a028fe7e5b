package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/acksell/moviesdemo/config"
	"github.com/acksell/moviesdemo/dynamodb/ddberr"
	"github.com/acksell/moviesdemo/dynamodb/ddbiface"
	"github.com/acksell/moviesdemo/dynamodb/ddbstore"
	"github.com/acksell/moviesdemo/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingAdmin returns canned errors and records every call.
type recordingAdmin struct {
	describeErr error
	createErr   error
	listErr     error

	calls   []string
	created []*dynamodb.CreateTableInput
}

func (a *recordingAdmin) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	a.calls = append(a.calls, "DescribeTable")
	if a.describeErr != nil {
		return nil, a.describeErr
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (a *recordingAdmin) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	a.calls = append(a.calls, "CreateTable")
	a.created = append(a.created, in)
	if a.createErr != nil {
		return nil, a.createErr
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func (a *recordingAdmin) ListTables(context.Context, *dynamodb.ListTablesInput, ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	a.calls = append(a.calls, "ListTables")
	if a.listErr != nil {
		return nil, a.listErr
	}
	return &dynamodb.ListTablesOutput{}, nil
}

var _ ddbiface.TableAdmin = (*recordingAdmin)(nil)

func notFound() error {
	return &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
}

type harness struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	logs   *observer.ObservedLogs
}

func (h *harness) provisioner(admin ddbiface.TableAdmin, opts ...Option) *Provisioner {
	core, logs := observer.New(zapcore.DebugLevel)
	h.logs = logs
	opts = append([]Option{WithLogger(zap.New(core)), WithOutput(&h.stdout, &h.stderr)}, opts...)
	return New(admin, opts...)
}

func newMemoryStore(t *testing.T) *ddbstore.Store {
	t.Helper()
	store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnsure_TableAlreadyExists(t *testing.T) {
	var h harness
	admin := &recordingAdmin{}

	outcome, err := h.provisioner(admin).Ensure(context.Background(), table.MoviesTable("movies"))
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, outcome)
	assert.Equal(t, []string{"DescribeTable"}, admin.calls)
	assert.Equal(t, "Table movies already exists\n", h.stdout.String())
	assert.Empty(t, h.stderr.String())
}

func TestEnsure_CreatesMissingTable(t *testing.T) {
	var h harness
	admin := &recordingAdmin{describeErr: notFound()}

	outcome, err := h.provisioner(admin).Ensure(context.Background(), table.MoviesTable("movies"))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.Equal(t, []string{"DescribeTable", "CreateTable"}, admin.calls)
	assert.Equal(t, "Table movies created successfully\n", h.stdout.String())

	require.Len(t, admin.created, 1)
	in := admin.created[0]
	assert.Equal(t, "movies", aws.ToString(in.TableName))
	assert.Equal(t, types.BillingModePayPerRequest, in.BillingMode)
	assert.Nil(t, in.ProvisionedThroughput)
	assert.ElementsMatch(t, []types.AttributeDefinition{
		{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("GSI1PK"), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String("GSI1SK"), AttributeType: types.ScalarAttributeTypeS},
	}, in.AttributeDefinitions)
	assert.Equal(t, []types.KeySchemaElement{
		{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
	}, in.KeySchema)
	require.Len(t, in.GlobalSecondaryIndexes, 1)
	gsi := in.GlobalSecondaryIndexes[0]
	assert.Equal(t, "GSI1", aws.ToString(gsi.IndexName))
	assert.Equal(t, []types.KeySchemaElement{
		{AttributeName: aws.String("GSI1PK"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("GSI1SK"), KeyType: types.KeyTypeRange},
	}, gsi.KeySchema)
	assert.Equal(t, types.ProjectionTypeAll, gsi.Projection.ProjectionType)
	assert.Nil(t, gsi.ProvisionedThroughput)
}

func TestEnsure_DescribeFailureAborts(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ddberr.Kind
	}{
		{
			name: "access denied",
			err:  &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized to perform dynamodb:DescribeTable"},
			kind: ddberr.Authorization,
		},
		{
			name: "connection refused",
			err:  &smithyhttp.RequestSendError{Err: errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")},
			kind: ddberr.Network,
		},
		{
			name: "throttled",
			err:  &smithy.GenericAPIError{Code: "ThrottlingException", Message: "rate exceeded"},
			kind: ddberr.Other,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h harness
			admin := &recordingAdmin{describeErr: tt.err}

			outcome, err := h.provisioner(admin).Ensure(context.Background(), table.MoviesTable("movies"))
			require.Error(t, err)
			assert.Zero(t, outcome)
			assert.Equal(t, []string{"DescribeTable"}, admin.calls, "no create after a describe failure")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.kind, ddberr.Classify(err))

			var tagged *ddberr.Error
			require.ErrorAs(t, err, &tagged)
			assert.Equal(t, "describe table movies", tagged.Op)
			assert.Empty(t, h.stdout.String())
		})
	}
}

func TestEnsure_CreateFailureIsReported(t *testing.T) {
	var h harness
	createErr := &smithy.GenericAPIError{Code: "LimitExceededException", Message: "too many tables"}
	admin := &recordingAdmin{describeErr: notFound(), createErr: createErr}

	outcome, err := h.provisioner(admin).Ensure(context.Background(), table.MoviesTable("movies"))
	require.Error(t, err)
	assert.Zero(t, outcome)
	assert.ErrorIs(t, err, createErr)
	assert.Equal(t, []string{"DescribeTable", "CreateTable"}, admin.calls)

	assert.Contains(t, h.stderr.String(), "Error creating table: ")
	assert.Contains(t, h.stderr.String(), "too many tables")
	assert.NotContains(t, h.stdout.String(), "created successfully")

	errLogs := h.logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errLogs, 1)
	assert.Equal(t, "create table failed", errLogs[0].Message)
	assert.Equal(t, "movies", errLogs[0].ContextMap()["table"])
}

func TestEnsure_CreateRaceCountsAsExisting(t *testing.T) {
	var h harness
	admin := &recordingAdmin{
		describeErr: notFound(),
		createErr:   &types.ResourceInUseException{Message: aws.String("Table already exists: movies")},
	}

	outcome, err := h.provisioner(admin).Ensure(context.Background(), table.MoviesTable("movies"))
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, outcome)
	assert.Equal(t, "Table movies already exists\n", h.stdout.String())
	assert.Empty(t, h.stderr.String())
	assert.Len(t, h.logs.FilterLevelExact(zapcore.WarnLevel).All(), 1)
}

func TestEnsure_InvalidDefinition(t *testing.T) {
	var h harness
	admin := &recordingAdmin{}

	_, err := h.provisioner(admin).Ensure(context.Background(), table.MoviesTable(""))
	require.Error(t, err)
	assert.Empty(t, admin.calls)
}

func TestEnsure_Idempotent(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	var first harness
	outcome, err := first.provisioner(store).Ensure(ctx, table.MoviesTable("movies"))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.Equal(t, "Table movies created successfully\n", first.stdout.String())

	before, err := store.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("movies")})
	require.NoError(t, err)

	var second harness
	outcome, err = second.provisioner(store).Ensure(ctx, table.MoviesTable("movies"))
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, outcome)
	assert.Equal(t, "Table movies already exists\n", second.stdout.String())

	after, err := store.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("movies")})
	require.NoError(t, err)
	assert.Equal(t, aws.ToString(before.Table.TableId), aws.ToString(after.Table.TableId))

	got, err := table.FromDescription(after.Table)
	require.NoError(t, err)
	assert.Equal(t, table.MoviesTable("movies"), got)

	list, err := store.ListTables(ctx, &dynamodb.ListTablesInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"movies"}, list.TableNames)
}

func TestEnsure_WaitForActive(t *testing.T) {
	store := newMemoryStore(t)

	var h harness
	outcome, err := h.provisioner(store, WithWaitForActive(5*time.Second)).Ensure(context.Background(), table.MoviesTable("movies"))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
}

func TestEnsure_WaitForActiveTimesOut(t *testing.T) {
	var h harness
	// Describe keeps reporting not found, so the waiter never sees ACTIVE.
	admin := &recordingAdmin{describeErr: notFound()}

	outcome, err := h.provisioner(admin, WithWaitForActive(50*time.Millisecond)).Ensure(context.Background(), table.MoviesTable("movies"))
	require.Error(t, err)
	assert.Zero(t, outcome)
	assert.Contains(t, h.stderr.String(), "Error waiting for table: ")
	assert.NotContains(t, h.stdout.String(), "created successfully")
}

func TestMigrate(t *testing.T) {
	t.Run("missing table name never connects", func(t *testing.T) {
		opened := false
		open := func(context.Context, config.Config) (ddbiface.TableAdmin, func() error, error) {
			opened = true
			return nil, nil, errors.New("unexpected")
		}
		_, err := Migrate(context.Background(), config.Default(), open)
		require.ErrorIs(t, err, config.ErrMissingTableName)
		assert.False(t, opened)
	})

	t.Run("connect failure", func(t *testing.T) {
		cfg := config.Default()
		cfg.TableName = "movies"
		boom := errors.New("no credentials")
		open := func(context.Context, config.Config) (ddbiface.TableAdmin, func() error, error) {
			return nil, nil, boom
		}
		_, err := Migrate(context.Background(), cfg, open)
		require.ErrorIs(t, err, boom)
	})

	t.Run("creates the movies table and closes", func(t *testing.T) {
		cfg := config.Default()
		cfg.TableName = "movies-dev"
		store := newMemoryStore(t)
		closed := false
		open := func(_ context.Context, got config.Config) (ddbiface.TableAdmin, func() error, error) {
			assert.Equal(t, "movies-dev", got.TableName)
			return store, func() error { closed = true; return nil }, nil
		}
		var stdout bytes.Buffer
		outcome, err := Migrate(context.Background(), cfg, open, WithOutput(&stdout, &bytes.Buffer{}))
		require.NoError(t, err)
		assert.Equal(t, Created, outcome)
		assert.True(t, closed)
		assert.Equal(t, "Table movies-dev created successfully\n", stdout.String())
	})

	t.Run("close error surfaces", func(t *testing.T) {
		cfg := config.Default()
		cfg.TableName = "movies"
		open := func(context.Context, config.Config) (ddbiface.TableAdmin, func() error, error) {
			return &recordingAdmin{}, func() error { return errors.New("flush failed") }, nil
		}
		_, err := Migrate(context.Background(), cfg, open)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "flush failed")
	})
}

func TestTables(t *testing.T) {
	t.Run("follows pagination", func(t *testing.T) {
		store := newMemoryStore(t)
		ctx := context.Background()
		var want []string
		for i := 0; i < 105; i++ {
			name := fmt.Sprintf("movies-%03d", i)
			want = append(want, name)
			_, err := New(store).Ensure(ctx, table.MoviesTable(name))
			require.NoError(t, err)
		}

		got, err := New(store).Tables(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("empty", func(t *testing.T) {
		got, err := New(newMemoryStore(t)).Tables(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("error is tagged", func(t *testing.T) {
		listErr := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized to perform dynamodb:ListTables"}
		_, err := New(&recordingAdmin{listErr: listErr}).Tables(context.Background())
		require.ErrorIs(t, err, listErr)
		assert.Equal(t, ddberr.Authorization, ddberr.Classify(err))
	})
}
