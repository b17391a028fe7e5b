// Package provision makes sure a DynamoDB table exists before the code that
// depends on it runs.
//
// A run describes the table, creates it only when the describe reports it
// missing, and stops at the first error:
//
//	DESCRIBE ─ exists ──────────────────────────────► AlreadyExists
//	         ├ not found ─► CREATE ─ ok ────────────► Created
//	         │                     ├ already exists ► AlreadyExists
//	         │                     └ other ─────────► error
//	         └ other ───────────────────────────────► error
//
// An existing table is accepted as is; its schema is not compared with the
// requested one.
package provision

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/acksell/moviesdemo/config"
	"github.com/acksell/moviesdemo/dynamodb/ddberr"
	"github.com/acksell/moviesdemo/dynamodb/ddbiface"
	"github.com/acksell/moviesdemo/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

type Outcome int

const (
	Created Outcome = iota + 1
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already exists"
	default:
		return "unknown"
	}
}

// Provisioner ensures tables exist through a TableAdmin.
type Provisioner struct {
	admin  ddbiface.TableAdmin
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
	wait   time.Duration
}

type Option func(*Provisioner)

func WithLogger(l *zap.Logger) Option {
	return func(p *Provisioner) {
		p.logger = l
	}
}

// WithOutput sets where operator notices go. Success notices are written
// to stdout, failure notices to stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Provisioner) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// WithWaitForActive makes Ensure block after creation until the table is
// ACTIVE or timeout passes. Zero disables waiting.
func WithWaitForActive(timeout time.Duration) Option {
	return func(p *Provisioner) {
		p.wait = timeout
	}
}

func New(admin ddbiface.TableAdmin, opts ...Option) *Provisioner {
	p := &Provisioner{
		admin:  admin,
		logger: zap.NewNop(),
		stdout: io.Discard,
		stderr: io.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ensure creates def unless a table with its name already exists.
//
// Errors other than "not found" from the describe call abort the run before
// anything is created. Errors are tagged with ddberr.Error and still wrap the
// collaborator's original error.
func (p *Provisioner) Ensure(ctx context.Context, def table.TableDefinition) (Outcome, error) {
	in, err := def.CreateTableInput()
	if err != nil {
		return 0, fmt.Errorf("invalid table definition: %w", err)
	}
	log := p.logger.With(zap.String("table", def.Name))

	log.Debug("describing table")
	_, err = p.admin.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(def.Name)})
	if err == nil {
		log.Info("table already exists")
		fmt.Fprintf(p.stdout, "Table %s already exists\n", def.Name)
		return AlreadyExists, nil
	}
	switch kind := ddberr.Classify(err); kind {
	case ddberr.NotFound:
		log.Debug("table not found, creating")
	case ddberr.AlreadyExists, ddberr.Authorization, ddberr.Network, ddberr.Other:
		log.Error("describe table failed", zap.Stringer("kind", kind), zap.Error(err))
		return 0, ddberr.Wrap("describe table "+def.Name, err)
	default:
		panic(fmt.Sprintf("unhandled error kind %v", kind))
	}

	_, err = p.admin.CreateTable(ctx, in)
	if err != nil {
		if ddberr.Classify(err) == ddberr.AlreadyExists {
			// Someone else created it between our describe and create.
			log.Warn("table created concurrently", zap.Error(err))
			fmt.Fprintf(p.stdout, "Table %s already exists\n", def.Name)
			return AlreadyExists, nil
		}
		log.Error("create table failed", zap.Error(err))
		fmt.Fprintf(p.stderr, "Error creating table: %v\n", err)
		return 0, ddberr.Wrap("create table "+def.Name, err)
	}

	if p.wait > 0 {
		log.Debug("waiting for table to become active", zap.Duration("timeout", p.wait))
		waiter := dynamodb.NewTableExistsWaiter(p.admin, func(o *dynamodb.TableExistsWaiterOptions) {
			o.MinDelay = time.Second
			o.MaxDelay = 10 * time.Second
		})
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(def.Name)}, p.wait); err != nil {
			log.Error("table did not become active", zap.Error(err))
			fmt.Fprintf(p.stderr, "Error waiting for table: %v\n", err)
			return 0, fmt.Errorf("wait for table %s: %w", def.Name, err)
		}
	}

	log.Info("table created")
	fmt.Fprintf(p.stdout, "Table %s created successfully\n", def.Name)
	return Created, nil
}

// Tables lists every table name visible to the admin, following pagination.
func (p *Provisioner) Tables(ctx context.Context) ([]string, error) {
	var names []string
	pages := dynamodb.NewListTablesPaginator(p.admin, &dynamodb.ListTablesInput{})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			p.logger.Error("list tables failed", zap.Error(err))
			return nil, ddberr.Wrap("list tables", err)
		}
		names = append(names, page.TableNames...)
	}
	p.logger.Debug("listed tables", zap.Int("count", len(names)))
	return names, nil
}

// Opener connects to the table admin described by cfg. The returned close
// func releases whatever the connection holds.
type Opener func(ctx context.Context, cfg config.Config) (ddbiface.TableAdmin, func() error, error)

// Migrate validates cfg, connects through open and ensures the movies table.
// Configuration errors are returned before open is called.
func Migrate(ctx context.Context, cfg config.Config, open Opener, opts ...Option) (outcome Outcome, err error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	admin, closeFn, err := open(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("connect to dynamodb: %w", err)
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = fmt.Errorf("close dynamodb connection: %w", cerr)
		}
	}()
	return New(admin, opts...).Ensure(ctx, table.MoviesTable(cfg.TableName))
}
