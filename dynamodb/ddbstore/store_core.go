package ddbstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acksell/moviesdemo/dynamodb/ddberr"
	"github.com/acksell/moviesdemo/dynamodb/ddbiface"
	"github.com/acksell/moviesdemo/dynamodb/table"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Store is a DynamoDB-compatible table catalog backed by BadgerDB.
// It answers the table administration calls the provisioner makes, so a
// table can be provisioned against local disk or memory instead of AWS.
type Store struct {
	db     *badger.DB
	region string
	now    func() time.Time
}

var _ ddbiface.TableAdmin = (*Store)(nil)

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Region is only used to build table ARNs. Defaults to "local".
	Region string
	// Logger receives BadgerDB's own log lines. If nil, logging is disabled.
	Logger *zap.Logger
}

// New opens the store and creates any of defs that do not exist yet.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(badgerLogger{opts.Logger.Sugar()})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	region := opts.Region
	if region == "" {
		region = "local"
	}
	s := &Store{
		db:     db,
		region: region,
		now:    time.Now,
	}

	for _, def := range defs {
		in, err := def.CreateTableInput()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("table %q: %w", def.Name, err)
		}
		if _, err := s.CreateTable(context.Background(), in); err != nil && !ddberr.IsAlreadyExists(err) {
			db.Close()
			return nil, fmt.Errorf("create table %q: %w", def.Name, err)
		}
	}

	return s, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lookup(txn *badger.Txn, name string) (*catalogEntry, error) {
	item, err := txn.Get(catalogKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry *catalogEntry
	err = item.Value(func(val []byte) error {
		entry, err = decodeCatalogEntry(val)
		return err
	})
	return entry, err
}

// badgerLogger adapts zap to badger.Logger, which wants Warningf.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...any)   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...any) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...any)    { l.s.Infof(f, v...) }
func (l badgerLogger) Debugf(f string, v ...any)   { l.s.Debugf(f, v...) }
