package main

import (
	"context"
	"time"

	"github.com/acksell/moviesdemo/config"
	"github.com/acksell/moviesdemo/dynamodb/ddbclient"
	"github.com/acksell/moviesdemo/dynamodb/ddbiface"
	"github.com/acksell/moviesdemo/dynamodb/ddbstore"
	"github.com/acksell/moviesdemo/dynamodb/provision"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type migrateFlags struct {
	table    string
	region   string
	endpoint string
	localDir string
	memory   bool
	wait     time.Duration
}

func newMigrateCmd(a *app) *cobra.Command {
	var f migrateFlags
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the movies table if it does not exist",
		Long: `Creates the DynamoDB table named by DB_TABLE_NAME (or --table) with the
movies schema: PK/SK string keys, one GSI "GSI1" over GSI1PK/GSI1SK projecting
all attributes, and on-demand billing. An existing table is left untouched.

Use --endpoint for DynamoDB Local, or --local-dir/--memory for the built-in
BadgerDB store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a, cmd, &f)
			if err != nil {
				return &commandError{prefix: "Migration failed", err: err}
			}
			_, err = provision.Migrate(cmd.Context(), cfg, openAdmin(a.logger),
				provision.WithLogger(a.logger),
				provision.WithOutput(a.stdout, a.stderr),
				provision.WithWaitForActive(f.wait),
			)
			if err != nil {
				return &commandError{prefix: "Migration failed", err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.table, "table", "", "table name (overrides "+config.EnvTableName+")")
	cmd.Flags().DurationVar(&f.wait, "wait", 0, "wait up to this long for the new table to become ACTIVE")
	addConnectionFlags(cmd, &f)
	return cmd
}

// addConnectionFlags registers the flags that pick which DynamoDB to talk to.
func addConnectionFlags(cmd *cobra.Command, f *migrateFlags) {
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region (overrides "+config.EnvRegion+")")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "DynamoDB endpoint, e.g. http://localhost:8000")
	cmd.Flags().StringVar(&f.localDir, "local-dir", "", "use the BadgerDB store in this directory")
	cmd.Flags().BoolVar(&f.memory, "memory", false, "use a throwaway in-memory store")
	cmd.MarkFlagsMutuallyExclusive("local-dir", "memory")
}

func loadConfig(a *app, cmd *cobra.Command, f *migrateFlags) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{LookupEnv: a.lookupEnv})
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("table") {
		cfg.TableName = f.table
	}
	if flags.Changed("region") {
		cfg.Region = f.region
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = f.endpoint
	}
	if flags.Changed("local-dir") {
		cfg.LocalDir = f.localDir
	}
	if flags.Changed("memory") {
		cfg.LocalMemory = f.memory
	}
	a.logger.Debug("configuration loaded",
		zap.String("table", cfg.TableName),
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
		zap.Bool("local", cfg.Local()),
		zap.Bool("web_identity", cfg.WebIdentity()),
	)
	return cfg, nil
}

// openAdmin connects to the BadgerDB store in local mode and to DynamoDB
// otherwise.
func openAdmin(logger *zap.Logger) provision.Opener {
	return func(ctx context.Context, cfg config.Config) (ddbiface.TableAdmin, func() error, error) {
		if cfg.Local() {
			store, err := ddbstore.New(ddbstore.StoreOptions{
				Path:     cfg.LocalDir,
				InMemory: cfg.LocalMemory,
				Region:   cfg.Region,
				Logger:   logger,
			})
			if err != nil {
				return nil, nil, err
			}
			return store, store.Close, nil
		}
		client, err := ddbclient.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	}
}
