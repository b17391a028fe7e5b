package main

import (
	"errors"
	"fmt"

	"github.com/acksell/moviesdemo/dynamodb/provision"
	"github.com/spf13/cobra"
)

func newTablesCmd(a *app) *cobra.Command {
	var f migrateFlags
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables visible with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(a, cmd, &f)
			if err != nil {
				return err
			}
			if cfg.Region == "" {
				return errors.New("region must not be empty")
			}
			admin, closeFn, err := openAdmin(a.logger)(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("connect to dynamodb: %w", err)
			}
			defer func() {
				if cerr := closeFn(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			names, err := provision.New(admin, provision.WithLogger(a.logger)).Tables(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
	addConnectionFlags(cmd, &f)
	return cmd
}
