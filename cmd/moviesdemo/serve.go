package main

import (
	"github.com/acksell/moviesdemo/config"
	"github.com/acksell/moviesdemo/ui"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{LookupEnv: a.lookupEnv})
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			srv, err := ui.NewServer(ui.ServerConfig{
				Addr:      cfg.Addr,
				Layout:    ui.DefaultLayout(),
				TableName: cfg.TableName,
				Logger:    a.logger,
				Banner:    a.stdout,
			})
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address (PORT also sets it)")
	return cmd
}
