package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gouplift/internal/migration"
	"gouplift/ui"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored run reports over HTTP",
		Long: `Start the read-only report server: JSON under /api/runs, HTML under /runs,
Prometheus metrics under /metrics.

Example: uplift serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd, flags)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if cmd.Flags().Changed("port") {
				c.Config.Server.Port = port
			}
			if c.Config.Server.GinMode != "" {
				gin.SetMode(c.Config.Server.GinMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := c.InitWithDatabase(ctx); err != nil {
				return err
			}
			server, err := ui.NewServer(c.RunRepo, c.Logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start(":" + c.Config.Server.Port) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				c.Logger.Info("shutting down report server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&port, "port", "8080", "Listen port (overrides PORT)")
	return cmd
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the run store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd, flags)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if err := c.InitWithDatabase(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("run store at schema version %s (%s)\n", migration.NewRunner().Version(), c.Config.Database.Driver)
			return nil
		},
	}
}
