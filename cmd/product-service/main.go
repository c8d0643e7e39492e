package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/app"
	"github.com/Sokol111/ecommerce-product-service/pkg/product/command"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "product-service",
		Short:        "Event-sourced product catalog service",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newRebuildCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the service until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(app.NewModule()).Run()
			return nil
		},
	}
}

func newRebuildCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "rebuild <product-id>",
		Short: "Rebuild the read model of one product from its event stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID := args[0]

			var svc command.Service
			fxApp := fx.New(
				app.NewModule(),
				fx.Populate(&svc),
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := fxApp.Start(ctx); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer stopCancel()
				_ = fxApp.Stop(stopCtx)
			}()

			state, err := svc.Rebuild(ctx, productID)
			if err != nil {
				return fmt.Errorf("rebuild failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt product %s at version %d\n", state.ID, state.Version)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall rebuild timeout")
	return cmd
}
