package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/viant/procflux"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and expose its HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, conf)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address")
	cmd.Flags().String("store", "", "process mirror URL (file://, mem://, gs://, s3://)")
	_ = viper.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("store.url", cmd.Flags().Lookup("store"))
	return cmd
}

func serve(ctx context.Context, config *procflux.Config) error {
	srv, err := procflux.New(procflux.WithConfig(config))
	if err != nil {
		return err
	}
	runtime := srv.Runtime()
	if err = runtime.Start(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return runtime.Serve(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		return runtime.Shutdown(shutdownCtx)
	})
	if err = group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
