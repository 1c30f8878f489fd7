package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/tempmail/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser interface",
		RunE:  runServe,
	}
	cmd.Flags().String("serve.addr", "", "Listen address, e.g. 127.0.0.1:8025")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer e.close()

	srv := web.NewServer(web.Dependencies{
		Manager: e.manager,
		History: e.history,
		Logger:  e.log.Named("web"),
	})

	httpServer := &http.Server{
		Addr:              e.cfg.Serve.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		e.log.Info("starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		srv.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		e.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			e.log.Error("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	return group.Wait()
}
