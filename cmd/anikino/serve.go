package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmcdole/anikino/internal/api"
	"github.com/mmcdole/anikino/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configDir := fs.String("config", "", "directory containing config.yaml")
	addr := fs.String("addr", "", "listen address (default from config)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	a, err := newApp(*configDir)
	if err != nil {
		return err
	}
	defer a.Close()

	if *addr != "" {
		a.cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresher := worker.NewRefresher(a.complements, a.cfg.Sync.RefreshSchedule, a.logger)
	if err := refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start refresher: %w", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.NewHandler(a.coordinator, a.complements, a.logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	fmt.Fprintf(os.Stderr, "anikino %s listening on %s\n", Version, srv.Addr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
