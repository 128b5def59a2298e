package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"parkgo/api"
	"parkgo/events"
	"parkgo/runner"
	"parkgo/status"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(debug *bool) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Refresh the discount status in the background and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if port != "" {
				s.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, s, *debug)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")
	return cmd
}

// serve runs the publisher loop and the HTTP server until ctx is cancelled
func serve(ctx context.Context, s settings, debug bool) error {
	logger := setupLogging(os.Stderr, s.LogLevel, debug)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := s.siteConfig()
	if err != nil {
		return err
	}

	store, err := s.openStore()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	var history api.RunHistory
	if store != nil {
		defer store.Close()
		history = store
	} else {
		logger.Info("run persistence disabled")
	}

	tp, err := newTracerProvider(ctx, s)
	if err != nil {
		return err
	}
	defer shutdownTracing(tp, logger)

	broker := events.NewBroker(withModule(logger, "events"))
	ctrl := newController(cfg, s, store, tp.Tracer(runner.TracerName), withModule(logger, "runner"))
	publisher := status.NewPublisher(ctrl, cfg.LookupKey, withModule(logger, "status"),
		status.WithIntervals(s.Interval, s.Fallback),
		status.WithNotifier(broker),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		publisher.Start(ctx)
	}()

	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           api.NewRouter(publisher, history, broker, withModule(logger, "api")),
		ReadHeaderTimeout: 10 * time.Second,
		// Streaming clients end with the process context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting parkgo server", "port", s.Port, "status", "http://localhost:"+s.Port+"/api/status")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			cancel()
			<-done
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("shutting down")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", "error", err)
	}
	<-done
	return nil
}
