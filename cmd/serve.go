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
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/civshow/slideshow"
	"github.com/s0up4200/civshow/viewer"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the slideshow in a web browser",
	Long: `Start the web viewer. Every browser gets its own slideshow session that
starts from the configured default filters.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	v := viewer.NewServer(civitaiClient, logger,
		viewer.WithControllerOptions(
			slideshow.WithFilters(cfg.Slideshow.Defaults),
			slideshow.WithDelay(cfg.Slideshow.Delay),
			slideshow.WithPageSize(cfg.Civitai.PageSize),
			slideshow.WithPrefetchThreshold(cfg.Slideshow.PrefetchThreshold),
		),
	)
	defer v.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           v.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Event streams end when shutdown starts
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("Web viewer listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return v.RunSweeper(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down web viewer")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
