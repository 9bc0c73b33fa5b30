package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eigerco/tollbridge/internal/api"
	"github.com/eigerco/tollbridge/internal/bridge"
	"github.com/eigerco/tollbridge/internal/config"
	"github.com/eigerco/tollbridge/internal/ledger"
	"github.com/eigerco/tollbridge/internal/metrics"
	"github.com/eigerco/tollbridge/internal/store"
	"github.com/eigerco/tollbridge/internal/validator"
	"github.com/eigerco/tollbridge/pkg/db"
	"github.com/eigerco/tollbridge/pkg/db/pebble"
	"github.com/eigerco/tollbridge/pkg/log"
)

const shutdownTimeout = 10 * time.Second

func runCommand() *cobra.Command {
	var (
		configPath string
		listen     string
	)
	c := &cobra.Command{
		Use:   "run",
		Short: "Run the settlement node and serve its HTTP API",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	c.Flags().StringVarP(&configPath, "config", "c", "tollbridge.yaml", "path to the YAML configuration")
	c.Flags().StringVar(&listen, "listen", "", "override the configured listen address")
	return c
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Init(cfg.Log)

	kv, err := openKV(cfg.DBPath)
	if err != nil {
		return err
	}
	s, err := store.New(kv, cfg.CacheSize)
	if err != nil {
		_ = kv.Close()
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Root.Error().Err(err).Msg("close store")
		}
	}()

	validators, err := validator.NewRegistry(cfg.Threshold, cfg.Validators...)
	if err != nil {
		return err
	}
	m := metrics.New()
	b, err := bridge.New(s, validators, newLedger(log.Root, cfg.DBPath != ""), cfg.BridgeConfig(), bridge.WithMetrics(m))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewServer(b, m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Root.Info().
			Str("listen", cfg.Listen).
			Uint64("threshold", cfg.Threshold).
			Int("validators", len(cfg.Validators)).
			Msg("serving bridge api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.Root.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newLedger returns the in-memory token ledger. Its balances do not survive
// a restart even when bridge state does.
func newLedger(logger zerolog.Logger, persistentState bool) *ledger.Memory {
	if persistentState {
		logger.Warn().Msg("token ledger is kept in memory, balances are lost on restart while settled records persist")
	}
	return ledger.NewMemory()
}

func openKV(path string) (db.KVStore, error) {
	if path == "" {
		log.Root.Warn().Msg("no database path configured, state is kept in memory")
		return pebble.NewMemKVStore()
	}
	return pebble.NewKVStore(path)
}
