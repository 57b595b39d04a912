package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wackypm/brainstormd/internal/config"
	"github.com/wackypm/brainstormd/internal/engine"
	"github.com/wackypm/brainstormd/internal/github"
	"github.com/wackypm/brainstormd/internal/llm"
	"github.com/wackypm/brainstormd/internal/observability"
	"github.com/wackypm/brainstormd/internal/server"
	"github.com/wackypm/brainstormd/internal/session"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	observability.InitMetrics()
	if err := observability.InitTracing(ctx); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		_ = observability.ShutdownTracing(context.Background())
	}()

	store, sweeper, storePing, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	if sweeper != nil {
		sweeper.Start()
		defer sweeper.Stop()
	}

	generator, err := llm.New(llm.Options{
		Provider: cfg.Generator.Provider,
		Model:    cfg.Generator.Model,
		BaseURL:  cfg.Generator.BaseURL,
		APIKey:   cfg.Generator.APIKey,
	})
	if err != nil {
		return err
	}

	ghClient := github.NewClient(cfg.GitHub.APIBase)

	var filer engine.IssueFiler
	if cfg.GitHub.IssueRepo != "" {
		filer, err = github.NewIssueFiler(ghClient, cfg.GitHub.IssueRepo, cfg.GitHub.IssueLabels)
		if err != nil {
			return err
		}
	}

	eng, err := engine.New(engine.Options{
		Store:            store,
		Generator:        generator,
		Filer:            filer,
		GeneratorTimeout: cfg.Generator.Timeout,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	var verifier server.Verifier
	if !cfg.GitHub.InsecureSkipVerify {
		verifier = github.NewVerifier(cfg.GitHub.KeysURL)
	} else {
		logger.Warn("request signature verification is disabled")
	}

	handler, err := server.New(server.Options{
		Engine:     eng,
		Resolver:   ghClient,
		Verifier:   verifier,
		SkipVerify: cfg.GitHub.InsecureSkipVerify,
		Limiter:    server.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	api := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	checker := observability.NewHealthChecker()
	checker.RegisterCheck(observability.PingCheck())
	checker.RegisterCheck(observability.StoreCheck(storePing))
	checker.RegisterCheck(observability.ReachabilityCheck("github-api", cfg.GitHub.APIBase))
	obs := observability.NewServer(cfg.Observability.Port, checker)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("agent server listening", zap.String("addr", cfg.Server.Addr))
		if err := api.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("observability server listening", zap.Int("port", cfg.Observability.Port))
		if err := obs.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		apiErr := api.Shutdown(shutdownCtx)
		obsErr := obs.Shutdown(shutdownCtx)
		return errors.Join(apiErr, obsErr)
	})

	return g.Wait()
}

// buildStore creates the configured session store, its expiry sweeper
// when needed, and a health ping for it.
func buildStore(cfg *config.Config, logger *zap.Logger) (session.Store, *session.Sweeper, func(context.Context) error, error) {
	switch cfg.Session.Backend {
	case "redis":
		store, err := session.NewRedisStore(session.RedisConfig{
			Addr:       cfg.Session.Redis.Addr,
			Password:   cfg.Session.Redis.Password,
			DB:         cfg.Session.Redis.DB,
			SessionTTL: cfg.Session.TTL,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, store.Ping, nil

	default:
		store := session.NewMemoryStore(cfg.Session.TTL)

		var sweeper *session.Sweeper
		if cfg.Session.TTL > 0 {
			var err error
			sweeper, err = session.NewSweeper(store, cfg.Session.SweepSchedule, logger)
			if err != nil {
				_ = store.Close()
				return nil, nil, nil, err
			}
		}
		ping := func(context.Context) error { return nil }
		return store, sweeper, ping, nil
	}
}
