package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/api/router"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/query/cache"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/query/parser"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/repository"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/service"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/resilience"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Setup(cfg.Logging)
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (defaults plus SA_* env when empty)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	background := &stopper{cancel: cancel}
	defer background.stop()
	slog.Info("starting string analysis service", "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownWithin(shutdownMetrics, cfg.Server.ShutdownTimeout, "metrics server")
	}

	repo := repository.NewMemory()
	checker := health.NewChecker()
	checker.Register("repository", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d strings stored", repo.Count())}
	})

	var (
		translator service.Translator = parser.New()
		deps                          = handler.Deps{Metrics: m, MaxBodyBytes: cfg.Server.MaxBodyBytes}
	)
	if cfg.Cache.Enabled {
		redisClient, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, translation caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			tc := cache.New(translator, redisClient, cfg.Cache, m)
			translator = tc
			deps.Cache = tc
			checker.Register("redis", health.PingCheck(redisClient, false))
			slog.Info("translation cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Cache.TTL)
		}
	}

	agg := analytics.NewAggregator(cfg.Analytics.TopQueries)
	deps.Tracker = agg

	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, cfg.Analytics.BatchSize)
		collector := analytics.NewCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		deps.Tracker = collector
		background.add(func() {
			collector.Close()
			if err := producer.Close(); err != nil {
				slog.Error("closing analytics producer", "error", err)
			}
		})

		go func() {
			if err := agg.Consume(ctx, cfg.Kafka); err != nil {
				slog.Error("analytics consumer stopped", "error", err)
			}
		}()
		slog.Info("analytics pipeline enabled", "topic", cfg.Kafka.Topics.AnalyticsEvents, "brokers", cfg.Kafka.Brokers)
	}

	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer pg.Close()
			snapshots := store.New(pg.DB)
			if err := snapshots.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("preparing snapshot schema: %w", err)
			}
			if prev, err := snapshots.LatestSnapshot(ctx); err != nil {
				slog.Warn("reading previous analytics snapshot", "error", err)
			} else if prev != nil {
				slog.Info("previous analytics snapshot",
					"since", prev.Since,
					"strings_created", prev.StringsCreated,
					"nl_queries", prev.NLQueries,
				)
			}
			checker.Register("postgres", health.PingCheck(pg, false))
			done := make(chan struct{})
			go func() {
				defer close(done)
				snapshots.Run(ctx, agg, cfg.Analytics.SnapshotInterval)
			}()
			background.add(func() { <-done })
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		go limiter.Run(ctx)
	}

	svc := service.New(repo, translator)
	h := handler.New(svc, deps)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(h, router.Options{
			Analytics:      analytics.NewHandler(agg),
			Health:         checker,
			Limiter:        limiter,
			Metrics:        m,
			CORS:           cfg.CORS,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("string analysis service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case serveErr = <-errCh:
		slog.Error("server error", "error", serveErr)
	}

	shutdownWithin(server.Shutdown, cfg.Server.ShutdownTimeout, "http server")
	background.stop()
	slog.Info("string analysis service stopped")
	return serveErr
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*pkgredis.Client, error) {
	var client *pkgredis.Client
	err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
	}, func() error {
		c, err := pkgredis.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	return client, err
}

// stopper cancels the background context and then runs the registered
// cleanups in order. Only the first stop has any effect.
type stopper struct {
	once   sync.Once
	cancel context.CancelFunc
	funcs  []func()
}

func (s *stopper) add(f func()) {
	s.funcs = append(s.funcs, f)
}

func (s *stopper) stop() {
	s.once.Do(func() {
		s.cancel()
		for _, f := range s.funcs {
			f()
		}
	})
}

func shutdownWithin(shutdown func(context.Context) error, timeout time.Duration, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Error("shutdown error", "component", name, "error", err)
	}
}
