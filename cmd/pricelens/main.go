// cmd/pricelens/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pricelens/internal/backend"
	"pricelens/internal/common/config"
	"pricelens/internal/common/database"
	"pricelens/internal/common/logger"
	"pricelens/internal/common/observability"
	"pricelens/internal/httpapi"
	compareproduct "pricelens/internal/loader/compare-product"
	incrementalload "pricelens/internal/loader/incremental-load"
	"pricelens/internal/models"
	filterresults "pricelens/internal/pipeline/filter-results"
	normalizeprices "pricelens/internal/pipeline/normalize-prices"
	normalizeproviders "pricelens/internal/pipeline/normalize-providers"
	rankstores "pricelens/internal/pipeline/rank-stores"
	resolveimage "pricelens/internal/pipeline/resolve-image"
	"pricelens/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pricelens...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Redis: storage driver and/or compare cache ---
	var rdb *redis.Client
	redisRequired := cfg.Storage.Driver == storage.DriverRedis
	if redisRequired || (cfg.Database.Redis.Address != "" && cfg.Cache.CompareTTLSeconds > 0) {
		attempts := 3
		if redisRequired {
			attempts = 10
		}
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.OpenRedis(ctx, cfg.Database.Redis)
			return err
		}, attempts, 2*time.Second, zapLog, "Redis connection")

		switch {
		case err != nil && redisRequired:
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		case err != nil:
			zapLog.Warn("redis unavailable, compare cache disabled", zap.Error(err))
			rdb = nil
		default:
			defer rdb.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- PostgreSQL: storage driver only ---
	var db *sql.DB
	if cfg.Storage.Driver == storage.DriverPostgres {
		err = retryWithBackoff(func() error {
			var err error
			db, err = database.OpenPostgres(ctx, cfg.Database.Postgres)
			return err
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer db.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Elasticsearch: typeahead index only ---
	var es *elasticsearch.Client
	if cfg.Backend.TypeaheadIndex != "" {
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.OpenElasticsearch(ctx, cfg.Database.Elasticsearch)
			return err
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Storage ---
	var kv redis.Cmdable
	if rdb != nil {
		kv = rdb
	}
	store, err := storage.New(cfg.Storage, kv, db)
	if err != nil {
		zapLog.Fatal("storage init failed", zap.Error(err))
	}
	if pg, ok := store.(*storage.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("storage schema failed", zap.Error(err))
		}
	}
	favorites := storage.NewFavorites(store, log)

	// --- Backend and pipeline ---
	client, err := backend.NewClient(backend.ConfigFrom(cfg.Backend), obs, log)
	if err != nil {
		zapLog.Fatal("backend client init failed", zap.Error(err))
	}

	var compareCache *backend.CompareCache
	if rdb != nil {
		compareCache = backend.NewCompareCache(rdb, cfg.Storage.Prefix, cfg.Cache.CompareTTL(), log)
	}

	ranker := rankstores.NewRanker(rankstores.LoadConfig().KnownBrands)
	pipeline := filterresults.NewPipeline(ranker)
	normalizer := normalizeprices.NewHandler(normalizeprices.LoadConfig(), log)
	searchCfg := incrementalload.ConfigFrom(cfg.Search)

	var searcher incrementalload.HitSearcher = client
	if es != nil {
		searcher = backend.NewElasticTypeahead(es, cfg.Backend.TypeaheadIndex, obs, log)
	}

	// Stateless routes get a fresh image memory per request; sessions keep
	// theirs for the session lifetime.
	listing := incrementalload.SourceFunc[models.NormalizedProduct](
		func(ctx context.Context, req incrementalload.PageRequest) (incrementalload.Page[models.NormalizedProduct], error) {
			return incrementalload.NewProductSource(client, client, normalizer, nil, log).FetchPage(ctx, req)
		})
	typeahead := incrementalload.SourceFunc[models.SearchHit](
		func(ctx context.Context, req incrementalload.PageRequest) (incrementalload.Page[models.SearchHit], error) {
			return incrementalload.NewHitSource(searcher, nil).FetchPage(ctx, req)
		})

	sessions := incrementalload.NewSessions(func() *incrementalload.Controller[models.NormalizedProduct] {
		src := incrementalload.NewProductSource(client, client, normalizer, resolveimage.NewMemory(nil), log)
		return incrementalload.NewProductController(searchCfg, src, pipeline, log)
	}, cfg.Server.SessionIdle())

	checks := []httpapi.ReadinessCheck{{Name: "storage", Check: store.Ping}}
	if rdb != nil {
		checks = append(checks, httpapi.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	server := httpapi.New(cfg.Server, httpapi.Deps{
		Search:             searchCfg,
		Listing:            listing,
		Typeahead:          typeahead,
		Pipeline:           pipeline,
		Compare:            compareproduct.NewHandler(compareproduct.ConfigFrom(cfg.Search), client, compareCache, normalizer, pipeline, log),
		Providers:          client,
		ProviderNormalizer: normalizeproviders.NewHandler(log),
		Favorites:          favorites,
		Sessions:           sessions,
		Checks:             checks,
	}, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// --- Idle session sweep ---
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					zapLog.Debug("idle sessions closed", zap.Int("count", n))
				}
			case <-sweepDone:
				return
			}
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, stopping server...")
	case err := <-serverErr:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	close(sweepDone)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeoutMs))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}
	sessions.CloseAll()

	zapLog.Info("pricelens stopped gracefully")
}
