// Package bootstrap ouvre l'infrastructure choisie par la config et
// assemble le DocumentStore distant (partagé par livefeed et feedctl).
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/jupiterclapton/cenackle/livefeed/config"
	"github.com/jupiterclapton/cenackle/livefeed/internal/adapters/secondary/docstore"
	"github.com/jupiterclapton/cenackle/livefeed/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/cenackle/livefeed/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
	"github.com/jupiterclapton/cenackle/livefeed/migrations"
)

// Remote regroupe le store distant et les connexions à fermer.
type Remote struct {
	Store *docstore.Store

	closers []func()
}

// Close ferme les connexions dans l'ordre inverse d'ouverture.
func (r *Remote) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func (r *Remote) onClose(fn func()) {
	r.closers = append(r.closers, fn)
}

// OpenRemote se connecte aux backends configurés. En cas d'erreur tout ce qui
// a déjà été ouvert est refermé.
func OpenRemote(ctx context.Context, cfg *config.Config) (_ *Remote, err error) {
	remote := &Remote{}
	defer func() {
		if err != nil {
			remote.Close()
		}
	}()

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = openRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		remote.onClose(func() { _ = rdb.Close() })
	}

	var repo ports.PostRepository
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		remote.onClose(pool.Close)
		repo = repository.NewPostgresRepo(pool)
	case config.BackendRedis:
		repo = repository.NewRedisPostRepo(rdb)
	case config.BackendMemory:
		repo = repository.NewMemoryRepo()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	var notifier ports.ChangeNotifier
	switch cfg.NotifierBackend {
	case config.BackendNats:
		nc, err := nats.Connect(cfg.NatsUrl, nats.Name(cfg.ServiceName))
		if err != nil {
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		remote.onClose(nc.Close)
		slog.Info("✅ Connected to NATS")

		notifier, err = eventbroker.NewNatsNotifier(ctx, nc)
		if err != nil {
			return nil, err
		}
	case config.BackendRedis:
		notifier = eventbroker.NewRedisNotifier(rdb, eventbroker.DefaultRedisChannel)
	case config.BackendMemory:
		notifier = eventbroker.NewMemoryNotifier()
	default:
		return nil, fmt.Errorf("unknown notifier backend %q", cfg.NotifierBackend)
	}

	remote.Store = docstore.New(repo, notifier, docstore.Options{
		WriteTimeout:   cfg.RemoteTimeout,
		ResyncInterval: cfg.ResyncInterval,
	})

	slog.Info("✅ Remote document store ready", "store", cfg.StoreBackend, "notifier", cfg.NotifierBackend)
	return remote, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DBUrl == "" {
		return nil, errors.New("DB_URL is empty")
	}
	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DB config: %w", err)
	}

	// Instrumentation des requêtes SQL
	dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	slog.Info("✅ Connected to PostgreSQL")

	version, err := migrations.Up(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("✅ Database schema up to date", "version", version)

	return pool, nil
}

func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis instrumentation: %w", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("unable to connect to Redis: %w", err)
	}
	slog.Info("✅ Connected to Redis")
	return rdb, nil
}
