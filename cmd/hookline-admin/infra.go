package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/bootstrap"
)

type connectInfraOptions struct {
	Ctx       context.Context
	Logger    *slog.Logger
	Config    *config.AppConfig
	WantDB    bool
	WantRedis bool
}

var errRedisNotConfigured = errors.New("redis not configured")

// connectInfraWithOptions lets each command choose which dependencies are created.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfraWithOptions(opts *connectInfraOptions) (*sql.DB, redis.UniversalClient, error) {
	var (
		db          *sql.DB
		err         error
		redisClient redis.UniversalClient
	)

	if opts.WantDB {
		db, err = bootstrap.ConnectDB(opts.Ctx, bootstrap.DatabaseConfig{DBConfig: opts.Config.Postgres, Logger: opts.Logger})
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}

	if !opts.WantRedis {
		return db, nil, nil
	}
	redisClient, err = maybeConnectRedis(opts.Ctx, opts.Logger, &opts.Config.Redis)
	if errors.Is(err, errRedisNotConfigured) {
		opts.Logger.Info("no redis configuration detected; skipping redis connection")
		return db, nil, nil
	}
	if err != nil {
		if db != nil {
			if closeErr := db.Close(); closeErr != nil {
				err = errors.Join(err, fmt.Errorf("close db: %w", closeErr))
			}
		}
		return nil, nil, err
	}
	return db, redisClient, nil
}

// maybeConnectRedis returns a connected client when configuration is present.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func maybeConnectRedis(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		return nil, errRedisNotConfigured
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil || cfg.Disabled {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}

// adminServices holds the wired service container and the connections behind it.
type adminServices struct {
	bootstrap.ServiceContainer
	db    *sql.DB
	redis redis.UniversalClient
}

func (a *adminServices) Close() error {
	return closeInfra(a.db, a.redis)
}

// openServices wires the same services the daemon runs. OIDC is skipped
// because the admin tool never serves cron endpoints.
func openServices(cmdCtx *commandContext) (*adminServices, error) {
	cfg := cmdCtx.Config
	cfg.Cron.OIDCIssuer = ""
	cfg.Cron.OIDCAudience = ""

	db, redisClient, err := connectInfraWithOptions(&connectInfraOptions{
		Ctx:       cmdCtx.Ctx,
		Logger:    cmdCtx.Logger,
		Config:    &cfg,
		WantDB:    true,
		WantRedis: true,
	})
	if err != nil {
		return nil, err
	}

	svcs, err := bootstrap.NewServices(cmdCtx.Ctx, &bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init services: %w", err), closeInfra(db, redisClient))
	}
	return &adminServices{ServiceContainer: svcs, db: db, redis: redisClient}, nil
}
