package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-admins/internal/app"
	"github.com/odyssey-erp/odyssey-admins/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admins/internal/platform/db"
)

// runtime holds the connections shared by the subcommands.
type runtime struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

// openRuntime loads configuration and connects to Postgres and, when
// withRedis is set, Redis.
func openRuntime(ctx context.Context, withRedis bool) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: app.NewLogger(cfg)}

	rt.pool, err = db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	if withRedis {
		rt.redis, err = cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			rt.pool.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) asynqOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: rt.cfg.RedisAddr, Password: rt.cfg.RedisPassword, DB: rt.cfg.RedisDB}
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.redis != nil {
		errs = append(errs, rt.redis.Close())
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
	return errors.Join(errs...)
}
