package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Raj-venom/scrap-dai-client/internal/api"
	"github.com/Raj-venom/scrap-dai-client/internal/catalog"
	"github.com/Raj-venom/scrap-dai-client/internal/config"
	"github.com/Raj-venom/scrap-dai-client/internal/geo"
	"github.com/Raj-venom/scrap-dai-client/internal/media"
	"github.com/Raj-venom/scrap-dai-client/internal/securestore"
	"github.com/Raj-venom/scrap-dai-client/internal/session"
)

// app holds the wired services for one command run.
type app struct {
	store   securestore.Store
	redis   *redis.Client
	session *session.Manager
	client  *api.Client
}

func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func openStore(c *config.Config) (securestore.Store, *redis.Client, error) {
	switch c.Session.Store {
	case config.StoreMemory:
		return securestore.NewMemory(), nil, nil
	case config.StoreFile:
		if c.Session.Passphrase == "" {
			return nil, nil, fmt.Errorf("%w: set SCRAPDAI_SESSION_PASSPHRASE", securestore.ErrMissingPassphrase)
		}
		f, err := securestore.OpenFile(c.Session.FilePath, c.Session.Passphrase)
		if err != nil {
			return nil, nil, err
		}
		return f, nil, nil
	case config.StoreRedis:
		r, err := securestore.NewRedis(securestore.RedisOptions{
			Addr:     c.Redis.Addr(),
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Session.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r.Client(), nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", c.Session.Store)
	}
}

func newApp() (*app, error) {
	store, rdb, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	sm := session.NewManager(store, cfg.API.BaseURL,
		session.WithRefreshTimeout(cfg.Session.RefreshTimeout),
		session.WithLogger(logger),
	)
	client := api.NewClient(cfg.API.BaseURL, sm,
		api.WithTimeout(cfg.API.Timeout),
		api.WithUserAgent(cfg.API.UserAgent),
		api.WithMediaOptions(media.Options{
			MaxDimension: cfg.Media.MaxDimension,
			JPEGQuality:  cfg.Media.JPEGQuality,
		}),
		api.WithLogger(logger),
	)
	return &app{store: store, redis: rdb, session: sm, client: client}, nil
}

// catalogService returns a catalog reader, cached in Redis when configured.
func (a *app) catalogService() (*catalog.Service, error) {
	if cfg.Catalog.Cache != config.StoreRedis {
		return catalog.NewService(a.client.Catalog, nil, logger), nil
	}

	rdb := a.redis
	if rdb == nil {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redis = rdb
	}
	return catalog.NewService(a.client.Catalog, catalog.NewCache(rdb, cfg.Catalog.CacheTTL), logger), nil
}

func geoOptions() []geo.Option {
	return []geo.Option{
		geo.WithUserAgent(cfg.API.UserAgent),
		geo.WithRateLimit(cfg.Geo.RequestsPerSecond, 1),
	}
}

// requireRole fails unless the stored session has role.
func (a *app) requireRole(ctx context.Context, role session.Role) error {
	got, err := a.session.Role(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return &api.Error{Kind: api.KindAuthExpired, Message: "not logged in"}
	}
	if err != nil {
		return err
	}
	if got != role {
		return fmt.Errorf("this command needs a %s session, logged in as %s", role, got)
	}
	return nil
}
