// Package app wires the configured store, cache and engine together for the
// server and the CLI.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/castlemilk/pfinance/analytics/internal/cache"
	"github.com/castlemilk/pfinance/analytics/internal/config"
	"github.com/castlemilk/pfinance/analytics/internal/engine"
	"github.com/castlemilk/pfinance/analytics/internal/logging"
	"github.com/castlemilk/pfinance/analytics/internal/store"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// App holds the long-lived dependencies. Close releases them.
type App struct {
	Config config.Config
	Logger *logrus.Logger
	Store  store.Store
	Cache  cache.Cache
	Engine *engine.Engine

	closers []func() error
}

// New opens the store and cache selected by cfg and builds the engine. A nil
// logger discards output.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &App{Config: cfg, Logger: logger}

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = st

	c, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Cache = c

	a.Engine = engine.New(st, EngineOptions(cfg), logger)
	a.Engine.SetCache(c)
	return a, nil
}

// EngineOptions maps the configuration onto engine options.
func EngineOptions(cfg config.Config) engine.Options {
	opts := engine.DefaultOptions()
	opts.Dispatcher = cfg.Forecast.Dispatcher()
	opts.Series = cfg.Forecast.Series()
	opts.DefaultPeriods = cfg.Forecast.DefaultPeriods
	opts.MaxPeriods = cfg.Forecast.MaxPeriods
	opts.Anomaly = cfg.Anomaly
	opts.Recurring = cfg.Recurring
	opts.Goals = cfg.Goals
	return opts
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	sc := a.Config.Store
	switch sc.Driver {
	case config.StoreMemory:
		a.Logger.Info("using in-memory store")
		return store.NewMemoryStore(), nil

	case config.StoreSQLite, config.StorePostgres:
		st, err := store.OpenSQLStore(sc.Driver, sc.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		a.Logger.WithField("driver", sc.Driver).Info("using SQL store")
		return st, nil

	case config.StoreFirestore:
		var opts []option.ClientOption
		if sc.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(sc.CredentialsFile))
		}
		client, err := firestore.NewClient(ctx, sc.ProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.Logger.WithField("project_id", sc.ProjectID).Info("using Firestore store")
		return store.NewFirestoreStore(client), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

func (a *App) openCache(ctx context.Context) (cache.Cache, error) {
	cc := a.Config.Cache
	switch cc.Driver {
	case config.CacheNone:
		return cache.Nop{}, nil

	case config.CacheMemory:
		mc := cache.NewMemoryCache(cc.TTL.Duration)
		a.closers = append(a.closers, func() error {
			mc.Stop()
			return nil
		})
		return mc, nil

	case config.CacheGCS:
		client, err := cache.NewGCSClient(ctx, a.Config.Store.CredentialsFile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.Logger.WithField("bucket", cc.Bucket).Info("caching forecasts in Cloud Storage")
		return cache.NewGCSCache(client.Bucket(cc.Bucket), cc.Prefix, cc.TTL.Duration), nil

	default:
		return nil, fmt.Errorf("unknown cache driver %q", cc.Driver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.WithError(err).Warn("failed to close resource")
		}
	}
	a.closers = nil
}
