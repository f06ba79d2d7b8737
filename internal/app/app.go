// Package app wires configuration to concrete backends for the server and CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/tender-scout/internal/ai"
	"github.com/david/tender-scout/internal/cache"
	"github.com/david/tender-scout/internal/config"
	"github.com/david/tender-scout/internal/db"
	"github.com/david/tender-scout/internal/ingest"
	"github.com/david/tender-scout/internal/models"
	"github.com/david/tender-scout/internal/predict"
)

// Deps holds everything built from a Config. Close releases the database pool
// and the SQLite file when they were opened.
type Deps struct {
	Config        config.Config
	Opportunities []models.Opportunity
	Client        *ai.Client
	CacheStore    cache.Store
	Daily         *cache.Daily
	Predictions   *predict.Registry

	pool    *pgxpool.Pool
	closers []io.Closer
}

// Pool connects to PostgreSQL on first use and applies migrations.
func (d *Deps) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if d.pool != nil {
		return d.pool, nil
	}
	pool, err := db.Connect(ctx, d.Config.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.ApplyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	d.pool = pool
	return pool, nil
}

func (d *Deps) Close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			log.Printf("[app] close: %v", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// PredictionConfig maps the configured timings onto the workflow.
func PredictionConfig(cfg config.Config) predict.Config {
	pc := predict.DefaultConfig()
	if cfg.Prediction.TickInterval > 0 {
		pc.TickInterval = cfg.Prediction.TickInterval
	}
	pc.Timeout = cfg.Prediction.Timeout
	return pc
}

// Build loads the tender collection and opens the cache backend.
func Build(ctx context.Context, cfg config.Config) (*Deps, error) {
	d := &Deps{
		Config: cfg,
		Client: ai.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Token, cfg.Upstream.Timeout),
	}

	opps, err := d.loadOpportunities(ctx)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Opportunities = opps

	store, err := d.openCacheStore(ctx)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.CacheStore = store
	d.Daily = cache.NewDaily(store, d.Client)
	d.Predictions = predict.NewRegistry(d.Client, PredictionConfig(cfg))
	return d, nil
}

func (d *Deps) loadOpportunities(ctx context.Context) ([]models.Opportunity, error) {
	switch d.Config.Opportunities.Source {
	case "postgres":
		pool, err := d.Pool(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := db.NewStore(pool).LoadOpportunities(ctx)
		if err != nil {
			return nil, err
		}
		opps, _ := ingest.Normalize(raw)
		return opps, nil
	default:
		opps, _, err := ingest.LoadFile(d.Config.Opportunities.Path)
		return opps, err
	}
}

func (d *Deps) openCacheStore(ctx context.Context) (cache.Store, error) {
	switch d.Config.Cache.Backend {
	case "sqlite":
		s, err := cache.NewSQLiteStore(ctx, d.Config.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, s)
		return s, nil
	case "postgres":
		pool, err := d.Pool(ctx)
		if err != nil {
			return nil, err
		}
		return db.NewKVStore(pool), nil
	default:
		return cache.NewMemoryStore(), nil
	}
}
