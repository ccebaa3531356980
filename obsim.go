// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package obsim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/poiesic/obsim/config"
	"github.com/poiesic/obsim/ingestion"
	"github.com/poiesic/obsim/ranking"
	"github.com/poiesic/obsim/search"
	"github.com/poiesic/obsim/storage"
	"github.com/poiesic/obsim/storage/badger"
	"github.com/poiesic/obsim/storage/sqlstore"
)

// ErrReadOnlyBackend is returned when importing into a backend that cannot
// be written.
var ErrReadOnlyBackend = errors.New("storage backend is read-only")

// Engine wires a corpus backend, a ranker and a searcher together.
type Engine struct {
	backend  *badger.Backend
	store    storage.CorpusStore
	imports  storage.ImportRepository
	sql      *sqlstore.Store
	corpus   storage.CorpusSource
	allocs   storage.AllocationSource
	ranker   *ranking.Ranker
	searcher *search.Searcher
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger  *slog.Logger
	monitor ranking.RankMonitor
}

// WithLogger sets the logger handed to every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMonitor observes every ranking pass.
func WithMonitor(monitor ranking.RankMonitor) EngineOption {
	return func(o *engineOptions) {
		o.monitor = monitor
	}
}

// Open builds an Engine from configuration. The badger backend is opened
// read-write; the sql backend is read-only.
func Open(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", config.ErrInvalidConfig)
	}
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{logger: options.logger}

	switch cfg.Storage.Backend {
	case config.BackendBadger:
		if err := e.openBadger(cfg.Storage); err != nil {
			return nil, err
		}
	case config.BackendSQL:
		if err := e.openSQL(ctx, cfg.Storage); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Storage.Backend)
	}

	ranker, err := ranking.NewRanker(
		ranking.WithPoolSize(cfg.Search.PoolSize),
		ranking.WithLogger(e.logger))
	if err != nil {
		e.Close()
		return nil, err
	}
	e.ranker = ranker

	searchOpts := []search.Option{
		search.WithLogger(e.logger),
		search.WithTimeout(cfg.Search.Timeout),
	}
	if options.monitor != nil {
		searchOpts = append(searchOpts, search.WithMonitor(options.monitor))
	}
	searcher, err := search.NewSearcher(e.corpus, e.allocs, ranker, searchOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.searcher = searcher

	return e, nil
}

func (e *Engine) openBadger(cfg config.StorageConfig) error {
	backend, err := badger.OpenBackend(cfg.BadgerPath, cfg.InMemory)
	if err != nil {
		return err
	}

	store, err := badger.NewCorpusRepository(backend)
	if err != nil {
		backend.Close()
		return err
	}

	e.backend = backend
	e.store = store
	e.imports = badger.NewImportRepository(backend)
	e.corpus = store
	e.allocs = store
	return nil
}

func (e *Engine) openSQL(ctx context.Context, cfg config.StorageConfig) error {
	store, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN,
		sqlstore.WithLogger(e.logger),
		sqlstore.WithRetry(cfg.MaxAttempts, cfg.RetryDelay),
		sqlstore.WithBreaker(cfg.BreakerFailures, cfg.BreakerTimeout))
	if err != nil {
		return err
	}

	e.sql = store
	e.corpus = store
	e.allocs = store
	return nil
}

// Searcher returns the engine's searcher.
func (e *Engine) Searcher() *search.Searcher {
	return e.searcher
}

// Store returns the writable corpus store, or nil for the sql backend.
func (e *Engine) Store() storage.CorpusStore {
	return e.store
}

// NewImporter creates an importer writing into the engine's store.
// Returns ErrReadOnlyBackend for the sql backend.
func (e *Engine) NewImporter(opts ...ingestion.Option) (*ingestion.Importer, error) {
	if e.store == nil {
		return nil, ErrReadOnlyBackend
	}
	opts = append([]ingestion.Option{ingestion.WithLogger(e.logger)}, opts...)
	return ingestion.NewImporter(e.store, e.imports, opts...)
}

// Close releases the ranker and closes the storage backend.
func (e *Engine) Close() error {
	if e.ranker != nil {
		e.ranker.Release()
	}

	if e.sql != nil {
		if err := e.sql.Close(); err != nil {
			e.logger.Error("error closing sql store", "err", err)
			return err
		}
	}

	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("error closing corpus repository", "err", err)
			return err
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}
