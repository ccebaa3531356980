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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/corpus"
	"github.com/poiesic/obsim/storage"
)

// Config holds configuration for an import run.
type Config struct {
	// BatchSize is the number of breakdowns written per store call
	BatchSize int

	// ReportInterval is how often to report progress (number of breakdowns)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each batch write
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// DefaultTenant is assigned to rows without a tenant id
	DefaultTenant int64

	// Force re-imports sources whose fingerprint has not changed
	Force bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Result describes one import run.
type Result struct {
	Source      string
	RunID       string
	Unchanged   bool
	Rows        int
	Breakdowns  int
	Invalid     int
	Allocations int
	Elapsed     time.Duration
}

// Importer writes datasets into a corpus store.
type Importer struct {
	store    storage.CorpusStore
	imports  storage.ImportRepository
	config   *Config
	progress io.Writer
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithConfig replaces the default configuration. Zero fields take defaults.
func WithConfig(config *Config) Option {
	return func(i *Importer) error {
		if config == nil {
			return nil
		}
		c := *config
		d := DefaultConfig()
		if c.BatchSize < 1 {
			c.BatchSize = d.BatchSize
		}
		if c.ReportInterval < 1 {
			c.ReportInterval = d.ReportInterval
		}
		if c.MaxRetries < 1 {
			c.MaxRetries = d.MaxRetries
		}
		if c.RetryDelay < 0 {
			c.RetryDelay = 0
		}
		i.config = &c
		return nil
	}
}

// WithProgress sets where progress lines are written.
// Default discards them.
func WithProgress(w io.Writer) Option {
	return func(i *Importer) error {
		i.progress = w
		return nil
	}
}

// WithPoolSize sets how many batches are written concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(i *Importer) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if i.pool != nil {
			i.pool.Release()
		}
		i.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// NewImporter creates an importer. Call Release when done.
func NewImporter(store storage.CorpusStore, imports storage.ImportRepository, opts ...Option) (*Importer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if imports == nil {
		return nil, ErrImportRepositoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	i := &Importer{
		store:   store,
		imports: imports,
		config:  DefaultConfig(),
		pool:    pool,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(i); optErr != nil {
			i.Release()
			return nil, optErr
		}
	}
	return i, nil
}

// ImportFile loads a dataset file and imports it under its path.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	ds, err := LoadDataset(path)
	if err != nil {
		return nil, err
	}
	return i.Import(ctx, path, ds, ds.Fingerprint())
}

// Import writes ds under the source name. If the last import of source had
// the same fingerprint and Force is off, nothing is written and the result
// is marked Unchanged. The import record is only saved when every batch
// was written.
func (i *Importer) Import(ctx context.Context, source string, ds *Dataset, fingerprint core.ID) (*Result, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset is nil", ErrInvalidDataset)
	}

	result := &Result{Source: source, Rows: len(ds.Rows)}

	if !i.config.Force {
		last, err := i.imports.LoadImport(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("failed to load import record: %w", err)
		}
		if last != nil && last.Fingerprint == fingerprint {
			i.logger.Info("source unchanged, skipping import", "source", source, "runID", last.RunID)
			result.RunID = last.RunID
			result.Unchanged = true
			result.Breakdowns = last.Breakdowns
			return result, nil
		}
	}

	result.RunID = uuid.NewString()
	start := time.Now()

	rows := ds.Rows
	if i.config.DefaultTenant != 0 {
		rows = make([]core.FlatOperationRow, len(ds.Rows))
		for n, row := range ds.Rows {
			if row.TenantID == 0 {
				row.TenantID = i.config.DefaultTenant
			}
			rows[n] = row
		}
	}

	var valid []core.Breakdown
	for _, b := range corpus.GroupByBreakdown(rows) {
		if err := core.ValidateBreakdown(&b); err != nil {
			i.logger.Warn("skipping invalid breakdown", "layoutID", b.LayoutID, "layoutCode", b.LayoutCode, "err", err)
			result.Invalid++
			continue
		}
		valid = append(valid, b)
	}

	progress := NewProgress(i.progress, len(valid)+result.Invalid, i.config.ReportInterval)
	progress.Start()
	progress.Failed(result.Invalid)

	if err := i.writeBreakdowns(ctx, valid, progress); err != nil {
		progress.Finish()
		return nil, err
	}
	result.Breakdowns = len(valid)

	if err := i.writeAllocations(ctx, ds.Allocations); err != nil {
		progress.Finish()
		return nil, err
	}
	result.Allocations = len(ds.Allocations)
	progress.Finish()

	record := &core.ImportRecord{
		Source:      source,
		RunID:       result.RunID,
		Fingerprint: fingerprint,
		Breakdowns:  result.Breakdowns,
		Rows:        result.Rows,
	}
	if err := i.imports.SaveImport(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save import record: %w", err)
	}

	result.Elapsed = time.Since(start)
	i.logger.Info("import complete",
		"source", source,
		"runID", result.RunID,
		"breakdowns", result.Breakdowns,
		"invalid", result.Invalid,
		"allocations", result.Allocations,
		"elapsed", result.Elapsed)
	return result, nil
}

// writeBreakdowns submits one pool task per batch and waits for all of them.
func (i *Importer) writeBreakdowns(ctx context.Context, breakdowns []core.Breakdown, progress *Progress) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for start := 0; start < len(breakdowns); start += i.config.BatchSize {
		end := min(start+i.config.BatchSize, len(breakdowns))
		batch := breakdowns[start:end]

		wg.Add(1)
		err := i.pool.Submit(func() {
			defer wg.Done()
			err := storage.RetryWithBackoff(ctx, func() error {
				return i.store.PutBreakdowns(ctx, batch...)
			}, i.config.MaxRetries, i.config.RetryDelay)
			if err != nil {
				i.logger.Error("failed to write batch", "size", len(batch), "err", err)
				progress.Failed(len(batch))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			progress.Written(len(batch))
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("failed to submit batch: %w", err)
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("failed to write %d batch(es): %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (i *Importer) writeAllocations(ctx context.Context, allocations []core.AllocationRecord) error {
	for n := range allocations {
		if err := core.ValidateAllocation(&allocations[n]); err != nil {
			return err
		}
	}
	for start := 0; start < len(allocations); start += i.config.BatchSize {
		end := min(start+i.config.BatchSize, len(allocations))
		batch := allocations[start:end]
		err := storage.RetryWithBackoff(ctx, func() error {
			return i.store.PutAllocations(ctx, batch...)
		}, i.config.MaxRetries, i.config.RetryDelay)
		if err != nil {
			return fmt.Errorf("failed to write allocations: %w", err)
		}
	}
	return nil
}

// Release releases the worker pool.
// The importer should not be used after calling Release.
func (i *Importer) Release() {
	if i.pool != nil {
		i.pool.Release()
	}
}
