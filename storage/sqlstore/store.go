// Package sqlstore reads the operation breakdown corpus and line allocations
// from a relational database through database/sql. PostgreSQL (lib/pq) is the
// production driver; any driver accepting $n placeholders works.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/corpus"
	"github.com/poiesic/obsim/storage"
)

const (
	// DriverPostgres is the driver name registered by lib/pq.
	DriverPostgres = "postgres"

	defaultMaxAttempts    = 3
	defaultRetryDelay     = 100 * time.Millisecond
	defaultBreakerTrip    = 5
	defaultBreakerTimeout = 30 * time.Second
)

const breakdownColumns = `
	layout.layout_id,
	layout.layout_code,
	styletype.style_type,
	layout.tenant_id,
	layout_operation.operation_name,
	machine.machine_name,
	layout_operation.operation_seq
FROM layout
JOIN styletype ON layout.styletype_id = styletype.styletype_id
JOIN layout_operation ON layout.layout_id = layout_operation.layout_id
JOIN machine ON layout_operation.machine_id = machine.machine_id`

const queryBreakdowns = `SELECT` + breakdownColumns + `
WHERE layout.tenant_id = $1 AND styletype.style_type = $2
ORDER BY layout.layout_id, layout_operation.operation_seq`

const queryBreakdownByCode = `SELECT` + breakdownColumns + `
WHERE layout.tenant_id = $1 AND layout.layout_code = $2
ORDER BY layout_operation.operation_seq`

const queryStyleTypes = `SELECT DISTINCT style_type FROM styletype
WHERE tenant_id = $1
ORDER BY style_type`

const queryAllocations = `SELECT layout_id, allocation_id, allocation_name, line_id, hourly_target, run_efficiency
FROM allocation
WHERE layout_id IN (%s)
ORDER BY layout_id, allocation_id`

// Store is a read-only corpus and allocation source backed by a relational
// database holding the line balancing schema.
type Store struct {
	db          *sql.DB
	ownsDB      bool
	logger      *slog.Logger
	maxAttempts int
	retryDelay  time.Duration
	tripAfter   uint32
	openTimeout time.Duration
	breaker     *gobreaker.CircuitBreaker[[]core.AllocationRecord]
}

var (
	_ storage.CorpusSource     = (*Store)(nil)
	_ storage.AllocationSource = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRetry sets how often a failed fetch is attempted and the base delay
// of the exponential backoff between attempts.
// Default is 3 attempts starting at 100ms.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *Store) error {
		if maxAttempts <= 0 {
			return storage.ErrInvalidMaxAttempts
		}
		if baseDelay < 0 {
			baseDelay = 0
		}
		s.maxAttempts = maxAttempts
		s.retryDelay = baseDelay
		return nil
	}
}

// WithBreaker configures the allocation circuit breaker. The breaker opens
// after consecutiveFailures failed lookups and probes again after timeout.
// Default is 5 failures and 30s.
func WithBreaker(consecutiveFailures uint32, timeout time.Duration) Option {
	return func(s *Store) error {
		if consecutiveFailures == 0 {
			consecutiveFailures = 1
		}
		s.tripAfter = consecutiveFailures
		s.openTimeout = timeout
		return nil
	}
}

// Open connects to a database and verifies the connection.
// The returned Store owns the handle and closes it on Close.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if driver == "" {
		driver = DriverPostgres
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	s, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// New wraps an existing handle. The caller keeps ownership of db.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, storage.ErrStorageClosed
	}

	s := &Store{
		db:          db,
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		tripAfter:   defaultBreakerTrip,
		openTimeout: defaultBreakerTimeout,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "sqlstore")

	s.breaker = gobreaker.NewCircuitBreaker[[]core.AllocationRecord](gobreaker.Settings{
		Name:        "allocations",
		MaxRequests: 1,
		Timeout:     s.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return s, nil
}

// Close closes the database handle if the Store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Breakdowns returns a tenant's breakdowns of one style type, grouped from
// the joined operation rows in layout id order.
func (s *Store) Breakdowns(ctx context.Context, tenantID int64, styleType string) ([]core.Breakdown, error) {
	rows, err := s.fetchRows(ctx, queryBreakdowns, tenantID, strings.TrimSpace(styleType))
	if err != nil {
		return nil, err
	}
	return corpus.GroupByBreakdown(rows), nil
}

// BreakdownByLayoutCode returns one breakdown by its layout code.
func (s *Store) BreakdownByLayoutCode(ctx context.Context, tenantID int64, layoutCode string) (*core.Breakdown, error) {
	rows, err := s.fetchRows(ctx, queryBreakdownByCode, tenantID, layoutCode)
	if err != nil {
		return nil, err
	}
	grouped := corpus.GroupByBreakdown(rows)
	if len(grouped) == 0 {
		return nil, storage.ErrNotFound
	}
	return &grouped[0], nil
}

// StyleTypes returns the sorted distinct style types of a tenant.
func (s *Store) StyleTypes(ctx context.Context, tenantID int64) ([]string, error) {
	styles := []string{}
	err := s.retry(ctx, func() error {
		styles = styles[:0]
		rows, err := s.db.QueryContext(ctx, queryStyleTypes, tenantID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var style string
			if err := rows.Scan(&style); err != nil {
				return storage.Permanent(err)
			}
			styles = append(styles, style)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch style types: %w", err)
	}
	return styles, nil
}

// Allocations returns the allocations of the given layouts. Lookups run
// behind a circuit breaker; while it is open the call fails fast with
// storage.ErrSourceUnavailable.
func (s *Store) Allocations(ctx context.Context, layoutIDs []int64) ([]core.AllocationRecord, error) {
	if len(layoutIDs) == 0 {
		return []core.AllocationRecord{}, nil
	}

	result, err := s.breaker.Execute(func() ([]core.AllocationRecord, error) {
		return s.fetchAllocations(ctx, layoutIDs)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", storage.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("failed to fetch allocations: %w", err)
	}
	return result, nil
}

func (s *Store) fetchAllocations(ctx context.Context, layoutIDs []int64) ([]core.AllocationRecord, error) {
	placeholders := make([]string, len(layoutIDs))
	args := make([]any, len(layoutIDs))
	for i, id := range layoutIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(queryAllocations, strings.Join(placeholders, ", "))

	var result []core.AllocationRecord
	err := s.retry(ctx, func() error {
		result = []core.AllocationRecord{}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				a      core.AllocationRecord
				name   sql.NullString
				line   sql.NullInt64
				target sql.NullFloat64
				eff    sql.NullFloat64
			)
			if err := rows.Scan(&a.LayoutID, &a.AllocationID, &name, &line, &target, &eff); err != nil {
				return storage.Permanent(err)
			}
			a.AllocationName = name.String
			a.HourlyTarget = target.Float64
			if line.Valid {
				a.LineID = &line.Int64
			}
			if eff.Valid {
				a.RunEfficiency = &eff.Float64
			}
			result = append(result, a)
		}
		return rows.Err()
	})
	return result, err
}

func (s *Store) fetchRows(ctx context.Context, query string, args ...any) ([]core.FlatOperationRow, error) {
	var result []core.FlatOperationRow
	err := s.retry(ctx, func() error {
		result = result[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				r       core.FlatOperationRow
				code    sql.NullString
				machine sql.NullString
			)
			if err := rows.Scan(&r.LayoutID, &code, &r.StyleType, &r.TenantID, &r.OperationName, &machine, &r.SequenceNumber); err != nil {
				return storage.Permanent(err)
			}
			r.LayoutCode = code.String
			r.MachineName = machine.String
			result = append(result, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch operations: %w", err)
	}
	return result, nil
}

// retry runs op with exponential backoff. Context errors end the loop.
func (s *Store) retry(ctx context.Context, op func() error) error {
	return storage.RetryWithBackoff(ctx, func() error {
		err := op()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return storage.Permanent(err)
		}
		if err != nil {
			s.logger.Debug("query failed", "error", err)
		}
		return err
	}, s.maxAttempts, s.retryDelay)
}
