package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/poiesic/obsim/core"
)

// schema is the subset of the line balancing schema the store reads.
// The statements are accepted by both PostgreSQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS styletype (
		styletype_id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		style_type TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS machine (
		machine_id BIGINT PRIMARY KEY,
		machine_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS layout (
		layout_id BIGINT PRIMARY KEY,
		layout_code TEXT,
		tenant_id BIGINT NOT NULL,
		styletype_id BIGINT NOT NULL REFERENCES styletype (styletype_id)
	)`,
	`CREATE TABLE IF NOT EXISTS layout_operation (
		layout_id BIGINT NOT NULL REFERENCES layout (layout_id),
		operation_name TEXT NOT NULL,
		machine_id BIGINT NOT NULL REFERENCES machine (machine_id),
		operation_seq INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS allocation (
		allocation_id BIGINT PRIMARY KEY,
		layout_id BIGINT NOT NULL,
		allocation_name TEXT,
		line_id BIGINT,
		hourly_target NUMERIC,
		run_efficiency NUMERIC
	)`,
	`CREATE INDEX IF NOT EXISTS idx_allocation_layout ON allocation (layout_id)`,
}

// CreateSchema creates the tables the store reads if they do not exist.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Seed writes breakdowns and allocations into an empty schema in one
// transaction. Style types and machines are assigned ids in first-seen order.
func Seed(ctx context.Context, db *sql.DB, breakdowns []core.Breakdown, allocations []core.AllocationRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	type styleKey struct {
		tenant int64
		style  string
	}
	styleIDs := make(map[styleKey]int64)
	machineIDs := make(map[string]int64)

	for i := range breakdowns {
		b := &breakdowns[i]
		sk := styleKey{tenant: b.TenantID, style: strings.TrimSpace(b.StyleType)}
		styleID, ok := styleIDs[sk]
		if !ok {
			styleID = int64(len(styleIDs) + 1)
			styleIDs[sk] = styleID
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO styletype (styletype_id, tenant_id, style_type) VALUES ($1, $2, $3)`,
				styleID, sk.tenant, sk.style); err != nil {
				return fmt.Errorf("failed to insert style type %q: %w", sk.style, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO layout (layout_id, layout_code, tenant_id, styletype_id) VALUES ($1, $2, $3, $4)`,
			b.LayoutID, b.LayoutCode, b.TenantID, styleID); err != nil {
			return fmt.Errorf("failed to insert layout %d: %w", b.LayoutID, err)
		}

		for _, op := range b.Operations {
			machineID, ok := machineIDs[op.MachineName]
			if !ok {
				machineID = int64(len(machineIDs) + 1)
				machineIDs[op.MachineName] = machineID
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO machine (machine_id, machine_name) VALUES ($1, $2)`,
					machineID, op.MachineName); err != nil {
					return fmt.Errorf("failed to insert machine %q: %w", op.MachineName, err)
				}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO layout_operation (layout_id, operation_name, machine_id, operation_seq) VALUES ($1, $2, $3, $4)`,
				b.LayoutID, op.OperationName, machineID, op.SequenceNumber); err != nil {
				return fmt.Errorf("failed to insert operation of layout %d: %w", b.LayoutID, err)
			}
		}
	}

	for i := range allocations {
		a := &allocations[i]
		if err := core.ValidateAllocation(a); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO allocation (allocation_id, layout_id, allocation_name, line_id, hourly_target, run_efficiency) VALUES ($1, $2, $3, $4, $5, $6)`,
			a.AllocationID, a.LayoutID, a.AllocationName, a.LineID, a.HourlyTarget, a.RunEfficiency); err != nil {
			return fmt.Errorf("failed to insert allocation %d: %w", a.AllocationID, err)
		}
	}

	return tx.Commit()
}
