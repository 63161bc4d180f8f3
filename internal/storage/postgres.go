package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lead-outreach-driver/internal/campaign"
	"lead-outreach-driver/internal/config"
)

// Store archives reconciled campaign reports. Optional: the driver runs
// fully in-memory when no archive is configured.
type Store struct {
	pool     *pgxpool.Pool
	workflow string
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool, workflow: cfg.Orchestrator.Workflow}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveReport writes one report header plus its ordered rows in a single
// transaction.
func (s *Store) SaveReport(ctx context.Context, rep campaign.Report) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var reportID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO campaign_reports (workflow, total, approved, skipped, errors, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id
	`, s.workflow, rep.Summary.Total, rep.Summary.Approved, rep.Summary.Skipped, rep.Summary.Errors).Scan(&reportID)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	for i, row := range rep.Rows {
		_, err = tx.Exec(ctx, `
			INSERT INTO campaign_report_rows (report_id, position, name, email, website, approved, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, reportID, i, row.Name, row.Email, row.Website, row.Approved, row.Status)
		if err != nil {
			return fmt.Errorf("insert report row %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}
