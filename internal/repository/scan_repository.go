package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

// ScanRepository stores scan-result snapshots. Snapshots are append-only; a
// re-scan inserts a new row and existing enrollments keep pointing at the
// snapshot current when they were created.
type ScanRepository interface {
	Create(ctx context.Context, scan *domain.ScanResults) error
	GetByID(ctx context.Context, id string) (*domain.ScanResults, error)
	LatestForLead(ctx context.Context, leadID string) (*domain.ScanResults, error)
}

type scanRepository struct {
	pool *pgxpool.Pool
}

// NewScanRepository instantiates repository.
func NewScanRepository(pool *pgxpool.Pool) ScanRepository {
	return &scanRepository{pool: pool}
}

func (r *scanRepository) Create(ctx context.Context, scan *domain.ScanResults) error {
	const query = `
        INSERT INTO scan_results (id, lead_id, score, critical_issues, serious_issues,
            moderate_issues, minor_issues, platform, top_issues, scanned_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		scan.ID,
		scan.LeadID,
		scan.Score,
		scan.CriticalIssues,
		scan.SeriousIssues,
		scan.ModerateIssues,
		scan.MinorIssues,
		scan.Platform,
		scan.TopIssues,
		scan.ScannedAt,
	).Scan(&scan.CreatedAt)
}

func (r *scanRepository) GetByID(ctx context.Context, id string) (*domain.ScanResults, error) {
	const query = `
        SELECT id, lead_id, score, critical_issues, serious_issues, moderate_issues,
               minor_issues, platform, top_issues, scanned_at, created_at
        FROM scan_results WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// LatestForLead returns the newest snapshot, or (nil, nil) when the lead has
// never been scanned.
func (r *scanRepository) LatestForLead(ctx context.Context, leadID string) (*domain.ScanResults, error) {
	const query = `
        SELECT id, lead_id, score, critical_issues, serious_issues, moderate_issues,
               minor_issues, platform, top_issues, scanned_at, created_at
        FROM scan_results WHERE lead_id=$1
        ORDER BY scanned_at DESC LIMIT 1`
	scan, err := r.fetchSingle(ctx, query, leadID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return scan, err
}

func (r *scanRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ScanResults, error) {
	var scan domain.ScanResults
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&scan.ID,
		&scan.LeadID,
		&scan.Score,
		&scan.CriticalIssues,
		&scan.SeriousIssues,
		&scan.ModerateIssues,
		&scan.MinorIssues,
		&scan.Platform,
		&scan.TopIssues,
		&scan.ScannedAt,
		&scan.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &scan, nil
}
