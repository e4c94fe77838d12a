package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

// LeadRepository encapsulates lead persistence.
type LeadRepository interface {
	Upsert(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	GetByEmail(ctx context.Context, email string) (*domain.Lead, error)
	MarkSuppressed(ctx context.Context, id string, reason domain.SuppressionReason) error
}

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository instantiates repository.
func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

// Upsert inserts a lead keyed by email, merging name/company/website on
// conflict so a popup capture followed by a scan does not lose fields.
func (r *leadRepository) Upsert(ctx context.Context, lead *domain.Lead) error {
	const query = `
        INSERT INTO leads (id, email, name, company, website_url, source)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (email) DO UPDATE SET
            name = COALESCE(EXCLUDED.name, leads.name),
            company = COALESCE(EXCLUDED.company, leads.company),
            website_url = CASE WHEN EXCLUDED.website_url <> '' THEN EXCLUDED.website_url ELSE leads.website_url END,
            updated_at = NOW()
        RETURNING id, source, suppressed, suppressed_reason, suppressed_at, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		lead.ID,
		lead.Email,
		lead.Name,
		lead.Company,
		lead.WebsiteURL,
		lead.Source,
	).Scan(
		&lead.ID,
		&lead.Source,
		&lead.Suppressed,
		&lead.SuppressedReason,
		&lead.SuppressedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	const query = `
        SELECT id, email, name, company, website_url, source,
               suppressed, suppressed_reason, suppressed_at, created_at, updated_at
        FROM leads WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *leadRepository) GetByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	const query = `
        SELECT id, email, name, company, website_url, source,
               suppressed, suppressed_reason, suppressed_at, created_at, updated_at
        FROM leads WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *leadRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Lead, error) {
	var lead domain.Lead
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&lead.ID,
		&lead.Email,
		&lead.Name,
		&lead.Company,
		&lead.WebsiteURL,
		&lead.Source,
		&lead.Suppressed,
		&lead.SuppressedReason,
		&lead.SuppressedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) MarkSuppressed(ctx context.Context, id string, reason domain.SuppressionReason) error {
	const query = `
        UPDATE leads SET suppressed=TRUE, suppressed_reason=$1, suppressed_at=NOW(), updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, reason, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
