package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

// EnrollmentRepository encapsulates enrollment persistence.
type EnrollmentRepository interface {
	// CreateActiveWithSchedule inserts the enrollment and its full schedule
	// in one transaction, only if the lead has no ACTIVE enrollment in any of
	// blockedBy. The transaction locks the lead row before the existence
	// check: a plain NOT EXISTS insert is atomic per statement but not
	// against a concurrent insert of a *different* conflicting type, whose
	// uncommitted row the snapshot would miss. With the lock, concurrent
	// triggers for one lead serialize and the loser sees the winner's row.
	// The partial unique index still backstops the (lead, type) pair itself.
	// Either the enrollment and every scheduled row commit together or
	// nothing does. Returns false when the insert was blocked; the error is
	// pgx.ErrNoRows when the lead does not exist.
	CreateActiveWithSchedule(ctx context.Context, enrollment *domain.Enrollment, blockedBy []domain.SequenceType, schedule []domain.ScheduledEmail) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Enrollment, error)
	ListActiveTypes(ctx context.Context, leadID string) ([]domain.SequenceType, error)
	ListByLead(ctx context.Context, leadID string) ([]domain.Enrollment, error)
	MarkCompleted(ctx context.Context, id string) error
	CancelActive(ctx context.Context, leadID string, sequenceType domain.SequenceType) error
	CancelAllActive(ctx context.Context, leadID string) error
}

type enrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository instantiates repository.
func NewEnrollmentRepository(pool *pgxpool.Pool) EnrollmentRepository {
	return &enrollmentRepository{pool: pool}
}

func (r *enrollmentRepository) CreateActiveWithSchedule(ctx context.Context, enrollment *domain.Enrollment, blockedBy []domain.SequenceType, schedule []domain.ScheduledEmail) (bool, error) {
	blocked := make([]string, 0, len(blockedBy))
	for _, t := range blockedBy {
		blocked = append(blocked, string(t))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialize concurrent enrollments of this lead on its row lock before
	// looking for conflicting enrollments.
	var leadID string
	const lockQuery = `SELECT id FROM leads WHERE id=$1 FOR UPDATE`
	if err := tx.QueryRow(ctx, lockQuery, enrollment.LeadID).Scan(&leadID); err != nil {
		return false, err
	}

	const insertQuery = `
        INSERT INTO enrollments (id, lead_id, sequence_type, status, scan_id, enrolled_at)
        SELECT $1, $2, $3, 'ACTIVE', $4, $5
        WHERE NOT EXISTS (
            SELECT 1 FROM enrollments
            WHERE lead_id = $2 AND status = 'ACTIVE' AND sequence_type = ANY($6)
        )
        ON CONFLICT (lead_id, sequence_type) WHERE status = 'ACTIVE' DO NOTHING
        RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, insertQuery,
		enrollment.ID,
		enrollment.LeadID,
		enrollment.SequenceType,
		enrollment.ScanID,
		enrollment.EnrolledAt,
		blocked,
	).Scan(&enrollment.CreatedAt, &enrollment.UpdatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := insertSchedule(ctx, tx, schedule); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	enrollment.Status = domain.EnrollmentStatusActive
	return true, nil
}

// insertSchedule batch-inserts the planned rows inside the enrollment
// transaction. The enrollment id is fresh, so no conflict handling is needed;
// the (enrollment_id, step_number) unique constraint stays as a backstop.
func insertSchedule(ctx context.Context, tx pgx.Tx, schedule []domain.ScheduledEmail) error {
	if len(schedule) == 0 {
		return nil
	}

	ids := make([]string, len(schedule))
	enrollmentIDs := make([]string, len(schedule))
	leadIDs := make([]string, len(schedule))
	sequenceTypes := make([]string, len(schedule))
	stepNumbers := make([]int, len(schedule))
	dueAts := make([]time.Time, len(schedule))
	for i, email := range schedule {
		ids[i] = email.ID
		enrollmentIDs[i] = email.EnrollmentID
		leadIDs[i] = email.LeadID
		sequenceTypes[i] = string(email.SequenceType)
		stepNumbers[i] = email.StepNumber
		dueAts[i] = email.DueAt
	}

	// status defaults to PENDING in the schema.
	const query = `
        INSERT INTO scheduled_emails (id, enrollment_id, lead_id, sequence_type, step_number, due_at)
        SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::int[], $6::timestamptz[])`
	_, err := tx.Exec(ctx, query, ids, enrollmentIDs, leadIDs, sequenceTypes, stepNumbers, dueAts)
	return err
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	const query = `
        SELECT id, lead_id, sequence_type, status, scan_id, enrolled_at, completed_at, created_at, updated_at
        FROM enrollments WHERE id=$1`
	var e domain.Enrollment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.LeadID,
		&e.SequenceType,
		&e.Status,
		&e.ScanID,
		&e.EnrolledAt,
		&e.CompletedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepository) ListActiveTypes(ctx context.Context, leadID string) ([]domain.SequenceType, error) {
	const query = `SELECT sequence_type FROM enrollments WHERE lead_id=$1 AND status='ACTIVE'`
	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []domain.SequenceType
	for rows.Next() {
		var t domain.SequenceType
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *enrollmentRepository) ListByLead(ctx context.Context, leadID string) ([]domain.Enrollment, error) {
	const query = `
        SELECT id, lead_id, sequence_type, status, scan_id, enrolled_at, completed_at, created_at, updated_at
        FROM enrollments WHERE lead_id=$1 ORDER BY enrolled_at DESC`
	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Enrollment
	for rows.Next() {
		var e domain.Enrollment
		if err := rows.Scan(
			&e.ID,
			&e.LeadID,
			&e.SequenceType,
			&e.Status,
			&e.ScanID,
			&e.EnrolledAt,
			&e.CompletedAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *enrollmentRepository) MarkCompleted(ctx context.Context, id string) error {
	const query = `
        UPDATE enrollments SET status='COMPLETED', completed_at=NOW(), updated_at=NOW()
        WHERE id=$1 AND status='ACTIVE'`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *enrollmentRepository) CancelActive(ctx context.Context, leadID string, sequenceType domain.SequenceType) error {
	const query = `
        UPDATE enrollments SET status='CANCELLED', updated_at=NOW()
        WHERE lead_id=$1 AND sequence_type=$2 AND status='ACTIVE'`
	_, err := r.pool.Exec(ctx, query, leadID, sequenceType)
	return err
}

func (r *enrollmentRepository) CancelAllActive(ctx context.Context, leadID string) error {
	const query = `
        UPDATE enrollments SET status='CANCELLED', updated_at=NOW()
        WHERE lead_id=$1 AND status='ACTIVE'`
	_, err := r.pool.Exec(ctx, query, leadID)
	return err
}
