package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

// ScheduledEmailRepository encapsulates scheduled-send persistence. The claim
// and cancel operations are the engine's synchronization primitives: both are
// conditional updates against the shared store, so they behave correctly with
// any number of worker instances and no process-local locking.
type ScheduledEmailRepository interface {
	// Rows are created only through EnrollmentRepository.CreateActiveWithSchedule,
	// inside the enrollment transaction.
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]domain.ScheduledEmail, error)
	ListByLead(ctx context.Context, leadID string) ([]domain.ScheduledEmail, error)
	// DuePending selects claimable rows: PENDING, due, and belonging to a
	// lead that is not suppressed.
	DuePending(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledEmail, error)
	// Claim transitions PENDING -> SENDING for one row, re-checking lead
	// suppression inside the same statement. Returns false when another
	// worker won the row or suppression arrived after selection.
	Claim(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	// MarkFailed transitions SENDING -> FAILED, records the error, and
	// returns the new attempt count.
	MarkFailed(ctx context.Context, id string, sendErr string) (int, error)
	// RequeueTransient transitions FAILED -> PENDING with a new due time,
	// only while the attempt count is below maxAttempts.
	RequeueTransient(ctx context.Context, id string, dueAt time.Time, maxAttempts int) (bool, error)
	CancelPendingForLead(ctx context.Context, leadID string) (int64, error)
	CancelPendingForSequence(ctx context.Context, leadID string, sequenceType domain.SequenceType) (int64, error)
	// CountOutstanding returns how many rows of an enrollment are still
	// PENDING or SENDING; zero means the enrollment can complete.
	CountOutstanding(ctx context.Context, enrollmentID string) (int, error)
}

type scheduledEmailRepository struct {
	pool *pgxpool.Pool
}

// NewScheduledEmailRepository instantiates repository.
func NewScheduledEmailRepository(pool *pgxpool.Pool) ScheduledEmailRepository {
	return &scheduledEmailRepository{pool: pool}
}

const scheduledEmailColumns = `
        id, enrollment_id, lead_id, sequence_type, step_number, due_at,
        status, attempts, last_error, sent_at, created_at, updated_at`

func (r *scheduledEmailRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]domain.ScheduledEmail, error) {
	query := `SELECT ` + scheduledEmailColumns + `
        FROM scheduled_emails WHERE enrollment_id=$1 ORDER BY step_number`
	rows, err := r.pool.Query(ctx, query, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScheduledEmails(rows)
}

func (r *scheduledEmailRepository) ListByLead(ctx context.Context, leadID string) ([]domain.ScheduledEmail, error) {
	query := `SELECT ` + scheduledEmailColumns + `
        FROM scheduled_emails WHERE lead_id=$1 ORDER BY due_at`
	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScheduledEmails(rows)
}

func (r *scheduledEmailRepository) DuePending(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledEmail, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT se.id, se.enrollment_id, se.lead_id, se.sequence_type, se.step_number, se.due_at,
               se.status, se.attempts, se.last_error, se.sent_at, se.created_at, se.updated_at
        FROM scheduled_emails se
        JOIN leads l ON l.id = se.lead_id
        WHERE se.status = 'PENDING' AND se.due_at <= $1 AND NOT l.suppressed
        ORDER BY se.due_at
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScheduledEmails(rows)
}

func (r *scheduledEmailRepository) Claim(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE scheduled_emails se SET status='SENDING', updated_at=NOW()
        WHERE se.id=$1 AND se.status='PENDING'
          AND NOT EXISTS (SELECT 1 FROM leads l WHERE l.id = se.lead_id AND l.suppressed)`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *scheduledEmailRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `
        UPDATE scheduled_emails SET status='SENT', sent_at=$1, attempts=attempts+1, last_error=NULL, updated_at=NOW()
        WHERE id=$2 AND status='SENDING'`
	cmd, err := r.pool.Exec(ctx, query, sentAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *scheduledEmailRepository) MarkFailed(ctx context.Context, id string, sendErr string) (int, error) {
	const query = `
        UPDATE scheduled_emails SET status='FAILED', last_error=$1, attempts=attempts+1, updated_at=NOW()
        WHERE id=$2 AND status='SENDING'
        RETURNING attempts`
	var attempts int
	if err := r.pool.QueryRow(ctx, query, sendErr, id).Scan(&attempts); err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *scheduledEmailRepository) RequeueTransient(ctx context.Context, id string, dueAt time.Time, maxAttempts int) (bool, error) {
	const query = `
        UPDATE scheduled_emails SET status='PENDING', due_at=$1, updated_at=NOW()
        WHERE id=$2 AND status='FAILED' AND attempts < $3`
	cmd, err := r.pool.Exec(ctx, query, dueAt, id, maxAttempts)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *scheduledEmailRepository) CancelPendingForLead(ctx context.Context, leadID string) (int64, error) {
	const query = `
        UPDATE scheduled_emails SET status='CANCELLED', updated_at=NOW()
        WHERE lead_id=$1 AND status='PENDING'`
	cmd, err := r.pool.Exec(ctx, query, leadID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *scheduledEmailRepository) CancelPendingForSequence(ctx context.Context, leadID string, sequenceType domain.SequenceType) (int64, error) {
	const query = `
        UPDATE scheduled_emails SET status='CANCELLED', updated_at=NOW()
        WHERE lead_id=$1 AND sequence_type=$2 AND status='PENDING'`
	cmd, err := r.pool.Exec(ctx, query, leadID, sequenceType)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *scheduledEmailRepository) CountOutstanding(ctx context.Context, enrollmentID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM scheduled_emails
        WHERE enrollment_id=$1 AND status IN ('PENDING','SENDING')`
	var count int
	if err := r.pool.QueryRow(ctx, query, enrollmentID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanScheduledEmails(rows pgx.Rows) ([]domain.ScheduledEmail, error) {
	var result []domain.ScheduledEmail
	for rows.Next() {
		var email domain.ScheduledEmail
		if err := rows.Scan(
			&email.ID,
			&email.EnrollmentID,
			&email.LeadID,
			&email.SequenceType,
			&email.StepNumber,
			&email.DueAt,
			&email.Status,
			&email.Attempts,
			&email.LastError,
			&email.SentAt,
			&email.CreatedAt,
			&email.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, email)
	}
	return result, rows.Err()
}
