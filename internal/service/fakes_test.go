package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
	"github.com/spec-kit/lead-nurture-service/internal/mail"
)

// In-memory store doubles mirroring the repository contracts, including the
// conditional-update semantics the engine's correctness rests on.
type fakeStore struct {
	mu          sync.Mutex
	leads       map[string]*domain.Lead
	scans       map[string]*domain.ScanResults
	enrollments map[string]*domain.Enrollment
	emails      map[string]*domain.ScheduledEmail
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:       make(map[string]*domain.Lead),
		scans:       make(map[string]*domain.ScanResults),
		enrollments: make(map[string]*domain.Enrollment),
		emails:      make(map[string]*domain.ScheduledEmail),
	}
}

type fakeLeadRepo struct{ store *fakeStore }

func (r *fakeLeadRepo) Upsert(ctx context.Context, lead *domain.Lead) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.leads {
		if existing.Email == lead.Email {
			if lead.Name != nil {
				existing.Name = lead.Name
			}
			if lead.Company != nil {
				existing.Company = lead.Company
			}
			if lead.WebsiteURL != "" {
				existing.WebsiteURL = lead.WebsiteURL
			}
			*lead = *existing
			return nil
		}
	}
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt
	clone := *lead
	r.store.leads[lead.ID] = &clone
	return nil
}

func (r *fakeLeadRepo) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	lead, ok := r.store.leads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *lead
	return &clone, nil
}

func (r *fakeLeadRepo) GetByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, lead := range r.store.leads {
		if lead.Email == email {
			clone := *lead
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeLeadRepo) MarkSuppressed(ctx context.Context, id string, reason domain.SuppressionReason) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	lead, ok := r.store.leads[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	lead.Suppressed = true
	lead.SuppressedReason = &reason
	lead.SuppressedAt = &now
	return nil
}

type fakeScanRepo struct{ store *fakeStore }

func (r *fakeScanRepo) Create(ctx context.Context, scan *domain.ScanResults) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	scan.CreatedAt = time.Now()
	clone := *scan
	r.store.scans[scan.ID] = &clone
	return nil
}

func (r *fakeScanRepo) GetByID(ctx context.Context, id string) (*domain.ScanResults, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	scan, ok := r.store.scans[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *scan
	return &clone, nil
}

func (r *fakeScanRepo) LatestForLead(ctx context.Context, leadID string) (*domain.ScanResults, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var latest *domain.ScanResults
	for _, scan := range r.store.scans {
		if scan.LeadID != leadID {
			continue
		}
		if latest == nil || scan.ScannedAt.After(latest.ScannedAt) {
			latest = scan
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

type fakeEnrollmentRepo struct {
	store *fakeStore
	// failSchedule makes the schedule insert fail, modelling a mid-transaction
	// store error: nothing may be left behind.
	failSchedule error
}

func (r *fakeEnrollmentRepo) CreateActiveWithSchedule(ctx context.Context, enrollment *domain.Enrollment, blockedBy []domain.SequenceType, schedule []domain.ScheduledEmail) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.leads[enrollment.LeadID]; !ok {
		return false, pgx.ErrNoRows
	}
	blocked := make(map[domain.SequenceType]bool, len(blockedBy))
	for _, t := range blockedBy {
		blocked[t] = true
	}
	for _, existing := range r.store.enrollments {
		if existing.LeadID == enrollment.LeadID &&
			existing.Status == domain.EnrollmentStatusActive &&
			blocked[existing.SequenceType] {
			return false, nil
		}
	}
	if r.failSchedule != nil {
		return false, r.failSchedule
	}
	enrollment.Status = domain.EnrollmentStatusActive
	enrollment.CreatedAt = time.Now()
	enrollment.UpdatedAt = enrollment.CreatedAt
	clone := *enrollment
	r.store.enrollments[enrollment.ID] = &clone
	for _, email := range schedule {
		email.CreatedAt = enrollment.CreatedAt
		email.UpdatedAt = enrollment.CreatedAt
		emailClone := email
		r.store.emails[email.ID] = &emailClone
	}
	return true, nil
}

func (r *fakeEnrollmentRepo) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	enrollment, ok := r.store.enrollments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *enrollment
	return &clone, nil
}

func (r *fakeEnrollmentRepo) ListActiveTypes(ctx context.Context, leadID string) ([]domain.SequenceType, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var types []domain.SequenceType
	for _, e := range r.store.enrollments {
		if e.LeadID == leadID && e.Status == domain.EnrollmentStatusActive {
			types = append(types, e.SequenceType)
		}
	}
	return types, nil
}

func (r *fakeEnrollmentRepo) ListByLead(ctx context.Context, leadID string) ([]domain.Enrollment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Enrollment
	for _, e := range r.store.enrollments {
		if e.LeadID == leadID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EnrolledAt.After(result[j].EnrolledAt) })
	return result, nil
}

func (r *fakeEnrollmentRepo) MarkCompleted(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if e, ok := r.store.enrollments[id]; ok && e.Status == domain.EnrollmentStatusActive {
		now := time.Now()
		e.Status = domain.EnrollmentStatusCompleted
		e.CompletedAt = &now
	}
	return nil
}

func (r *fakeEnrollmentRepo) CancelActive(ctx context.Context, leadID string, sequenceType domain.SequenceType) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.enrollments {
		if e.LeadID == leadID && e.SequenceType == sequenceType && e.Status == domain.EnrollmentStatusActive {
			e.Status = domain.EnrollmentStatusCancelled
		}
	}
	return nil
}

func (r *fakeEnrollmentRepo) CancelAllActive(ctx context.Context, leadID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.enrollments {
		if e.LeadID == leadID && e.Status == domain.EnrollmentStatusActive {
			e.Status = domain.EnrollmentStatusCancelled
		}
	}
	return nil
}

type fakeEmailRepo struct{ store *fakeStore }

func (r *fakeEmailRepo) ListByEnrollment(ctx context.Context, enrollmentID string) ([]domain.ScheduledEmail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.ScheduledEmail
	for _, e := range r.store.emails {
		if e.EnrollmentID == enrollmentID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StepNumber < result[j].StepNumber })
	return result, nil
}

func (r *fakeEmailRepo) ListByLead(ctx context.Context, leadID string) ([]domain.ScheduledEmail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.ScheduledEmail
	for _, e := range r.store.emails {
		if e.LeadID == leadID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueAt.Before(result[j].DueAt) })
	return result, nil
}

func (r *fakeEmailRepo) DuePending(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledEmail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.ScheduledEmail
	for _, e := range r.store.emails {
		if e.Status != domain.ScheduledEmailStatusPending || e.DueAt.After(now) {
			continue
		}
		if lead, ok := r.store.leads[e.LeadID]; ok && lead.Suppressed {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueAt.Before(result[j].DueAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeEmailRepo) Claim(ctx context.Context, id string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	email, ok := r.store.emails[id]
	if !ok || email.Status != domain.ScheduledEmailStatusPending {
		return false, nil
	}
	if lead, ok := r.store.leads[email.LeadID]; ok && lead.Suppressed {
		return false, nil
	}
	email.Status = domain.ScheduledEmailStatusSending
	return true, nil
}

func (r *fakeEmailRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	email, ok := r.store.emails[id]
	if !ok || email.Status != domain.ScheduledEmailStatusSending {
		return pgx.ErrNoRows
	}
	email.Status = domain.ScheduledEmailStatusSent
	email.SentAt = &sentAt
	email.Attempts++
	email.LastError = nil
	return nil
}

func (r *fakeEmailRepo) MarkFailed(ctx context.Context, id string, sendErr string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	email, ok := r.store.emails[id]
	if !ok || email.Status != domain.ScheduledEmailStatusSending {
		return 0, pgx.ErrNoRows
	}
	email.Status = domain.ScheduledEmailStatusFailed
	email.LastError = &sendErr
	email.Attempts++
	return email.Attempts, nil
}

func (r *fakeEmailRepo) RequeueTransient(ctx context.Context, id string, dueAt time.Time, maxAttempts int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	email, ok := r.store.emails[id]
	if !ok || email.Status != domain.ScheduledEmailStatusFailed || email.Attempts >= maxAttempts {
		return false, nil
	}
	email.Status = domain.ScheduledEmailStatusPending
	email.DueAt = dueAt
	return true, nil
}

func (r *fakeEmailRepo) CancelPendingForLead(ctx context.Context, leadID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var cancelled int64
	for _, e := range r.store.emails {
		if e.LeadID == leadID && e.Status == domain.ScheduledEmailStatusPending {
			e.Status = domain.ScheduledEmailStatusCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

func (r *fakeEmailRepo) CancelPendingForSequence(ctx context.Context, leadID string, sequenceType domain.SequenceType) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var cancelled int64
	for _, e := range r.store.emails {
		if e.LeadID == leadID && e.SequenceType == sequenceType && e.Status == domain.ScheduledEmailStatusPending {
			e.Status = domain.ScheduledEmailStatusCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

func (r *fakeEmailRepo) CountOutstanding(ctx context.Context, enrollmentID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, e := range r.store.emails {
		if e.EnrollmentID != enrollmentID {
			continue
		}
		if e.Status == domain.ScheduledEmailStatusPending || e.Status == domain.ScheduledEmailStatusSending {
			count++
		}
	}
	return count, nil
}

type fakeSuppressionCache struct {
	mu         sync.Mutex
	suppressed map[string]domain.SuppressionReason
}

func newFakeSuppressionCache() *fakeSuppressionCache {
	return &fakeSuppressionCache{suppressed: make(map[string]domain.SuppressionReason)}
}

func (c *fakeSuppressionCache) MarkSuppressed(ctx context.Context, leadID string, reason domain.SuppressionReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suppressed[leadID] = reason
	return nil
}

func (c *fakeSuppressionCache) IsSuppressed(ctx context.Context, leadID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.suppressed[leadID]
	return ok, nil
}

// fakeTransport records every dispatched message and fails on demand.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []mail.Message
	failWith error
	failLeft int
}

func (t *fakeTransport) Send(ctx context.Context, msg mail.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWith != nil && (t.failLeft > 0 || t.failLeft < 0) {
		if t.failLeft > 0 {
			t.failLeft--
		}
		return t.failWith
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *fakeTransport) sentMessages() []mail.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]mail.Message{}, t.sent...)
}

type fakeTokens struct{}

func (fakeTokens) UnsubscribeURL(leadID string) (string, error) {
	return "http://localhost/unsubscribe?token=" + leadID, nil
}

type failingTokens struct{}

func (failingTokens) UnsubscribeURL(leadID string) (string, error) {
	return "", errors.New("signer unavailable")
}
