package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
	apperrors "github.com/spec-kit/lead-nurture-service/pkg/util"
)

func TestCaptureLeadEnrollsWelcome(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	lead, enrollment, err := env.enrollment.CaptureLead(ctx, LeadInput{
		Email:      "  Ada@Example.COM ",
		Name:       strPtr("Ada Lovelace"),
		WebsiteURL: "https://shop.example.com",
		Source:     domain.LeadSourcePopup,
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", lead.Email)
	assert.Equal(t, domain.SequenceWelcome, enrollment.SequenceType)
	assert.Equal(t, domain.EnrollmentStatusActive, enrollment.Status)
	assert.Nil(t, enrollment.ScanID)

	rows, err := env.emails.ListByEnrollment(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestDuplicateEnrollmentRejected(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	_, first, err := env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.NoError(t, err)

	_, _, err = env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, apperrors.IsEnrollmentRejected(err))

	rows, err := env.emails.ListByEnrollment(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 5, "retrigger must not add rows")
}

func TestExclusivityBlocksSecondSequence(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	_, _, err := env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.NoError(t, err)

	_, _, err = env.enrollment.ImportColdLead(ctx, LeadInput{Email: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, apperrors.IsEnrollmentRejected(err))

	lead, err := env.leads.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	rows, err := env.emails.ListByLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 5, "only welcome rows may exist")
}

func TestColdLeadEnrollsAfterWelcomeCompleted(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	_, welcome, err := env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, env.enrollments.MarkCompleted(ctx, welcome.ID))

	_, cold, err := env.enrollment.ImportColdLead(ctx, LeadInput{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.SequenceColdLead, cold.SequenceType)
}

func TestSuppressedLeadNotEnrolled(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	lead, _, err := env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, env.suppression.Suppress(ctx, lead.ID, domain.SuppressionReasonUnsubscribe))

	_, _, err = env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, apperrors.IsEnrollmentRejected(err))
}

func TestScanCompletedAttachesSnapshot(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	scannedAt := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)
	_, enrollment, err := env.enrollment.RecordScanCompleted(ctx,
		LeadInput{Email: "ada@example.com", WebsiteURL: "https://shop.example.com"},
		ScanInput{
			Score:          42,
			CriticalIssues: 4,
			SeriousIssues:  3,
			ModerateIssues: 6,
			MinorIssues:    2,
			Platform:       "Shopify",
			TopIssues:      []string{"Images missing alt text"},
			ScannedAt:      scannedAt,
		})
	require.NoError(t, err)
	require.NotNil(t, enrollment.ScanID)

	scan, err := env.scans.GetByID(ctx, *enrollment.ScanID)
	require.NoError(t, err)
	assert.Equal(t, 42, scan.Score)
	assert.Equal(t, 15, scan.TotalIssues())
	assert.Equal(t, scannedAt, scan.ScannedAt)
}

func TestMissingEmailRejected(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})

	_, _, err := env.enrollment.CaptureLead(context.Background(), LeadInput{Email: "   "})
	require.Error(t, err)

	var derr *apperrors.DomainError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "VALIDATION_FAILED", derr.Code)
}

func TestFailedScheduleInsertLeavesNothing(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	env.enrollments.failSchedule = errors.New("insert rejected")

	lead, _, err := env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.Error(t, err)

	types, err := env.enrollments.ListActiveTypes(ctx, lead.ID)
	require.NoError(t, err)
	assert.Empty(t, types, "a failed schedule insert must roll back the enrollment")

	rows, err := env.emails.ListByLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// The trigger is retryable once the store recovers.
	env.enrollments.failSchedule = nil
	_, enrollment, err := env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentStatusActive, enrollment.Status)
}

func TestConcurrentConflictingEnrollmentsAdmitOne(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	lead, _, err := env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, env.suppression.SuppressSequence(ctx, lead.ID, domain.SequenceWelcome, domain.SuppressionReasonManual))

	// Two conflicting sequence types race for the same lead. The repository
	// serializes them on the lead row, so exactly one wins regardless of
	// interleaving.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, errs[0] = env.enrollment.CaptureLead(ctx, LeadInput{Email: "ada@example.com"})
	}()
	go func() {
		defer wg.Done()
		_, _, errs[1] = env.enrollment.ImportColdLead(ctx, LeadInput{Email: "ada@example.com"})
	}()
	wg.Wait()

	types, err := env.enrollments.ListActiveTypes(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, types, 1, "conflicting sequences must never be active together")

	rejections := 0
	for _, enrollErr := range errs {
		if enrollErr != nil {
			assert.True(t, apperrors.IsEnrollmentRejected(enrollErr))
			rejections++
		}
	}
	assert.Equal(t, 1, rejections)
}

func TestScheduleForLeadReturnsLatestScan(t *testing.T) {
	env := newTestEnv(t, DeliveryOptions{})
	ctx := context.Background()

	lead, _, err := env.enrollment.RecordScanCompleted(ctx,
		LeadInput{Email: "ada@example.com"},
		ScanInput{Score: 42, Platform: "Shopify", ScannedAt: env.now.Add(-2 * time.Hour)})
	require.NoError(t, err)

	newer := &domain.ScanResults{
		ID:        "scan-2",
		LeadID:    lead.ID,
		Score:     71,
		Platform:  "Shopify",
		ScannedAt: env.now.Add(-time.Hour),
	}
	require.NoError(t, env.scans.Create(ctx, newer))

	_, enrollments, scan, err := env.enrollment.ScheduleForLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.NotNil(t, scan)
	assert.Equal(t, 71, scan.Score, "the view reports the most recent scan")

	// The enrollment keeps rendering from its own snapshot.
	assert.NotEqual(t, newer.ID, *enrollments[0].ScanID)
}
