package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
	"github.com/spec-kit/lead-nurture-service/internal/events"
	"github.com/spec-kit/lead-nurture-service/internal/mail"
	"github.com/spec-kit/lead-nurture-service/internal/observability"
	"github.com/spec-kit/lead-nurture-service/internal/repository"
	"github.com/spec-kit/lead-nurture-service/internal/sequence"
	"github.com/spec-kit/lead-nurture-service/internal/template"
)

// TokenSource mints unsubscribe links for outgoing mail.
type TokenSource interface {
	UnsubscribeURL(leadID string) (string, error)
}

// DeliveryOptions tunes one worker instance.
type DeliveryOptions struct {
	BatchSize   int
	Concurrency int
	SendTimeout time.Duration
	MaxAttempts int
	// RetryBackoff is the base delay for transient retries; attempt n waits
	// RetryBackoff * 2^(n-1).
	RetryBackoff time.Duration
	FromAddress  string
	ReplyTo      string
	Deadline     time.Time
	// Now is the clock; defaults to time.Now. Tests pin it.
	Now func() time.Time
}

// DeliveryService performs one batch of due sends per invocation. Each run is
// a short-lived job: select due PENDING rows, claim each with a conditional
// update, render, dispatch, resolve. The conditional claim is the only
// synchronization between concurrent runs, so any number of instances can
// overlap safely; a lost claim is a skip, not an error.
//
// Steps of one enrollment are independent rows governed solely by their own
// due times. The engine guarantees scheduled-time ordering, not causal
// ordering: step 2 never waits for step 1's delivery outcome.
type DeliveryService struct {
	emails      repository.ScheduledEmailRepository
	enrollments repository.EnrollmentRepository
	leads       repository.LeadRepository
	scans       repository.ScanRepository
	cache       repository.SuppressionCache
	registry    *sequence.Registry
	transport   mail.Transport
	tokens      TokenSource
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	opts        DeliveryOptions
}

// DeliveryDependencies bundles collaborators for the service.
type DeliveryDependencies struct {
	EmailRepo      repository.ScheduledEmailRepository
	EnrollmentRepo repository.EnrollmentRepository
	LeadRepo       repository.LeadRepository
	ScanRepo       repository.ScanRepository
	Cache          repository.SuppressionCache
	Registry       *sequence.Registry
	Transport      mail.Transport
	Tokens         TokenSource
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewDeliveryService constructs the service.
func NewDeliveryService(deps DeliveryDependencies, opts DeliveryOptions) *DeliveryService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 20 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DeliveryService{
		emails:      deps.EmailRepo,
		enrollments: deps.EnrollmentRepo,
		leads:       deps.LeadRepo,
		scans:       deps.ScanRepo,
		cache:       deps.Cache,
		registry:    deps.Registry,
		transport:   deps.Transport,
		tokens:      deps.Tokens,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		opts:        opts,
	}
}

// RunStats summarizes one worker run.
type RunStats struct {
	Selected int
	Claimed  int
	Sent     int
	Failed   int
	Retried  int
	Skipped  int
}

// RunOnce processes one batch of due sends.
func (s *DeliveryService) RunOnce(ctx context.Context) (RunStats, error) {
	now := s.opts.Now().UTC()

	due, err := s.emails.DuePending(ctx, now, s.opts.BatchSize)
	if err != nil {
		return RunStats{}, fmt.Errorf("select due emails: %w", err)
	}

	var (
		mu    sync.Mutex
		stats = RunStats{Selected: len(due)}
		wg    sync.WaitGroup
		sem   = make(chan struct{}, s.opts.Concurrency)
	)

	for i := range due {
		row := due[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := s.processRow(ctx, row, now)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSent:
				stats.Claimed++
				stats.Sent++
			case outcomeFailed:
				stats.Claimed++
				stats.Failed++
			case outcomeRetried:
				stats.Claimed++
				stats.Failed++
				stats.Retried++
			case outcomeSkipped:
				stats.Skipped++
			}
		}()
	}
	wg.Wait()

	if stats.Selected > 0 {
		s.logger.Info("delivery run finished",
			zap.Int("selected", stats.Selected),
			zap.Int("claimed", stats.Claimed),
			zap.Int("sent", stats.Sent),
			zap.Int("failed", stats.Failed),
			zap.Int("retried", stats.Retried),
			zap.Int("skipped", stats.Skipped))
	}
	return stats, nil
}

type rowOutcome int

const (
	outcomeSkipped rowOutcome = iota
	outcomeSent
	outcomeFailed
	outcomeRetried
)

func (s *DeliveryService) processRow(ctx context.Context, row domain.ScheduledEmail, now time.Time) rowOutcome {
	// Fast path: skip leads Redis already knows are suppressed. Advisory
	// only; the claim below is the authoritative check.
	if suppressed, err := s.cache.IsSuppressed(ctx, row.LeadID); err == nil && suppressed {
		return outcomeSkipped
	}

	claimed, err := s.emails.Claim(ctx, row.ID)
	if err != nil {
		s.logger.Error("claim failed", zap.String("scheduled_email_id", row.ID), zap.Error(err))
		return outcomeSkipped
	}
	if !claimed {
		// Another worker won the row, or suppression landed after
		// selection. Not an error.
		return outcomeSkipped
	}

	msg, renderErr := s.renderRow(ctx, row)
	if renderErr != nil {
		// Rendering failures are permanent: the missing data will not
		// appear on retry.
		s.resolveFailure(ctx, row, renderErr, false)
		return outcomeFailed
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()
	if sendErr := s.transport.Send(sendCtx, *msg); sendErr != nil {
		retried := s.resolveFailure(ctx, row, sendErr, mail.IsTransient(sendErr))
		if retried {
			return outcomeRetried
		}
		return outcomeFailed
	}

	if err := s.emails.MarkSent(ctx, row.ID, s.opts.Now().UTC()); err != nil {
		s.logger.Error("mark sent failed", zap.String("scheduled_email_id", row.ID), zap.Error(err))
		return outcomeFailed
	}
	s.metrics.RecordSendOutcome(string(row.SequenceType), "sent")
	s.publishSent(ctx, row)
	s.maybeCompleteEnrollment(ctx, row.EnrollmentID)
	return outcomeSent
}

// renderRow builds the variable map and renders subject and body for one
// claimed row.
func (s *DeliveryService) renderRow(ctx context.Context, row domain.ScheduledEmail) (*mail.Message, error) {
	def, ok := s.registry.Sequence(row.SequenceType)
	if !ok {
		return nil, fmt.Errorf("unknown sequence type %q", row.SequenceType)
	}
	step, ok := def.Step(row.StepNumber)
	if !ok {
		return nil, fmt.Errorf("sequence %q has no step %d", row.SequenceType, row.StepNumber)
	}
	body, ok := s.registry.Template(step.TemplateID)
	if !ok {
		return nil, fmt.Errorf("unknown template %q", step.TemplateID)
	}

	lead, err := s.leads.GetByID(ctx, row.LeadID)
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}

	var scan *domain.ScanResults
	enrollment, err := s.enrollments.GetByID(ctx, row.EnrollmentID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment.ScanID != nil {
		// Always the snapshot referenced at enrollment time, never the
		// latest scan.
		scan, err = s.scans.GetByID(ctx, *enrollment.ScanID)
		if err != nil {
			return nil, fmt.Errorf("load scan snapshot: %w", err)
		}
	}

	unsubscribeURL, err := s.tokens.UnsubscribeURL(lead.ID)
	if err != nil {
		return nil, fmt.Errorf("mint unsubscribe link: %w", err)
	}

	vars := BuildVariables(lead, scan, s.opts.Deadline, s.opts.Now().UTC(), unsubscribeURL)

	subject, err := template.Render(step.SubjectTemplate, vars)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	html, err := template.Render(body, vars)
	if err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	return &mail.Message{
		To:       lead.Email,
		From:     s.opts.FromAddress,
		ReplyTo:  s.opts.ReplyTo,
		Subject:  subject,
		HTMLBody: html,
	}, nil
}

// resolveFailure marks a claimed row FAILED and, for transient transport
// errors under the attempt ceiling, re-queues it with exponential backoff.
// Returns whether a retry was scheduled.
func (s *DeliveryService) resolveFailure(ctx context.Context, row domain.ScheduledEmail, cause error, transient bool) bool {
	attempts, err := s.emails.MarkFailed(ctx, row.ID, cause.Error())
	if err != nil {
		s.logger.Error("mark failed errored", zap.String("scheduled_email_id", row.ID), zap.Error(err))
		return false
	}

	willRetry := false
	if transient && attempts < s.opts.MaxAttempts {
		backoff := s.opts.RetryBackoff << (attempts - 1)
		dueAt := s.opts.Now().UTC().Add(backoff)
		requeued, requeueErr := s.emails.RequeueTransient(ctx, row.ID, dueAt, s.opts.MaxAttempts)
		if requeueErr != nil {
			s.logger.Error("requeue failed", zap.String("scheduled_email_id", row.ID), zap.Error(requeueErr))
		}
		willRetry = requeued
	}

	s.metrics.RecordSendOutcome(string(row.SequenceType), "failed")
	s.logger.Warn("send failed",
		zap.String("scheduled_email_id", row.ID),
		zap.String("lead_id", row.LeadID),
		zap.Int("attempts", attempts),
		zap.Bool("will_retry", willRetry),
		zap.Error(cause))
	s.publishFailed(ctx, row, cause, willRetry)
	return willRetry
}

// maybeCompleteEnrollment flips the enrollment to COMPLETED once no row of
// it is still PENDING or SENDING.
func (s *DeliveryService) maybeCompleteEnrollment(ctx context.Context, enrollmentID string) {
	outstanding, err := s.emails.CountOutstanding(ctx, enrollmentID)
	if err != nil {
		s.logger.Error("count outstanding failed", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		return
	}
	if outstanding > 0 {
		return
	}
	if err := s.enrollments.MarkCompleted(ctx, enrollmentID); err != nil {
		s.logger.Error("mark completed failed", zap.String("enrollment_id", enrollmentID), zap.Error(err))
	}
}

func (s *DeliveryService) publishSent(ctx context.Context, row domain.ScheduledEmail) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventEmailSent,
		LeadID:    row.LeadID,
		Timestamp: s.opts.Now().UTC(),
		Payload: events.EmailSentPayload{
			ScheduledEmailID: row.ID,
			SequenceType:     row.SequenceType,
			StepNumber:       row.StepNumber,
		},
	})
}

func (s *DeliveryService) publishFailed(ctx context.Context, row domain.ScheduledEmail, cause error, willRetry bool) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventEmailFailed,
		LeadID:    row.LeadID,
		Timestamp: s.opts.Now().UTC(),
		Payload: events.EmailFailedPayload{
			ScheduledEmailID: row.ID,
			SequenceType:     row.SequenceType,
			StepNumber:       row.StepNumber,
			Error:            cause.Error(),
			WillRetry:        willRetry,
		},
	})
}
