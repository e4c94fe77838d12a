package service

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/lead-nurture-service/internal/observability"
	"github.com/spec-kit/lead-nurture-service/internal/sequence"
)

// testEnv wires the full service layer over in-memory stores with a pinned
// clock.
type testEnv struct {
	store       *fakeStore
	leads       *fakeLeadRepo
	scans       *fakeScanRepo
	enrollments *fakeEnrollmentRepo
	emails      *fakeEmailRepo
	cache       *fakeSuppressionCache
	transport   *fakeTransport
	registry    *sequence.Registry
	metrics     *observability.Metrics

	planner     *PlannerService
	enrollment  *EnrollmentService
	suppression *SuppressionService
	delivery    *DeliveryService

	now time.Time
}

func newTestEnv(t *testing.T, opts DeliveryOptions) *testEnv {
	t.Helper()

	registry, err := sequence.NewRegistry()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	env := &testEnv{
		store:     newFakeStore(),
		cache:     newFakeSuppressionCache(),
		transport: &fakeTransport{},
		registry:  registry,
		metrics:   observability.NewMetrics(),
		now:       time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
	}
	env.leads = &fakeLeadRepo{store: env.store}
	env.scans = &fakeScanRepo{store: env.store}
	env.enrollments = &fakeEnrollmentRepo{store: env.store}
	env.emails = &fakeEmailRepo{store: env.store}

	logger := zap.NewNop()

	env.planner = NewPlannerService(PlannerDependencies{
		Registry: registry,
		Logger:   logger,
	})
	env.enrollment = NewEnrollmentService(EnrollmentDependencies{
		LeadRepo:       env.leads,
		ScanRepo:       env.scans,
		EnrollmentRepo: env.enrollments,
		Planner:        env.planner,
		Registry:       registry,
		Rules:          DefaultExclusivityRules(),
		Logger:         logger,
	})
	env.suppression = NewSuppressionService(SuppressionDependencies{
		LeadRepo:       env.leads,
		EnrollmentRepo: env.enrollments,
		EmailRepo:      env.emails,
		Cache:          env.cache,
		Logger:         logger,
	})

	if opts.Now == nil {
		opts.Now = func() time.Time { return env.now }
	}
	if opts.Deadline.IsZero() {
		opts.Deadline = time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC)
	}
	if opts.FromAddress == "" {
		opts.FromAddress = "reports@example.com"
	}
	env.delivery = NewDeliveryService(DeliveryDependencies{
		EmailRepo:      env.emails,
		EnrollmentRepo: env.enrollments,
		LeadRepo:       env.leads,
		ScanRepo:       env.scans,
		Cache:          env.cache,
		Registry:       registry,
		Transport:      env.transport,
		Tokens:         fakeTokens{},
		Metrics:        env.metrics,
		Logger:         logger,
	}, opts)

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func strPtr(s string) *string { return &s }
