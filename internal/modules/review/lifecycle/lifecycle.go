// Package lifecycle owns every case record and drives it through analysis.
//
// All writes to a case go through a Lifecycle. A submission moves the case to
// ANALYZING, calls the analysis gateway without holding any lock, then applies
// the verdict (or settles back) only if its attempt number is still the
// latest one for that case.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/modules/review/registry"
	"github.com/yungbote/prism-backend/internal/modules/review/sla"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

const DefaultAnalysisTimeout = 120 * time.Second

var ErrStaleAttempt = errors.New("stale analysis attempt")

type Config struct {
	// AnalysisTimeout bounds a single gateway call. Zero uses DefaultAnalysisTimeout.
	AnalysisTimeout time.Duration
	DefaultSLAHours float64
	Now             func() time.Time
}

type Lifecycle struct {
	log      *logger.Logger
	gateway  AnalysisGateway
	policies PolicyCatalog
	reg      *registry.Registry

	timeout  time.Duration
	slaHours float64
	now      func() time.Time

	mu     sync.Mutex
	cases  map[string]*entry
	flight singleflight.Group
	subs   listeners
}

type entry struct {
	c *review.Case
	// attempt is the number of the most recent submission.
	attempt int
}

func New(log *logger.Logger, gateway AnalysisGateway, policies PolicyCatalog, reg *registry.Registry, cfg Config) *Lifecycle {
	if log == nil {
		log = logger.Nop()
	}
	if reg == nil {
		reg = registry.New()
	}
	timeout := cfg.AnalysisTimeout
	if timeout <= 0 {
		timeout = DefaultAnalysisTimeout
	}
	slaHours := cfg.DefaultSLAHours
	if slaHours <= 0 {
		slaHours = review.DefaultSLAHours
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{
		log:      log.With("component", "CaseLifecycle"),
		gateway:  gateway,
		policies: policies,
		reg:      reg,
		timeout:  timeout,
		slaHours: slaHours,
		now:      now,
		cases:    map[string]*entry{},
	}
}

func (l *Lifecycle) Registry() *registry.Registry { return l.reg }

// Subscribe registers fn for every committed change. The returned func removes it.
func (l *Lifecycle) Subscribe(fn Listener) func() {
	return l.subs.add(fn)
}

type RegisterInput struct {
	ID            string
	PatientName   string
	PolicyID      string
	SLAHours      float64
	ProviderID    string
	ProviderEmail string
	DocumentRef   string
	ReceivedAt    time.Time
}

// Register creates a PENDING case. An empty ID takes the next case-NNN id.
func (l *Lifecycle) Register(in RegisterInput) (*review.Case, error) {
	if in.SLAHours < 0 {
		return nil, review.NewError(review.KindInvalidArgument, in.ID, fmt.Errorf("sla hours must be positive, got %v", in.SLAHours))
	}
	pol, ok := l.policy(in.PolicyID)
	if !ok {
		return nil, review.NewError(review.KindUnknownPolicy, in.ID, fmt.Errorf("policy %q", in.PolicyID))
	}
	slaHours := in.SLAHours
	if slaHours == 0 {
		slaHours = l.slaHours
	}
	now := l.now().UTC()
	received := in.ReceivedAt
	if received.IsZero() {
		received = now
	}

	l.mu.Lock()
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = l.reg.NextID()
	}
	if _, exists := l.cases[id]; exists {
		l.mu.Unlock()
		return nil, review.NewError(review.KindInvalidArgument, id, errors.New("case already registered"))
	}
	c := &review.Case{
		ID:            id,
		PatientName:   strings.TrimSpace(in.PatientName),
		PolicyID:      pol.ID,
		PolicyName:    pol.Name,
		ProviderID:    strings.TrimSpace(in.ProviderID),
		ProviderEmail: strings.TrimSpace(in.ProviderEmail),
		ReceivedAt:    received.UTC(),
		SLAHours:      slaHours,
		Status:        review.StatusPending,
		DocumentRef:   in.DocumentRef,
	}
	e := &entry{}
	l.cases[id] = e
	snap := l.commitLocked(e, c)
	l.mu.Unlock()

	l.log.Info("case registered", "case_id", id, "policy_id", pol.ID, "sla_hours", slaHours)
	l.subs.emit(Event{Type: EventRegistered, Case: snap})
	return snap, nil
}

// Restore loads a previously persisted case. An ANALYZING record can only come
// from a crash mid-flight; it comes back as the status of its last verdict, or
// PENDING when there is none. Attempt numbering continues after the highest
// attempt the record has seen.
func (l *Lifecycle) Restore(c *review.Case) error {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return review.NewError(review.KindInvalidArgument, "", errors.New("case id required"))
	}
	c = c.Clone()
	c.Status = c.SettledStatus()
	if c.SLAHours <= 0 {
		c.SLAHours = l.slaHours
	}
	if c.Status != review.StatusActionRequired {
		c.RFI = nil
	}
	attempt := max(c.Attempts, c.VerdictCount)
	if c.Verdict != nil && c.Verdict.Attempt > attempt {
		attempt = c.Verdict.Attempt
	}
	c.Attempts = attempt

	l.mu.Lock()
	if _, exists := l.cases[c.ID]; exists {
		l.mu.Unlock()
		return review.NewError(review.KindInvalidArgument, c.ID, errors.New("case already registered"))
	}
	e := &entry{c: c, attempt: attempt}
	l.cases[c.ID] = e
	l.reg.Upsert(c)
	snap := c.Clone()
	l.mu.Unlock()

	l.subs.emit(Event{Type: EventRestored, Case: snap})
	return nil
}

// Get returns a copy of the case.
func (l *Lifecycle) Get(caseID string) (*review.Case, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.cases[caseID]
	if !ok {
		return nil, review.NewError(review.KindCaseNotFound, caseID, nil)
	}
	return e.c.Clone(), nil
}

// CurrentStatus never waits on an in-flight analysis.
func (l *Lifecycle) CurrentStatus(caseID string) (review.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.cases[caseID]
	if !ok {
		return "", review.NewError(review.KindCaseNotFound, caseID, nil)
	}
	return e.c.Status, nil
}

func (l *Lifecycle) RemainingSLA(caseID string, now time.Time) (sla.View, error) {
	l.mu.Lock()
	e, ok := l.cases[caseID]
	var received time.Time
	var hours float64
	if ok {
		received, hours = e.c.ReceivedAt, e.c.SLAHours
	}
	l.mu.Unlock()
	if !ok {
		return sla.View{}, review.NewError(review.KindCaseNotFound, caseID, nil)
	}
	return sla.Compute(received, hours, now), nil
}

// Submit sends the case to the analysis engine and waits for the outcome.
// policyID overrides the case's policy when non-empty. A second Submit for the
// same case while one is in flight joins it and gets the same result.
//
// The analysis itself is detached from ctx: if the caller stops waiting the
// call still completes (bounded by the analysis timeout) and the case is
// updated, and the caller gets an AnalysisTimeout error.
func (l *Lifecycle) Submit(ctx context.Context, caseID, policyID string) (*review.Case, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)
	ch := l.flight.DoChan(caseID, func() (interface{}, error) {
		return l.submit(detached, caseID, policyID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*review.Case).Clone(), nil
	case <-ctx.Done():
		return nil, review.NewError(review.KindAnalysisTimeout, caseID, fmt.Errorf("stopped waiting for analysis: %w", ctx.Err()))
	}
}

func (l *Lifecycle) submit(ctx context.Context, caseID, policyID string) (*review.Case, error) {
	l.mu.Lock()
	e, ok := l.cases[caseID]
	if !ok {
		l.mu.Unlock()
		return nil, review.NewError(review.KindCaseNotFound, caseID, nil)
	}
	if policyID == "" {
		policyID = e.c.PolicyID
	}
	pol, ok := l.policy(policyID)
	if !ok {
		l.mu.Unlock()
		return nil, review.NewError(review.KindUnknownPolicy, caseID, fmt.Errorf("policy %q", policyID))
	}
	e.attempt++
	attempt := e.attempt
	next := e.c.Clone()
	next.Status = review.StatusAnalyzing
	next.Attempts = attempt
	next.PolicyID = pol.ID
	next.PolicyName = pol.Name
	snap := l.commitLocked(e, next)
	req := Request{
		CaseID:      caseID,
		Attempt:     attempt,
		DocumentRef: next.DocumentRef,
		PolicyID:    pol.ID,
		PolicyText:  pol.Criteria,
		ProviderID:  next.ProviderID,
	}
	l.mu.Unlock()

	l.subs.emit(Event{Type: EventAnalyzing, Case: snap, Attempt: attempt})
	l.log.Info("analysis submitted", "case_id", caseID, "attempt", attempt, "policy_id", pol.ID)

	in, err := l.analyze(ctx, req)
	if err != nil {
		return nil, l.fail(caseID, attempt, err)
	}
	v, err := review.NewVerdict(in, attempt, l.now())
	if err != nil {
		return nil, l.fail(caseID, attempt, review.NewError(review.KindAnalysisRejected, caseID, err))
	}
	snap, err = l.apply(caseID, v)
	if errors.Is(err, ErrStaleAttempt) {
		// Another delivery settled the case first; the submitter gets that state.
		if cur, gerr := l.Get(caseID); gerr == nil {
			return cur, nil
		}
	}
	return snap, err
}

func (l *Lifecycle) analyze(ctx context.Context, req Request) (in review.VerdictInput, err error) {
	if l.gateway == nil {
		return in, review.NewError(review.KindAnalysisUnavailable, req.CaseID, errors.New("no analysis gateway configured"))
	}
	actx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	started := l.now()
	in, err = l.gateway.Analyze(actx, req)
	if err == nil {
		return in, nil
	}
	return in, classify(req.CaseID, err, actx.Err(), l.now().Sub(started))
}

// classify maps a gateway failure onto the analysis error kinds.
func classify(caseID string, err, ctxErr error, elapsed time.Duration) error {
	switch review.KindOf(err) {
	case review.KindAnalysisRejected, review.KindAnalysisTimeout, review.KindAnalysisUnavailable:
		var re *review.Error
		errors.As(err, &re)
		if re.CaseID == "" {
			return review.NewError(re.Kind, caseID, re.Err)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctxErr, context.DeadlineExceeded) {
		return review.NewError(review.KindAnalysisTimeout, caseID, fmt.Errorf("no verdict after %s: %w", elapsed.Round(time.Millisecond), err))
	}
	return review.NewError(review.KindAnalysisUnavailable, caseID, err)
}

// fail settles the case back (PENDING, or the status of an earlier verdict
// on a re-submission) if attempt is still the live one, and returns err
// unchanged.
func (l *Lifecycle) fail(caseID string, attempt int, err error) error {
	kind := review.KindOf(err)
	l.mu.Lock()
	e, ok := l.cases[caseID]
	if !ok || e.attempt != attempt || e.c.Status != review.StatusAnalyzing {
		l.mu.Unlock()
		l.log.Warn("analysis failed for superseded attempt", "case_id", caseID, "attempt", attempt, "kind", kind)
		return err
	}
	next := e.c.Clone()
	next.Status = next.SettledStatus()
	snap := l.commitLocked(e, next)
	l.mu.Unlock()

	l.log.Warn("analysis failed", "case_id", caseID, "attempt", attempt, "kind", kind, "error", err)
	l.subs.emit(Event{Type: EventAnalysisFailed, Case: snap, Attempt: attempt, ErrKind: kind})
	return err
}

// DeliverVerdict applies a verdict that arrived out of band, e.g. from an
// engine callback. Verdicts for any attempt other than the latest submission,
// or for an attempt that already has a verdict, are rejected as stale.
func (l *Lifecycle) DeliverVerdict(caseID string, attempt int, in review.VerdictInput) (*review.Case, error) {
	v, err := review.NewVerdict(in, attempt, l.now())
	if err != nil {
		return nil, review.NewError(review.KindAnalysisRejected, caseID, err)
	}
	return l.apply(caseID, v)
}

func (l *Lifecycle) apply(caseID string, v *review.Verdict) (*review.Case, error) {
	l.mu.Lock()
	e, ok := l.cases[caseID]
	if !ok {
		l.mu.Unlock()
		return nil, review.NewError(review.KindCaseNotFound, caseID, nil)
	}
	if v.Attempt != e.attempt || (e.c.Verdict != nil && e.c.Verdict.Attempt >= v.Attempt) {
		current := e.attempt
		l.mu.Unlock()
		l.log.Info("stale verdict ignored", "case_id", caseID, "attempt", v.Attempt, "current_attempt", current)
		return nil, review.NewError(review.KindInvalidState, caseID, fmt.Errorf("%w: %d (latest %d)", ErrStaleAttempt, v.Attempt, current))
	}
	next := e.c.Clone()
	next.Verdict = v
	next.VerdictCount++
	next.Status = v.Outcome.Status()
	if next.Status == review.StatusActionRequired {
		next.RFI = nextRFI(e.c.RFI, v)
	} else {
		next.RFI = nil
	}
	snap := l.commitLocked(e, next)
	l.mu.Unlock()

	l.log.Info("verdict applied", "case_id", caseID, "attempt", v.Attempt, "outcome", v.Outcome)
	l.subs.emit(Event{Type: EventVerdict, Case: snap, Attempt: v.Attempt})
	return snap, nil
}

// nextRFI opens a new round after a sent one, and otherwise keeps an unsent
// draft the reviewer already started.
func nextRFI(prev *review.RFIState, v *review.Verdict) *review.RFIState {
	switch {
	case prev == nil:
		return &review.RFIState{Round: 1, Draft: v.SuggestedRFI}
	case prev.Sent:
		return &review.RFIState{Round: prev.Round + 1, Draft: v.SuggestedRFI}
	case strings.TrimSpace(prev.Draft) == "":
		return &review.RFIState{Round: prev.Round, Draft: v.SuggestedRFI}
	default:
		return &review.RFIState{Round: prev.Round, Draft: prev.Draft}
	}
}

// MutateRFI runs fn against a copy of the case's RFI state and commits the
// copy if fn succeeds. It fails with InvalidState when the case has no RFI.
func (l *Lifecycle) MutateRFI(caseID string, fn func(*review.RFIState) error) (*review.Case, error) {
	l.mu.Lock()
	e, ok := l.cases[caseID]
	if !ok {
		l.mu.Unlock()
		return nil, review.NewError(review.KindCaseNotFound, caseID, nil)
	}
	if e.c.Status != review.StatusActionRequired || e.c.RFI == nil {
		status := e.c.Status
		l.mu.Unlock()
		return nil, review.NewError(review.KindInvalidState, caseID, fmt.Errorf("no request for information in status %s", status))
	}
	next := e.c.Clone()
	if err := fn(next.RFI); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	snap := l.commitLocked(e, next)
	l.mu.Unlock()

	l.subs.emit(Event{Type: EventRFIUpdated, Case: snap})
	return snap, nil
}

// commitLocked installs next as the case, bumps its version and pushes it to
// the registry. l.mu must be held. The returned copy is safe to hand out.
func (l *Lifecycle) commitLocked(e *entry, next *review.Case) *review.Case {
	if e.c != nil {
		next.Version = e.c.Version + 1
	} else {
		next.Version = 1
	}
	next.UpdatedAt = l.now().UTC()
	e.c = next
	l.reg.Upsert(next)
	return next.Clone()
}

func (l *Lifecycle) policy(id string) (review.Policy, bool) {
	id = strings.TrimSpace(id)
	if id == "" || l.policies == nil {
		return review.Policy{}, false
	}
	return l.policies.Get(id)
}
