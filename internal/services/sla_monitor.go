package services

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/prism-backend/internal/modules/review/registry"
	"github.com/yungbote/prism-backend/internal/modules/review/sla"
	"github.com/yungbote/prism-backend/internal/observability"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

const DefaultSLATick = 60 * time.Second

// SLAMonitor recomputes every open case's SLA on a fixed cadence and reports
// threshold crossings. Approved, auto-approved and denied cases are done and
// are not tracked.
type SLAMonitor struct {
	log      *logger.Logger
	reg      *registry.Registry
	notifier CaseNotifier
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]sla.Urgency
}

func NewSLAMonitor(baseLog *logger.Logger, reg *registry.Registry, notifier CaseNotifier, interval time.Duration) *SLAMonitor {
	if interval <= 0 {
		interval = DefaultSLATick
	}
	return &SLAMonitor{
		log:      baseLog.With("service", "SLAMonitor"),
		reg:      reg,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		last:     map[string]sla.Urgency{},
	}
}

// Run ticks until ctx is done.
func (m *SLAMonitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	m.Tick(ctx, m.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Tick(ctx, m.now())
		}
	}
}

// Tick evaluates all open cases at now. The first sighting of a case only
// records its band; a change is reported from the second tick on.
func (m *SLAMonitor) Tick(ctx context.Context, now time.Time) SLATick {
	tick := SLATick{At: now.UTC().Format(time.RFC3339), Counts: map[sla.Urgency]int{}}
	for _, u := range sla.Urgencies() {
		tick.Counts[u] = 0
	}

	var changes []UrgencyChange
	seen := map[string]bool{}

	m.mu.Lock()
	for _, c := range m.reg.Snapshot() {
		if c.Status.Terminal() {
			continue
		}
		view := sla.ForCase(c, now)
		tick.Open++
		tick.Counts[view.Urgency]++
		seen[c.ID] = true

		prev, ok := m.last[c.ID]
		m.last[c.ID] = view.Urgency
		if ok && prev != view.Urgency {
			changes = append(changes, UrgencyChange{CaseID: c.ID, Status: c.Status, Previous: prev, SLA: view})
		}
	}
	for id := range m.last {
		if !seen[id] {
			delete(m.last, id)
		}
	}
	m.mu.Unlock()

	for _, ch := range changes {
		m.log.Info("sla urgency changed", "case_id", ch.CaseID, "from", ch.Previous, "to", ch.SLA.Urgency)
		if m.notifier != nil {
			m.notifier.UrgencyChanged(ctx, ch)
		}
	}
	if m.notifier != nil {
		m.notifier.SLATick(ctx, tick)
	}
	m.publishGauges(tick)
	return tick
}

func (m *SLAMonitor) publishGauges(tick SLATick) {
	metrics := observability.Current()
	if metrics == nil {
		return
	}
	byStatus := map[string]int{}
	for st, n := range m.reg.Counts() {
		byStatus[string(st)] = n
	}
	byUrgency := map[string]int{}
	for u, n := range tick.Counts {
		byUrgency[string(u)] = n
	}
	metrics.SetCaseGauges(byStatus, byUrgency)
}
