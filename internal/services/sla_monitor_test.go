package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/modules/review/lifecycle"
	"github.com/yungbote/prism-backend/internal/modules/review/registry"
	"github.com/yungbote/prism-backend/internal/modules/review/sla"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/realtime"
)

type recordingNotifier struct {
	mu      sync.Mutex
	ticks   []SLATick
	changes []UrgencyChange
	updates []lifecycle.Event
}

func (n *recordingNotifier) CaseUpdated(ctx context.Context, ev lifecycle.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, ev)
}

func (n *recordingNotifier) SLATick(ctx context.Context, tick SLATick) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ticks = append(n.ticks, tick)
}

func (n *recordingNotifier) UrgencyChanged(ctx context.Context, change UrgencyChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
}

func TestSLAMonitorReportsThresholdCrossings(t *testing.T) {
	received := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	reg := registry.New()
	reg.Upsert(&review.Case{ID: "case-001", ReceivedAt: received, SLAHours: 24, Status: review.StatusPending})
	reg.Upsert(&review.Case{ID: "case-002", ReceivedAt: received, SLAHours: 72, Status: review.StatusActionRequired})
	reg.Upsert(&review.Case{ID: "case-003", ReceivedAt: received, SLAHours: 24, Status: review.StatusApproved})

	rec := &recordingNotifier{}
	m := NewSLAMonitor(logger.Nop(), reg, rec, time.Minute)
	ctx := context.Background()

	first := m.Tick(ctx, received.Add(time.Hour))
	if first.Open != 2 {
		t.Fatalf("open cases: want=2 got=%d", first.Open)
	}
	if first.Counts[sla.UrgencyUrgent] != 1 || first.Counts[sla.UrgencyNormal] != 1 {
		t.Fatalf("first tick counts: %v", first.Counts)
	}
	if len(rec.changes) != 0 {
		t.Fatalf("first sighting must not report changes, got %+v", rec.changes)
	}

	second := m.Tick(ctx, received.Add(21*time.Hour))
	if second.Counts[sla.UrgencyCritical] != 1 {
		t.Fatalf("second tick counts: %v", second.Counts)
	}
	if len(rec.changes) != 1 {
		t.Fatalf("changes: want=1 got=%+v", rec.changes)
	}
	ch := rec.changes[0]
	if ch.CaseID != "case-001" || ch.Previous != sla.UrgencyUrgent || ch.SLA.Urgency != sla.UrgencyCritical {
		t.Fatalf("unexpected change: %+v", ch)
	}

	m.Tick(ctx, received.Add(25*time.Hour))
	if len(rec.changes) != 3 {
		t.Fatalf("changes after overdue and warning: want=3 got=%d", len(rec.changes))
	}
	if len(rec.ticks) != 3 {
		t.Fatalf("ticks: want=3 got=%d", len(rec.ticks))
	}
}

func TestSLAMonitorForgetsClosedCases(t *testing.T) {
	received := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	reg := registry.New()
	reg.Upsert(&review.Case{ID: "case-001", ReceivedAt: received, SLAHours: 24, Status: review.StatusPending, Version: 1})
	rec := &recordingNotifier{}
	m := NewSLAMonitor(logger.Nop(), reg, rec, time.Minute)

	m.Tick(context.Background(), received)
	reg.Upsert(&review.Case{ID: "case-001", ReceivedAt: received, SLAHours: 24, Status: review.StatusDenied, Version: 2})
	tick := m.Tick(context.Background(), received.Add(30*time.Hour))
	if tick.Open != 0 || len(rec.changes) != 0 {
		t.Fatalf("closed case still tracked: tick=%+v changes=%+v", tick, rec.changes)
	}
	if len(m.last) != 0 {
		t.Fatalf("monitor state should be empty, got %v", m.last)
	}
}

func TestCaseNotifierPublishesToCaseAndAllChannels(t *testing.T) {
	hub := realtime.NewSSEHub(logger.Nop())
	one := hub.NewSSEClient("")
	all := hub.NewSSEClient("")
	hub.AddChannel(one, realtime.CaseChannel("case-001"))
	hub.AddChannel(all, realtime.ChannelAll)

	n := NewCaseNotifier(&HubEmitter{Hub: hub})
	n.CaseUpdated(context.Background(), lifecycle.Event{
		Type: lifecycle.EventVerdict,
		Case: &review.Case{ID: "case-001", Status: review.StatusDenied, Version: 3},
	})
	n.SLATick(context.Background(), SLATick{Open: 1})

	if got := len(one.Outbound); got != 1 {
		t.Fatalf("case channel messages: want=1 got=%d", got)
	}
	if got := len(all.Outbound); got != 2 {
		t.Fatalf("all channel messages: want=2 got=%d", got)
	}
	msg := <-one.Outbound
	data, ok := msg.Data.(map[string]any)
	if !ok || msg.Event != realtime.SSEEventCaseUpdated || data["status"] != review.StatusDenied {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
