package services

import (
	"context"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/modules/review/lifecycle"
	"github.com/yungbote/prism-backend/internal/modules/review/sla"
	"github.com/yungbote/prism-backend/internal/realtime"
)

type CaseNotifier interface {
	CaseUpdated(ctx context.Context, ev lifecycle.Event)
	SLATick(ctx context.Context, tick SLATick)
	UrgencyChanged(ctx context.Context, change UrgencyChange)
}

type caseNotifier struct {
	emitter SSEEmitter
}

func NewCaseNotifier(emitter SSEEmitter) CaseNotifier {
	return &caseNotifier{emitter: emitter}
}

func (n *caseNotifier) CaseUpdated(ctx context.Context, ev lifecycle.Event) {
	if ev.Case == nil {
		return
	}
	data := map[string]any{
		"type":    ev.Type,
		"case_id": ev.Case.ID,
		"status":  ev.Case.Status,
		"version": ev.Case.Version,
		"case":    ev.Case,
	}
	if ev.Attempt > 0 {
		data["attempt"] = ev.Attempt
	}
	if ev.ErrKind != "" {
		data["error_kind"] = ev.ErrKind
	}
	n.both(ctx, ev.Case.ID, realtime.SSEEventCaseUpdated, data)
}

func (n *caseNotifier) SLATick(ctx context.Context, tick SLATick) {
	n.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelAll,
		Event:   realtime.SSEEventSLATick,
		Data:    tick,
	})
}

func (n *caseNotifier) UrgencyChanged(ctx context.Context, change UrgencyChange) {
	n.both(ctx, change.CaseID, realtime.SSEEventSLAUrgencyChanged, change)
}

func (n *caseNotifier) both(ctx context.Context, caseID string, event realtime.SSEEvent, data any) {
	n.emitter.Emit(ctx, realtime.SSEMessage{Channel: realtime.CaseChannel(caseID), Event: event, Data: data})
	n.emitter.Emit(ctx, realtime.SSEMessage{Channel: realtime.ChannelAll, Event: event, Data: data})
}

type SLATick struct {
	At     string              `json:"at"`
	Open   int                 `json:"open"`
	Counts map[sla.Urgency]int `json:"counts"`
}

type UrgencyChange struct {
	CaseID   string        `json:"case_id"`
	Status   review.Status `json:"status"`
	Previous sla.Urgency   `json:"previous"`
	SLA      sla.View      `json:"sla"`
}

// AttachNotifier forwards every lifecycle commit to n. The returned func detaches it.
func AttachNotifier(lc *lifecycle.Lifecycle, n CaseNotifier) func() {
	return lc.Subscribe(func(ev lifecycle.Event) {
		n.CaseUpdated(context.Background(), ev)
	})
}
