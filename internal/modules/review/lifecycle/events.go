package lifecycle

import (
	"sync"

	"github.com/yungbote/prism-backend/internal/domain/review"
)

type EventType string

const (
	EventRegistered     EventType = "case.registered"
	EventAnalyzing      EventType = "case.analyzing"
	EventVerdict        EventType = "case.verdict"
	EventAnalysisFailed EventType = "case.analysis_failed"
	EventRFIUpdated     EventType = "case.rfi_updated"
	EventRestored       EventType = "case.restored"
)

// Event describes one committed change to a case. Case is a copy shared by
// every listener of the same event; treat it as read-only.
type Event struct {
	Type    EventType
	Case    *review.Case
	Attempt int
	// ErrKind is set on EventAnalysisFailed.
	ErrKind review.ErrorKind
}

// Listener is called synchronously after each commit and must not block.
type Listener func(Event)

type listeners struct {
	mu   sync.RWMutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = map[int]Listener{}
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) emit(ev Event) {
	l.mu.RLock()
	fns := make([]Listener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
