package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/prism-backend/internal/data/dbctx"
	"github.com/yungbote/prism-backend/internal/data/repos/cases"
	"github.com/yungbote/prism-backend/internal/modules/review/lifecycle"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

const caseSyncQueueSize = 256

// CaseSync mirrors committed lifecycle changes into the case repository.
// Writes happen on one goroutine in commit order; the repository's version
// guard makes a late duplicate harmless.
type CaseSync struct {
	log     *logger.Logger
	repo    cases.CaseRepo
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan lifecycle.Event
	done   chan struct{}
	unsub  func()
}

func NewCaseSync(baseLog *logger.Logger, repo cases.CaseRepo) *CaseSync {
	return &CaseSync{
		log:     baseLog.With("service", "CaseSync"),
		repo:    repo,
		timeout: 10 * time.Second,
		queue:   make(chan lifecycle.Event, caseSyncQueueSize),
		done:    make(chan struct{}),
	}
}

// Restore loads every stored case into lc. Call it before Attach.
func (s *CaseSync) Restore(ctx context.Context, lc *lifecycle.Lifecycle) (int, error) {
	rows, err := s.repo.LoadAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return 0, fmt.Errorf("load cases: %w", err)
	}
	n := 0
	for _, c := range rows {
		if err := lc.Restore(c); err != nil {
			s.log.Warn("skip stored case", "case_id", c.ID, "error", err)
			continue
		}
		n++
	}
	s.log.Info("cases restored", "count", n)
	return n, nil
}

// Attach subscribes to lc and starts the writer.
func (s *CaseSync) Attach(lc *lifecycle.Lifecycle) {
	s.unsub = lc.Subscribe(s.enqueue)
	go s.run()
}

func (s *CaseSync) enqueue(ev lifecycle.Event) {
	if ev.Type == lifecycle.EventRestored || ev.Case == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.log.Warn("case sync queue full; writing inline", "case_id", ev.Case.ID)
		s.write(ev)
	}
}

func (s *CaseSync) run() {
	defer close(s.done)
	for ev := range s.queue {
		s.write(ev)
	}
}

func (s *CaseSync) write(ev lifecycle.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	dbc := dbctx.Context{Ctx: ctx}

	if ev.Type == lifecycle.EventVerdict && ev.Case.Verdict != nil {
		if err := s.repo.AppendVerdict(dbc, ev.Case.ID, ev.Case.Verdict); err != nil {
			s.log.Error("append verdict failed", "case_id", ev.Case.ID, "attempt", ev.Attempt, "error", err)
		}
	}
	if err := s.repo.Save(dbc, ev.Case); err != nil {
		s.log.Error("save case failed", "case_id", ev.Case.ID, "version", ev.Case.Version, "error", err)
	}
}

// Close stops listening and waits for queued writes to finish.
func (s *CaseSync) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.unsub != nil {
		s.unsub()
	}
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}
