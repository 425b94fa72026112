package cases_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/prism-backend/internal/data/dbctx"
	"github.com/yungbote/prism-backend/internal/data/repos/cases"
	"github.com/yungbote/prism-backend/internal/data/repos/testutil"
	"github.com/yungbote/prism-backend/internal/domain/review"
)

func TestCaseRepoRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := cases.NewCaseRepo(db, testutil.Logger(t))

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	id := "case-" + uuid.NewString()[:8]
	sentAt := now.Add(2 * time.Hour)
	c := &review.Case{
		ID:          id,
		PatientName: "Jane Doe",
		PolicyID:    "pol-mri",
		PolicyName:  "Lumbar MRI",
		ReceivedAt:  now,
		SLAHours:    24,
		Status:      review.StatusActionRequired,
		Verdict: &review.Verdict{
			Attempt:  1,
			Outcome:  review.OutcomeActionRequired,
			Entities: []string{"CRP"},
			Evidence: &review.EvidenceCitation{Quote: "elevated CRP", Page: 3},
		},
		VerdictCount: 1,
		RFI:          &review.RFIState{Round: 1, Draft: "labs", Sent: true, SentAt: &sentAt, SentMessage: "labs"},
		DocumentRef:  "local://a.pdf",
		Version:      3,
		UpdatedAt:    now,
	}
	if err := repo.Save(dbc, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByID(dbc, id)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Status != review.StatusActionRequired || got.Version != 3 {
		t.Fatalf("unexpected case: status=%s version=%d", got.Status, got.Version)
	}
	if got.Verdict == nil || got.Verdict.Evidence.Page != 3 || got.Verdict.Entities[0] != "CRP" {
		t.Fatalf("verdict not restored: %+v", got.Verdict)
	}
	if got.RFI == nil || !got.RFI.Sent || got.RFI.SentAt == nil || !got.RFI.SentAt.Equal(sentAt) {
		t.Fatalf("rfi not restored: %+v", got.RFI)
	}
}

func TestCaseRepoSaveKeepsNewerVersionAndSettlesAnalyzing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := cases.NewCaseRepo(db, testutil.Logger(t))

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	id := "case-" + uuid.NewString()[:8]
	base := review.Case{ID: id, PolicyID: "pol-mri", ReceivedAt: now, SLAHours: 72, UpdatedAt: now}

	analyzing := base
	analyzing.Status = review.StatusAnalyzing
	analyzing.Version = 2
	if err := repo.Save(dbc, &analyzing); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := repo.GetByID(dbc, id)
	if got.Status != review.StatusPending {
		t.Fatalf("in-flight status persisted: %s", got.Status)
	}

	older := base
	older.Status = review.StatusDenied
	older.Version = 1
	if err := repo.Save(dbc, &older); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	got, _ = repo.GetByID(dbc, id)
	if got.Version != 2 || got.Status != review.StatusPending {
		t.Fatalf("older snapshot overwrote newer: version=%d status=%s", got.Version, got.Status)
	}

	newer := base
	newer.Status = review.StatusApproved
	newer.Version = 5
	if err := repo.Save(dbc, &newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}
	got, _ = repo.GetByID(dbc, id)
	if got.Version != 5 || got.Status != review.StatusApproved {
		t.Fatalf("newer snapshot not applied: version=%d status=%s", got.Version, got.Status)
	}
}

func TestCaseRepoKeepsAttemptsOfUnfinishedSubmissions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := cases.NewCaseRepo(db, testutil.Logger(t))

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	id := "case-" + uuid.NewString()[:8]
	c := review.Case{ID: id, PolicyID: "pol-mri", ReceivedAt: now, SLAHours: 72, UpdatedAt: now}
	c.Status = review.StatusAnalyzing
	c.Attempts = 3
	c.Version = 4
	if err := repo.Save(dbc, &c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.GetByID(dbc, id)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Attempts != 3 || got.VerdictCount != 0 {
		t.Fatalf("attempts: want=3 got=%d (verdicts=%d)", got.Attempts, got.VerdictCount)
	}

	c.Status = review.StatusPending
	c.Attempts = 4
	c.Version = 6
	if err := repo.Save(dbc, &c); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	got, _ = repo.GetByID(dbc, id)
	if got.Attempts != 4 {
		t.Fatalf("attempts after update: want=4 got=%d", got.Attempts)
	}
}

func TestCaseRepoVerdictHistory(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := cases.NewCaseRepo(db, testutil.Logger(t))

	id := "case-" + uuid.NewString()[:8]
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for _, v := range []*review.Verdict{
		{Attempt: 2, Outcome: review.OutcomeApproved, CompletedAt: now.Add(time.Hour)},
		{Attempt: 1, Outcome: review.OutcomeDenied, CompletedAt: now},
		{Attempt: 2, Outcome: review.OutcomeDenied, CompletedAt: now.Add(2 * time.Hour)},
	} {
		if err := repo.AppendVerdict(dbc, id, v); err != nil {
			t.Fatalf("AppendVerdict: %v", err)
		}
	}
	history, err := repo.ListVerdicts(dbc, id)
	if err != nil {
		t.Fatalf("ListVerdicts: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length: want=2 got=%d", len(history))
	}
	if history[0].Outcome != review.OutcomeDenied || history[1].Outcome != review.OutcomeApproved {
		t.Fatalf("unexpected history: %v, %v", history[0].Outcome, history[1].Outcome)
	}
}

func TestCaseRepoGetMissing(t *testing.T) {
	db := testutil.DB(t)
	repo := cases.NewCaseRepo(db, testutil.Logger(t))
	got, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, "case-none")
	if err != nil || got != nil {
		t.Fatalf("want nil,nil got=%v,%v", got, err)
	}
}
