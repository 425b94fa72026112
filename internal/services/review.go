package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/modules/review/evidence"
	"github.com/yungbote/prism-backend/internal/modules/review/lifecycle"
	"github.com/yungbote/prism-backend/internal/modules/review/registry"
	"github.com/yungbote/prism-backend/internal/modules/review/rfi"
	"github.com/yungbote/prism-backend/internal/modules/review/sla"
	"github.com/yungbote/prism-backend/internal/platform/docstore"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

const UnknownPatient = "Unknown Patient"

// PolicyLister is the policy catalog as the review service sees it.
type PolicyLister interface {
	lifecycle.PolicyCatalog
	List() []review.Policy
}

type RegisterCaseInput struct {
	PatientName   string
	PolicyID      string
	SLAHours      float64
	ProviderID    string
	ProviderEmail string
	// Document is the uploaded request packet. It is required and must not be empty.
	FileName string
	Document io.Reader
}

// CaseDetail is a case with everything derived from it at read time.
type CaseDetail struct {
	Case     *review.Case     `json:"case"`
	SLA      sla.View         `json:"sla"`
	Evidence *evidence.Target `json:"evidence,omitempty"`
}

type DecisionExport struct {
	FileName string
	Body     []byte
}

type ReviewService interface {
	RegisterCase(ctx context.Context, in RegisterCaseInput) (*review.Case, error)
	GetCase(caseID string) (*CaseDetail, error)
	ListCases(q registry.Query) []registry.Summary
	Counts() map[review.Status]int
	SubmitCase(ctx context.Context, caseID, policyID string) (*review.Case, error)
	DeliverVerdict(caseID string, attempt int, in review.VerdictInput) (*review.Case, error)
	Evidence(caseID string) (*evidence.Target, error)
	ExportDecision(caseID string) (*DecisionExport, error)
	ApplyTemplate(caseID, templateID string) (*review.Case, error)
	UpdateDraft(caseID, text string) (*review.Case, error)
	SendRFI(ctx context.Context, caseID string) (*review.Case, rfi.Ack, error)
	Templates() []rfi.Template
	Policies() []review.Policy
	Policy(id string) (review.Policy, bool)
}

type reviewService struct {
	log       *logger.Logger
	lifecycle *lifecycle.Lifecycle
	workflow  *rfi.Workflow
	docs      docstore.Store
	policies  PolicyLister
	now       func() time.Time
}

func NewReviewService(
	baseLog *logger.Logger,
	lc *lifecycle.Lifecycle,
	workflow *rfi.Workflow,
	docs docstore.Store,
	policies PolicyLister,
) ReviewService {
	return &reviewService{
		log:       baseLog.With("service", "ReviewService"),
		lifecycle: lc,
		workflow:  workflow,
		docs:      docs,
		policies:  policies,
		now:       time.Now,
	}
}

func (s *reviewService) RegisterCase(ctx context.Context, in RegisterCaseInput) (*review.Case, error) {
	policyID := strings.TrimSpace(in.PolicyID)
	if _, ok := s.policies.Get(policyID); !ok {
		return nil, review.NewError(review.KindUnknownPolicy, "", fmt.Errorf("policy %q", policyID))
	}
	if in.SLAHours < 0 {
		return nil, review.NewError(review.KindInvalidArgument, "", fmt.Errorf("sla hours must be positive, got %v", in.SLAHours))
	}

	if in.Document == nil {
		return nil, review.NewError(review.KindInvalidArgument, "", errors.New("document is required"))
	}
	doc := bufio.NewReader(in.Document)
	if _, err := doc.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, review.NewError(review.KindInvalidArgument, "", errors.New("document is empty"))
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	if s.docs == nil {
		return nil, review.NewError(review.KindInvalidArgument, "", errors.New("document storage is not configured"))
	}

	id := s.lifecycle.Registry().NextID()
	ref, err := s.docs.Put(ctx, docstore.ObjectKey(id, in.FileName), doc)
	if err != nil {
		return nil, fmt.Errorf("store document for %s: %w", id, err)
	}

	return s.lifecycle.Register(lifecycle.RegisterInput{
		ID:            id,
		PatientName:   PatientNameOrFallback(in.PatientName, in.FileName),
		PolicyID:      policyID,
		SLAHours:      in.SLAHours,
		ProviderID:    in.ProviderID,
		ProviderEmail: in.ProviderEmail,
		DocumentRef:   ref,
	})
}

// PatientNameOrFallback keeps an explicit name, else derives one from the
// uploaded file's name ("jane_doe_mri.pdf" -> "Jane Doe Mri").
func PatientNameOrFallback(name, fileName string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(stem)), " ")
	if stem == "" || stem == "." || stem == "/" {
		return UnknownPatient
	}
	return cases.Title(language.English).String(strings.ToLower(stem))
}

func (s *reviewService) GetCase(caseID string) (*CaseDetail, error) {
	c, err := s.lifecycle.Get(caseID)
	if err != nil {
		return nil, err
	}
	out := &CaseDetail{Case: c, SLA: sla.ForCase(c, s.now())}
	if t, ok := evidence.LocateCase(c); ok {
		out.Evidence = &t
	}
	return out, nil
}

func (s *reviewService) ListCases(q registry.Query) []registry.Summary {
	return s.lifecycle.Registry().List(q, s.now())
}

func (s *reviewService) Counts() map[review.Status]int {
	return s.lifecycle.Registry().Counts()
}

func (s *reviewService) SubmitCase(ctx context.Context, caseID, policyID string) (*review.Case, error) {
	return s.lifecycle.Submit(ctx, caseID, strings.TrimSpace(policyID))
}

func (s *reviewService) DeliverVerdict(caseID string, attempt int, in review.VerdictInput) (*review.Case, error) {
	return s.lifecycle.DeliverVerdict(caseID, attempt, in)
}

// Evidence returns nil without error when the current verdict cites nothing.
func (s *reviewService) Evidence(caseID string) (*evidence.Target, error) {
	c, err := s.lifecycle.Get(caseID)
	if err != nil {
		return nil, err
	}
	t, ok := evidence.LocateCase(c)
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// ExportDecision renders the verdict's structured decision payload as an
// indented <case>_FHIR.json document.
func (s *reviewService) ExportDecision(caseID string) (*DecisionExport, error) {
	c, err := s.lifecycle.Get(caseID)
	if err != nil {
		return nil, err
	}
	if !c.HasVerdict() {
		return nil, review.NewError(review.KindInvalidState, caseID, errors.New("case has no verdict to export"))
	}
	if len(c.Verdict.Decision) == 0 {
		return nil, review.NewError(review.KindInvalidState, caseID, errors.New("verdict carries no decision payload"))
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, c.Verdict.Decision, "", "  "); err != nil {
		return nil, fmt.Errorf("format decision for %s: %w", caseID, err)
	}
	buf.WriteByte('\n')
	return &DecisionExport{FileName: c.ID + "_FHIR.json", Body: buf.Bytes()}, nil
}

func (s *reviewService) ApplyTemplate(caseID, templateID string) (*review.Case, error) {
	return s.workflow.ApplyTemplate(caseID, templateID)
}

func (s *reviewService) UpdateDraft(caseID, text string) (*review.Case, error) {
	return s.workflow.UpdateDraft(caseID, text)
}

func (s *reviewService) SendRFI(ctx context.Context, caseID string) (*review.Case, rfi.Ack, error) {
	return s.workflow.Send(ctx, caseID)
}

func (s *reviewService) Templates() []rfi.Template { return rfi.Templates() }

func (s *reviewService) Policies() []review.Policy { return s.policies.List() }

func (s *reviewService) Policy(id string) (review.Policy, bool) {
	return s.policies.Get(strings.TrimSpace(id))
}
