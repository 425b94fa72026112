// Package rfi manages the draft, send and acknowledgement of a request for
// information to the provider of an ACTION_REQUIRED case.
//
// The RFI state itself lives on the case record; every change goes through
// the lifecycle. A sent round is final.
package rfi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/platform/ctxutil"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

// CaseStore is the slice of the lifecycle the workflow needs.
type CaseStore interface {
	Get(caseID string) (*review.Case, error)
	MutateRFI(caseID string, fn func(*review.RFIState) error) (*review.Case, error)
}

type Workflow struct {
	log       *logger.Logger
	cases     CaseStore
	transport Transport
	// fallbackRecipient is used when the case has no provider e-mail.
	fallbackRecipient string
	flight            singleflight.Group
}

func NewWorkflow(log *logger.Logger, cases CaseStore, transport Transport, fallbackRecipient string) *Workflow {
	if log == nil {
		log = logger.Nop()
	}
	return &Workflow{
		log:               log.With("component", "RfiWorkflow"),
		cases:             cases,
		transport:         transport,
		fallbackRecipient: strings.TrimSpace(fallbackRecipient),
	}
}

// ApplyTemplate replaces the draft with the template's body.
func (w *Workflow) ApplyTemplate(caseID, templateID string) (*review.Case, error) {
	tpl, err := LookupTemplate(templateID)
	if err != nil {
		return nil, review.NewError(review.KindUnknownTemplate, caseID, fmt.Errorf("template %q", templateID))
	}
	return w.UpdateDraft(caseID, tpl.Body)
}

// UpdateDraft replaces the draft text. It fails with RfiAlreadySent once the
// round has been sent.
func (w *Workflow) UpdateDraft(caseID, text string) (*review.Case, error) {
	return w.cases.MutateRFI(caseID, func(r *review.RFIState) error {
		if r.Sent {
			return review.NewError(review.KindRFIAlreadySent, caseID, nil)
		}
		r.Draft = text
		return nil
	})
}

// Draft returns the current RFI state of the case.
func (w *Workflow) Draft(caseID string) (review.RFIState, error) {
	c, err := w.cases.Get(caseID)
	if err != nil {
		return review.RFIState{}, err
	}
	if c.RFI == nil {
		return review.RFIState{}, review.NewError(review.KindInvalidState, caseID, fmt.Errorf("no request for information in status %s", c.Status))
	}
	return *c.RFI, nil
}

// Send delivers the current draft. Concurrent calls for one case share a single
// delivery. After a successful send every further call fails with AlreadySent
// and never reaches the transport. A transport failure leaves the draft as it
// was so the caller can retry.
func (w *Workflow) Send(ctx context.Context, caseID string) (*review.Case, Ack, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)
	ch := w.flight.DoChan(caseID, func() (interface{}, error) {
		return w.send(detached, caseID)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, Ack{}, review.NewError(review.KindRFISendFailed, caseID, fmt.Errorf("stopped waiting for delivery: %w", ctx.Err()))
	}
	if res.Err != nil {
		return nil, Ack{}, res.Err
	}
	out := res.Val.(sendResult)
	return out.c.Clone(), out.ack, nil
}

type sendResult struct {
	c   *review.Case
	ack Ack
}

func (w *Workflow) send(ctx context.Context, caseID string) (sendResult, error) {
	c, err := w.cases.Get(caseID)
	if err != nil {
		return sendResult{}, err
	}
	if c.Status != review.StatusActionRequired || c.RFI == nil {
		return sendResult{}, review.NewError(review.KindInvalidState, caseID, fmt.Errorf("no request for information in status %s", c.Status))
	}
	if c.RFI.Sent {
		return sendResult{}, review.NewError(review.KindAlreadySent, caseID, nil)
	}
	body := c.RFI.Draft
	if strings.TrimSpace(body) == "" {
		return sendResult{}, review.NewError(review.KindEmptyDraft, caseID, nil)
	}
	if w.transport == nil {
		return sendResult{}, review.NewError(review.KindRFISendFailed, caseID, errors.New("no rfi transport configured"))
	}
	round := c.RFI.Round
	recipient := c.ProviderEmail
	if recipient == "" {
		recipient = w.fallbackRecipient
	}

	ack, err := w.transport.Send(ctx, Message{
		CaseID:         caseID,
		Round:          round,
		Body:           body,
		Recipient:      recipient,
		IdempotencyKey: fmt.Sprintf("%s:rfi:%d", caseID, round),
	})
	if err != nil {
		w.log.Warn("rfi send failed", "case_id", caseID, "round", round, "error", err)
		return sendResult{}, review.NewError(review.KindRFISendFailed, caseID, err)
	}

	sentBy := ctxutil.Reviewer(ctx)
	updated, err := w.cases.MutateRFI(caseID, func(r *review.RFIState) error {
		if r.Round != round {
			return review.NewError(review.KindInvalidState, caseID, fmt.Errorf("rfi round moved from %d to %d during send", round, r.Round))
		}
		if r.Sent {
			return review.NewError(review.KindAlreadySent, caseID, nil)
		}
		sentAt := ack.SentAt.UTC()
		r.Sent = true
		r.SentAt = &sentAt
		r.SentMessage = body
		r.Draft = body
		r.SentBy = sentBy
		r.AckID = ack.ID
		return nil
	})
	if err != nil {
		// delivered but the case moved on; the provider already has the message
		w.log.Error("rfi delivered but not recorded", "case_id", caseID, "round", round, "ack_id", ack.ID, "error", err)
		return sendResult{}, err
	}
	w.log.Info("rfi sent", "case_id", caseID, "round", round, "ack_id", ack.ID, "reviewer_id", sentBy)
	return sendResult{c: updated, ack: ack}, nil
}
