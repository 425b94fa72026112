// Package rfimail delivers requests for information to providers.
package rfimail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/prism-backend/internal/modules/review/rfi"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/platform/sendgrid"
)

var tracer = otel.Tracer("github.com/yungbote/prism-backend/internal/clients/rfimail")

var ErrNoRecipient = errors.New("no recipient for request for information")

// EmailTransport sends each RFI as a plain-text e-mail through SendGrid.
type EmailTransport struct {
	log    *logger.Logger
	client sendgrid.Client
	now    func() time.Time
}

func NewEmailTransport(log *logger.Logger, client sendgrid.Client) *EmailTransport {
	return &EmailTransport{
		log:    log.With("client", "RfiEmailTransport"),
		client: client,
		now:    time.Now,
	}
}

func (t *EmailTransport) Send(ctx context.Context, msg rfi.Message) (rfi.Ack, error) {
	ctx, span := tracer.Start(ctx, "rfi.send_email")
	defer span.End()
	span.SetAttributes(
		attribute.String("case.id", msg.CaseID),
		attribute.Int("rfi.round", msg.Round),
	)

	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		span.SetStatus(codes.Error, ErrNoRecipient.Error())
		return rfi.Ack{}, ErrNoRecipient
	}
	res, err := t.client.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: recipient}},
		Subject:    Subject(msg),
		Text:       msg.Body,
		Categories: []string{"prior-auth-rfi"},
		Headers:    map[string]string{"X-Idempotency-Key": msg.IdempotencyKey},
		CustomArgs: map[string]string{
			"case_id":         msg.CaseID,
			"rfi_round":       fmt.Sprint(msg.Round),
			"idempotency_key": msg.IdempotencyKey,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sendgrid send failed")
		return rfi.Ack{}, err
	}
	id := res.MessageID
	if id == "" {
		id = msg.IdempotencyKey
	}
	return rfi.Ack{ID: id, SentAt: t.now().UTC()}, nil
}

// Subject is the e-mail subject line for an RFI.
func Subject(msg rfi.Message) string {
	if msg.Round > 1 {
		return fmt.Sprintf("Request for information: case %s (round %d)", msg.CaseID, msg.Round)
	}
	return fmt.Sprintf("Request for information: case %s", msg.CaseID)
}

// LogTransport records the RFI in the log instead of sending it. It is used
// when no mail provider is configured.
type LogTransport struct {
	log *logger.Logger
	now func() time.Time
}

func NewLogTransport(log *logger.Logger) *LogTransport {
	return &LogTransport{log: log.With("client", "RfiLogTransport"), now: time.Now}
}

func (t *LogTransport) Send(ctx context.Context, msg rfi.Message) (rfi.Ack, error) {
	ack := rfi.Ack{ID: "log-" + uuid.NewString(), SentAt: t.now().UTC()}
	t.log.Info("rfi recorded (no mail transport configured)",
		"case_id", msg.CaseID,
		"round", msg.Round,
		"recipient_email", msg.Recipient,
		"message", msg.Body,
		"ack_id", ack.ID,
	)
	return ack, nil
}
