package cases

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/prism-backend/internal/data/dbctx"
	"github.com/yungbote/prism-backend/internal/domain/review"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

type CaseRepo interface {
	// Save writes the snapshot unless a newer version is already stored.
	Save(dbc dbctx.Context, c *review.Case) error
	// AppendVerdict records v in the history. Re-recording an attempt is a no-op.
	AppendVerdict(dbc dbctx.Context, caseID string, v *review.Verdict) error
	LoadAll(dbc dbctx.Context) ([]*review.Case, error)
	GetByID(dbc dbctx.Context, id string) (*review.Case, error)
	ListVerdicts(dbc dbctx.Context, caseID string) ([]*review.Verdict, error)
}

type caseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseRepo(db *gorm.DB, baseLog *logger.Logger) CaseRepo {
	return &caseRepo{
		db:  db,
		log: baseLog.With("repo", "CaseRepo"),
	}
}

func (r *caseRepo) Save(dbc dbctx.Context, c *review.Case) error {
	if c == nil || c.ID == "" {
		return nil
	}
	row, err := toRow(c)
	if err != nil {
		return err
	}
	return dbc.Or(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "case_record.version < excluded.version"},
			}},
			DoUpdates: clause.AssignmentColumns([]string{
				"patient_name",
				"policy_id",
				"policy_name",
				"provider_id",
				"provider_email",
				"received_at",
				"sla_hours",
				"status",
				"verdict",
				"verdict_count",
				"attempts",
				"rfi",
				"document_ref",
				"version",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *caseRepo) AppendVerdict(dbc dbctx.Context, caseID string, v *review.Verdict) error {
	if v == nil || caseID == "" {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	row := &VerdictRow{
		ID:          uuid.NewString(),
		CaseID:      caseID,
		Attempt:     v.Attempt,
		Outcome:     string(v.Outcome),
		Payload:     datatypes.JSON(payload),
		CompletedAt: v.CompletedAt,
	}
	return dbc.Or(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "case_id"}, {Name: "attempt"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *caseRepo) LoadAll(dbc dbctx.Context) ([]*review.Case, error) {
	var rows []*CaseRow
	if err := dbc.Or(r.db).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*review.Case, 0, len(rows))
	for _, row := range rows {
		c, err := fromRow(row)
		if err != nil {
			r.log.Warn("skipping unreadable case row", "case_id", row.ID, "error", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *caseRepo) GetByID(dbc dbctx.Context, id string) (*review.Case, error) {
	var row CaseRow
	err := dbc.Or(r.db).Where("id = ?", id).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, nil
	}
	return fromRow(&row)
}

func (r *caseRepo) ListVerdicts(dbc dbctx.Context, caseID string) ([]*review.Verdict, error) {
	var rows []*VerdictRow
	if err := dbc.Or(r.db).
		Where("case_id = ?", caseID).
		Order("attempt ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*review.Verdict, 0, len(rows))
	for _, row := range rows {
		var v review.Verdict
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode verdict %s/%d: %w", caseID, row.Attempt, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

func toRow(c *review.Case) (*CaseRow, error) {
	row := &CaseRow{
		ID:            c.ID,
		PatientName:   c.PatientName,
		PolicyID:      c.PolicyID,
		PolicyName:    c.PolicyName,
		ProviderID:    c.ProviderID,
		ProviderEmail: c.ProviderEmail,
		ReceivedAt:    c.ReceivedAt.UTC(),
		SLAHours:      c.SLAHours,
		Status:        string(c.SettledStatus()),
		VerdictCount:  c.VerdictCount,
		Attempts:      c.Attempts,
		DocumentRef:   c.DocumentRef,
		Version:       c.Version,
		CreatedAt:     c.ReceivedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}
	if c.Verdict != nil {
		b, err := json.Marshal(c.Verdict)
		if err != nil {
			return nil, fmt.Errorf("marshal verdict: %w", err)
		}
		row.Verdict = datatypes.JSON(b)
	}
	if c.RFI != nil {
		b, err := json.Marshal(c.RFI)
		if err != nil {
			return nil, fmt.Errorf("marshal rfi: %w", err)
		}
		row.RFI = datatypes.JSON(b)
	}
	return row, nil
}

func fromRow(row *CaseRow) (*review.Case, error) {
	status, err := review.ParseStatus(row.Status)
	if err != nil {
		return nil, err
	}
	c := &review.Case{
		ID:            row.ID,
		PatientName:   row.PatientName,
		PolicyID:      row.PolicyID,
		PolicyName:    row.PolicyName,
		ProviderID:    row.ProviderID,
		ProviderEmail: row.ProviderEmail,
		ReceivedAt:    row.ReceivedAt.UTC(),
		SLAHours:      row.SLAHours,
		Status:        status,
		VerdictCount:  row.VerdictCount,
		Attempts:      row.Attempts,
		DocumentRef:   row.DocumentRef,
		Version:       row.Version,
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
	if len(row.Verdict) > 0 && string(row.Verdict) != "null" {
		var v review.Verdict
		if err := json.Unmarshal(row.Verdict, &v); err != nil {
			return nil, fmt.Errorf("decode verdict: %w", err)
		}
		c.Verdict = &v
	}
	if len(row.RFI) > 0 && string(row.RFI) != "null" {
		var rfi review.RFIState
		if err := json.Unmarshal(row.RFI, &rfi); err != nil {
			return nil, fmt.Errorf("decode rfi: %w", err)
		}
		c.RFI = &rfi
	}
	return c, nil
}
