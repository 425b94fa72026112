package cases

import (
	"time"

	"gorm.io/datatypes"
)

// CaseRow is the durable snapshot of a case. Status is never ANALYZING.
type CaseRow struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	PatientName   string         `gorm:"column:patient_name" json:"patient_name"`
	PolicyID      string         `gorm:"column:policy_id;not null;index" json:"policy_id"`
	PolicyName    string         `gorm:"column:policy_name" json:"policy_name"`
	ProviderID    string         `gorm:"column:provider_id;index" json:"provider_id,omitempty"`
	ProviderEmail string         `gorm:"column:provider_email" json:"provider_email,omitempty"`
	ReceivedAt    time.Time      `gorm:"column:received_at;not null;index" json:"received_at"`
	SLAHours      float64        `gorm:"column:sla_hours;not null" json:"sla_hours"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	Verdict       datatypes.JSON `gorm:"column:verdict" json:"verdict,omitempty"`
	VerdictCount  int            `gorm:"column:verdict_count;not null;default:0" json:"verdict_count"`
	Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	RFI           datatypes.JSON `gorm:"column:rfi" json:"rfi,omitempty"`
	DocumentRef   string         `gorm:"column:document_ref" json:"document_ref"`
	Version       uint64         `gorm:"column:version;not null" json:"version"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (CaseRow) TableName() string { return "case_record" }

// VerdictRow is one entry of a case's verdict history.
type VerdictRow struct {
	ID          string         `gorm:"column:id;primaryKey" json:"id"`
	CaseID      string         `gorm:"column:case_id;not null;uniqueIndex:idx_case_verdict_attempt" json:"case_id"`
	Attempt     int            `gorm:"column:attempt;not null;uniqueIndex:idx_case_verdict_attempt" json:"attempt"`
	Outcome     string         `gorm:"column:outcome;not null;index" json:"outcome"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload"`
	CompletedAt time.Time      `gorm:"column:completed_at;not null;index" json:"completed_at"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (VerdictRow) TableName() string { return "case_verdict" }
