package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/funnelworks/prospector/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LeadStage represents the pipeline stage of a lead
type LeadStage string

const (
	LeadStageLead        LeadStage = "lead"
	LeadStageContacted   LeadStage = "contacted"
	LeadStageQualified   LeadStage = "qualified"
	LeadStageProposal    LeadStage = "proposal"
	LeadStageNegotiation LeadStage = "negotiation"
	LeadStageClosedWon   LeadStage = "closed_won"
	LeadStageClosedLost  LeadStage = "closed_lost"
)

// AllLeadStages lists every stage in pipeline order
var AllLeadStages = []LeadStage{
	LeadStageLead,
	LeadStageContacted,
	LeadStageQualified,
	LeadStageProposal,
	LeadStageNegotiation,
	LeadStageClosedWon,
	LeadStageClosedLost,
}

// ClosedStages are the terminal stages excluded from open-pipeline queries
var ClosedStages = []LeadStage{LeadStageClosedWon, LeadStageClosedLost}

// String returns the string representation of the stage
func (s LeadStage) String() string {
	return string(s)
}

// Valid checks if the stage is valid
func (s LeadStage) Valid() bool {
	switch s {
	case LeadStageLead, LeadStageContacted, LeadStageQualified,
		LeadStageProposal, LeadStageNegotiation,
		LeadStageClosedWon, LeadStageClosedLost:
		return true
	default:
		return false
	}
}

// IsClosed reports whether the stage is terminal
func (s LeadStage) IsClosed() bool {
	return s == LeadStageClosedWon || s == LeadStageClosedLost
}

// DisplayName returns a human-readable stage name
func (s LeadStage) DisplayName() string {
	switch s {
	case LeadStageLead:
		return "New Lead"
	case LeadStageContacted:
		return "Contacted"
	case LeadStageQualified:
		return "Qualified"
	case LeadStageProposal:
		return "Proposal Sent"
	case LeadStageNegotiation:
		return "Negotiation"
	case LeadStageClosedWon:
		return "Closed Won"
	case LeadStageClosedLost:
		return "Closed Lost"
	default:
		return string(s)
	}
}

// Scan implements the sql.Scanner interface for LeadStage
func (s *LeadStage) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = LeadStage(v)
	case []byte:
		*s = LeadStage(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LeadStage", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for LeadStage
func (s LeadStage) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid LeadStage: %s", s)
	}
	return string(s), nil
}

// LeadPriority represents the priority level of a lead
type LeadPriority string

const (
	LeadPriorityLow    LeadPriority = "low"
	LeadPriorityMedium LeadPriority = "medium"
	LeadPriorityHigh   LeadPriority = "high"
)

// String returns the string representation of the priority
func (p LeadPriority) String() string {
	return string(p)
}

// Valid checks if the priority is valid
func (p LeadPriority) Valid() bool {
	switch p {
	case LeadPriorityLow, LeadPriorityMedium, LeadPriorityHigh:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable priority name
func (p LeadPriority) DisplayName() string {
	switch p {
	case LeadPriorityLow:
		return "Low"
	case LeadPriorityMedium:
		return "Medium"
	case LeadPriorityHigh:
		return "High"
	default:
		return string(p)
	}
}

// Scan implements the sql.Scanner interface for LeadPriority
func (p *LeadPriority) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*p = LeadPriority(v)
	case []byte:
		*p = LeadPriority(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LeadPriority", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for LeadPriority
func (p LeadPriority) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid LeadPriority: %s", p)
	}
	return string(p), nil
}

// Lead represents a sales prospect in the database
type Lead struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	OwnerID           uint             `gorm:"not null;index:idx_leads_owner_id;index:idx_leads_owner_stage,priority:1;index:idx_leads_owner_created_at,priority:1;index:idx_leads_owner_priority,priority:1" json:"owner_id"`
	Name              string           `gorm:"size:255;not null" json:"name"`
	Email             string           `gorm:"size:255;not null" json:"email"`
	Phone             *string          `gorm:"size:20" json:"phone,omitempty"`
	Company           *string          `gorm:"size:255" json:"company,omitempty"`
	JobTitle          *string          `gorm:"size:255" json:"job_title,omitempty"`
	Notes             *string          `gorm:"type:text" json:"notes,omitempty"`
	Stage             LeadStage        `gorm:"type:lead_stage;not null;default:'lead';index:idx_leads_stage;index:idx_leads_owner_stage,priority:2" json:"stage"`
	Priority          LeadPriority     `gorm:"type:lead_priority;not null;default:'medium';index:idx_leads_priority;index:idx_leads_owner_priority,priority:2" json:"priority"`
	Value             *decimal.Decimal `gorm:"type:decimal(12,2)" json:"value,omitempty"`
	LastContactedAt   *time.Time       `json:"last_contacted_at,omitempty"`
	ExpectedCloseDate *time.Time       `gorm:"index:idx_leads_expected_close_date" json:"expected_close_date,omitempty"`
	Source            *string          `gorm:"size:255" json:"source,omitempty"`
	CreatedAt         time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_leads_owner_created_at,priority:2" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Owner *User `gorm:"foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
}

// TableName returns the table name for the model
func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate is called before creating a new record
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.Stage == "" {
		l.Stage = LeadStageLead
	}
	if l.Priority == "" {
		l.Priority = LeadPriorityMedium
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (l *Lead) BeforeUpdate(tx *gorm.DB) error {
	l.UpdatedAt = utils.UTCNow()
	return nil
}

// EffectiveValue returns the monetary value, treating null as zero
func (l *Lead) EffectiveValue() decimal.Decimal {
	if l.Value == nil {
		return decimal.Zero
	}
	return *l.Value
}

// NeedsFollowUp reports whether the lead is open and has not been contacted
// within the given window ending at now.
func (l *Lead) NeedsFollowUp(now time.Time, window time.Duration) bool {
	if l.Stage.IsClosed() {
		return false
	}
	if l.LastContactedAt == nil {
		return true
	}
	return l.LastContactedAt.Before(now.Add(-window))
}

// LeadFilter represents filter criteria for leads
type LeadFilter struct {
	ID            *uint         `json:"id,omitempty"`
	UUID          *uuid.UUID    `json:"uuid,omitempty"`
	OwnerID       *uint         `json:"owner_id,omitempty"`
	Stage         *LeadStage    `json:"stage,omitempty"`
	Priority      *LeadPriority `json:"priority,omitempty"`
	Search        *string       `json:"search,omitempty"`
	CreatedAfter  *time.Time    `json:"created_after,omitempty"`
	CreatedBefore *time.Time    `json:"created_before,omitempty"`
}

// PipelineStat is one row of the per-stage dashboard breakdown
type PipelineStat struct {
	Stage      LeadStage       `json:"stage"`
	Count      int64           `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
}
