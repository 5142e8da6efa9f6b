package dto

import "time"

// CreateLeadRequest represents the payload for creating a lead
type CreateLeadRequest struct {
	Name              string     `json:"name" validate:"required,max=255"`
	Email             string     `json:"email" validate:"required,email,max=255"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,max=20"`
	Company           *string    `json:"company,omitempty" validate:"omitempty,max=255"`
	JobTitle          *string    `json:"job_title,omitempty" validate:"omitempty,max=255"`
	Source            *string    `json:"source,omitempty" validate:"omitempty,max=255"`
	Notes             *string    `json:"notes,omitempty"`
	Stage             *string    `json:"stage,omitempty"`
	Priority          *string    `json:"priority,omitempty"`
	Value             *string    `json:"value,omitempty"`
	LastContactedAt   *time.Time `json:"last_contacted_at,omitempty"`
	ExpectedCloseDate *string    `json:"expected_close_date,omitempty"`
}

// UpdateLeadRequest represents the payload for updating a lead. Absent fields
// keep their stored values.
type UpdateLeadRequest struct {
	Name              *string    `json:"name,omitempty" validate:"omitempty,max=255"`
	Email             *string    `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,max=20"`
	Company           *string    `json:"company,omitempty" validate:"omitempty,max=255"`
	JobTitle          *string    `json:"job_title,omitempty" validate:"omitempty,max=255"`
	Source            *string    `json:"source,omitempty" validate:"omitempty,max=255"`
	Notes             *string    `json:"notes,omitempty"`
	Stage             *string    `json:"stage,omitempty"`
	Priority          *string    `json:"priority,omitempty"`
	Value             *string    `json:"value,omitempty"`
	LastContactedAt   *time.Time `json:"last_contacted_at,omitempty"`
	ExpectedCloseDate *string    `json:"expected_close_date,omitempty"`
}

// ListLeadsRequest represents query parameters for listing leads
type ListLeadsRequest struct {
	Page     int     `query:"page"`
	Stage    *string `query:"stage"`
	Priority *string `query:"priority"`
	Search   *string `query:"search"`
}

// LeadResponse represents a lead in API responses
type LeadResponse struct {
	UUID              string     `json:"uuid"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             *string    `json:"phone,omitempty"`
	Company           *string    `json:"company,omitempty"`
	JobTitle          *string    `json:"job_title,omitempty"`
	Source            *string    `json:"source,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	Stage             string     `json:"stage"`
	StageDisplay      string     `json:"stage_display"`
	Priority          string     `json:"priority"`
	PriorityDisplay   string     `json:"priority_display"`
	Value             *string    `json:"value,omitempty"`
	LastContactedAt   *time.Time `json:"last_contacted_at,omitempty"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ListLeadsResponse carries a page of leads with pagination metadata
type ListLeadsResponse struct {
	Items      []LeadResponse `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
