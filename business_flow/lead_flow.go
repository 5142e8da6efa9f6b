package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/funnelworks/prospector/app/dto"
	"github.com/funnelworks/prospector/models"
	"github.com/funnelworks/prospector/repository"
	"github.com/funnelworks/prospector/utils"
)

const closeDateLayout = "2006-01-02"

// LeadFlow handles the lead management business logic
type LeadFlow interface {
	CreateLead(ctx context.Context, ownerID uint, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.LeadResponse, error)
	GetLead(ctx context.Context, ownerID uint, leadUUID string, metadata *ClientMetadata) (*dto.LeadResponse, error)
	UpdateLead(ctx context.Context, ownerID uint, leadUUID string, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.LeadResponse, error)
	DeleteLead(ctx context.Context, ownerID uint, leadUUID string, metadata *ClientMetadata) error
	ListLeads(ctx context.Context, ownerID uint, req *dto.ListLeadsRequest, metadata *ClientMetadata) (*dto.ListLeadsResponse, error)
	ExportLeads(ctx context.Context, ownerID uint, req *dto.ListLeadsRequest, metadata *ClientMetadata) (string, []byte, error)
}

// LeadFlowImpl implements the lead business flow
type LeadFlowImpl struct {
	leadRepo repository.LeadRepository
	userRepo repository.UserRepository
	db       *gorm.DB
}

// NewLeadFlow creates a new lead flow instance
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	userRepo repository.UserRepository,
	db *gorm.DB,
) LeadFlow {
	return &LeadFlowImpl{
		leadRepo: leadRepo,
		userRepo: userRepo,
		db:       db,
	}
}

// CreateLead validates the request and stores a new lead owned by the caller.
// Any owner supplied in the payload is ignored.
func (f *LeadFlowImpl) CreateLead(ctx context.Context, ownerID uint, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.LeadResponse, error) {
	input := leadInput{
		Name:              &req.Name,
		Email:             &req.Email,
		Phone:             req.Phone,
		Company:           req.Company,
		JobTitle:          req.JobTitle,
		Source:            req.Source,
		Notes:             req.Notes,
		Stage:             req.Stage,
		Priority:          req.Priority,
		Value:             req.Value,
		LastContactedAt:   req.LastContactedAt,
		ExpectedCloseDate: req.ExpectedCloseDate,
	}

	parsed, fieldErrs := parseLeadInput(input, true)
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	var lead *models.Lead
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if _, err := getActiveUser(txCtx, f.userRepo, ownerID); err != nil {
			return err
		}

		lead = &models.Lead{
			OwnerID:           ownerID,
			Name:              req.Name,
			Email:             req.Email,
			Phone:             req.Phone,
			Company:           req.Company,
			JobTitle:          req.JobTitle,
			Source:            req.Source,
			Notes:             req.Notes,
			Stage:             parsed.stage,
			Priority:          parsed.priority,
			Value:             parsed.value,
			LastContactedAt:   utils.TimeToUTCPtr(req.LastContactedAt),
			ExpectedCloseDate: parsed.expectedCloseDate,
		}

		if err := f.leadRepo.Save(txCtx, lead); err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}

		return nil
	})
	if err != nil {
		if IsUserNotFound(err) || IsAccountInactive(err) {
			return nil, err
		}
		return nil, NewBusinessError("LEAD_CREATE_FAILED", "Failed to create lead", err)
	}

	resp := toLeadResponse(lead)
	return &resp, nil
}

// GetLead retrieves a single lead owned by the caller
func (f *LeadFlowImpl) GetLead(ctx context.Context, ownerID uint, leadUUID string, metadata *ClientMetadata) (*dto.LeadResponse, error) {
	parsedUUID, err := uuid.Parse(leadUUID)
	if err != nil {
		return nil, ErrLeadNotFound
	}

	lead, err := getOwnedLead(ctx, f.leadRepo, parsedUUID, ownerID)
	if err != nil {
		if IsLeadNotFound(err) || IsLeadAccessDenied(err) {
			return nil, err
		}
		return nil, NewBusinessError("LEAD_GET_FAILED", "Failed to retrieve lead", err)
	}

	resp := toLeadResponse(lead)
	return &resp, nil
}

// UpdateLead applies the provided fields to a lead owned by the caller.
// Fields absent from the request keep their stored values, and ownership
// never changes.
func (f *LeadFlowImpl) UpdateLead(ctx context.Context, ownerID uint, leadUUID string, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.LeadResponse, error) {
	parsedUUID, err := uuid.Parse(leadUUID)
	if err != nil {
		return nil, ErrLeadNotFound
	}

	input := leadInput{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Company:           req.Company,
		JobTitle:          req.JobTitle,
		Source:            req.Source,
		Notes:             req.Notes,
		Stage:             req.Stage,
		Priority:          req.Priority,
		Value:             req.Value,
		LastContactedAt:   req.LastContactedAt,
		ExpectedCloseDate: req.ExpectedCloseDate,
	}

	parsed, fieldErrs := parseLeadInput(input, false)
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	var lead *models.Lead
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		lead, err = getOwnedLead(txCtx, f.leadRepo, parsedUUID, ownerID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			lead.Name = *req.Name
		}
		if req.Email != nil {
			lead.Email = *req.Email
		}
		if req.Phone != nil {
			lead.Phone = req.Phone
		}
		if req.Company != nil {
			lead.Company = req.Company
		}
		if req.JobTitle != nil {
			lead.JobTitle = req.JobTitle
		}
		if req.Source != nil {
			lead.Source = req.Source
		}
		if req.Notes != nil {
			lead.Notes = req.Notes
		}
		if req.Stage != nil {
			lead.Stage = parsed.stage
		}
		if req.Priority != nil {
			lead.Priority = parsed.priority
		}
		if req.Value != nil {
			lead.Value = parsed.value
		}
		if req.LastContactedAt != nil {
			lead.LastContactedAt = utils.TimeToUTCPtr(req.LastContactedAt)
		}
		if req.ExpectedCloseDate != nil {
			lead.ExpectedCloseDate = parsed.expectedCloseDate
		}

		if err := f.leadRepo.Update(txCtx, lead); err != nil {
			return fmt.Errorf("failed to update lead: %w", err)
		}

		return nil
	})
	if err != nil {
		if IsLeadNotFound(err) || IsLeadAccessDenied(err) {
			return nil, err
		}
		return nil, NewBusinessError("LEAD_UPDATE_FAILED", "Failed to update lead", err)
	}

	resp := toLeadResponse(lead)
	return &resp, nil
}

// DeleteLead permanently removes a lead owned by the caller
func (f *LeadFlowImpl) DeleteLead(ctx context.Context, ownerID uint, leadUUID string, metadata *ClientMetadata) error {
	parsedUUID, err := uuid.Parse(leadUUID)
	if err != nil {
		return ErrLeadNotFound
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		lead, err := getOwnedLead(txCtx, f.leadRepo, parsedUUID, ownerID)
		if err != nil {
			return err
		}

		if err := f.leadRepo.Delete(txCtx, lead); err != nil {
			return fmt.Errorf("failed to delete lead: %w", err)
		}

		return nil
	})
	if err != nil {
		if IsLeadNotFound(err) || IsLeadAccessDenied(err) {
			return err
		}
		return NewBusinessError("LEAD_DELETE_FAILED", "Failed to delete lead", err)
	}

	return nil
}

// ListLeads returns one page of the caller's leads, newest first
func (f *LeadFlowImpl) ListLeads(ctx context.Context, ownerID uint, req *dto.ListLeadsRequest, metadata *ClientMetadata) (*dto.ListLeadsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}

	filter, fieldErrs := buildLeadFilter(ownerID, req)
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	limit := utils.LeadPageSize
	offset := (page - 1) * limit

	total, err := f.leadRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list leads", err)
	}

	leads, err := f.leadRepo.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list leads", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &dto.ListLeadsResponse{
		Items: toLeadResponses(leads),
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}

// ExportLeads builds an Excel workbook containing the caller's leads,
// honoring the same stage/priority/search filters as the list view
func (f *LeadFlowImpl) ExportLeads(ctx context.Context, ownerID uint, req *dto.ListLeadsRequest, metadata *ClientMetadata) (string, []byte, error) {
	filter, fieldErrs := buildLeadFilter(ownerID, req)
	if len(fieldErrs) > 0 {
		return "", nil, fieldErrs
	}

	leads, err := f.leadRepo.ByFilter(ctx, filter, "created_at DESC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("LEAD_EXPORT_FAILED", "Failed to export leads", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	header := []string{"uuid", "name", "email", "phone", "company", "job_title", "source", "stage", "priority", "value", "last_contacted_at", "expected_close_date", "created_at", "updated_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, lead := range leads {
		value := ""
		if lead.Value != nil {
			value = lead.Value.StringFixed(2)
		}
		lastContacted := ""
		if lead.LastContactedAt != nil {
			lastContacted = lead.LastContactedAt.UTC().Format(time.RFC3339)
		}
		closeDate := ""
		if lead.ExpectedCloseDate != nil {
			closeDate = lead.ExpectedCloseDate.UTC().Format(closeDateLayout)
		}
		record := []string{
			lead.UUID.String(),
			lead.Name,
			lead.Email,
			derefOrEmpty(lead.Phone),
			derefOrEmpty(lead.Company),
			derefOrEmpty(lead.JobTitle),
			derefOrEmpty(lead.Source),
			lead.Stage.DisplayName(),
			lead.Priority.DisplayName(),
			value,
			lastContacted,
			closeDate,
			lead.CreatedAt.UTC().Format(time.RFC3339),
			lead.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("leads_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

// buildLeadFilter translates list query parameters into a repository filter
// scoped to the owner. Shared by listing and export so both honor the same
// stage/priority/search semantics.
func buildLeadFilter(ownerID uint, req *dto.ListLeadsRequest) (models.LeadFilter, FieldErrors) {
	filter := models.LeadFilter{
		OwnerID: &ownerID,
	}

	fieldErrs := FieldErrors{}
	if req.Stage != nil && *req.Stage != "" {
		stage := models.LeadStage(*req.Stage)
		if !stage.Valid() {
			fieldErrs["stage"] = "Invalid stage selected."
		} else {
			filter.Stage = &stage
		}
	}
	if req.Priority != nil && *req.Priority != "" {
		priority := models.LeadPriority(*req.Priority)
		if !priority.Valid() {
			fieldErrs["priority"] = "Invalid priority selected."
		} else {
			filter.Priority = &priority
		}
	}

	if req.Search != nil {
		search := strings.TrimSpace(*req.Search)
		if search != "" {
			filter.Search = &search
		}
	}

	return filter, fieldErrs
}

// leadInput gathers the validatable fields shared by create and update
type leadInput struct {
	Name              *string
	Email             *string
	Phone             *string
	Company           *string
	JobTitle          *string
	Source            *string
	Notes             *string
	Stage             *string
	Priority          *string
	Value             *string
	LastContactedAt   *time.Time
	ExpectedCloseDate *string
}

// parsedLead holds validated, typed lead fields
type parsedLead struct {
	stage             models.LeadStage
	priority          models.LeadPriority
	value             *decimal.Decimal
	expectedCloseDate *time.Time
}

// parseLeadInput validates lead fields and converts them to their stored
// types. Stage and priority are required on create, and the expected close
// date may not be in the past. Updates accept any date so a slipped deal can
// be recorded honestly.
func parseLeadInput(input leadInput, isCreate bool) (parsedLead, FieldErrors) {
	fieldErrs := FieldErrors{}
	parsed := parsedLead{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			fieldErrs["name"] = "Lead name is required."
		} else if len(name) > 255 {
			fieldErrs["name"] = "Lead name may not be greater than 255 characters."
		}
	} else if isCreate {
		fieldErrs["name"] = "Lead name is required."
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			fieldErrs["email"] = "Lead email is required."
		} else if len(email) > 255 {
			fieldErrs["email"] = "Lead email may not be greater than 255 characters."
		} else if !strings.Contains(email, "@") {
			fieldErrs["email"] = "Lead email must be a valid email address."
		}
	} else if isCreate {
		fieldErrs["email"] = "Lead email is required."
	}

	if input.Phone != nil && len(*input.Phone) > 20 {
		fieldErrs["phone"] = "Phone number may not be greater than 20 characters."
	}
	if input.Company != nil && len(*input.Company) > 255 {
		fieldErrs["company"] = "Company may not be greater than 255 characters."
	}
	if input.JobTitle != nil && len(*input.JobTitle) > 255 {
		fieldErrs["job_title"] = "Job title may not be greater than 255 characters."
	}
	if input.Source != nil && len(*input.Source) > 255 {
		fieldErrs["source"] = "Source may not be greater than 255 characters."
	}

	switch {
	case input.Stage == nil:
		if isCreate {
			fieldErrs["stage"] = "Please select a stage."
		}
	case strings.TrimSpace(*input.Stage) == "":
		fieldErrs["stage"] = "Please select a stage."
	default:
		stage := models.LeadStage(*input.Stage)
		if !stage.Valid() {
			fieldErrs["stage"] = "Invalid stage selected."
		} else {
			parsed.stage = stage
		}
	}

	switch {
	case input.Priority == nil:
		if isCreate {
			fieldErrs["priority"] = "Please select a priority level."
		}
	case strings.TrimSpace(*input.Priority) == "":
		fieldErrs["priority"] = "Please select a priority level."
	default:
		priority := models.LeadPriority(*input.Priority)
		if !priority.Valid() {
			fieldErrs["priority"] = "Invalid priority selected."
		} else {
			parsed.priority = priority
		}
	}

	if input.Value != nil && strings.TrimSpace(*input.Value) != "" {
		value, err := decimal.NewFromString(strings.TrimSpace(*input.Value))
		switch {
		case err != nil:
			fieldErrs["value"] = "Lead value must be a number."
		case value.IsNegative():
			fieldErrs["value"] = "Lead value cannot be negative."
		case value.GreaterThan(decimal.RequireFromString(utils.MaxLeadValue)):
			fieldErrs["value"] = "Lead value is too large."
		default:
			parsed.value = &value
		}
	}

	if input.ExpectedCloseDate != nil && strings.TrimSpace(*input.ExpectedCloseDate) != "" {
		closeDate, err := time.ParseInLocation(closeDateLayout, strings.TrimSpace(*input.ExpectedCloseDate), time.UTC)
		if err != nil {
			fieldErrs["expected_close_date"] = "Expected close date is not a valid date."
		} else if isCreate && closeDate.Before(utils.UTCToday()) {
			fieldErrs["expected_close_date"] = "Expected close date must be today or in the future."
		} else {
			parsed.expectedCloseDate = &closeDate
		}
	}

	return parsed, fieldErrs
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
