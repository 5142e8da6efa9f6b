// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/funnelworks/prospector/app/dto"
	"github.com/funnelworks/prospector/models"
	"github.com/funnelworks/prospector/repository"
	"github.com/funnelworks/prospector/utils"
)

// ClientMetadata holds client-related information for logging and tracing
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// getActiveUser loads a user by ID and verifies the account is usable
func getActiveUser(ctx context.Context, userRepo repository.UserRepository, userID uint) (*models.User, error) {
	user, err := userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// getOwnedLead loads a lead by UUID and enforces ownership. A missing lead
// and a lead owned by someone else yield distinct errors so the HTTP layer
// can answer 404 and 403 respectively.
func getOwnedLead(ctx context.Context, leadRepo repository.LeadRepository, leadUUID uuid.UUID, ownerID uint) (*models.Lead, error) {
	lead, err := leadRepo.ByUUID(ctx, leadUUID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	if lead.OwnerID != ownerID {
		return nil, ErrLeadAccessDenied
	}
	return lead, nil
}

// toLeadResponse converts a lead model into its API representation
func toLeadResponse(lead *models.Lead) dto.LeadResponse {
	resp := dto.LeadResponse{
		UUID:              lead.UUID.String(),
		Name:              lead.Name,
		Email:             lead.Email,
		Phone:             lead.Phone,
		Company:           lead.Company,
		JobTitle:          lead.JobTitle,
		Source:            lead.Source,
		Notes:             lead.Notes,
		Stage:             lead.Stage.String(),
		StageDisplay:      lead.Stage.DisplayName(),
		Priority:          lead.Priority.String(),
		PriorityDisplay:   lead.Priority.DisplayName(),
		LastContactedAt:   lead.LastContactedAt,
		ExpectedCloseDate: lead.ExpectedCloseDate,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
	if lead.Value != nil {
		value := lead.Value.StringFixed(2)
		resp.Value = &value
	}
	return resp
}

func toLeadResponses(leads []*models.Lead) []dto.LeadResponse {
	responses := make([]dto.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		responses = append(responses, toLeadResponse(lead))
	}
	return responses
}
