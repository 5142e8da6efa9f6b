package businessflow

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/funnelworks/prospector/app/dto"
	"github.com/funnelworks/prospector/models"
	"github.com/funnelworks/prospector/repository"
	"github.com/funnelworks/prospector/utils"
)

// DashboardFlow computes the aggregate metrics for a user's dashboard
type DashboardFlow interface {
	GetDashboard(ctx context.Context, ownerID uint, metadata *ClientMetadata) (*dto.DashboardResponse, error)
}

// DashboardFlowImpl implements the dashboard business flow
type DashboardFlowImpl struct {
	leadRepo repository.LeadRepository
	userRepo repository.UserRepository
	db       *gorm.DB
}

// NewDashboardFlow creates a new dashboard flow instance
func NewDashboardFlow(
	leadRepo repository.LeadRepository,
	userRepo repository.UserRepository,
	db *gorm.DB,
) DashboardFlow {
	return &DashboardFlowImpl{
		leadRepo: leadRepo,
		userRepo: userRepo,
		db:       db,
	}
}

// GetDashboard computes every dashboard metric inside a single transaction so
// all numbers describe one consistent snapshot of the caller's leads.
func (f *DashboardFlowImpl) GetDashboard(ctx context.Context, ownerID uint, metadata *ClientMetadata) (*dto.DashboardResponse, error) {
	var resp *dto.DashboardResponse

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if _, err := getActiveUser(txCtx, f.userRepo, ownerID); err != nil {
			return err
		}

		totalLeads, err := f.leadRepo.Count(txCtx, models.LeadFilter{OwnerID: &ownerID})
		if err != nil {
			return fmt.Errorf("failed to count leads: %w", err)
		}

		newLeads, err := f.leadRepo.CountByStage(txCtx, ownerID, models.LeadStageLead)
		if err != nil {
			return err
		}

		qualifiedLeads, err := f.leadRepo.CountByStage(txCtx, ownerID, models.LeadStageQualified)
		if err != nil {
			return err
		}

		closedWonLeads, err := f.leadRepo.CountByStage(txCtx, ownerID, models.LeadStageClosedWon)
		if err != nil {
			return err
		}

		closedWonRevenue, err := f.leadRepo.SumValueByStage(txCtx, ownerID, models.LeadStageClosedWon)
		if err != nil {
			return err
		}

		pipelineValue, err := f.leadRepo.SumValueExcludingStages(txCtx, ownerID, models.ClosedStages)
		if err != nil {
			return err
		}

		breakdown, err := f.leadRepo.PipelineBreakdown(txCtx, ownerID)
		if err != nil {
			return err
		}

		followUpCutoff := utils.UTCNow().Add(-utils.FollowUpWindow)
		needsFollowUp, err := f.leadRepo.NeedsFollowUpCount(txCtx, ownerID, followUpCutoff)
		if err != nil {
			return err
		}

		recentLeads, err := f.leadRepo.RecentByOwner(txCtx, ownerID, utils.DashboardRecentLimit)
		if err != nil {
			return err
		}

		highPriorityLeads, err := f.leadRepo.HighPriorityOpenByOwner(txCtx, ownerID, utils.DashboardRecentLimit)
		if err != nil {
			return err
		}

		// GROUP BY returns stages in arbitrary order, present them in
		// pipeline order instead
		byStage := make(map[models.LeadStage]models.PipelineStat, len(breakdown))
		for _, stat := range breakdown {
			byStage[stat.Stage] = stat
		}

		pipeline := make([]dto.PipelineStageStat, 0, len(breakdown))
		for _, stage := range models.AllLeadStages {
			stat, ok := byStage[stage]
			if !ok {
				continue
			}
			pipeline = append(pipeline, dto.PipelineStageStat{
				Stage:        stat.Stage.String(),
				StageDisplay: stat.Stage.DisplayName(),
				Count:        stat.Count,
				TotalValue:   stat.TotalValue.StringFixed(2),
			})
		}

		resp = &dto.DashboardResponse{
			TotalLeads:            totalLeads,
			NewLeads:              newLeads,
			QualifiedLeads:        qualifiedLeads,
			ClosedWonLeads:        closedWonLeads,
			ClosedWonRevenue:      closedWonRevenue.StringFixed(2),
			PipelineValue:         pipelineValue.StringFixed(2),
			Pipeline:              pipeline,
			NeedsFollowUp:         needsFollowUp,
			RecentLeads:           toLeadResponses(recentLeads),
			HighPriorityOpenLeads: toLeadResponses(highPriorityLeads),
		}

		return nil
	})
	if err != nil {
		if IsUserNotFound(err) || IsAccountInactive(err) {
			return nil, err
		}
		return nil, NewBusinessError("DASHBOARD_FAILED", "Failed to load dashboard", err)
	}

	return resp, nil
}
