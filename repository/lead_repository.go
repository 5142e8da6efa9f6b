package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/funnelworks/prospector/models"
)

type leadRepository struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository instance
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// forOwner scopes a query to the rows owned by a single user. Every
// aggregate and listing query goes through this helper so ownership
// isolation cannot be forgotten in one call site.
func (r *leadRepository) forOwner(db *gorm.DB, ownerID uint) *gorm.DB {
	return db.Model(&models.Lead{}).Where("owner_id = ?", ownerID)
}

func (r *leadRepository) applyFilter(db *gorm.DB, filter models.LeadFilter) *gorm.DB {
	query := db.Model(&models.Lead{})

	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Stage != nil {
		query = query.Where("stage = ?", *filter.Stage)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + *filter.Search + "%"
		query = query.Where("(name ILIKE ? OR email ILIKE ? OR company ILIKE ?)", pattern, pattern, pattern)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	return query
}

// ByFilter retrieves leads matching the filter criteria
func (r *leadRepository) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var leads []*models.Lead
	err := query.Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find leads by filter: %w", err)
	}

	return leads, nil
}

// Count returns the number of leads matching the filter criteria
func (r *leadRepository) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db, filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}

	return count, nil
}

// Exists checks whether any lead matches the filter criteria
func (r *leadRepository) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ByUUID retrieves a lead by its public UUID
func (r *leadRepository) ByUUID(ctx context.Context, leadUUID uuid.UUID) (*models.Lead, error) {
	db := r.getDB(ctx)

	var lead models.Lead
	err := db.Where("uuid = ?", leadUUID).First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lead by UUID %s: %w", leadUUID, err)
	}

	return &lead, nil
}

// Update persists all fields of an existing lead
func (r *leadRepository) Update(ctx context.Context, lead *models.Lead) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Save(lead).Error
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}

	return nil
}

// Delete permanently removes a lead
func (r *leadRepository) Delete(ctx context.Context, lead *models.Lead) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(lead).Error
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	return nil
}

// CountByStage returns the number of an owner's leads in a single stage
func (r *leadRepository) CountByStage(ctx context.Context, ownerID uint, stage models.LeadStage) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.forOwner(db, ownerID).Where("stage = ?", stage).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count leads by stage %s: %w", stage, err)
	}

	return count, nil
}

// decimalSum holds the scanned result of a COALESCE(SUM(value), 0) aggregate
type decimalSum struct {
	Total decimal.Decimal
}

// SumValueByStage returns the total value of an owner's leads in a single stage.
// Leads with no value contribute zero.
func (r *leadRepository) SumValueByStage(ctx context.Context, ownerID uint, stage models.LeadStage) (decimal.Decimal, error) {
	db := r.getDB(ctx)

	var result decimalSum
	err := r.forOwner(db, ownerID).
		Select("COALESCE(SUM(value), 0) AS total").
		Where("stage = ?", stage).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum lead value by stage %s: %w", stage, err)
	}

	return result.Total, nil
}

// SumValueExcludingStages returns the total value of an owner's leads outside
// the given stages
func (r *leadRepository) SumValueExcludingStages(ctx context.Context, ownerID uint, stages []models.LeadStage) (decimal.Decimal, error) {
	db := r.getDB(ctx)

	var result decimalSum
	query := r.forOwner(db, ownerID).Select("COALESCE(SUM(value), 0) AS total")
	if len(stages) > 0 {
		query = query.Where("stage NOT IN ?", stages)
	}

	err := query.Scan(&result).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum lead value excluding stages: %w", err)
	}

	return result.Total, nil
}

// PipelineBreakdown returns the per-stage count and total value of an owner's
// leads. Stages with no leads do not appear in the result.
func (r *leadRepository) PipelineBreakdown(ctx context.Context, ownerID uint) ([]models.PipelineStat, error) {
	db := r.getDB(ctx)

	var stats []models.PipelineStat
	err := r.forOwner(db, ownerID).
		Select("stage, COUNT(*) AS count, COALESCE(SUM(value), 0) AS total_value").
		Group("stage").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute pipeline breakdown: %w", err)
	}

	return stats, nil
}

// NeedsFollowUpCount returns the number of an owner's open leads that were
// never contacted or were last contacted before the cutoff
func (r *leadRepository) NeedsFollowUpCount(ctx context.Context, ownerID uint, before time.Time) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.forOwner(db, ownerID).
		Where("stage NOT IN ?", models.ClosedStages).
		Where("(last_contacted_at IS NULL OR last_contacted_at < ?)", before).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count leads needing follow-up: %w", err)
	}

	return count, nil
}

// RecentByOwner returns an owner's most recently created leads
func (r *leadRepository) RecentByOwner(ctx context.Context, ownerID uint, limit int) ([]*models.Lead, error) {
	db := r.getDB(ctx)

	var leads []*models.Lead
	err := r.forOwner(db, ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find recent leads: %w", err)
	}

	return leads, nil
}

// HighPriorityOpenByOwner returns an owner's most recently created
// high-priority leads that are not closed
func (r *leadRepository) HighPriorityOpenByOwner(ctx context.Context, ownerID uint, limit int) ([]*models.Lead, error) {
	db := r.getDB(ctx)

	var leads []*models.Lead
	err := r.forOwner(db, ownerID).
		Where("priority = ?", models.LeadPriorityHigh).
		Where("stage NOT IN ?", models.ClosedStages).
		Order("created_at DESC").
		Limit(limit).
		Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find high priority open leads: %w", err)
	}

	return leads, nil
}
