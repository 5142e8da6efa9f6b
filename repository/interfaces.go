package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/funnelworks/prospector/models"
)

// ContextKey is a typed key for values stored in request contexts by this package
type ContextKey string

// TxContextKey carries an open *gorm.DB transaction through a context
const TxContextKey ContextKey = "db_transaction"

// Repository defines common operations shared by all repositories
type Repository[T any, F any] interface {
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for user persistence
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, userUUID uuid.UUID) (*models.User, error)
}

// LeadRepository defines operations for lead persistence and aggregation
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, leadUUID uuid.UUID) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, lead *models.Lead) error

	CountByStage(ctx context.Context, ownerID uint, stage models.LeadStage) (int64, error)
	SumValueByStage(ctx context.Context, ownerID uint, stage models.LeadStage) (decimal.Decimal, error)
	SumValueExcludingStages(ctx context.Context, ownerID uint, stages []models.LeadStage) (decimal.Decimal, error)
	PipelineBreakdown(ctx context.Context, ownerID uint) ([]models.PipelineStat, error)
	NeedsFollowUpCount(ctx context.Context, ownerID uint, before time.Time) (int64, error)
	RecentByOwner(ctx context.Context, ownerID uint, limit int) ([]*models.Lead, error)
	HighPriorityOpenByOwner(ctx context.Context, ownerID uint, limit int) ([]*models.Lead, error)
}
