package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/funnelworks/prospector/models"
	"github.com/funnelworks/prospector/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a test user with a unique email
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	user := &models.User{
		Email:        fmt.Sprintf("jane.doe.%s@example.com", randomDigits),
		PasswordHash: string(hashedPassword),
		FirstName:    "Jane",
		LastName:     "Doe",
		IsActive:     utils.ToPtr(true),
	}

	err = tf.DB.DB.Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateInactiveTestUser creates a test user whose account is disabled
func (tf *TestFixtures) CreateInactiveTestUser() (*models.User, error) {
	user, err := tf.CreateTestUser()
	if err != nil {
		return nil, err
	}

	user.IsActive = utils.ToPtr(false)
	if err := tf.DB.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate test user: %w", err)
	}

	return user, nil
}

// LeadOption mutates a lead fixture before it is persisted
type LeadOption func(*models.Lead)

// WithStage sets the lead stage
func WithStage(stage models.LeadStage) LeadOption {
	return func(l *models.Lead) { l.Stage = stage }
}

// WithPriority sets the lead priority
func WithPriority(priority models.LeadPriority) LeadOption {
	return func(l *models.Lead) { l.Priority = priority }
}

// WithValue sets the lead value from a decimal string
func WithValue(value string) LeadOption {
	return func(l *models.Lead) {
		d := decimal.RequireFromString(value)
		l.Value = &d
	}
}

// WithNoValue clears the lead value
func WithNoValue() LeadOption {
	return func(l *models.Lead) { l.Value = nil }
}

// WithName sets the lead name
func WithName(name string) LeadOption {
	return func(l *models.Lead) { l.Name = name }
}

// WithEmail sets the lead email
func WithEmail(email string) LeadOption {
	return func(l *models.Lead) { l.Email = email }
}

// WithCompany sets the lead company
func WithCompany(company string) LeadOption {
	return func(l *models.Lead) { l.Company = &company }
}

// WithLastContactedAt sets the last contact timestamp
func WithLastContactedAt(t time.Time) LeadOption {
	return func(l *models.Lead) { l.LastContactedAt = &t }
}

// CreateTestLead creates a lead owned by the given user
func (tf *TestFixtures) CreateTestLead(ownerID uint, opts ...LeadOption) (*models.Lead, error) {
	randomDigits := fmt.Sprintf("%06d", rand.Intn(900000)+100000)

	lead := &models.Lead{
		OwnerID:  ownerID,
		Name:     fmt.Sprintf("Test Lead %s", randomDigits),
		Email:    fmt.Sprintf("lead.%s@example.com", randomDigits),
		Stage:    models.LeadStageLead,
		Priority: models.LeadPriorityMedium,
	}

	for _, opt := range opts {
		opt(lead)
	}

	err := tf.DB.DB.Create(lead).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}

	return lead, nil
}
