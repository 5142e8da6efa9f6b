// Package tests contains integration tests for the lead tracker
package tests

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/funnelworks/prospector/models"
	"github.com/funnelworks/prospector/utils"
)

func TestLeadStage(t *testing.T) {
	t.Run("ValidStages", func(t *testing.T) {
		for _, stage := range models.AllLeadStages {
			assert.True(t, stage.Valid(), "stage %s should be valid", stage)
		}
		assert.False(t, models.LeadStage("unknown").Valid())
		assert.False(t, models.LeadStage("").Valid())
	})

	t.Run("ClosedStages", func(t *testing.T) {
		assert.True(t, models.LeadStageClosedWon.IsClosed())
		assert.True(t, models.LeadStageClosedLost.IsClosed())
		assert.False(t, models.LeadStageLead.IsClosed())
		assert.False(t, models.LeadStageNegotiation.IsClosed())
	})

	t.Run("DisplayNames", func(t *testing.T) {
		assert.Equal(t, "New Lead", models.LeadStageLead.DisplayName())
		assert.Equal(t, "Contacted", models.LeadStageContacted.DisplayName())
		assert.Equal(t, "Qualified", models.LeadStageQualified.DisplayName())
		assert.Equal(t, "Proposal Sent", models.LeadStageProposal.DisplayName())
		assert.Equal(t, "Negotiation", models.LeadStageNegotiation.DisplayName())
		assert.Equal(t, "Closed Won", models.LeadStageClosedWon.DisplayName())
		assert.Equal(t, "Closed Lost", models.LeadStageClosedLost.DisplayName())
	})
}

func TestLeadPriority(t *testing.T) {
	t.Run("ValidPriorities", func(t *testing.T) {
		assert.True(t, models.LeadPriorityLow.Valid())
		assert.True(t, models.LeadPriorityMedium.Valid())
		assert.True(t, models.LeadPriorityHigh.Valid())
		assert.False(t, models.LeadPriority("urgent").Valid())
	})

	t.Run("DisplayNames", func(t *testing.T) {
		assert.Equal(t, "Low", models.LeadPriorityLow.DisplayName())
		assert.Equal(t, "Medium", models.LeadPriorityMedium.DisplayName())
		assert.Equal(t, "High", models.LeadPriorityHigh.DisplayName())
	})
}

func TestLeadEffectiveValue(t *testing.T) {
	lead := &models.Lead{}
	assert.True(t, lead.EffectiveValue().IsZero())

	value := decimal.RequireFromString("1234.56")
	lead.Value = &value
	assert.True(t, lead.EffectiveValue().Equal(value))
}

func TestLeadNeedsFollowUp(t *testing.T) {
	now := utils.UTCNow()
	window := utils.FollowUpWindow

	t.Run("NeverContactedOpenLead", func(t *testing.T) {
		lead := &models.Lead{Stage: models.LeadStageLead}
		assert.True(t, lead.NeedsFollowUp(now, window))
	})

	t.Run("RecentlyContactedLead", func(t *testing.T) {
		contacted := now.Add(-time.Hour)
		lead := &models.Lead{Stage: models.LeadStageContacted, LastContactedAt: &contacted}
		assert.False(t, lead.NeedsFollowUp(now, window))
	})

	t.Run("StaleContactedLead", func(t *testing.T) {
		contacted := now.Add(-window - time.Hour)
		lead := &models.Lead{Stage: models.LeadStageContacted, LastContactedAt: &contacted}
		assert.True(t, lead.NeedsFollowUp(now, window))
	})

	t.Run("ClosedLeadNeverNeedsFollowUp", func(t *testing.T) {
		lead := &models.Lead{Stage: models.LeadStageClosedWon}
		assert.False(t, lead.NeedsFollowUp(now, window))

		lead.Stage = models.LeadStageClosedLost
		assert.False(t, lead.NeedsFollowUp(now, window))
	})
}
