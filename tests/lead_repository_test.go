package tests

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelworks/prospector/models"
	"github.com/funnelworks/prospector/repository"
	testingutil "github.com/funnelworks/prospector/testing"
	"github.com/funnelworks/prospector/utils"
)

func TestLeadRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		leadRepo := repository.NewLeadRepository(testDB.DB)
		ctx := context.Background()

		owner, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		other, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		t.Run("OwnershipScoping", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)
			other, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(other.ID)
			require.NoError(t, err)

			count, err := leadRepo.Count(ctx, models.LeadFilter{OwnerID: &owner.ID})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			count, err = leadRepo.Count(ctx, models.LeadFilter{OwnerID: &other.ID})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("SearchIsCaseInsensitive", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithCompany("ACME Industries"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithName("Bob Acme"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithCompany("Globex"))
			require.NoError(t, err)

			search := "acme"
			leads, err := leadRepo.ByFilter(ctx, models.LeadFilter{OwnerID: &owner.ID, Search: &search}, "created_at DESC", 0, 0)
			require.NoError(t, err)
			assert.Len(t, leads, 2)
		})

		t.Run("CountByStagePartitionsTotal", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageLead))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageQualified))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageQualified))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageClosedWon))
			require.NoError(t, err)

			total, err := leadRepo.Count(ctx, models.LeadFilter{OwnerID: &owner.ID})
			require.NoError(t, err)

			var sum int64
			for _, stage := range models.AllLeadStages {
				count, err := leadRepo.CountByStage(ctx, owner.ID, stage)
				require.NoError(t, err)
				sum += count
			}
			assert.Equal(t, total, sum)
		})

		t.Run("SumValueByStageTreatsNullAsZero", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageClosedWon), testingutil.WithValue("100.00"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageClosedWon), testingutil.WithValue("200.00"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageClosedWon), testingutil.WithNoValue())
			require.NoError(t, err)

			revenue, err := leadRepo.SumValueByStage(ctx, owner.ID, models.LeadStageClosedWon)
			require.NoError(t, err)
			assert.True(t, revenue.Equal(decimal.RequireFromString("300.00")), "got %s", revenue)
		})

		t.Run("ValuePartitionIsComplete", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageLead), testingutil.WithValue("50.00"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageNegotiation), testingutil.WithValue("75.50"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageClosedWon), testingutil.WithValue("120.00"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageClosedLost), testingutil.WithValue("10.00"))
			require.NoError(t, err)

			open, err := leadRepo.SumValueExcludingStages(ctx, owner.ID, models.ClosedStages)
			require.NoError(t, err)

			won, err := leadRepo.SumValueByStage(ctx, owner.ID, models.LeadStageClosedWon)
			require.NoError(t, err)

			lost, err := leadRepo.SumValueByStage(ctx, owner.ID, models.LeadStageClosedLost)
			require.NoError(t, err)

			everything, err := leadRepo.SumValueExcludingStages(ctx, owner.ID, nil)
			require.NoError(t, err)

			assert.True(t, open.Add(won).Add(lost).Equal(everything),
				"open %s + won %s + lost %s != total %s", open, won, lost, everything)
			assert.True(t, open.Equal(decimal.RequireFromString("125.50")))
		})

		t.Run("PipelineBreakdown", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageLead), testingutil.WithValue("40.00"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageLead), testingutil.WithNoValue())
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageProposal), testingutil.WithValue("60.00"))
			require.NoError(t, err)

			stats, err := leadRepo.PipelineBreakdown(ctx, owner.ID)
			require.NoError(t, err)
			require.Len(t, stats, 2)

			byStage := make(map[models.LeadStage]models.PipelineStat)
			for _, stat := range stats {
				byStage[stat.Stage] = stat
			}

			assert.Equal(t, int64(2), byStage[models.LeadStageLead].Count)
			assert.True(t, byStage[models.LeadStageLead].TotalValue.Equal(decimal.RequireFromString("40.00")))
			assert.Equal(t, int64(1), byStage[models.LeadStageProposal].Count)
			assert.True(t, byStage[models.LeadStageProposal].TotalValue.Equal(decimal.RequireFromString("60.00")))
		})

		t.Run("NeedsFollowUpCount", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			now := utils.UTCNow()
			cutoff := now.Add(-utils.FollowUpWindow)

			// Open, never contacted: needs follow-up
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageLead))
			require.NoError(t, err)

			// Open, contacted long ago: needs follow-up
			_, err = fixtures.CreateTestLead(owner.ID,
				testingutil.WithStage(models.LeadStageContacted),
				testingutil.WithLastContactedAt(now.Add(-8*24*time.Hour)))
			require.NoError(t, err)

			// Open, contacted recently: fine
			_, err = fixtures.CreateTestLead(owner.ID,
				testingutil.WithStage(models.LeadStageContacted),
				testingutil.WithLastContactedAt(now.Add(-time.Hour)))
			require.NoError(t, err)

			// Closed, never contacted: excluded
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithStage(models.LeadStageClosedLost))
			require.NoError(t, err)

			count, err := leadRepo.NeedsFollowUpCount(ctx, owner.ID, cutoff)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})

		t.Run("HighPriorityOpenByOwner", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithPriority(models.LeadPriorityHigh))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithPriority(models.LeadPriorityHigh), testingutil.WithStage(models.LeadStageClosedWon))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithPriority(models.LeadPriorityLow))
			require.NoError(t, err)

			leads, err := leadRepo.HighPriorityOpenByOwner(ctx, owner.ID, 5)
			require.NoError(t, err)
			require.Len(t, leads, 1)
			assert.Equal(t, models.LeadPriorityHigh, leads[0].Priority)
			assert.False(t, leads[0].Stage.IsClosed())
		})

		t.Run("RecentByOwnerHonorsLimit", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			for i := 0; i < 7; i++ {
				_, err = fixtures.CreateTestLead(owner.ID)
				require.NoError(t, err)
			}

			leads, err := leadRepo.RecentByOwner(ctx, owner.ID, 5)
			require.NoError(t, err)
			assert.Len(t, leads, 5)

			for i := 1; i < len(leads); i++ {
				assert.False(t, leads[i].CreatedAt.After(leads[i-1].CreatedAt))
			}
		})

		return nil
	})
	require.NoError(t, err)
}
