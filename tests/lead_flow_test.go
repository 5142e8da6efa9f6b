package tests

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/funnelworks/prospector/app/dto"
	businessflow "github.com/funnelworks/prospector/business_flow"
	"github.com/funnelworks/prospector/models"
	"github.com/funnelworks/prospector/repository"
	testingutil "github.com/funnelworks/prospector/testing"
	"github.com/funnelworks/prospector/utils"
)

func strPtr(s string) *string { return &s }

func TestLeadFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		leadRepo := repository.NewLeadRepository(testDB.DB)
		userRepo := repository.NewUserRepository(testDB.DB)
		leadFlow := businessflow.NewLeadFlow(leadRepo, userRepo, testDB.DB)

		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

		owner, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		stranger, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		t.Run("CreateLead", func(t *testing.T) {
			req := &dto.CreateLeadRequest{
				Name:     "Alice Carter",
				Email:    "alice@example.com",
				Stage:    strPtr("lead"),
				Priority: strPtr("medium"),
			}

			result, err := leadFlow.CreateLead(ctx, owner.ID, req, metadata)
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.NotEmpty(t, result.UUID)
			assert.Equal(t, "lead", result.Stage)
			assert.Equal(t, "New Lead", result.StageDisplay)
			assert.Equal(t, "medium", result.Priority)
			assert.Equal(t, "Medium", result.PriorityDisplay)
			assert.Nil(t, result.Value)
		})

		t.Run("CreateLeadRequiresStageAndPriority", func(t *testing.T) {
			req := &dto.CreateLeadRequest{
				Name:  "No Selections",
				Email: "noselect@example.com",
			}

			_, err := leadFlow.CreateLead(ctx, owner.ID, req, metadata)
			fieldErrs, ok := businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Equal(t, "Please select a stage.", fieldErrs["stage"])
			assert.Equal(t, "Please select a priority level.", fieldErrs["priority"])

			// Empty strings are no better than absent values
			req.Stage = strPtr("")
			req.Priority = strPtr("")
			_, err = leadFlow.CreateLead(ctx, owner.ID, req, metadata)
			fieldErrs, ok = businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Equal(t, "Please select a stage.", fieldErrs["stage"])
			assert.Equal(t, "Please select a priority level.", fieldErrs["priority"])
		})

		t.Run("CreateLeadValueBoundaries", func(t *testing.T) {
			base := dto.CreateLeadRequest{
				Name:     "Boundary Lead",
				Email:    "boundary@example.com",
				Stage:    strPtr("lead"),
				Priority: strPtr("medium"),
			}

			req := base
			req.Value = strPtr("999999999.99")
			result, err := leadFlow.CreateLead(ctx, owner.ID, &req, metadata)
			require.NoError(t, err)
			require.NotNil(t, result.Value)
			assert.Equal(t, "999999999.99", *result.Value)

			req = base
			req.Value = strPtr("1000000000.00")
			_, err = leadFlow.CreateLead(ctx, owner.ID, &req, metadata)
			fieldErrs, ok := businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Contains(t, fieldErrs, "value")

			req = base
			req.Value = strPtr("-0.01")
			_, err = leadFlow.CreateLead(ctx, owner.ID, &req, metadata)
			fieldErrs, ok = businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Equal(t, "Lead value cannot be negative.", fieldErrs["value"])

			req = base
			req.Value = strPtr("not-a-number")
			_, err = leadFlow.CreateLead(ctx, owner.ID, &req, metadata)
			fieldErrs, ok = businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Equal(t, "Lead value must be a number.", fieldErrs["value"])
		})

		t.Run("CreateLeadRejectsPastCloseDate", func(t *testing.T) {
			yesterday := utils.UTCNow().Add(-24 * time.Hour).Format("2006-01-02")
			req := &dto.CreateLeadRequest{
				Name:              "Past Close",
				Email:             "past@example.com",
				Stage:             strPtr("lead"),
				Priority:          strPtr("medium"),
				ExpectedCloseDate: &yesterday,
			}

			_, err := leadFlow.CreateLead(ctx, owner.ID, req, metadata)
			fieldErrs, ok := businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Equal(t, "Expected close date must be today or in the future.", fieldErrs["expected_close_date"])

			// Today is allowed
			today := utils.UTCToday().Format("2006-01-02")
			req.ExpectedCloseDate = &today
			result, err := leadFlow.CreateLead(ctx, owner.ID, req, metadata)
			require.NoError(t, err)
			require.NotNil(t, result.ExpectedCloseDate)
		})

		t.Run("CreateLeadRejectsInvalidStage", func(t *testing.T) {
			req := &dto.CreateLeadRequest{
				Name:     "Bad Stage",
				Email:    "badstage@example.com",
				Stage:    strPtr("hot"),
				Priority: strPtr("medium"),
			}

			_, err := leadFlow.CreateLead(ctx, owner.ID, req, metadata)
			fieldErrs, ok := businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Equal(t, "Invalid stage selected.", fieldErrs["stage"])
		})

		t.Run("GetLeadIsIdempotent", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(owner.ID)
			require.NoError(t, err)

			first, err := leadFlow.GetLead(ctx, owner.ID, lead.UUID.String(), metadata)
			require.NoError(t, err)

			second, err := leadFlow.GetLead(ctx, owner.ID, lead.UUID.String(), metadata)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})

		t.Run("NotFoundVersusAccessDenied", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(owner.ID)
			require.NoError(t, err)

			// Someone else's lead is forbidden, not missing
			_, err = leadFlow.GetLead(ctx, stranger.ID, lead.UUID.String(), metadata)
			assert.True(t, businessflow.IsLeadAccessDenied(err))
			assert.False(t, businessflow.IsLeadNotFound(err))

			// A lead that does not exist is missing
			_, err = leadFlow.GetLead(ctx, owner.ID, uuid.New().String(), metadata)
			assert.True(t, businessflow.IsLeadNotFound(err))

			// Same distinction for update and delete
			_, err = leadFlow.UpdateLead(ctx, stranger.ID, lead.UUID.String(), &dto.UpdateLeadRequest{Name: strPtr("Hijack")}, metadata)
			assert.True(t, businessflow.IsLeadAccessDenied(err))

			err = leadFlow.DeleteLead(ctx, stranger.ID, lead.UUID.String(), metadata)
			assert.True(t, businessflow.IsLeadAccessDenied(err))

			err = leadFlow.DeleteLead(ctx, owner.ID, uuid.New().String(), metadata)
			assert.True(t, businessflow.IsLeadNotFound(err))
		})

		t.Run("UpdateLeadKeepsAbsentFields", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(owner.ID,
				testingutil.WithName("Original Name"),
				testingutil.WithCompany("Original Co"),
				testingutil.WithValue("500.00"))
			require.NoError(t, err)

			before, err := leadFlow.GetLead(ctx, owner.ID, lead.UUID.String(), metadata)
			require.NoError(t, err)

			time.Sleep(10 * time.Millisecond)

			updated, err := leadFlow.UpdateLead(ctx, owner.ID, lead.UUID.String(), &dto.UpdateLeadRequest{
				Stage: strPtr("qualified"),
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, "qualified", updated.Stage)
			assert.Equal(t, "Original Name", updated.Name)
			require.NotNil(t, updated.Company)
			assert.Equal(t, "Original Co", *updated.Company)
			require.NotNil(t, updated.Value)
			assert.Equal(t, "500.00", *updated.Value)
			assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
			assert.Equal(t, before.CreatedAt, updated.CreatedAt)
		})

		t.Run("UpdateAllowsAnyTransition", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(owner.ID)
			require.NoError(t, err)

			// Straight from first stage to closed and back again
			updated, err := leadFlow.UpdateLead(ctx, owner.ID, lead.UUID.String(), &dto.UpdateLeadRequest{
				Stage: strPtr("closed_won"),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "closed_won", updated.Stage)

			updated, err = leadFlow.UpdateLead(ctx, owner.ID, lead.UUID.String(), &dto.UpdateLeadRequest{
				Stage: strPtr("lead"),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "lead", updated.Stage)
		})

		t.Run("UpdateAllowsPastCloseDate", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(owner.ID)
			require.NoError(t, err)

			lastMonth := utils.UTCNow().Add(-30 * 24 * time.Hour).Format("2006-01-02")
			updated, err := leadFlow.UpdateLead(ctx, owner.ID, lead.UUID.String(), &dto.UpdateLeadRequest{
				ExpectedCloseDate: &lastMonth,
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, updated.ExpectedCloseDate)
		})

		t.Run("DeleteLeadRemovesIt", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(owner.ID)
			require.NoError(t, err)

			err = leadFlow.DeleteLead(ctx, owner.ID, lead.UUID.String(), metadata)
			require.NoError(t, err)

			_, err = leadFlow.GetLead(ctx, owner.ID, lead.UUID.String(), metadata)
			assert.True(t, businessflow.IsLeadNotFound(err))
		})

		t.Run("ListLeadsPaginates", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)
			stranger, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			for i := 0; i < 20; i++ {
				_, err = fixtures.CreateTestLead(owner.ID)
				require.NoError(t, err)
			}

			page1, err := leadFlow.ListLeads(ctx, owner.ID, &dto.ListLeadsRequest{Page: 1}, metadata)
			require.NoError(t, err)
			assert.Len(t, page1.Items, utils.LeadPageSize)
			assert.Equal(t, int64(20), page1.Pagination.Total)
			assert.Equal(t, 2, page1.Pagination.TotalPages)

			page2, err := leadFlow.ListLeads(ctx, owner.ID, &dto.ListLeadsRequest{Page: 2}, metadata)
			require.NoError(t, err)
			assert.Len(t, page2.Items, 5)

			// Pages do not overlap
			seen := make(map[string]bool)
			for _, item := range page1.Items {
				seen[item.UUID] = true
			}
			for _, item := range page2.Items {
				assert.False(t, seen[item.UUID])
			}
		})

		t.Run("ListLeadsFilters", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID,
				testingutil.WithStage(models.LeadStageQualified),
				testingutil.WithPriority(models.LeadPriorityHigh))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID,
				testingutil.WithStage(models.LeadStageContacted))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID,
				testingutil.WithName("Acme Deal"))
			require.NoError(t, err)

			byStage, err := leadFlow.ListLeads(ctx, owner.ID, &dto.ListLeadsRequest{Page: 1, Stage: strPtr("qualified")}, metadata)
			require.NoError(t, err)
			require.Len(t, byStage.Items, 1)
			assert.Equal(t, "qualified", byStage.Items[0].Stage)

			byPriority, err := leadFlow.ListLeads(ctx, owner.ID, &dto.ListLeadsRequest{Page: 1, Priority: strPtr("high")}, metadata)
			require.NoError(t, err)
			require.Len(t, byPriority.Items, 1)
			assert.Equal(t, "high", byPriority.Items[0].Priority)

			bySearch, err := leadFlow.ListLeads(ctx, owner.ID, &dto.ListLeadsRequest{Page: 1, Search: strPtr("acme")}, metadata)
			require.NoError(t, err)
			require.Len(t, bySearch.Items, 1)
			assert.Equal(t, "Acme Deal", bySearch.Items[0].Name)

			_, err = leadFlow.ListLeads(ctx, owner.ID, &dto.ListLeadsRequest{Page: 1, Stage: strPtr("frozen")}, metadata)
			fieldErrs, ok := businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Equal(t, "Invalid stage selected.", fieldErrs["stage"])
		})

		t.Run("ExportLeadsProducesWorkbook", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				_, err = fixtures.CreateTestLead(owner.ID, testingutil.WithValue("42.00"))
				require.NoError(t, err)
			}

			filename, content, err := leadFlow.ExportLeads(ctx, owner.ID, &dto.ListLeadsRequest{}, metadata)
			require.NoError(t, err)
			assert.Regexp(t, `^leads_\d{8}_\d{6}\.xlsx$`, filename)
			require.NotEmpty(t, content)
			// XLSX files are zip archives
			assert.Equal(t, []byte{'P', 'K'}, content[:2])
		})

		t.Run("ExportLeadsHonorsFilters", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			owner, err = fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(owner.ID,
				testingutil.WithName("Qualified Deal"),
				testingutil.WithStage(models.LeadStageQualified))
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(owner.ID,
				testingutil.WithName("Fresh Deal"))
			require.NoError(t, err)

			_, content, err := leadFlow.ExportLeads(ctx, owner.ID, &dto.ListLeadsRequest{
				Stage: strPtr("qualified"),
			}, metadata)
			require.NoError(t, err)

			xl, err := excelize.OpenReader(bytes.NewReader(content))
			require.NoError(t, err)
			defer func() { _ = xl.Close() }()

			rows, err := xl.GetRows(xl.GetSheetName(0))
			require.NoError(t, err)

			// Header plus the single qualified lead
			require.Len(t, rows, 2)
			assert.Equal(t, "Qualified Deal", rows[1][1])
			assert.Equal(t, "Qualified", rows[1][7])

			_, _, err = leadFlow.ExportLeads(ctx, owner.ID, &dto.ListLeadsRequest{
				Stage: strPtr("frozen"),
			}, metadata)
			fieldErrs, ok := businessflow.AsFieldErrors(err)
			require.True(t, ok)
			assert.Equal(t, "Invalid stage selected.", fieldErrs["stage"])
		})

		return nil
	})
	require.NoError(t, err)
}
