package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelworks/prospector/app/handlers"
	businessflow "github.com/funnelworks/prospector/business_flow"
	"github.com/funnelworks/prospector/repository"
	testingutil "github.com/funnelworks/prospector/testing"
)

type apiEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func TestLeadHandlerValidationResponses(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		leadRepo := repository.NewLeadRepository(testDB.DB)
		userRepo := repository.NewUserRepository(testDB.DB)
		leadFlow := businessflow.NewLeadFlow(leadRepo, userRepo, testDB.DB)
		leadHandler := handlers.NewLeadHandler(leadFlow)

		owner, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		app := fiber.New()
		app.Use(func(c fiber.Ctx) error {
			c.Locals("user_id", owner.ID)
			return c.Next()
		})
		app.Post("/leads", leadHandler.CreateLead)
		app.Put("/leads/:uuid", leadHandler.UpdateLead)

		t.Run("CreateEchoesSubmittedInput", func(t *testing.T) {
			body, err := json.Marshal(map[string]string{
				"name":  "Echo Lead",
				"email": "echo@example.com",
			})
			require.NoError(t, err)

			req := httptest.NewRequest("POST", "/leads", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			var envelope apiEnvelope
			require.NoError(t, json.Unmarshal(raw, &envelope))

			assert.False(t, envelope.Success)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
			assert.Equal(t, "Please select a stage.", envelope.Error.Details["stage"])
			assert.Equal(t, "Please select a priority level.", envelope.Error.Details["priority"])

			// The submitted input comes back so the caller can resubmit
			require.NotNil(t, envelope.Data)
			assert.Equal(t, "Echo Lead", envelope.Data["name"])
			assert.Equal(t, "echo@example.com", envelope.Data["email"])
		})

		t.Run("UpdateEchoesSubmittedInput", func(t *testing.T) {
			body, err := json.Marshal(map[string]string{
				"value": "not-a-number",
			})
			require.NoError(t, err)

			req := httptest.NewRequest("PUT", "/leads/"+uuid.New().String(), bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			var envelope apiEnvelope
			require.NoError(t, json.Unmarshal(raw, &envelope))

			require.NotNil(t, envelope.Error)
			assert.Equal(t, "Lead value must be a number.", envelope.Error.Details["value"])
			require.NotNil(t, envelope.Data)
			assert.Equal(t, "not-a-number", envelope.Data["value"])
		})

		return nil
	})
	require.NoError(t, err)
}
