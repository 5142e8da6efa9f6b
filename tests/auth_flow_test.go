package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelworks/prospector/app/dto"
	"github.com/funnelworks/prospector/app/services"
	businessflow "github.com/funnelworks/prospector/business_flow"
	"github.com/funnelworks/prospector/repository"
	testingutil "github.com/funnelworks/prospector/testing"
	"github.com/funnelworks/prospector/utils"
)

func newTestTokenService(t *testing.T) services.TokenService {
	tokenService, err := services.NewTokenService(
		utils.AccessTokenTTL,
		utils.RefreshTokenTTL,
		"prospector-test",
		"prospector-test-clients",
		false,
		"", "",
		"test-secret-key-at-least-32-characters-long",
		nil,
	)
	require.NoError(t, err)
	return tokenService
}

func TestAuthFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		userRepo := repository.NewUserRepository(testDB.DB)
		authFlow := businessflow.NewAuthFlow(userRepo, newTestTokenService(t), testDB.DB)

		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

		t.Run("SignupIssuesTokens", func(t *testing.T) {
			req := &dto.SignupRequest{
				Email:     "new.user@example.com",
				Password:  "StrongPass123!",
				FirstName: "New",
				LastName:  "User",
			}

			resp, err := authFlow.Signup(ctx, req, metadata)
			require.NoError(t, err)

			assert.NotEmpty(t, resp.AccessToken)
			assert.NotEmpty(t, resp.RefreshToken)
			assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
			assert.Equal(t, "new.user@example.com", resp.User.Email)
			assert.Equal(t, "New User", resp.User.FullName)
			assert.NotEmpty(t, resp.User.UUID)

			// Password never stored in the clear
			stored, err := userRepo.ByEmail(ctx, req.Email)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.NotEqual(t, req.Password, stored.PasswordHash)
		})

		t.Run("SignupRejectsDuplicateEmail", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			req := &dto.SignupRequest{
				Email:     user.Email,
				Password:  "AnotherPass123!",
				FirstName: "Copy",
				LastName:  "Cat",
			}

			_, err = authFlow.Signup(ctx, req, metadata)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("LoginVerifiesCredentials", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			resp, err := authFlow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			require.NoError(t, err)
			assert.NotEmpty(t, resp.AccessToken)

			_, err = authFlow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "WrongPass123!",
			}, metadata)
			assert.True(t, businessflow.IsIncorrectPassword(err))

			_, err = authFlow.Login(ctx, &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: "TestPass123!",
			}, metadata)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("LoginRejectsInactiveAccount", func(t *testing.T) {
			user, err := fixtures.CreateInactiveTestUser()
			require.NoError(t, err)

			_, err = authFlow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			assert.True(t, businessflow.IsAccountInactive(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTokenService(t *testing.T) {
	tokenService := newTestTokenService(t)
	ctx := context.Background()

	t.Run("GenerateAndValidate", func(t *testing.T) {
		accessToken, refreshToken, err := tokenService.GenerateTokens(42)
		require.NoError(t, err)

		claims, err := tokenService.ValidateToken(ctx, accessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)

		refreshClaims, err := tokenService.ValidateToken(ctx, refreshToken)
		require.NoError(t, err)
		assert.Equal(t, "refresh", refreshClaims.TokenType)
		assert.NotEqual(t, claims.TokenID, refreshClaims.TokenID)
	})

	t.Run("RejectsGarbage", func(t *testing.T) {
		_, err := tokenService.ValidateToken(ctx, "not.a.token")
		assert.ErrorIs(t, err, services.ErrTokenInvalid)
	})
}
