package businessflow

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/funnelworks/prospector/app/dto"
	"github.com/funnelworks/prospector/app/services"
	"github.com/funnelworks/prospector/models"
	"github.com/funnelworks/prospector/repository"
	"github.com/funnelworks/prospector/utils"
)

// AuthFlow handles account creation and session lifecycle
type AuthFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Logout(ctx context.Context, accessToken string, metadata *ClientMetadata) error
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	userRepo     repository.UserRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewAuthFlow creates a new auth flow instance
func NewAuthFlow(
	userRepo repository.UserRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:     userRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// Signup creates a new account and issues a token pair
func (f *AuthFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	var user *models.User

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		existing, err := f.userRepo.ByEmail(txCtx, req.Email)
		if err != nil {
			return fmt.Errorf("failed to check existing email: %w", err)
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user = &models.User{
			Email:        req.Email,
			PasswordHash: string(passwordHash),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			IsActive:     utils.ToPtr(true),
		}

		if err := f.userRepo.Save(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		return nil
	})
	if err != nil {
		if IsEmailAlreadyExists(err) {
			return nil, err
		}
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	return f.issueTokens(user)
}

// Login verifies credentials and issues a token pair
func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	user, err := f.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}

	return f.issueTokens(user)
}

// Logout revokes the presented access token
func (f *AuthFlowImpl) Logout(ctx context.Context, accessToken string, metadata *ClientMetadata) error {
	if err := f.tokenService.RevokeToken(ctx, accessToken); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	return nil
}

func (f *AuthFlowImpl) issueTokens(user *models.User) (*dto.AuthResponse, error) {
	accessToken, refreshToken, err := f.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	return &dto.AuthResponse{
		User: dto.UserResponse{
			UUID:      user.UUID.String(),
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			FullName:  user.FullName(),
			CreatedAt: user.CreatedAt,
		},
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    utils.UTCNowAdd(utils.AccessTokenTTL),
	}, nil
}
