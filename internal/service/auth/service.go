package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/email"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/jwt"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/password"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/socialauth"
)

// Verification links expire after this long
const verificationTokenTTL = 24 * time.Hour

// UserRepository interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	MarkVerified(ctx context.Context, userID uuid.UUID) error
	SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, sentAt time.Time) error
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error
	LinkSocialIdentity(ctx context.Context, userID uuid.UUID, provider, uid string) error
}

// EmailService interface for sending verification mail
type EmailService interface {
	SendVerificationEmail(ctx context.Context, to string, data *email.VerificationEmailData) error
}

// SocialVerifier validates third-party login tokens with the provider
type SocialVerifier interface {
	Verify(ctx context.Context, provider, accessToken string) (*socialauth.Identity, error)
}

// Service handles authentication business logic
type Service struct {
	userRepo       UserRepository
	emailService   EmailService
	socialVerifier SocialVerifier
	jwtManager     *jwt.Manager
	verifyBaseURL  string
	log            *zap.Logger
}

// NewService creates a new auth service
func NewService(
	userRepo UserRepository,
	emailService EmailService,
	socialVerifier SocialVerifier,
	jwtManager *jwt.Manager,
	verifyBaseURL string,
	log *zap.Logger,
) *Service {
	return &Service{
		userRepo:       userRepo,
		emailService:   emailService,
		socialVerifier: socialVerifier,
		jwtManager:     jwtManager,
		verifyBaseURL:  verifyBaseURL,
		log:            log,
	}
}

// SignupInput contains user registration data
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Address   string
}

// TokenPair is an access/refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthOutput is the result of signup, login and refresh
type AuthOutput struct {
	User   *domain.UserResponse `json:"user"`
	Tokens TokenPair            `json:"tokens"`
}

// Signup creates a new user account and sends a verification email.
// Admins cannot be created through signup.
func (s *Service) Signup(ctx context.Context, input *SignupInput) (*AuthOutput, error) {
	if err := s.validateSignupInput(input); err != nil {
		return nil, err
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	now := time.Now()
	var address *string
	if a := strings.TrimSpace(input.Address); a != "" {
		address = &a
	}
	user := &domain.User{
		UserID:            uuid.New(),
		Email:             strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(input.FirstName),
		LastName:          strings.TrimSpace(input.LastName),
		Role:              domain.Role(input.Role),
		TutorStatus:       domain.TutorOffline,
		Address:           address,
		VerificationToken: &token,
		TokenSentAt:       &now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Delivery failures must not fail signup; the token can be resent
	if err := s.emailService.SendVerificationEmail(ctx, user.Email, &email.VerificationEmailData{
		Name:      user.FullName(),
		VerifyURL: s.verifyURL(token),
	}); err != nil {
		s.log.Warn("failed to send verification email",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err),
		)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info("user signed up",
		zap.String("user_id", user.UserID.String()),
		zap.String("role", string(user.Role)),
	)

	return &AuthOutput{User: user.ToResponse(), Tokens: tokens}, nil
}

// Login authenticates a user by email and password
func (s *Service) Login(ctx context.Context, emailAddr, plainPassword string) (*AuthOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, apperrors.UserNotFoundError()) {
			return nil, apperrors.InvalidCredentialsError()
		}
		return nil, err
	}

	if !password.Verify(user.PasswordHash, plainPassword) {
		return nil, apperrors.InvalidCredentialsError()
	}
	if user.Banned {
		return nil, apperrors.BannedError()
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.String("user_id", user.UserID.String()))

	return &AuthOutput{User: user.ToResponse(), Tokens: tokens}, nil
}

// SocialLogin authenticates through a third-party identity. A user with a
// matching email is logged in and gains the social identity; otherwise an
// account is created, pre-verified since the provider vouched for the
// address. Role only applies to accounts created here.
func (s *Service) SocialLogin(ctx context.Context, provider, accessToken, role string) (*AuthOutput, error) {
	if !socialauth.SupportedProvider(provider) {
		return nil, apperrors.ValidationError("provider must be google or facebook")
	}

	identity, err := s.socialVerifier.Verify(ctx, provider, accessToken)
	if err != nil {
		s.log.Warn("social token verification failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return nil, apperrors.InvalidTokenError("invalid social token")
	}

	user, err := s.userRepo.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if user.Banned {
			return nil, apperrors.BannedError()
		}
		if user.Provider == nil || *user.Provider != provider {
			if err := s.userRepo.LinkSocialIdentity(ctx, user.UserID, provider, identity.UID); err != nil {
				return nil, err
			}
			user.Provider = &provider
			user.ProviderUID = &identity.UID
			user.Verified = true
		}
	case errors.Is(err, apperrors.UserNotFoundError()):
		user, err = s.createSocialUser(ctx, identity, role)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info("social login",
		zap.String("user_id", user.UserID.String()),
		zap.String("provider", provider),
	)

	return &AuthOutput{User: user.ToResponse(), Tokens: tokens}, nil
}

func (s *Service) createSocialUser(ctx context.Context, identity *socialauth.Identity, role string) (*domain.User, error) {
	if role == "" {
		role = string(domain.RoleStudent)
	}
	switch domain.Role(role) {
	case domain.RoleStudent, domain.RoleTeacher:
	default:
		return nil, apperrors.ValidationError("role must be student or teacher")
	}

	// Social accounts never log in with it, but the column is required
	random, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := password.Hash(random[:32])
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	first := strings.TrimSpace(identity.FirstName)
	if first == "" {
		first = "User"
	}
	user := &domain.User{
		UserID:       uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(identity.Email)),
		PasswordHash: hash,
		FirstName:    first,
		LastName:     strings.TrimSpace(identity.LastName),
		Role:         domain.Role(role),
		Verified:     true,
		TutorStatus:  domain.TutorOffline,
		Provider:     &identity.Provider,
		ProviderUID:  &identity.UID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created via social login",
		zap.String("user_id", user.UserID.String()),
		zap.String("provider", identity.Provider),
		zap.String("role", role),
	)
	return user, nil
}

// Refresh rotates a refresh token into a new token pair. The presented
// token must match the one stored for the user; rotation invalidates it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthOutput, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperrors.InvalidTokenError("invalid refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.InvalidTokenError("invalid refresh token")
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, apperrors.InvalidTokenError("refresh token revoked")
	}
	if user.Banned {
		return nil, apperrors.BannedError()
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{User: user.ToResponse(), Tokens: tokens}, nil
}

// Logout revokes the user's refresh token
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.SetRefreshToken(ctx, userID, nil); err != nil {
		return err
	}
	s.log.Info("user logged out", zap.String("user_id", userID.String()))
	return nil
}

// Me returns the authenticated user's profile
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*domain.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// VerifyEmail marks a user verified if the token is valid and fresh
func (s *Service) VerifyEmail(ctx context.Context, token string) (*domain.UserResponse, error) {
	if token == "" {
		return nil, apperrors.InvalidTokenError("missing verification token")
	}

	user, err := s.userRepo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.UserNotFoundError()) {
			return nil, apperrors.InvalidTokenError("invalid verification token")
		}
		return nil, err
	}
	if user.Verified {
		return user.ToResponse(), nil
	}
	if user.TokenSentAt == nil || time.Since(*user.TokenSentAt) > verificationTokenTTL {
		return nil, apperrors.InvalidTokenError("verification token expired")
	}

	if err := s.userRepo.MarkVerified(ctx, user.UserID); err != nil {
		return nil, err
	}
	user.Verified = true

	s.log.Info("email verified", zap.String("user_id", user.UserID.String()))

	return user.ToResponse(), nil
}

// ResendVerification issues a fresh verification token and re-sends the email
func (s *Service) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Verified {
		return apperrors.ConflictError("email already verified")
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}
	if err := s.userRepo.SetVerificationToken(ctx, user.UserID, token, time.Now()); err != nil {
		return err
	}

	return s.emailService.SendVerificationEmail(ctx, user.Email, &email.VerificationEmailData{
		Name:      user.FullName(),
		VerifyURL: s.verifyURL(token),
	})
}

func (s *Service) issueTokens(ctx context.Context, user *domain.User) (TokenPair, error) {
	access, err := s.jwtManager.GenerateAccessToken(user.UserID, user.Email, string(user.Role), user.Verified)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.UserID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.UserID, &refresh); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) validateSignupInput(input *SignupInput) error {
	email := strings.TrimSpace(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return apperrors.ValidationError("a valid email is required")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return apperrors.ValidationError("first name is required")
	}
	if err := password.Validate(input.Password); err != nil {
		return apperrors.ValidationError(err.Error())
	}
	switch domain.Role(input.Role) {
	case domain.RoleStudent, domain.RoleTeacher:
	default:
		return apperrors.ValidationError("role must be student or teacher")
	}
	return nil
}

func (s *Service) verifyURL(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(s.verifyBaseURL, "/"), token)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
