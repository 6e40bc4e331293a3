package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"chyll/internal/caching"
	"chyll/internal/common"
	"chyll/internal/models"
	"chyll/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type SignupInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	CompanyName *string
}

type AuthService interface {
	Signup(ctx context.Context, input *SignupInput) (*models.Client, *models.TokenResponse, error)
	Login(ctx context.Context, email, password string) (*models.Client, *models.TokenResponse, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	Logout(ctx context.Context, refreshToken string) error
}

// TokenClaims are the JWT claims issued at login.
type TokenClaims struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
	TokenID  string `json:"token_id"`
	jwt.RegisteredClaims
}

type authService struct {
	clientRepo repositories.ClientRepository
	cacheSvc   caching.CacheService
	jwtSecret  []byte
	tokenTTL   int // seconds
	refreshTTL int // seconds
}

func NewAuthService(clientRepo repositories.ClientRepository, cacheSvc caching.CacheService, jwtSecret string, tokenTTLSeconds, refreshTTLSeconds int) AuthService {
	return &authService{
		clientRepo: clientRepo,
		cacheSvc:   cacheSvc,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTLSeconds,
		refreshTTL: refreshTTLSeconds,
	}
}

func (s *authService) Signup(ctx context.Context, input *SignupInput) (*models.Client, *models.TokenResponse, error) {
	email, err := common.ValidateEmail(input.Email, "email")
	if err != nil {
		return nil, nil, common.NewValidationError("email", err.Error())
	}
	if len(input.Password) < 8 {
		return nil, nil, common.NewValidationError("password", "password must be at least 8 characters")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, nil, common.NewValidationError("first_name", "first name is required")
	}

	if _, err := s.clientRepo.GetByEmail(ctx, email); err == nil {
		return nil, nil, common.NewValidationError("email", "an account with this email already exists")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	client := &models.Client{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		CompanyName:  input.CompanyName,
		Role:         models.RoleClient,
		Status:       "active",
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, nil, err
	}

	tokens, err := s.generateTokens(ctx, client)
	if err != nil {
		return nil, nil, err
	}
	return client, tokens, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.Client, *models.TokenResponse, error) {
	client, err := s.clientRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, common.NewAuthorizationError("invalid email or password")
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(password)); err != nil {
		return nil, nil, common.NewAuthorizationError("invalid email or password")
	}

	tokens, err := s.generateTokens(ctx, client)
	if err != nil {
		return nil, nil, err
	}
	return client, tokens, nil
}

// RefreshSession exchanges a refresh token once. An invalid or expired token
// yields ErrTransientSession; the caller makes exactly one attempt and then
// treats the session as gone.
func (s *authService) RefreshSession(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	tokenHash := hashToken(refreshToken)
	cacheKey := refreshTokenKey(tokenHash)

	data, err := s.cacheSvc.GetString(ctx, cacheKey)
	if err != nil {
		return nil, common.ErrTransientSession
	}

	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return nil, common.ErrTransientSession
	}
	clientID, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, common.ErrTransientSession
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() > expiry {
		if delErr := s.cacheSvc.Delete(ctx, cacheKey); delErr != nil {
			log.Printf("Failed to drop expired refresh token: %v", delErr)
		}
		return nil, common.ErrTransientSession
	}

	client, err := s.clientRepo.GetByID(ctx, clientID)
	if err != nil {
		return nil, common.ErrTransientSession
	}

	// Rotate: the old refresh token dies with this exchange.
	if err := s.cacheSvc.Delete(ctx, cacheKey); err != nil {
		log.Printf("Failed to rotate refresh token for client %s: %v", clientID.String(), err)
	}
	return s.generateTokens(ctx, client)
}

func (s *authService) ValidateToken(_ context.Context, token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	return s.cacheSvc.Delete(ctx, refreshTokenKey(hashToken(refreshToken)))
}

func (s *authService) generateTokens(ctx context.Context, client *models.Client) (*models.TokenResponse, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	claims := TokenClaims{
		ClientID: client.ID.String(),
		Role:     client.Role,
		TokenID:  tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chyll-auth",
			Subject:   client.ID.String(),
			Audience:  jwt.ClaimStrings{"chyll-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenTTL) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %w", err)
	}

	refreshToken := generateSecureToken()
	refreshData := fmt.Sprintf("%s:%d", client.ID.String(), now.Unix()+int64(s.refreshTTL))
	cacheKey := refreshTokenKey(hashToken(refreshToken))
	if err := s.cacheSvc.SetString(ctx, cacheKey, refreshData, time.Duration(s.refreshTTL)*time.Second); err != nil {
		log.Printf("Failed to store refresh token: %v", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.tokenTTL,
		RefreshToken: refreshToken,
		ClientID:     client.ID.String(),
		IssuedAt:     now,
	}, nil
}

func refreshTokenKey(tokenHash string) string {
	return "chyll:refresh_token:" + tokenHash
}

func generateSecureToken() string {
	buf := make([]byte, 32)
	rand.Read(buf)
	return base64.URLEncoding.EncodeToString(buf)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
