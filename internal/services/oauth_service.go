package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"chyll/internal/caching"
	"chyll/internal/common"
	"chyll/internal/integrations/googleauth"
	"chyll/internal/models"
	"chyll/internal/repositories"

	"github.com/google/uuid"
)

// oauthCodeTTL covers the window during which a replayed authorization code
// must still be recognized as already consumed.
const oauthCodeTTL = 10 * time.Minute

// oauthRedirectURI matches the popup flow the dashboard uses: Google returns
// the code via postMessage, so the exchange carries this sentinel value.
const oauthRedirectURI = "postmessage"

type OAuthService interface {
	ConnectMailbox(ctx context.Context, clientID uuid.UUID, code string) (*models.MailboxConnection, error)
	GetConnection(ctx context.Context, clientID uuid.UUID) (*models.MailboxConnection, error)
	RefreshExpiring(ctx context.Context, within time.Duration) (int, error)
}

type oauthService struct {
	mailboxRepo  repositories.MailboxRepository
	cacheService caching.CacheService
	google       *googleauth.Client
}

func NewOAuthService(mailboxRepo repositories.MailboxRepository, cacheService caching.CacheService, google *googleauth.Client) OAuthService {
	return &oauthService{
		mailboxRepo:  mailboxRepo,
		cacheService: cacheService,
		google:       google,
	}
}

// ConnectMailbox exchanges a Google authorization code and stores the
// resulting mailbox connection. Codes are single-use: a concurrent or
// repeated submit of the same code is rejected before any exchange attempt,
// since Google invalidates the whole grant on a double exchange.
func (s *oauthService) ConnectMailbox(ctx context.Context, clientID uuid.UUID, code string) (*models.MailboxConnection, error) {
	if code == "" {
		return nil, common.NewValidationError("code", "authorization code is required")
	}

	digest := sha256.Sum256([]byte(code))
	first, err := s.cacheService.MarkOnce(ctx, "oauth:code:"+hex.EncodeToString(digest[:]), oauthCodeTTL)
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, common.NewValidationError("code", "authorization code already used")
	}

	tokens, err := s.google.ExchangeCode(ctx, code, oauthRedirectURI)
	if err != nil {
		return nil, common.NewUpstreamError("google", err.Error(), err)
	}
	if tokens.RefreshToken == "" {
		return nil, errors.New("google did not return a refresh token; re-consent is required")
	}

	email, err := s.google.VerifyIDToken(tokens.IDToken)
	if err != nil {
		return nil, common.NewUpstreamError("google", err.Error(), err)
	}

	conn := &models.MailboxConnection{
		ID:           uuid.New(),
		ClientID:     clientID,
		EmailAddress: email,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
	}
	if err := s.mailboxRepo.Upsert(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *oauthService) GetConnection(ctx context.Context, clientID uuid.UUID) (*models.MailboxConnection, error) {
	conn, err := s.mailboxRepo.GetByClient(ctx, clientID)
	if err != nil {
		return nil, common.NewNotFoundError("mailbox connection")
	}
	return conn, nil
}

// RefreshExpiring renews access tokens about to lapse so sends never start
// with a dead token. One attempt per connection; a failing refresh is logged
// and retried on the next sweep.
func (s *oauthService) RefreshExpiring(ctx context.Context, within time.Duration) (int, error) {
	conns, err := s.mailboxRepo.ListExpiring(ctx, within)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, conn := range conns {
		tokens, err := s.google.RefreshAccessToken(ctx, conn.RefreshToken)
		if err != nil {
			log.Printf("Token refresh failed for client %s: %v", conn.ClientID.String(), err)
			continue
		}
		expiresAt := time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		if err := s.mailboxRepo.UpdateAccessToken(ctx, conn.ClientID, tokens.AccessToken, expiresAt); err != nil {
			log.Printf("Failed to persist refreshed token for client %s: %v", conn.ClientID.String(), err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
