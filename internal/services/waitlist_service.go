package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"chyll/internal/common"
	"chyll/internal/models"
	"chyll/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type WaitlistStatus struct {
	Entrant  *models.WaitlistEntrant `json:"entrant"`
	Position int                     `json:"position"`
}

type WaitlistService interface {
	Join(ctx context.Context, email string, referredByCode *string) (*WaitlistStatus, bool, error)
	Status(ctx context.Context, email string) (*WaitlistStatus, error)
	JoinCommunity(ctx context.Context, email string) (*WaitlistStatus, error)
}

type waitlistService struct {
	waitlistRepo repositories.WaitlistRepository
	mailService  MailService
}

func NewWaitlistService(waitlistRepo repositories.WaitlistRepository, mailService MailService) WaitlistService {
	return &waitlistService{
		waitlistRepo: waitlistRepo,
		mailService:  mailService,
	}
}

// Join is idempotent on email: re-joining returns the existing entry with its
// original code and points, and the referrer is credited at most once.
func (s *waitlistService) Join(ctx context.Context, email string, referredByCode *string) (*WaitlistStatus, bool, error) {
	normalized, err := common.ValidateEmail(email, "email")
	if err != nil {
		return nil, false, common.NewValidationError("email", err.Error())
	}

	var referredBy *string
	if referredByCode != nil && strings.TrimSpace(*referredByCode) != "" {
		code := strings.TrimSpace(*referredByCode)
		referrer, err := s.waitlistRepo.GetByReferralCode(ctx, code)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, false, err
			}
			// Unknown code: join proceeds, nobody gets credited.
			log.Printf("Waitlist join with unknown referral code %q", code)
		} else if referrer.Email != normalized {
			referredBy = &referrer.ReferralCode
		}
	}

	entrant := &models.WaitlistEntrant{
		ID:           uuid.New(),
		Email:        normalized,
		ReferralCode: newReferralCode(),
		ReferredBy:   referredBy,
		Points:       models.WaitlistSignupPoints,
	}

	stored, inserted, err := s.waitlistRepo.Join(ctx, entrant)
	if err != nil {
		return nil, false, err
	}

	position, err := s.waitlistRepo.Position(ctx, stored.Email)
	if err != nil {
		return nil, false, err
	}

	if inserted {
		go s.sendWelcomeEmail(stored, position)
	}

	return &WaitlistStatus{Entrant: stored, Position: position}, inserted, nil
}

func (s *waitlistService) Status(ctx context.Context, email string) (*WaitlistStatus, error) {
	normalized, err := common.ValidateEmail(email, "email")
	if err != nil {
		return nil, common.NewValidationError("email", err.Error())
	}

	entrant, err := s.waitlistRepo.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("waitlist entry")
		}
		return nil, err
	}

	position, err := s.waitlistRepo.Position(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return &WaitlistStatus{Entrant: entrant, Position: position}, nil
}

// JoinCommunity awards the community bonus once; repeat calls are no-ops.
func (s *waitlistService) JoinCommunity(ctx context.Context, email string) (*WaitlistStatus, error) {
	status, err := s.Status(ctx, email)
	if err != nil {
		return nil, err
	}

	if !status.Entrant.CommunityJoined {
		if err := s.waitlistRepo.MarkCommunityJoined(ctx, status.Entrant.Email); err != nil {
			return nil, err
		}
		return s.Status(ctx, email)
	}
	return status, nil
}

func (s *waitlistService) sendWelcomeEmail(entrant *models.WaitlistEntrant, position int) {
	body := fmt.Sprintf(
		"<p>Bienvenue sur la liste d'attente chyll !</p><p>Vous êtes en position %d. Partagez votre code de parrainage <strong>%s</strong> pour gagner des places.</p>",
		position, entrant.ReferralCode,
	)
	if err := s.mailService.SendSystemEmail(entrant.Email, "Bienvenue sur la liste d'attente chyll", body); err != nil {
		log.Printf("Failed to send waitlist welcome email to %s: %v", entrant.Email, err)
	}
}

func newReferralCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in a bad state anyway
		return strings.ToUpper(uuid.New().String()[:8])
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
