package services

import (
	"context"
	"errors"
	"log"
	"time"

	"chyll/internal/common"
	"chyll/internal/integrations/gmailapi"
	"chyll/internal/integrations/googleauth"
	"chyll/internal/models"
	"chyll/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gopkg.in/gomail.v2"
)

type SendEmailInput struct {
	LeadID  *uuid.UUID
	To      string
	Subject string
	Body    string
}

type MailService interface {
	SendLeadEmail(ctx context.Context, clientID uuid.UUID, input *SendEmailInput) (*models.EmailJob, error)
	ListJobs(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.EmailJob, error)
	SendSystemEmail(to, subject, body string) error
}

type mailService struct {
	mailboxRepo  repositories.MailboxRepository
	emailJobRepo repositories.EmailJobRepository
	gmail        *gmailapi.Client
	google       *googleauth.Client
	smtpDialer   *gomail.Dialer
	smtpFrom     string
}

func NewMailService(mailboxRepo repositories.MailboxRepository, emailJobRepo repositories.EmailJobRepository, gmail *gmailapi.Client, google *googleauth.Client, smtpDialer *gomail.Dialer, smtpFrom string) MailService {
	return &mailService{
		mailboxRepo:  mailboxRepo,
		emailJobRepo: emailJobRepo,
		gmail:        gmail,
		google:       google,
		smtpDialer:   smtpDialer,
		smtpFrom:     smtpFrom,
	}
}

// SendLeadEmail sends through the client's connected Gmail account. Every
// attempt leaves a ledger row: pending first, then sent or failed. A failed
// row keeps the provider's raw error so support can see what Gmail said.
func (s *mailService) SendLeadEmail(ctx context.Context, clientID uuid.UUID, input *SendEmailInput) (*models.EmailJob, error) {
	recipient, err := common.ValidateEmail(input.To, "to")
	if err != nil {
		return nil, common.NewValidationError("to", err.Error())
	}
	input.To = recipient
	if input.Subject == "" {
		return nil, common.NewValidationError("subject", "subject is required")
	}
	if input.Body == "" {
		return nil, common.NewValidationError("body", "body is required")
	}

	conn, err := s.mailboxRepo.GetByClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("mailbox connection")
		}
		return nil, err
	}

	job := &models.EmailJob{
		ID:        uuid.New(),
		ClientID:  clientID,
		LeadID:    input.LeadID,
		Recipient: input.To,
		Subject:   input.Subject,
		Status:    models.EmailJobPending,
	}
	if err := s.emailJobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	accessToken, err := s.usableAccessToken(ctx, conn)
	if err != nil {
		s.failJob(ctx, job, err.Error())
		return job, common.NewUpstreamError("google", err.Error(), err)
	}

	messageID, err := s.gmail.Send(ctx, accessToken, conn.EmailAddress, input.To, input.Subject, input.Body)
	if err != nil {
		s.failJob(ctx, job, err.Error())
		return job, common.NewUpstreamError("gmail", err.Error(), err)
	}

	if err := s.emailJobRepo.MarkSent(ctx, job.ID, messageID); err != nil {
		log.Printf("Email %s delivered but ledger update failed: %v", job.ID.String(), err)
	}
	job.Status = models.EmailJobSent
	job.ProviderMessageID = &messageID
	return job, nil
}

// usableAccessToken refreshes an expired token exactly once. A second expiry
// in the same call means the connection is broken and the send fails.
func (s *mailService) usableAccessToken(ctx context.Context, conn *models.MailboxConnection) (string, error) {
	if !conn.Expired() {
		return conn.AccessToken, nil
	}

	tokens, err := s.google.RefreshAccessToken(ctx, conn.RefreshToken)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	if err := s.mailboxRepo.UpdateAccessToken(ctx, conn.ClientID, tokens.AccessToken, expiresAt); err != nil {
		log.Printf("Refreshed token for client %s but persist failed: %v", conn.ClientID.String(), err)
	}
	return tokens.AccessToken, nil
}

func (s *mailService) failJob(ctx context.Context, job *models.EmailJob, providerError string) {
	if err := s.emailJobRepo.MarkFailed(ctx, job.ID, providerError); err != nil {
		log.Printf("Failed to record failure for email job %s: %v", job.ID.String(), err)
	}
	job.Status = models.EmailJobFailed
	job.ProviderError = &providerError
}

func (s *mailService) ListJobs(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.EmailJob, error) {
	return s.emailJobRepo.ListByClient(ctx, clientID, limit, offset)
}

// SendSystemEmail goes out over plain SMTP, not the client's Gmail. Used for
// transactional mail like waitlist confirmations.
func (s *mailService) SendSystemEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.smtpFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.smtpDialer.DialAndSend(m); err != nil {
		return common.NewUpstreamError("smtp", err.Error(), err)
	}
	return nil
}
