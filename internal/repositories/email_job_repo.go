package repositories

import (
	"context"

	"chyll/internal/models"

	"github.com/google/uuid"
)

type EmailJobRepository interface {
	Create(ctx context.Context, job *models.EmailJob) error
	MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, providerError string) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.EmailJob, error)
	FailStalePending(ctx context.Context, olderThanMinutes int) (int, error)
}

type emailJobRepo struct {
	db DB
}

func NewEmailJobRepo(db DB) EmailJobRepository {
	return &emailJobRepo{db: db}
}

func (r *emailJobRepo) Create(ctx context.Context, job *models.EmailJob) error {
	query := `
		INSERT INTO email_jobs (id, client_id, lead_id, recipient, subject, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, query, job.ID, job.ClientID, job.LeadID, job.Recipient, job.Subject, job.Status)
	return err
}

func (r *emailJobRepo) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string) error {
	query := `
		UPDATE email_jobs
		SET status = $1, provider_message_id = $2, completed_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.Exec(ctx, query, models.EmailJobSent, providerMessageID, id)
	return err
}

func (r *emailJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, providerError string) error {
	query := `
		UPDATE email_jobs
		SET status = $1, provider_error = $2, completed_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.Exec(ctx, query, models.EmailJobFailed, providerError, id)
	return err
}

func (r *emailJobRepo) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.EmailJob, error) {
	query := `
		SELECT id, client_id, lead_id, recipient, subject, status, provider_message_id, provider_error, created_at, completed_at
		FROM email_jobs
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.EmailJob
	for rows.Next() {
		job := &models.EmailJob{}
		if err := rows.Scan(&job.ID, &job.ClientID, &job.LeadID, &job.Recipient, &job.Subject, &job.Status, &job.ProviderMessageID, &job.ProviderError, &job.CreatedAt, &job.CompletedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// FailStalePending closes out jobs abandoned mid-send, e.g. by a crash
// between the insert and the provider call. Every job must reach a terminal
// status eventually.
func (r *emailJobRepo) FailStalePending(ctx context.Context, olderThanMinutes int) (int, error) {
	query := `
		UPDATE email_jobs
		SET status = $1, provider_error = 'send attempt abandoned', completed_at = NOW()
		WHERE status = $2 AND created_at < NOW() - make_interval(mins => $3)
	`
	tag, err := r.db.Exec(ctx, query, models.EmailJobFailed, models.EmailJobPending, olderThanMinutes)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
