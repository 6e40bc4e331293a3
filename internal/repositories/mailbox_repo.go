package repositories

import (
	"context"
	"time"

	"chyll/internal/models"

	"github.com/google/uuid"
)

type MailboxRepository interface {
	Upsert(ctx context.Context, conn *models.MailboxConnection) error
	GetByClient(ctx context.Context, clientID uuid.UUID) (*models.MailboxConnection, error)
	UpdateAccessToken(ctx context.Context, clientID uuid.UUID, accessToken string, expiresAt time.Time) error
	ListExpiring(ctx context.Context, within time.Duration) ([]*models.MailboxConnection, error)
}

type mailboxRepo struct {
	db DB
}

func NewMailboxRepo(db DB) MailboxRepository {
	return &mailboxRepo{db: db}
}

const mailboxColumns = `id, client_id, email_address, access_token, refresh_token, expires_at, created_at, updated_at`

func (r *mailboxRepo) Upsert(ctx context.Context, conn *models.MailboxConnection) error {
	query := `
		INSERT INTO mailbox_connections (id, client_id, email_address, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (client_id) DO UPDATE SET
			email_address = EXCLUDED.email_address,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, conn.ID, conn.ClientID, conn.EmailAddress, conn.AccessToken, conn.RefreshToken, conn.ExpiresAt)
	return err
}

func (r *mailboxRepo) GetByClient(ctx context.Context, clientID uuid.UUID) (*models.MailboxConnection, error) {
	conn := &models.MailboxConnection{}
	query := `SELECT ` + mailboxColumns + ` FROM mailbox_connections WHERE client_id = $1`
	err := r.db.QueryRow(ctx, query, clientID).Scan(&conn.ID, &conn.ClientID, &conn.EmailAddress, &conn.AccessToken, &conn.RefreshToken, &conn.ExpiresAt, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *mailboxRepo) UpdateAccessToken(ctx context.Context, clientID uuid.UUID, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE mailbox_connections
		SET access_token = $1, expires_at = $2, updated_at = NOW()
		WHERE client_id = $3
	`
	_, err := r.db.Exec(ctx, query, accessToken, expiresAt, clientID)
	return err
}

func (r *mailboxRepo) ListExpiring(ctx context.Context, within time.Duration) ([]*models.MailboxConnection, error) {
	query := `SELECT ` + mailboxColumns + ` FROM mailbox_connections WHERE expires_at < $1`
	rows, err := r.db.Query(ctx, query, time.Now().Add(within))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []*models.MailboxConnection
	for rows.Next() {
		conn := &models.MailboxConnection{}
		if err := rows.Scan(&conn.ID, &conn.ClientID, &conn.EmailAddress, &conn.AccessToken, &conn.RefreshToken, &conn.ExpiresAt, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}
