package repositories

import (
	"context"

	"chyll/internal/models"

	"github.com/google/uuid"
)

type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	GetByEmail(ctx context.Context, email string) (*models.Client, error)
	GetRole(ctx context.Context, id uuid.UUID) (string, error)
	Update(ctx context.Context, client *models.Client) error
}

type clientRepo struct {
	db DB
}

func NewClientRepo(db DB) ClientRepository {
	return &clientRepo{db: db}
}

const clientColumns = `id, email, password_hash, first_name, last_name, company_name, role, status, created_at, updated_at`

func (r *clientRepo) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (id, email, password_hash, first_name, last_name, company_name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, client.ID, client.Email, client.PasswordHash, client.FirstName, client.LastName, client.CompanyName, client.Role, client.Status)
	return err
}

func (r *clientRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client := &models.Client{}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&client.ID, &client.Email, &client.PasswordHash, &client.FirstName, &client.LastName, &client.CompanyName, &client.Role, &client.Status, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *clientRepo) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	client := &models.Client{}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE email = $1`
	err := r.db.QueryRow(ctx, query, email).Scan(&client.ID, &client.Email, &client.PasswordHash, &client.FirstName, &client.LastName, &client.CompanyName, &client.Role, &client.Status, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *clientRepo) GetRole(ctx context.Context, id uuid.UUID) (string, error) {
	var role string
	err := r.db.QueryRow(ctx, `SELECT role FROM clients WHERE id = $1`, id).Scan(&role)
	return role, err
}

func (r *clientRepo) Update(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET first_name = $1, last_name = $2, company_name = $3, status = $4, updated_at = NOW()
		WHERE id = $5
	`
	_, err := r.db.Exec(ctx, query, client.FirstName, client.LastName, client.CompanyName, client.Status, client.ID)
	return err
}
