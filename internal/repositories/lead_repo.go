package repositories

import (
	"context"
	"fmt"

	"chyll/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repositories depend on. Satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, clientID, id uuid.UUID) (*models.Lead, error)
	List(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.Lead, error)
	Search(ctx context.Context, clientID uuid.UUID, filter *models.LeadSearchFilter) ([]*models.Lead, error)
	UpdateStatus(ctx context.Context, clientID, id uuid.UUID, status string) error
	UpdateSalesData(ctx context.Context, clientID, id uuid.UUID, data *models.LeadSalesData) error
	Upsert(ctx context.Context, lead *models.Lead) error
	CountByClient(ctx context.Context, clientID uuid.UUID) (int, error)
}

type leadRepo struct {
	db DB
}

func NewLeadRepo(db DB) LeadRepository {
	return &leadRepo{db: db}
}

const leadColumns = `id, client_id, full_name, job_title, company, location, email, phone, linkedin_url, status, mrr, arr, pipeline_stage, close_probability, expected_close_at, last_activity_at, source, enrichment, created_at, updated_at`

func scanLead(row pgx.Row) (*models.Lead, error) {
	lead := &models.Lead{}
	err := row.Scan(&lead.ID, &lead.ClientID, &lead.FullName, &lead.JobTitle, &lead.Company, &lead.Location, &lead.Email, &lead.Phone, &lead.LinkedinURL, &lead.Status, &lead.MRR, &lead.ARR, &lead.PipelineStage, &lead.CloseProbability, &lead.ExpectedCloseAt, &lead.LastActivityAt, &lead.Source, &lead.Enrichment, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *leadRepo) Create(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (id, client_id, full_name, job_title, company, location, email, phone, linkedin_url, status, mrr, arr, pipeline_stage, close_probability, expected_close_at, last_activity_at, source, enrichment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, lead.ID, lead.ClientID, lead.FullName, lead.JobTitle, lead.Company, lead.Location, lead.Email, lead.Phone, lead.LinkedinURL, lead.Status, lead.MRR, lead.ARR, lead.PipelineStage, lead.CloseProbability, lead.ExpectedCloseAt, lead.LastActivityAt, lead.Source, lead.Enrichment)
	return err
}

func (r *leadRepo) GetByID(ctx context.Context, clientID, id uuid.UUID) (*models.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE client_id = $1 AND id = $2
	`
	return scanLead(r.db.QueryRow(ctx, query, clientID, id))
}

func (r *leadRepo) List(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (r *leadRepo) Search(ctx context.Context, clientID uuid.UUID, filter *models.LeadSearchFilter) ([]*models.Lead, error) {
	if filter.Limit == 0 {
		filter.Limit = 50
	}

	queryBase := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE client_id = $1
	`
	args := []any{clientID}
	conditionCount := 1

	if filter.Query != "" {
		conditionCount++
		queryBase += fmt.Sprintf(` AND (
			COALESCE(full_name, '') ILIKE $%d OR
			COALESCE(company, '') ILIKE $%d OR
			COALESCE(email, '') ILIKE $%d
		)`, conditionCount, conditionCount, conditionCount)
		args = append(args, "%"+filter.Query+"%")
	}

	if filter.Status != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND status = $%d`, conditionCount)
		args = append(args, *filter.Status)
	}

	if filter.Company != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND company = $%d`, conditionCount)
		args = append(args, *filter.Company)
	}

	sortField := "created_at"
	switch filter.SortBy {
	case "full_name", "company", "created_at":
		sortField = filter.SortBy
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	queryBase += fmt.Sprintf(` ORDER BY %s %s`, sortField, sortOrder)

	conditionCount++
	queryBase += fmt.Sprintf(` LIMIT $%d`, conditionCount)
	args = append(args, filter.Limit)
	if filter.Offset > 0 {
		conditionCount++
		queryBase += fmt.Sprintf(` OFFSET $%d`, conditionCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (r *leadRepo) UpdateStatus(ctx context.Context, clientID, id uuid.UUID, status string) error {
	query := `
		UPDATE leads
		SET status = $1, updated_at = NOW()
		WHERE client_id = $2 AND id = $3
	`
	tag, err := r.db.Exec(ctx, query, status, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepo) UpdateSalesData(ctx context.Context, clientID, id uuid.UUID, data *models.LeadSalesData) error {
	query := `
		UPDATE leads
		SET mrr = COALESCE($1, mrr),
		    arr = COALESCE($2, arr),
		    pipeline_stage = COALESCE($3, pipeline_stage),
		    close_probability = COALESCE($4, close_probability),
		    expected_close_at = COALESCE($5, expected_close_at),
		    last_activity_at = COALESCE($6, last_activity_at),
		    updated_at = NOW()
		WHERE client_id = $7 AND id = $8
	`
	tag, err := r.db.Exec(ctx, query, data.MRR, data.ARR, data.PipelineStage, data.CloseProbability, data.ExpectedCloseAt, data.LastActivityAt, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Upsert writes one lead keyed by id, last write wins. Conflicting rows are
// always overwritten, never skipped, so re-running a batch converges to the
// latest field values with exactly one row per id. The conflict update only
// fires when the existing row belongs to the same client; an id collision
// with another client's lead affects zero rows and reports pgx.ErrNoRows.
func (r *leadRepo) Upsert(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (id, client_id, full_name, job_title, company, location, email, phone, linkedin_url, status, mrr, arr, pipeline_stage, close_probability, expected_close_at, last_activity_at, source, enrichment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			job_title = EXCLUDED.job_title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			linkedin_url = EXCLUDED.linkedin_url,
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			enrichment = EXCLUDED.enrichment,
			updated_at = NOW()
		WHERE leads.client_id = EXCLUDED.client_id
	`
	tag, err := r.db.Exec(ctx, query, lead.ID, lead.ClientID, lead.FullName, lead.JobTitle, lead.Company, lead.Location, lead.Email, lead.Phone, lead.LinkedinURL, lead.Status, lead.MRR, lead.ARR, lead.PipelineStage, lead.CloseProbability, lead.ExpectedCloseAt, lead.LastActivityAt, lead.Source, lead.Enrichment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepo) CountByClient(ctx context.Context, clientID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE client_id = $1`, clientID).Scan(&count)
	return count, err
}

func collectLeads(rows pgx.Rows) ([]*models.Lead, error) {
	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
