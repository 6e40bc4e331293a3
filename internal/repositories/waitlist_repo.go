package repositories

import (
	"context"

	"chyll/internal/models"

	"github.com/jackc/pgx/v5"
)

type WaitlistRepository interface {
	// Join inserts a new entrant and credits the referrer inside one
	// transaction. When the email already exists the existing row is
	// returned and inserted reports false; no duplicate is created and no
	// referral points accrue.
	Join(ctx context.Context, entrant *models.WaitlistEntrant) (*models.WaitlistEntrant, bool, error)
	GetByEmail(ctx context.Context, email string) (*models.WaitlistEntrant, error)
	GetByReferralCode(ctx context.Context, code string) (*models.WaitlistEntrant, error)
	MarkCommunityJoined(ctx context.Context, email string) error
	Position(ctx context.Context, email string) (int, error)
}

type waitlistRepo struct {
	db DB
}

func NewWaitlistRepo(db DB) WaitlistRepository {
	return &waitlistRepo{db: db}
}

const waitlistColumns = `id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at`

func (r *waitlistRepo) Join(ctx context.Context, entrant *models.WaitlistEntrant) (*models.WaitlistEntrant, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO waitlist_entrants (id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, false, NOW(), NOW())
		ON CONFLICT (email) DO NOTHING
	`
	tag, err := tx.Exec(ctx, insert, entrant.ID, entrant.Email, entrant.ReferralCode, entrant.ReferredBy, entrant.Points)
	if err != nil {
		return nil, false, err
	}

	inserted := tag.RowsAffected() == 1

	if inserted && entrant.ReferredBy != nil {
		credit := `
			UPDATE waitlist_entrants
			SET points = points + $1, referral_count = referral_count + 1, updated_at = NOW()
			WHERE referral_code = $2
		`
		if _, err := tx.Exec(ctx, credit, models.WaitlistReferralPoints, *entrant.ReferredBy); err != nil {
			return nil, false, err
		}
	}

	row := tx.QueryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entrants WHERE email = $1`, entrant.Email)
	stored, err := scanEntrant(row)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return stored, inserted, nil
}

func (r *waitlistRepo) GetByEmail(ctx context.Context, email string) (*models.WaitlistEntrant, error) {
	row := r.db.QueryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entrants WHERE email = $1`, email)
	return scanEntrant(row)
}

func (r *waitlistRepo) GetByReferralCode(ctx context.Context, code string) (*models.WaitlistEntrant, error) {
	row := r.db.QueryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entrants WHERE referral_code = $1`, code)
	return scanEntrant(row)
}

func (r *waitlistRepo) MarkCommunityJoined(ctx context.Context, email string) error {
	query := `
		UPDATE waitlist_entrants
		SET community_joined = true, points = points + $1, updated_at = NOW()
		WHERE email = $2 AND community_joined = false
	`
	_, err := r.db.Exec(ctx, query, models.WaitlistCommunityPoints, email)
	return err
}

// Position ranks entrants by points descending, ties broken by signup age.
func (r *waitlistRepo) Position(ctx context.Context, email string) (int, error) {
	query := `
		SELECT position FROM (
			SELECT email, RANK() OVER (ORDER BY points DESC, created_at ASC) AS position
			FROM waitlist_entrants
		) ranked
		WHERE email = $1
	`
	var position int
	err := r.db.QueryRow(ctx, query, email).Scan(&position)
	return position, err
}

func scanEntrant(row pgx.Row) (*models.WaitlistEntrant, error) {
	entrant := &models.WaitlistEntrant{}
	err := row.Scan(&entrant.ID, &entrant.Email, &entrant.ReferralCode, &entrant.ReferredBy, &entrant.Points, &entrant.ReferralCount, &entrant.CommunityJoined, &entrant.CreatedAt, &entrant.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return entrant, nil
}
