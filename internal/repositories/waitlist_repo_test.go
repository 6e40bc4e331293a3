package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"chyll/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

var waitlistTestColumns = []string{"id", "email", "referral_code", "referred_by", "points", "referral_count", "community_joined", "created_at", "updated_at"}

type WaitlistRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    WaitlistRepository
	context context.Context
}

func (suite *WaitlistRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewWaitlistRepo(mock)
	suite.context = context.Background()
}

func (suite *WaitlistRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestWaitlistRepoTestSuite(t *testing.T) {
	suite.Run(t, new(WaitlistRepoTestSuite))
}

func (suite *WaitlistRepoTestSuite) entrantRow(entrant *models.WaitlistEntrant) *pgxmock.Rows {
	return pgxmock.NewRows(waitlistTestColumns).
		AddRow(entrant.ID, entrant.Email, entrant.ReferralCode, entrant.ReferredBy, entrant.Points, entrant.ReferralCount, entrant.CommunityJoined, entrant.CreatedAt, entrant.UpdatedAt)
}

func (suite *WaitlistRepoTestSuite) sampleEntrant() *models.WaitlistEntrant {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.WaitlistEntrant{
		ID:           uuid.New(),
		Email:        "marie@example.com",
		ReferralCode: "A1B2C3D4",
		Points:       models.WaitlistSignupPoints,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (suite *WaitlistRepoTestSuite) TestJoin_NewEntrant() {
	entrant := suite.sampleEntrant()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`
		INSERT INTO waitlist_entrants \(id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, 0, false, NOW\(\), NOW\(\)\)
		ON CONFLICT \(email\) DO NOTHING
	`).WithArgs(entrant.ID, entrant.Email, entrant.ReferralCode, entrant.ReferredBy, entrant.Points).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectQuery(`SELECT id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at FROM waitlist_entrants WHERE email = \$1`).
		WithArgs(entrant.Email).
		WillReturnRows(suite.entrantRow(entrant))
	suite.mock.ExpectCommit()

	stored, inserted, err := suite.repo.Join(suite.context, entrant)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), inserted)
	assert.Equal(suite.T(), entrant.Email, stored.Email)
	assert.Equal(suite.T(), models.WaitlistSignupPoints, stored.Points)
}

func (suite *WaitlistRepoTestSuite) TestJoin_ReferredEntrant_CreditsReferrer() {
	entrant := suite.sampleEntrant()
	entrant.ReferredBy = stringPtr("REF12345")

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`
		INSERT INTO waitlist_entrants \(id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, 0, false, NOW\(\), NOW\(\)\)
		ON CONFLICT \(email\) DO NOTHING
	`).WithArgs(entrant.ID, entrant.Email, entrant.ReferralCode, entrant.ReferredBy, entrant.Points).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`
			UPDATE waitlist_entrants
			SET points = points \+ \$1, referral_count = referral_count \+ 1, updated_at = NOW\(\)
			WHERE referral_code = \$2
	`).WithArgs(models.WaitlistReferralPoints, "REF12345").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectQuery(`SELECT id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at FROM waitlist_entrants WHERE email = \$1`).
		WithArgs(entrant.Email).
		WillReturnRows(suite.entrantRow(entrant))
	suite.mock.ExpectCommit()

	stored, inserted, err := suite.repo.Join(suite.context, entrant)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), inserted)
	assert.Equal(suite.T(), "REF12345", *stored.ReferredBy)
}

func (suite *WaitlistRepoTestSuite) TestJoin_DuplicateEmail_NoCredit() {
	entrant := suite.sampleEntrant()
	entrant.ReferredBy = stringPtr("REF12345")

	existing := suite.sampleEntrant()
	existing.ID = uuid.New()
	existing.Points = 150

	// Conflict: no insert, so the referral credit must be skipped entirely.
	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`
		INSERT INTO waitlist_entrants \(id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, 0, false, NOW\(\), NOW\(\)\)
		ON CONFLICT \(email\) DO NOTHING
	`).WithArgs(entrant.ID, entrant.Email, entrant.ReferralCode, entrant.ReferredBy, entrant.Points).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	suite.mock.ExpectQuery(`SELECT id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at FROM waitlist_entrants WHERE email = \$1`).
		WithArgs(entrant.Email).
		WillReturnRows(suite.entrantRow(existing))
	suite.mock.ExpectCommit()

	stored, inserted, err := suite.repo.Join(suite.context, entrant)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), inserted)
	assert.Equal(suite.T(), existing.ID, stored.ID)
	assert.Equal(suite.T(), 150, stored.Points)
}

func (suite *WaitlistRepoTestSuite) TestJoin_InsertError_RollsBack() {
	entrant := suite.sampleEntrant()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO waitlist_entrants`).
		WithArgs(entrant.ID, entrant.Email, entrant.ReferralCode, entrant.ReferredBy, entrant.Points).
		WillReturnError(errors.New("database connection failed"))
	suite.mock.ExpectRollback()

	stored, inserted, err := suite.repo.Join(suite.context, entrant)
	assert.Error(suite.T(), err)
	assert.False(suite.T(), inserted)
	assert.Nil(suite.T(), stored)
}

func (suite *WaitlistRepoTestSuite) TestGetByEmail_Success() {
	entrant := suite.sampleEntrant()

	suite.mock.ExpectQuery(`SELECT id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at FROM waitlist_entrants WHERE email = \$1`).
		WithArgs(entrant.Email).
		WillReturnRows(suite.entrantRow(entrant))

	result, err := suite.repo.GetByEmail(suite.context, entrant.Email)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), entrant.ReferralCode, result.ReferralCode)
}

func (suite *WaitlistRepoTestSuite) TestGetByEmail_NotFound() {
	suite.mock.ExpectQuery(`SELECT id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at FROM waitlist_entrants WHERE email = \$1`).
		WithArgs("missing@example.com").
		WillReturnError(pgx.ErrNoRows)

	result, err := suite.repo.GetByEmail(suite.context, "missing@example.com")
	assert.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
	assert.Nil(suite.T(), result)
}

func (suite *WaitlistRepoTestSuite) TestGetByReferralCode_Success() {
	entrant := suite.sampleEntrant()

	suite.mock.ExpectQuery(`SELECT id, email, referral_code, referred_by, points, referral_count, community_joined, created_at, updated_at FROM waitlist_entrants WHERE referral_code = \$1`).
		WithArgs(entrant.ReferralCode).
		WillReturnRows(suite.entrantRow(entrant))

	result, err := suite.repo.GetByReferralCode(suite.context, entrant.ReferralCode)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), entrant.Email, result.Email)
}

func (suite *WaitlistRepoTestSuite) TestMarkCommunityJoined_Idempotent() {
	suite.mock.ExpectExec(`
		UPDATE waitlist_entrants
		SET community_joined = true, points = points \+ \$1, updated_at = NOW\(\)
		WHERE email = \$2 AND community_joined = false
	`).WithArgs(models.WaitlistCommunityPoints, "marie@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.MarkCommunityJoined(suite.context, "marie@example.com")
	assert.NoError(suite.T(), err)

	// Second call matches no rows and still succeeds.
	suite.mock.ExpectExec(`
		UPDATE waitlist_entrants
		SET community_joined = true, points = points \+ \$1, updated_at = NOW\(\)
		WHERE email = \$2 AND community_joined = false
	`).WithArgs(models.WaitlistCommunityPoints, "marie@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = suite.repo.MarkCommunityJoined(suite.context, "marie@example.com")
	assert.NoError(suite.T(), err)
}

func (suite *WaitlistRepoTestSuite) TestPosition_RankedByPoints() {
	suite.mock.ExpectQuery(`(?s)SELECT position FROM \(
			SELECT email, RANK\(\) OVER \(ORDER BY points DESC, created_at ASC\) AS position
			FROM waitlist_entrants
		\) ranked
		WHERE email = \$1`).
		WithArgs("marie@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"position"}).AddRow(3))

	position, err := suite.repo.Position(suite.context, "marie@example.com")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, position)
}
