package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"chyll/internal/common"
	"chyll/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockWaitlistRepository struct {
	mock.Mock
}

func (m *MockWaitlistRepository) Join(ctx context.Context, entrant *models.WaitlistEntrant) (*models.WaitlistEntrant, bool, error) {
	args := m.Called(ctx, entrant)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.WaitlistEntrant), args.Bool(1), args.Error(2)
}

func (m *MockWaitlistRepository) GetByEmail(ctx context.Context, email string) (*models.WaitlistEntrant, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitlistEntrant), args.Error(1)
}

func (m *MockWaitlistRepository) GetByReferralCode(ctx context.Context, code string) (*models.WaitlistEntrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitlistEntrant), args.Error(1)
}

func (m *MockWaitlistRepository) MarkCommunityJoined(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockWaitlistRepository) Position(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

// fakeMailService records sends; welcome emails go out on a goroutine so the
// recorder has to be safe for concurrent use.
type fakeMailService struct {
	mu    sync.Mutex
	sends []string
	done  chan struct{}
}

func newFakeMailService() *fakeMailService {
	return &fakeMailService{done: make(chan struct{}, 4)}
}

func (f *fakeMailService) SendLeadEmail(ctx context.Context, clientID uuid.UUID, input *SendEmailInput) (*models.EmailJob, error) {
	return nil, nil
}

func (f *fakeMailService) ListJobs(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.EmailJob, error) {
	return nil, nil
}

func (f *fakeMailService) SendSystemEmail(to, subject, body string) error {
	f.mu.Lock()
	f.sends = append(f.sends, to)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeMailService) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

type WaitlistServiceTestSuite struct {
	suite.Suite
	mockRepo *MockWaitlistRepository
	mail     *fakeMailService
	service  WaitlistService
}

func (suite *WaitlistServiceTestSuite) SetupTest() {
	suite.mockRepo = &MockWaitlistRepository{}
	suite.mail = newFakeMailService()
	suite.service = NewWaitlistService(suite.mockRepo, suite.mail)
}

func (suite *WaitlistServiceTestSuite) TearDownTest() {
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestWaitlistServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WaitlistServiceTestSuite))
}

func (suite *WaitlistServiceTestSuite) TestJoin_NewEntrantGetsWelcomeEmail() {
	stored := &models.WaitlistEntrant{
		ID:           uuid.New(),
		Email:        "marie@example.com",
		ReferralCode: "A1B2C3D4",
		Points:       models.WaitlistSignupPoints,
	}

	suite.mockRepo.On("Join", mock.Anything, mock.AnythingOfType("*models.WaitlistEntrant")).
		Return(stored, true, nil).
		Run(func(args mock.Arguments) {
			entrant := args.Get(1).(*models.WaitlistEntrant)
			assert.Equal(suite.T(), "marie@example.com", entrant.Email)
			assert.Equal(suite.T(), models.WaitlistSignupPoints, entrant.Points)
			assert.Len(suite.T(), entrant.ReferralCode, 8)
			assert.Nil(suite.T(), entrant.ReferredBy)
		})
	suite.mockRepo.On("Position", mock.Anything, "marie@example.com").Return(42, nil)

	status, inserted, err := suite.service.Join(context.Background(), "Marie@Example.com", nil)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), inserted)
	assert.Equal(suite.T(), 42, status.Position)

	select {
	case <-suite.mail.done:
		assert.Equal(suite.T(), []string{"marie@example.com"}, suite.mail.sentTo())
	case <-time.After(2 * time.Second):
		suite.T().Fatal("welcome email was never sent")
	}
}

func (suite *WaitlistServiceTestSuite) TestJoin_DuplicateEmailIsIdempotent() {
	stored := &models.WaitlistEntrant{
		ID:           uuid.New(),
		Email:        "marie@example.com",
		ReferralCode: "EXISTING1",
		Points:       150,
	}

	suite.mockRepo.On("Join", mock.Anything, mock.AnythingOfType("*models.WaitlistEntrant")).Return(stored, false, nil)
	suite.mockRepo.On("Position", mock.Anything, "marie@example.com").Return(3, nil)

	status, inserted, err := suite.service.Join(context.Background(), "marie@example.com", nil)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), inserted)
	assert.Equal(suite.T(), "EXISTING1", status.Entrant.ReferralCode)
	assert.Equal(suite.T(), 150, status.Entrant.Points)
	assert.Empty(suite.T(), suite.mail.sentTo())
}

func (suite *WaitlistServiceTestSuite) TestJoin_UnknownReferralCodeIgnored() {
	code := "NOPE0000"
	stored := &models.WaitlistEntrant{ID: uuid.New(), Email: "marie@example.com", Points: models.WaitlistSignupPoints}

	suite.mockRepo.On("GetByReferralCode", mock.Anything, code).Return(nil, pgx.ErrNoRows)
	suite.mockRepo.On("Join", mock.Anything, mock.AnythingOfType("*models.WaitlistEntrant")).
		Return(stored, true, nil).
		Run(func(args mock.Arguments) {
			entrant := args.Get(1).(*models.WaitlistEntrant)
			assert.Nil(suite.T(), entrant.ReferredBy)
		})
	suite.mockRepo.On("Position", mock.Anything, "marie@example.com").Return(1, nil)

	_, inserted, err := suite.service.Join(context.Background(), "marie@example.com", &code)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), inserted)
}

func (suite *WaitlistServiceTestSuite) TestJoin_SelfReferralNotCredited() {
	code := "SELF1234"
	referrer := &models.WaitlistEntrant{ID: uuid.New(), Email: "marie@example.com", ReferralCode: code}
	stored := &models.WaitlistEntrant{ID: referrer.ID, Email: "marie@example.com", ReferralCode: code}

	suite.mockRepo.On("GetByReferralCode", mock.Anything, code).Return(referrer, nil)
	suite.mockRepo.On("Join", mock.Anything, mock.AnythingOfType("*models.WaitlistEntrant")).
		Return(stored, false, nil).
		Run(func(args mock.Arguments) {
			entrant := args.Get(1).(*models.WaitlistEntrant)
			assert.Nil(suite.T(), entrant.ReferredBy)
		})
	suite.mockRepo.On("Position", mock.Anything, "marie@example.com").Return(1, nil)

	_, _, err := suite.service.Join(context.Background(), "marie@example.com", &code)
	assert.NoError(suite.T(), err)
}

func (suite *WaitlistServiceTestSuite) TestJoin_KnownReferralCodeCarried() {
	code := "GOOD1234"
	referrer := &models.WaitlistEntrant{ID: uuid.New(), Email: "paul@example.com", ReferralCode: code}
	stored := &models.WaitlistEntrant{ID: uuid.New(), Email: "marie@example.com", ReferredBy: &code}

	suite.mockRepo.On("GetByReferralCode", mock.Anything, code).Return(referrer, nil)
	suite.mockRepo.On("Join", mock.Anything, mock.AnythingOfType("*models.WaitlistEntrant")).
		Return(stored, true, nil).
		Run(func(args mock.Arguments) {
			entrant := args.Get(1).(*models.WaitlistEntrant)
			assert.NotNil(suite.T(), entrant.ReferredBy)
			assert.Equal(suite.T(), code, *entrant.ReferredBy)
		})
	suite.mockRepo.On("Position", mock.Anything, "marie@example.com").Return(1, nil)

	_, _, err := suite.service.Join(context.Background(), "marie@example.com", &code)
	assert.NoError(suite.T(), err)
}

func (suite *WaitlistServiceTestSuite) TestJoin_InvalidEmail() {
	status, inserted, err := suite.service.Join(context.Background(), "not-an-email", nil)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsValidation(err))
	assert.False(suite.T(), inserted)
	assert.Nil(suite.T(), status)
	suite.mockRepo.AssertNotCalled(suite.T(), "Join")
}

func (suite *WaitlistServiceTestSuite) TestStatus_NotFound() {
	suite.mockRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, pgx.ErrNoRows)

	status, err := suite.service.Status(context.Background(), "ghost@example.com")
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsNotFound(err))
	assert.Nil(suite.T(), status)
}

func (suite *WaitlistServiceTestSuite) TestJoinCommunity_AwardsBonusOnce() {
	before := &models.WaitlistEntrant{Email: "marie@example.com", Points: 100, CommunityJoined: false}
	after := &models.WaitlistEntrant{Email: "marie@example.com", Points: 125, CommunityJoined: true}

	suite.mockRepo.On("GetByEmail", mock.Anything, "marie@example.com").Return(before, nil).Once()
	suite.mockRepo.On("MarkCommunityJoined", mock.Anything, "marie@example.com").Return(nil).Once()
	suite.mockRepo.On("GetByEmail", mock.Anything, "marie@example.com").Return(after, nil).Once()
	suite.mockRepo.On("Position", mock.Anything, "marie@example.com").Return(2, nil).Times(2)

	status, err := suite.service.JoinCommunity(context.Background(), "marie@example.com")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), status.Entrant.CommunityJoined)
	assert.Equal(suite.T(), 125, status.Entrant.Points)
}

func (suite *WaitlistServiceTestSuite) TestJoinCommunity_RepeatIsNoOp() {
	entrant := &models.WaitlistEntrant{Email: "marie@example.com", Points: 125, CommunityJoined: true}

	suite.mockRepo.On("GetByEmail", mock.Anything, "marie@example.com").Return(entrant, nil)
	suite.mockRepo.On("Position", mock.Anything, "marie@example.com").Return(2, nil)

	status, err := suite.service.JoinCommunity(context.Background(), "marie@example.com")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 125, status.Entrant.Points)
	suite.mockRepo.AssertNotCalled(suite.T(), "MarkCommunityJoined")
}
