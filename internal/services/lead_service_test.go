package services

import (
	"context"
	"testing"
	"time"

	"chyll/internal/common"
	"chyll/internal/events"
	"chyll/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// Mock repositories and services shared by the service suites
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) GetByID(ctx context.Context, clientID, id uuid.UUID) (*models.Lead, error) {
	args := m.Called(ctx, clientID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.Lead, error) {
	args := m.Called(ctx, clientID, limit, offset)
	return args.Get(0).([]*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) Search(ctx context.Context, clientID uuid.UUID, filter *models.LeadSearchFilter) ([]*models.Lead, error) {
	args := m.Called(ctx, clientID, filter)
	return args.Get(0).([]*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStatus(ctx context.Context, clientID, id uuid.UUID, status string) error {
	args := m.Called(ctx, clientID, id, status)
	return args.Error(0)
}

func (m *MockLeadRepository) UpdateSalesData(ctx context.Context, clientID, id uuid.UUID, data *models.LeadSalesData) error {
	args := m.Called(ctx, clientID, id, data)
	return args.Error(0)
}

func (m *MockLeadRepository) Upsert(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int, error) {
	args := m.Called(ctx, clientID)
	return args.Int(0), args.Error(1)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetLead(ctx context.Context, clientID, leadID uuid.UUID) (*models.Lead, error) {
	args := m.Called(ctx, clientID, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockCacheService) SetLead(ctx context.Context, clientID uuid.UUID, lead *models.Lead, ttl time.Duration) error {
	args := m.Called(ctx, clientID, lead, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteLead(ctx context.Context, clientID, leadID uuid.UUID) error {
	args := m.Called(ctx, clientID, leadID)
	return args.Error(0)
}

func (m *MockCacheService) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) LeadChanged(ctx context.Context, clientID, leadID uuid.UUID, action string) {
	m.Called(ctx, clientID, leadID, action)
}

func (m *MockPublisher) SessionChanged(ctx context.Context, clientID, sessionID uuid.UUID, action string) {
	m.Called(ctx, clientID, sessionID, action)
}

// LeadServiceTestSuite defines the test suite
type LeadServiceTestSuite struct {
	suite.Suite
	mockLeadRepo  *MockLeadRepository
	mockCache     *MockCacheService
	mockPublisher *MockPublisher
	service       LeadService
	clientID      uuid.UUID
}

func (suite *LeadServiceTestSuite) SetupTest() {
	suite.mockLeadRepo = &MockLeadRepository{}
	suite.mockCache = &MockCacheService{}
	suite.mockPublisher = &MockPublisher{}
	suite.service = NewLeadService(suite.mockLeadRepo, suite.mockCache, suite.mockPublisher)
	suite.clientID = uuid.New()
}

func (suite *LeadServiceTestSuite) TearDownTest() {
	suite.mockLeadRepo.AssertExpectations(suite.T())
	suite.mockCache.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func TestLeadServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LeadServiceTestSuite))
}

func (suite *LeadServiceTestSuite) TestCreate_Success() {
	lead := &models.Lead{
		FullName: stringPtr("Camille Dubois"),
		Company:  stringPtr("Qonto"),
	}

	suite.mockLeadRepo.On("Create", mock.Anything, lead).Return(nil)
	suite.mockPublisher.On("LeadChanged", mock.Anything, suite.clientID, mock.AnythingOfType("uuid.UUID"), events.ActionInsert).Return()

	err := suite.service.Create(context.Background(), suite.clientID, lead)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.clientID, lead.ClientID)
	assert.Equal(suite.T(), models.StatusToContact, lead.Status)
	assert.Equal(suite.T(), models.LeadSourceManual, *lead.Source)
	assert.NotEqual(suite.T(), uuid.Nil, lead.ID)
}

func (suite *LeadServiceTestSuite) TestCreate_RequiresNameOrEmail() {
	lead := &models.Lead{Company: stringPtr("Doctolib")}

	err := suite.service.Create(context.Background(), suite.clientID, lead)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsValidation(err))
	suite.mockLeadRepo.AssertNotCalled(suite.T(), "Create")
}

func (suite *LeadServiceTestSuite) TestCreate_NormalizesStatus() {
	lead := &models.Lead{
		Email:  stringPtr("camille@qonto.com"),
		Status: "Appel Prévu",
	}

	suite.mockLeadRepo.On("Create", mock.Anything, lead).Return(nil)
	suite.mockPublisher.On("LeadChanged", mock.Anything, suite.clientID, mock.AnythingOfType("uuid.UUID"), events.ActionInsert).Return()

	err := suite.service.Create(context.Background(), suite.clientID, lead)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusCallPlanned, lead.Status)
}

func (suite *LeadServiceTestSuite) TestCreate_RejectsInvalidProbability() {
	probability := 140.0
	lead := &models.Lead{
		Email:            stringPtr("camille@qonto.com"),
		CloseProbability: &probability,
	}

	err := suite.service.Create(context.Background(), suite.clientID, lead)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsValidation(err))
	suite.mockLeadRepo.AssertNotCalled(suite.T(), "Create")
}

func (suite *LeadServiceTestSuite) TestGetByID_CacheHit() {
	leadID := uuid.New()
	cached := &models.Lead{ID: leadID, ClientID: suite.clientID, Status: models.StatusMeeting}

	suite.mockCache.On("GetLead", mock.Anything, suite.clientID, leadID).Return(cached, nil)

	result, err := suite.service.GetByID(context.Background(), suite.clientID, leadID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), cached, result)
	suite.mockLeadRepo.AssertNotCalled(suite.T(), "GetByID")
}

func (suite *LeadServiceTestSuite) TestGetByID_CacheMissFallsThrough() {
	leadID := uuid.New()
	lead := &models.Lead{ID: leadID, ClientID: suite.clientID, Status: models.StatusToContact}

	suite.mockCache.On("GetLead", mock.Anything, suite.clientID, leadID).Return(nil, nil)
	suite.mockLeadRepo.On("GetByID", mock.Anything, suite.clientID, leadID).Return(lead, nil)
	suite.mockCache.On("SetLead", mock.Anything, suite.clientID, lead, 15*time.Minute).Return(nil)

	result, err := suite.service.GetByID(context.Background(), suite.clientID, leadID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), lead, result)
}

func (suite *LeadServiceTestSuite) TestGetByID_WrongClientIsNotFound() {
	leadID := uuid.New()
	otherClient := uuid.New()

	suite.mockCache.On("GetLead", mock.Anything, otherClient, leadID).Return(nil, nil)
	suite.mockLeadRepo.On("GetByID", mock.Anything, otherClient, leadID).Return(nil, pgx.ErrNoRows)

	result, err := suite.service.GetByID(context.Background(), otherClient, leadID)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsNotFound(err))
	assert.Nil(suite.T(), result)
}

func (suite *LeadServiceTestSuite) TestUpdateStatus_AnyToAny() {
	// No ordering between statuses: archived back to contact is legal.
	leadID := uuid.New()
	lead := &models.Lead{ID: leadID, ClientID: suite.clientID, Status: models.StatusArchived}

	suite.mockLeadRepo.On("GetByID", mock.Anything, suite.clientID, leadID).Return(lead, nil)
	suite.mockLeadRepo.On("UpdateStatus", mock.Anything, suite.clientID, leadID, models.StatusToContact).Return(nil)
	suite.mockCache.On("DeleteLead", mock.Anything, suite.clientID, leadID).Return(nil)
	suite.mockPublisher.On("LeadChanged", mock.Anything, suite.clientID, leadID, events.ActionUpdate).Return()

	updated, err := suite.service.UpdateStatus(context.Background(), suite.clientID, leadID, "à contacter")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusToContact, updated.Status)
}

func (suite *LeadServiceTestSuite) TestUpdateStatus_InvalidStatusNoWrite() {
	leadID := uuid.New()

	updated, err := suite.service.UpdateStatus(context.Background(), suite.clientID, leadID, "closed_won")
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsValidation(err))
	assert.Nil(suite.T(), updated)
	suite.mockLeadRepo.AssertNotCalled(suite.T(), "GetByID")
	suite.mockLeadRepo.AssertNotCalled(suite.T(), "UpdateStatus")
}

func (suite *LeadServiceTestSuite) TestUpdateStatus_OtherClientsLeadIsNotFound() {
	leadID := uuid.New()

	suite.mockLeadRepo.On("GetByID", mock.Anything, suite.clientID, leadID).Return(nil, pgx.ErrNoRows)

	updated, err := suite.service.UpdateStatus(context.Background(), suite.clientID, leadID, models.StatusMeeting)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsNotFound(err))
	assert.Nil(suite.T(), updated)
	suite.mockLeadRepo.AssertNotCalled(suite.T(), "UpdateStatus")
}

func (suite *LeadServiceTestSuite) TestUpdateSalesData_NotFound() {
	leadID := uuid.New()
	data := &models.LeadSalesData{MRR: floatPtr(500)}

	suite.mockLeadRepo.On("UpdateSalesData", mock.Anything, suite.clientID, leadID, data).Return(pgx.ErrNoRows)

	err := suite.service.UpdateSalesData(context.Background(), suite.clientID, leadID, data)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsNotFound(err))
}

func (suite *LeadServiceTestSuite) TestSearch_NormalizesStatusFilter() {
	filter := &models.LeadSearchFilter{Status: stringPtr("À RELANCER")}
	leads := []*models.Lead{}

	suite.mockLeadRepo.On("Search", mock.Anything, suite.clientID, filter).Return(leads, nil)

	_, err := suite.service.Search(context.Background(), suite.clientID, filter)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusFollowUp, *filter.Status)
}

func (suite *LeadServiceTestSuite) TestBulkUpsert_OneEventPerRow() {
	leads := []*models.Lead{
		{FullName: stringPtr("Camille Dubois"), Status: "RDV"},
		{FullName: stringPtr("Léa Martin")},
		{FullName: stringPtr("Hugo Bernard"), Status: "ARCHIVED"},
	}

	suite.mockLeadRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Lead")).Return(nil).Times(3)
	suite.mockCache.On("DeleteLead", mock.Anything, suite.clientID, mock.AnythingOfType("uuid.UUID")).Return(nil).Times(3)
	suite.mockPublisher.On("LeadChanged", mock.Anything, suite.clientID, mock.AnythingOfType("uuid.UUID"), events.ActionInsert).Return().Times(3)

	written, err := suite.service.BulkUpsert(context.Background(), suite.clientID, leads)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, written)
	assert.Equal(suite.T(), models.StatusMeeting, leads[0].Status)
	assert.Equal(suite.T(), models.StatusToContact, leads[1].Status)
	assert.Equal(suite.T(), models.StatusArchived, leads[2].Status)
	for _, lead := range leads {
		assert.Equal(suite.T(), suite.clientID, lead.ClientID)
		assert.NotEqual(suite.T(), uuid.Nil, lead.ID)
	}
}

func (suite *LeadServiceTestSuite) TestBulkUpsert_StopsOnInvalidStatus() {
	leads := []*models.Lead{
		{FullName: stringPtr("Camille Dubois")},
		{FullName: stringPtr("Léa Martin"), Status: "not_a_status"},
	}

	suite.mockLeadRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Lead")).Return(nil).Once()
	suite.mockCache.On("DeleteLead", mock.Anything, suite.clientID, mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
	suite.mockPublisher.On("LeadChanged", mock.Anything, suite.clientID, mock.AnythingOfType("uuid.UUID"), events.ActionInsert).Return().Once()

	written, err := suite.service.BulkUpsert(context.Background(), suite.clientID, leads)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsValidation(err))
	assert.Equal(suite.T(), 1, written)
}

func (suite *LeadServiceTestSuite) TestBulkUpsert_IDOwnedByAnotherClientNotFound() {
	foreignID := uuid.New()
	leads := []*models.Lead{
		{ID: foreignID, FullName: stringPtr("Camille Dubois")},
	}

	suite.mockLeadRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Lead")).Return(pgx.ErrNoRows).Once()

	written, err := suite.service.BulkUpsert(context.Background(), suite.clientID, leads)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), common.IsNotFound(err))
	assert.Equal(suite.T(), 0, written)
	suite.mockPublisher.AssertNotCalled(suite.T(), "LeadChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Helper functions to create pointers
func stringPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}
