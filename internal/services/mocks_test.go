package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// MockRepository is a mock implementation of repositories.Repository
type MockRepository struct {
	mock.Mock
	surveys   *MockSurveyRepository
	questions *MockQuestionRepository
	responses *MockResponseRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		surveys:   &MockSurveyRepository{},
		questions: &MockQuestionRepository{},
		responses: &MockResponseRepository{},
	}
}

func (m *MockRepository) Survey() repositories.SurveyRepository     { return m.surveys }
func (m *MockRepository) Question() repositories.QuestionRepository { return m.questions }
func (m *MockRepository) Response() repositories.ResponseRepository { return m.responses }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) Close() error { return nil }

// MockSurveyRepository is a mock implementation of SurveyRepository
type MockSurveyRepository struct {
	mock.Mock
}

func (m *MockSurveyRepository) Create(ctx context.Context, survey *models.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepository) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Survey), args.Error(1)
}

func (m *MockSurveyRepository) Update(ctx context.Context, survey *models.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSurveyRepository) List(ctx context.Context, filters repositories.SurveyFilters) ([]*models.Survey, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Survey), args.Get(1).(int64), args.Error(2)
}

func (m *MockSurveyRepository) UpdateStatus(ctx context.Context, id string, status models.SurveyStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockSurveyRepository) LockForUpdate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) ListBySurvey(ctx context.Context, surveyID string) ([]models.PersistedQuestion, error) {
	args := m.Called(ctx, surveyID)
	return args.Get(0).([]models.PersistedQuestion), args.Error(1)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, surveyID, questionID string) (*models.PersistedQuestion, error) {
	args := m.Called(ctx, surveyID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PersistedQuestion), args.Error(1)
}

func (m *MockQuestionRepository) CountBySurvey(ctx context.Context, surveyID string) (int64, error) {
	args := m.Called(ctx, surveyID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuestionRepository) ReplaceForSurvey(ctx context.Context, surveyID string, rows []models.PersistedQuestion) error {
	args := m.Called(ctx, surveyID, rows)
	return args.Error(0)
}

// MockResponseRepository is a mock implementation of ResponseRepository
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) Create(ctx context.Context, response *models.ResponseRecord) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepository) GetByID(ctx context.Context, id string) (*models.ResponseRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResponseRecord), args.Error(1)
}

func (m *MockResponseRepository) ListCompleted(ctx context.Context, surveyID string) ([]models.ResponseRecord, error) {
	args := m.Called(ctx, surveyID)
	return args.Get(0).([]models.ResponseRecord), args.Error(1)
}

func (m *MockResponseRepository) CountByStatus(ctx context.Context, surveyID string) (*repositories.ResponseCounts, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.ResponseCounts), args.Error(1)
}

func (m *MockResponseRepository) ListStale(ctx context.Context, filters repositories.StaleResponseFilters) ([]*models.ResponseRecord, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.ResponseRecord), args.Error(1)
}

func (m *MockResponseRepository) ConditionalUpdate(ctx context.Context, update repositories.GuardedUpdate) (*models.ResponseRecord, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResponseRecord), args.Error(1)
}

func (m *MockResponseRepository) MarkExpired(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}
