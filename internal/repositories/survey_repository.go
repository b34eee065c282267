package repositories

import (
	"context"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// SurveyRepository interface for survey operations
type SurveyRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, survey *models.Survey) error
	GetByID(ctx context.Context, id string) (*models.Survey, error)
	Update(ctx context.Context, survey *models.Survey) error
	Delete(ctx context.Context, id string) error

	// Query operations
	List(ctx context.Context, filters SurveyFilters) ([]*models.Survey, int64, error)

	// Status management
	UpdateStatus(ctx context.Context, id string, status models.SurveyStatus) error

	// LockForUpdate holds the survey row until the surrounding transaction
	// ends. Completing a response waits on it, so a check for completed
	// responses made after the lock stays true until commit.
	LockForUpdate(ctx context.Context, id string) error
}
