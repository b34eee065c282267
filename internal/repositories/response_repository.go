package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// ResponseRepository interface for response record operations
type ResponseRepository interface {
	// Basic operations
	Create(ctx context.Context, response *models.ResponseRecord) error
	GetByID(ctx context.Context, id string) (*models.ResponseRecord, error)

	// Query operations
	ListCompleted(ctx context.Context, surveyID string) ([]models.ResponseRecord, error)
	CountByStatus(ctx context.Context, surveyID string) (*ResponseCounts, error)
	ListStale(ctx context.Context, filters StaleResponseFilters) ([]*models.ResponseRecord, error)

	// ConditionalUpdate is the only write path for a started response. The
	// ownership and state checks and the write happen as one atomic step.
	ConditionalUpdate(ctx context.Context, update GuardedUpdate) (*models.ResponseRecord, error)

	// MarkExpired moves an in_progress response to expired. It reports false
	// when the response was no longer in progress.
	MarkExpired(ctx context.Context, id string, at time.Time) (bool, error)
}
