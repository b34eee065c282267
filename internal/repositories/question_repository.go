package repositories

import (
	"context"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// QuestionRepository interface for the flat question rows of a survey
type QuestionRepository interface {
	// ListBySurvey returns every row of the survey ordered by Order ascending.
	ListBySurvey(ctx context.Context, surveyID string) ([]models.PersistedQuestion, error)
	GetByID(ctx context.Context, surveyID, questionID string) (*models.PersistedQuestion, error)
	CountBySurvey(ctx context.Context, surveyID string) (int64, error)

	// ReplaceForSurvey swaps the whole question set of a survey. Call it
	// inside WithTransaction so readers never see a partial tree.
	ReplaceForSurvey(ctx context.Context, surveyID string, rows []models.PersistedQuestion) error
}
