package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

const questionBatchSize = 200

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) ListBySurvey(ctx context.Context, surveyID string) ([]models.PersistedQuestion, error) {
	var rows []models.PersistedQuestion
	if err := q.db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		Order(`"order" ASC`).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, surveyID, questionID string) (*models.PersistedQuestion, error) {
	var row models.PersistedQuestion
	if err := q.db.WithContext(ctx).
		Where("survey_id = ? AND id = ?", surveyID, questionID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (q *QuestionPostgreSQL) CountBySurvey(ctx context.Context, surveyID string) (int64, error) {
	var count int64
	if err := q.db.WithContext(ctx).
		Model(&models.PersistedQuestion{}).
		Where("survey_id = ?", surveyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (q *QuestionPostgreSQL) ReplaceForSurvey(ctx context.Context, surveyID string, rows []models.PersistedQuestion) error {
	db := q.db.WithContext(ctx)
	if err := db.Where("survey_id = ?", surveyID).Delete(&models.PersistedQuestion{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return db.CreateInBatches(rows, questionBatchSize).Error
}
