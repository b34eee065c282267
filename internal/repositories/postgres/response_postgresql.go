package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

func (r *ResponsePostgreSQL) Create(ctx context.Context, response *models.ResponseRecord) error {
	return r.db.WithContext(ctx).Create(response).Error
}

func (r *ResponsePostgreSQL) GetByID(ctx context.Context, id string) (*models.ResponseRecord, error) {
	var response models.ResponseRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&response).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &response, nil
}

func (r *ResponsePostgreSQL) ListCompleted(ctx context.Context, surveyID string) ([]models.ResponseRecord, error) {
	var responses []models.ResponseRecord
	if err := r.db.WithContext(ctx).
		Where("survey_id = ? AND status = ?", surveyID, models.ResponseCompleted).
		Order("completed_at ASC").
		Order("id ASC").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *ResponsePostgreSQL) CountByStatus(ctx context.Context, surveyID string) (*repositories.ResponseCounts, error) {
	var rows []struct {
		Status models.ResponseStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ResponseRecord{}).
		Select("status, COUNT(*) AS count").
		Where("survey_id = ?", surveyID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := &repositories.ResponseCounts{}
	for _, row := range rows {
		switch row.Status {
		case models.ResponseInProgress:
			counts.InProgress = row.Count
		case models.ResponseCompleted:
			counts.Completed = row.Count
		case models.ResponseAbandoned:
			counts.Abandoned = row.Count
		case models.ResponseExpired:
			counts.Expired = row.Count
		}
	}
	return counts, nil
}

func (r *ResponsePostgreSQL) ListStale(ctx context.Context, filters repositories.StaleResponseFilters) ([]*models.ResponseRecord, error) {
	var responses []*models.ResponseRecord
	query := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", models.ResponseInProgress, filters.StartedBefore).
		Order("started_at ASC").
		Order("id ASC")
	if filters.After != nil {
		query = query.Where("(started_at, id) > (?, ?)", filters.After.StartedAt, filters.After.ID)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if err := query.Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

// ConditionalUpdate locks the row with SELECT ... FOR UPDATE, so a second
// submission for the same response waits and then sees the first one's
// result instead of racing it.
func (r *ResponsePostgreSQL) ConditionalUpdate(ctx context.Context, update repositories.GuardedUpdate) (*models.ResponseRecord, error) {
	var updated models.ResponseRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.ResponseRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", update.ResponseID).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrResponseNotFound
			}
			return err
		}

		if err := update.Apply(&record); err != nil {
			return err
		}
		// A completion waits for tree edits holding the survey row.
		if record.Status == models.ResponseCompleted {
			if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
				Select("id").
				Where("id = ?", record.SurveyID).
				Find(&models.Survey{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Save(&record).Error; err != nil {
			return err
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *ResponsePostgreSQL) MarkExpired(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ResponseRecord{}).
		Where("id = ? AND status = ?", id, models.ResponseInProgress).
		Updates(map[string]interface{}{
			"status":     models.ResponseExpired,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
