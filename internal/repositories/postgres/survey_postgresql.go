package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

type SurveyPostgreSQL struct {
	db *gorm.DB
}

func NewSurveyPostgreSQL(db *gorm.DB) repositories.SurveyRepository {
	return &SurveyPostgreSQL{db: db}
}

func (s *SurveyPostgreSQL) Create(ctx context.Context, survey *models.Survey) error {
	return s.db.WithContext(ctx).Create(survey).Error
}

func (s *SurveyPostgreSQL) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	var survey models.Survey
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&survey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &survey, nil
}

func (s *SurveyPostgreSQL) Update(ctx context.Context, survey *models.Survey) error {
	return s.db.WithContext(ctx).Save(survey).Error
}

// Delete soft-deletes the survey; its questions and responses stay for audit.
func (s *SurveyPostgreSQL) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Survey{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (s *SurveyPostgreSQL) List(ctx context.Context, filters repositories.SurveyFilters) ([]*models.Survey, int64, error) {
	var surveys []*models.Survey
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Survey{})
	if filters.OwnerID != "" {
		query = query.Where("owner_id = ?", filters.OwnerID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters)
	if err := query.Find(&surveys).Error; err != nil {
		return nil, 0, err
	}
	return surveys, total, nil
}

func (s *SurveyPostgreSQL) UpdateStatus(ctx context.Context, id string, status models.SurveyStatus) error {
	result := s.db.WithContext(ctx).Model(&models.Survey{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

var surveySortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
}

func applyPaginationAndSort(query *gorm.DB, filters repositories.SurveyFilters) *gorm.DB {
	sortBy := "created_at"
	if surveySortColumns[filters.SortBy] {
		sortBy = filters.SortBy
	}
	sortOrder := "desc"
	if filters.SortOrder == "asc" {
		sortOrder = "asc"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}

func (s *SurveyPostgreSQL) LockForUpdate(ctx context.Context, id string) error {
	var survey models.Survey
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&survey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}
