package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

type Repository struct {
	db *gorm.DB

	survey   repositories.SurveyRepository
	question repositories.QuestionRepository
	response repositories.ResponseRepository
}

// NewRepository wires the postgres implementations around one connection
// (or one transaction, see WithTransaction).
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:       db,
		survey:   NewSurveyPostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		response: NewResponsePostgreSQL(db),
	}
}

func (r *Repository) Survey() repositories.SurveyRepository     { return r.survey }
func (r *Repository) Question() repositories.QuestionRepository { return r.question }
func (r *Repository) Response() repositories.ResponseRepository { return r.response }

func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}
