package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/tree"
	"github.com/SAP-F-2025/survey-service/internal/validator"
)

// SurveyService manages surveys and their question trees for their owners.
type SurveyService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateSurveyRequest, ownerID string) (*models.Survey, error)
	GetByID(ctx context.Context, id, ownerID string) (*models.Survey, error)
	Update(ctx context.Context, id string, req *UpdateSurveyRequest, ownerID string) (*models.Survey, error)
	Delete(ctx context.Context, id, ownerID string) error
	List(ctx context.Context, filters repositories.SurveyFilters) (*SurveyListResponse, error)

	// Status management
	Publish(ctx context.Context, id, ownerID string) (*models.Survey, error)
	Close(ctx context.Context, id, ownerID string) (*models.Survey, error)

	// Question tree
	SaveTree(ctx context.Context, id string, forest tree.Forest, ownerID string) (*TreeResponse, error)
	GetTree(ctx context.Context, id, ownerID string) (*TreeResponse, error)
	GetCost(ctx context.Context, id, ownerID string) (*CostResponse, error)
}

type surveyService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    *slog.Logger
	ops       *ServiceLogger
	validator *validator.Validator
	now       func() time.Time
}

func NewSurveyService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
) SurveyService {
	return &surveyService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		ops:       NewServiceLogger(logger, LogConfig{Service: "survey-service", Component: "surveys"}),
		validator: validator,
		now:       time.Now,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *surveyService) Create(ctx context.Context, req *CreateSurveyRequest, ownerID string) (*models.Survey, error) {
	s.logger.Info("Creating survey", "owner_id", ownerID, "title", req.Title)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	survey := &models.Survey{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		Title:              req.Title,
		Description:        req.Description,
		Status:             models.SurveyDraft,
		TargetOptions:      req.TargetOptions,
		ResponseTTLMinutes: req.ResponseTTLMinutes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Survey().Create(ctx, survey); err != nil {
		s.logger.Error("Failed to create survey", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to create survey: %w", err)
	}

	s.logger.Info("Survey created successfully", "survey_id", survey.ID, "owner_id", ownerID)
	return survey, nil
}

func (s *surveyService) GetByID(ctx context.Context, id, ownerID string) (*models.Survey, error) {
	survey, err := s.owned(ctx, id, ownerID, "read")
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Question().ListBySurvey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	survey.QuestionCount = len(rows)
	if forest, err := tree.Hydrate(rows); err == nil {
		survey.TotalCost = forest.TotalCost()
	} else {
		s.logger.Warn("Stored question tree is malformed", "survey_id", id, "error", err)
	}
	return survey, nil
}

func (s *surveyService) Update(ctx context.Context, id string, req *UpdateSurveyRequest, ownerID string) (*models.Survey, error) {
	s.logger.Info("Updating survey", "survey_id", id, "owner_id", ownerID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	survey, err := s.owned(ctx, id, ownerID, "update")
	if err != nil {
		return nil, err
	}
	if survey.Status == models.SurveyClosed {
		return nil, ErrSurveyNotEditable
	}

	if req.Title != nil {
		survey.Title = *req.Title
	}
	if req.Description != nil {
		survey.Description = req.Description
	}
	if req.TargetOptions != nil {
		survey.TargetOptions = req.TargetOptions
	}
	if req.ResponseTTLMinutes != nil {
		survey.ResponseTTLMinutes = *req.ResponseTTLMinutes
	}
	survey.UpdatedAt = s.now().UTC()

	if err := s.repo.Survey().Update(ctx, survey); err != nil {
		return nil, fmt.Errorf("failed to update survey: %w", err)
	}
	return survey, nil
}

func (s *surveyService) Delete(ctx context.Context, id, ownerID string) (err error) {
	op := s.ops.WithOperation(ctx, "delete_survey", ownerID)
	defer func() { op.LogResult(id, "survey", err) }()

	if _, err := s.owned(ctx, id, ownerID, "delete"); err != nil {
		return err
	}
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := lockWithoutCompletedResponses(ctx, tx, id); err != nil {
			return err
		}
		return tx.Survey().Delete(ctx, id)
	})
	if errors.Is(err, ErrSurveyHasResponses) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to delete survey: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *surveyService) List(ctx context.Context, filters repositories.SurveyFilters) (*SurveyListResponse, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	surveys, total, err := s.repo.Survey().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	return &SurveyListResponse{
		Surveys: surveys,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

// ===== STATUS MANAGEMENT =====

func (s *surveyService) Publish(ctx context.Context, id, ownerID string) (result *models.Survey, err error) {
	op := s.ops.WithOperation(ctx, "publish_survey", ownerID)
	defer func() { op.LogResult(id, "survey", err) }()

	survey, err := s.owned(ctx, id, ownerID, "publish")
	if err != nil {
		return nil, err
	}
	if survey.Status != models.SurveyDraft {
		return nil, ErrSurveyInvalidStatus
	}

	forest, err := s.storedForest(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(forest) == 0 {
		return nil, ErrSurveyHasNoQuestions
	}

	if err := s.repo.Survey().UpdateStatus(ctx, id, models.SurveyPublished); err != nil {
		return nil, fmt.Errorf("failed to publish survey: %w", err)
	}
	survey.Status = models.SurveyPublished
	survey.QuestionCount = forest.Size()
	survey.TotalCost = forest.TotalCost()

	s.publishSurveyEvent(ctx, survey)
	return survey, nil
}

func (s *surveyService) Close(ctx context.Context, id, ownerID string) (result *models.Survey, err error) {
	op := s.ops.WithOperation(ctx, "close_survey", ownerID)
	defer func() { op.LogResult(id, "survey", err) }()

	survey, err := s.owned(ctx, id, ownerID, "close")
	if err != nil {
		return nil, err
	}
	if survey.Status != models.SurveyPublished {
		return nil, ErrSurveyInvalidStatus
	}

	if err := s.repo.Survey().UpdateStatus(ctx, id, models.SurveyClosed); err != nil {
		return nil, fmt.Errorf("failed to close survey: %w", err)
	}
	survey.Status = models.SurveyClosed

	s.publish(ctx, events.EventSurveyClosed, events.SurveyClosedEvent{
		SurveyID: id,
		OwnerID:  survey.OwnerID,
		ClosedAt: s.now().UTC(),
	})
	return survey, nil
}

// ===== QUESTION TREE =====

// SaveTree replaces the survey's questions with forest. Structural defects
// come back as MALFORMED_TREE, content problems as validation errors, and
// nothing is written in either case.
func (s *surveyService) SaveTree(ctx context.Context, id string, forest tree.Forest, ownerID string) (result *TreeResponse, err error) {
	op := s.ops.WithOperation(ctx, "save_tree", ownerID)
	defer func() { op.LogResult(id, "survey", err) }()

	survey, err := s.owned(ctx, id, ownerID, "update")
	if err != nil {
		return nil, err
	}
	if survey.Status == models.SurveyClosed {
		return nil, ErrSurveyNotEditable
	}
	if err := ensureNoCompletedResponses(ctx, s.repo, id); err != nil {
		return nil, err
	}

	if err := forest.Validate(); err != nil {
		return nil, err
	}
	if errs := s.validator.Tree().ValidateForest(forest); len(errs) > 0 {
		return nil, errs
	}

	existing, err := s.repo.Question().ListBySurvey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	forgetForeignIDs(forest, existing)

	rows, err := tree.Flatten(forest, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for i := range rows {
		rows[i].CreatedAt = now
		rows[i].UpdatedAt = now
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := lockWithoutCompletedResponses(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Question().ReplaceForSurvey(ctx, id, rows); err != nil {
			return err
		}
		survey.UpdatedAt = now
		return tx.Survey().Update(ctx, survey)
	})
	if errors.Is(err, ErrSurveyHasResponses) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save question tree: %w", err)
	}

	forest.ApplyCosts()
	s.invalidate(ctx, id)

	if survey.Status == models.SurveyPublished {
		survey.QuestionCount = len(rows)
		survey.TotalCost = forest.TotalCost()
		s.publishSurveyEvent(ctx, survey)
	}

	return &TreeResponse{
		SurveyID:  id,
		Questions: forest,
		TotalCost: forest.TotalCost(),
	}, nil
}

func (s *surveyService) GetTree(ctx context.Context, id, ownerID string) (*TreeResponse, error) {
	if _, err := s.owned(ctx, id, ownerID, "read"); err != nil {
		return nil, err
	}
	forest, err := s.storedForest(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TreeResponse{
		SurveyID:  id,
		Questions: forest,
		TotalCost: forest.TotalCost(),
	}, nil
}

func (s *surveyService) GetCost(ctx context.Context, id, ownerID string) (*CostResponse, error) {
	if _, err := s.owned(ctx, id, ownerID, "read"); err != nil {
		return nil, err
	}
	forest, err := s.storedForest(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CostResponse{
		SurveyID:  id,
		TotalCost: forest.TotalCost(),
		Breakdown: forest.Breakdown(),
	}, nil
}

// ===== HELPER METHODS =====

// owned loads a survey and checks that ownerID may act on it.
func (s *surveyService) owned(ctx context.Context, id, ownerID, action string) (*models.Survey, error) {
	return ownedSurvey(ctx, s.repo, id, ownerID, action)
}

// ownedSurvey loads a survey on behalf of its owner. Other callers get a
// PermissionError naming the attempted action.
func ownedSurvey(ctx context.Context, repo repositories.Repository, id, ownerID, action string) (*models.Survey, error) {
	survey, err := repo.Survey().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	if survey.OwnerID != ownerID {
		return nil, NewPermissionError(ownerID, id, "survey", action, "not the survey owner")
	}
	return survey, nil
}

func (s *surveyService) storedForest(ctx context.Context, id string) (tree.Forest, error) {
	rows, err := s.repo.Question().ListBySurvey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	forest, err := tree.Hydrate(rows)
	if err != nil {
		s.logger.Error("Stored question tree is malformed", "survey_id", id, "error", err)
		return nil, err
	}
	return forest, nil
}

// ensureNoCompletedResponses is the early check that spares validation work.
// The authoritative one is lockWithoutCompletedResponses.
func ensureNoCompletedResponses(ctx context.Context, repo repositories.Repository, id string) error {
	counts, err := repo.Response().CountByStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count responses: %w", err)
	}
	if counts.Completed > 0 {
		return ErrSurveyHasResponses
	}
	return nil
}

// lockWithoutCompletedResponses locks the survey for the rest of tx and then
// checks that no response has completed.
func lockWithoutCompletedResponses(ctx context.Context, tx repositories.Repository, id string) error {
	if err := tx.Survey().LockForUpdate(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrSurveyNotFound
		}
		return fmt.Errorf("failed to lock survey: %w", err)
	}
	return ensureNoCompletedResponses(ctx, tx, id)
}

// forgetForeignIDs clears ids the client sent that do not belong to this
// survey's stored questions, so Flatten assigns fresh ones.
func forgetForeignIDs(forest tree.Forest, existing []models.PersistedQuestion) {
	known := make(map[string]bool, len(existing))
	for _, row := range existing {
		known[row.ID] = true
	}
	_ = forest.Walk(func(n *tree.Node, _ int, _ *tree.Node, _ string) error {
		if !n.IsLocal() && !known[n.ID] {
			n.ID = ""
		}
		return nil
	})
}

func (s *surveyService) invalidate(ctx context.Context, id string) {
	if err := s.cache.DeletePattern(ctx, cache.SurveyPattern(id)); err != nil {
		s.logger.Warn("Failed to invalidate analytics cache", "survey_id", id, "error", err)
	}
}

func (s *surveyService) publishSurveyEvent(ctx context.Context, survey *models.Survey) {
	s.publish(ctx, events.EventSurveyPublished, events.SurveyPublishedEvent{
		SurveyID:      survey.ID,
		Title:         survey.Title,
		OwnerID:       survey.OwnerID,
		QuestionCount: survey.QuestionCount,
		TotalCost:     survey.TotalCost,
		PublishedAt:   s.now().UTC(),
	})
}

func (s *surveyService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	if err := s.publisher.Publish(ctx, events.NewSurveyEvent(eventType, data)); err != nil {
		s.logger.Error("Failed to publish event", "event_type", eventType, "error", err)
	}
}
