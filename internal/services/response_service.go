package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/codec"
	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/navigation"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/validator"
)

// ResponseService takes respondents through a published survey.
type ResponseService interface {
	Start(ctx context.Context, surveyID string) (*StartResponse, error)
	Current(ctx context.Context, responseID, sessionID string) (*ProgressResponse, error)
	SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) (*ProgressResponse, error)
	Abandon(ctx context.Context, responseID, sessionID string) (*ProgressResponse, error)
}

type responseService struct {
	repo      repositories.Repository
	guard     GuardService
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    *slog.Logger
	ops       *ServiceLogger
	validator *validator.Validator
	now       func() time.Time
}

func NewResponseService(
	repo repositories.Repository,
	guard GuardService,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
) ResponseService {
	return &responseService{
		repo:      repo,
		guard:     guard,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		ops:       NewServiceLogger(logger, LogConfig{Service: "survey-service", Component: "responses"}),
		validator: validator,
		now:       time.Now,
	}
}

func (s *responseService) Start(ctx context.Context, surveyID string) (result *StartResponse, err error) {
	op := s.ops.WithOperation(ctx, "start_response", "")
	defer func() { op.LogResult(surveyID, "survey", err) }()

	survey, err := s.repo.Survey().GetByID(ctx, surveyID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	if survey.Status != models.SurveyPublished {
		return nil, ErrSurveyNotPublished
	}

	engine, err := s.engineFor(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	state := engine.Start()
	if state.Complete {
		return nil, ErrSurveyHasNoQuestions
	}

	now := s.now().UTC()
	record := &models.ResponseRecord{
		ID:        uuid.NewString(),
		SurveyID:  surveyID,
		SessionID: uuid.NewString(),
		Status:    models.ResponseInProgress,
		Answers:   []models.AnswerEntry{},
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Response().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create response: %w", err)
	}

	s.publish(ctx, events.EventResponseStarted, events.ResponseStartedEvent{
		ResponseID: record.ID,
		SurveyID:   surveyID,
		StartedAt:  now,
	})

	return &StartResponse{
		ResponseID: record.ID,
		SurveyID:   surveyID,
		SessionID:  record.SessionID,
		State:      state,
	}, nil
}

func (s *responseService) Current(ctx context.Context, responseID, sessionID string) (*ProgressResponse, error) {
	record, err := s.load(ctx, responseID, sessionID)
	if err != nil {
		return nil, err
	}

	progress := &ProgressResponse{
		ResponseID: record.ID,
		SurveyID:   record.SurveyID,
		Status:     record.Status,
		Answered:   len(record.Answers),
		State:      navigation.State{Complete: true},
	}
	if record.Status != models.ResponseInProgress {
		return progress, nil
	}

	engine, err := s.engineFor(ctx, record.SurveyID)
	if err != nil {
		return nil, err
	}
	progress.State = s.position(engine, record)
	return progress, nil
}

// SubmitAnswer records the answer to the question currently presented and
// moves the response on. The answer that finishes the survey also marks
// the response completed, in the same guarded write.
func (s *responseService) SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) (result *ProgressResponse, err error) {
	op := s.ops.WithOperation(ctx, "submit_answer", "")
	defer func() { op.LogResult(req.ResponseID, "response", err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	record, err := s.repo.Response().GetByID(ctx, req.ResponseID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	if err := s.guard.Check(ctx, record, req.SessionID); err != nil {
		return nil, err
	}

	engine, err := s.engineFor(ctx, record.SurveyID)
	if err != nil {
		return nil, err
	}

	state := s.position(engine, record)
	if state.QuestionID() != req.QuestionID {
		if _, known := engine.Question(req.QuestionID); !known {
			return nil, ErrQuestionNotFound
		}
		return nil, ErrQuestionNotExpected
	}

	question := state.Question
	encoded, err := codec.Encode(question, req.Answer)
	if err != nil {
		var detail *apperrors.ValidationError
		if errors.As(err, &detail) {
			return nil, &InvalidAnswerError{QuestionID: question.ID, Detail: detail}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}

	next := engine.After(question, encoded)
	answered := len(record.Answers)
	patch := models.ResponsePatch{
		Answers:        []models.AnswerEntry{{QuestionID: question.ID, Answer: encoded}},
		ExpectAnswered: &answered,
	}
	if next.Complete {
		completed := models.ResponseCompleted
		patch.Status = &completed
	}

	updated, err := s.guard.SubmitUpdate(ctx, req.ResponseID, req.SessionID, patch)
	if err != nil {
		return nil, err
	}

	if updated.Status == models.ResponseCompleted {
		s.onCompleted(ctx, updated)
	}

	return &ProgressResponse{
		ResponseID: updated.ID,
		SurveyID:   updated.SurveyID,
		Status:     updated.Status,
		Answered:   len(updated.Answers),
		State:      next,
	}, nil
}

func (s *responseService) Abandon(ctx context.Context, responseID, sessionID string) (result *ProgressResponse, err error) {
	op := s.ops.WithOperation(ctx, "abandon_response", "")
	defer func() { op.LogResult(responseID, "response", err) }()

	abandoned := models.ResponseAbandoned
	updated, err := s.guard.SubmitUpdate(ctx, responseID, sessionID, models.ResponsePatch{Status: &abandoned})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventResponseAbandoned, events.ResponseAbandonedEvent{
		ResponseID:  updated.ID,
		SurveyID:    updated.SurveyID,
		AnswerCount: len(updated.Answers),
		AbandonedAt: updated.UpdatedAt,
	})

	return &ProgressResponse{
		ResponseID: updated.ID,
		SurveyID:   updated.SurveyID,
		Status:     updated.Status,
		Answered:   len(updated.Answers),
		State:      navigation.State{Complete: true},
	}, nil
}

// ===== HELPER METHODS =====

// load reads a response for its respondent. Writes go through the guard;
// this only protects reads.
func (s *responseService) load(ctx context.Context, responseID, sessionID string) (*models.ResponseRecord, error) {
	record, err := s.repo.Response().GetByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(record.SessionID), []byte(sessionID)) != 1 {
		return nil, apperrors.ErrSessionMismatch
	}
	return record, nil
}

func (s *responseService) engineFor(ctx context.Context, surveyID string) (*navigation.Engine, error) {
	rows, err := s.repo.Question().ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return navigation.New(rows), nil
}

// position is where the stored answers lead. When the history no longer
// matches the path (the tree changed mid-response) the last answer decides.
func (s *responseService) position(engine *navigation.Engine, record *models.ResponseRecord) navigation.State {
	state, ok := engine.Replay(record.Answers)
	if ok {
		return state
	}
	s.logger.Warn("Response history diverges from question tree",
		"response_id", record.ID,
		"survey_id", record.SurveyID)
	return engine.Next(record.Answers)
}

func (s *responseService) onCompleted(ctx context.Context, record *models.ResponseRecord) {
	completedAt := record.UpdatedAt
	if record.CompletedAt != nil {
		completedAt = *record.CompletedAt
	}
	s.publish(ctx, events.EventResponseCompleted, events.ResponseCompletedEvent{
		ResponseID:  record.ID,
		SurveyID:    record.SurveyID,
		AnswerCount: len(record.Answers),
		StartedAt:   record.StartedAt,
		CompletedAt: completedAt,
	})

	if err := s.cache.DeletePattern(ctx, cache.SurveyPattern(record.SurveyID)); err != nil {
		s.logger.Warn("Failed to invalidate analytics cache", "survey_id", record.SurveyID, "error", err)
	}
}

// publish never fails the caller: the write it reports has already happened.
func (s *responseService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	if err := s.publisher.Publish(ctx, events.NewSurveyEvent(eventType, data)); err != nil {
		s.logger.Error("Failed to publish event", "event_type", eventType, "error", err)
	}
}
