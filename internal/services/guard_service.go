package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// ExpiryPolicy decides whether an in-progress response ran out of time.
// survey is nil when it could not be loaded.
type ExpiryPolicy interface {
	Expired(survey *models.Survey, record *models.ResponseRecord, now time.Time) bool
}

// TTLPolicy expires a response a fixed time after it started. A survey's
// own ResponseTTLMinutes takes precedence over Default.
type TTLPolicy struct {
	Default time.Duration
}

func (p TTLPolicy) TTL(survey *models.Survey) time.Duration {
	if survey == nil {
		return p.Default
	}
	return survey.ResponseTTL(p.Default)
}

func (p TTLPolicy) Expired(survey *models.Survey, record *models.ResponseRecord, now time.Time) bool {
	ttl := p.TTL(survey)
	if ttl <= 0 {
		return false
	}
	return !now.Before(record.StartedAt.Add(ttl))
}

type NeverExpire struct{}

func (NeverExpire) Expired(*models.Survey, *models.ResponseRecord, time.Time) bool {
	return false
}

// GuardService is the single write path for started responses.
type GuardService interface {
	// SubmitUpdate applies patch when the response exists, belongs to
	// sessionID, is not completed and has not expired, in that order. The
	// returned errors are *apperrors.GuardError values and are final.
	SubmitUpdate(ctx context.Context, responseID, sessionID string, patch models.ResponsePatch) (*models.ResponseRecord, error)

	// Check runs the same preconditions against a record already in hand
	// without writing anything.
	Check(ctx context.Context, record *models.ResponseRecord, sessionID string) error
}

type guardService struct {
	repo   repositories.Repository
	policy ExpiryPolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewGuardService(repo repositories.Repository, policy ExpiryPolicy, logger *slog.Logger) GuardService {
	if policy == nil {
		policy = NeverExpire{}
	}
	return &guardService{
		repo:   repo,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

func (s *guardService) SubmitUpdate(ctx context.Context, responseID, sessionID string, patch models.ResponsePatch) (*models.ResponseRecord, error) {
	// The survey only feeds the expiry deadline; every decision is taken
	// again inside ConditionalUpdate.
	survey, err := s.surveyOf(ctx, responseID)
	if err != nil {
		return nil, err
	}

	update := s.guardedUpdate(survey, responseID, sessionID, patch)
	record, err := s.repo.Response().ConditionalUpdate(ctx, update)
	if err != nil {
		var guardErr *apperrors.GuardError
		if errors.As(err, &guardErr) {
			s.logger.Warn("Response update rejected",
				"response_id", responseID,
				"code", guardErr.Code)
		} else {
			s.logger.Error("Response update failed", "response_id", responseID, "error", err)
		}
		return nil, err
	}

	s.logger.Info("Response updated",
		"response_id", responseID,
		"status", record.Status,
		"answers", len(record.Answers))
	return record, nil
}

func (s *guardService) Check(ctx context.Context, record *models.ResponseRecord, sessionID string) error {
	if record == nil {
		return apperrors.ErrResponseNotFound
	}
	survey, err := s.repo.Survey().GetByID(ctx, record.SurveyID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	dryRun := *record
	dryRun.Answers = nil
	return s.guardedUpdate(survey, record.ID, sessionID, models.ResponsePatch{}).Apply(&dryRun)
}

func (s *guardService) guardedUpdate(survey *models.Survey, responseID, sessionID string, patch models.ResponsePatch) repositories.GuardedUpdate {
	return repositories.GuardedUpdate{
		ResponseID: responseID,
		SessionID:  sessionID,
		Patch:      patch,
		Now:        s.now(),
		Expired: func(record *models.ResponseRecord, now time.Time) bool {
			return s.policy.Expired(survey, record, now)
		},
	}
}

func (s *guardService) surveyOf(ctx context.Context, responseID string) (*models.Survey, error) {
	record, err := s.repo.Response().GetByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrResponseNotFound
		}
		return nil, err
	}
	survey, err := s.repo.Survey().GetByID(ctx, record.SurveyID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	return survey, nil
}
