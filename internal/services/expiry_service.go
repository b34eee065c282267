package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

const (
	sweepBatchSize = 500

	// Survey TTLs are whole minutes, so nothing younger can have expired.
	minimumResponseAge = time.Minute
)

// ExpiryService marks abandoned-in-place responses as expired in bulk.
type ExpiryService interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	Run(ctx context.Context, interval time.Duration)
}

type expiryService struct {
	repo      repositories.Repository
	policy    ExpiryPolicy
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewExpiryService(repo repositories.Repository, policy ExpiryPolicy, publisher events.EventPublisher, logger *slog.Logger) ExpiryService {
	if policy == nil {
		policy = NeverExpire{}
	}
	return &expiryService{
		repo:      repo,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
	}
}

// SweepExpired pages through in-progress responses by start time and
// expires those the policy says are out of time. A response that moved on
// between listing and marking is left alone.
func (s *expiryService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	surveys := make(map[string]*models.Survey)
	filters := repositories.StaleResponseFilters{
		StartedBefore: now.Add(-minimumResponseAge),
		Limit:         sweepBatchSize,
	}

	expired := 0
	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		batch, err := s.repo.Response().ListStale(ctx, filters)
		if err != nil {
			return expired, fmt.Errorf("failed to list stale responses: %w", err)
		}

		for _, record := range batch {
			survey, err := s.surveyFor(ctx, surveys, record.SurveyID)
			if err != nil {
				return expired, err
			}
			if !s.policy.Expired(survey, record, now) {
				continue
			}

			marked, err := s.repo.Response().MarkExpired(ctx, record.ID, now)
			if err != nil {
				return expired, fmt.Errorf("failed to expire response %s: %w", record.ID, err)
			}
			if !marked {
				continue
			}
			expired++

			event := events.NewSurveyEvent(events.EventResponseExpired, events.ResponseExpiredEvent{
				ResponseID: record.ID,
				SurveyID:   record.SurveyID,
				StartedAt:  record.StartedAt,
				ExpiredAt:  now,
			})
			if err := s.publisher.Publish(ctx, event); err != nil {
				s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
			}
		}

		if len(batch) < sweepBatchSize {
			break
		}
		last := batch[len(batch)-1]
		filters.After = &repositories.StaleCursor{StartedAt: last.StartedAt, ID: last.ID}
	}

	if expired > 0 {
		s.logger.Info("Expired stale responses", "count", expired)
	}
	return expired, nil
}

// Run sweeps every interval until ctx is done.
func (s *expiryService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Expiry sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		case tick := <-ticker.C:
			if _, err := s.SweepExpired(ctx, tick); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}

func (s *expiryService) surveyFor(ctx context.Context, seen map[string]*models.Survey, surveyID string) (*models.Survey, error) {
	if survey, ok := seen[surveyID]; ok {
		return survey, nil
	}
	survey, err := s.repo.Survey().GetByID(ctx, surveyID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	seen[surveyID] = survey
	return survey, nil
}
