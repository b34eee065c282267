package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/survey-service/internal/analytics"
	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// AnalyticsService summarizes the completed responses of a survey.
type AnalyticsService interface {
	QuestionSummary(ctx context.Context, surveyID, questionID, ownerID string) (*analytics.Summary, error)
	SurveySummary(ctx context.Context, surveyID, ownerID string) (*SurveySummary, error)
}

type AnalyticsConfig struct {
	Workers  int
	CacheTTL time.Duration
}

type analyticsService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger *slog.Logger
	config AnalyticsConfig
	now    func() time.Time
}

func NewAnalyticsService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger, config AnalyticsConfig) AnalyticsService {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &analyticsService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

func (s *analyticsService) QuestionSummary(ctx context.Context, surveyID, questionID, ownerID string) (*analytics.Summary, error) {
	if _, err := ownedSurvey(ctx, s.repo, surveyID, ownerID, "view_analytics"); err != nil {
		return nil, err
	}

	key := cache.QuestionSummaryKey(surveyID, questionID)
	var cached analytics.Summary
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	question, err := s.repo.Question().GetByID(ctx, surveyID, questionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	responses, err := s.repo.Response().ListCompleted(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	summary, err := analytics.AggregateParallel(ctx, question, responses, s.config.Workers)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, key, summary)
	return summary, nil
}

// SurveySummary aggregates every question of the survey, one question per
// worker, in question order.
func (s *analyticsService) SurveySummary(ctx context.Context, surveyID, ownerID string) (*SurveySummary, error) {
	survey, err := ownedSurvey(ctx, s.repo, surveyID, ownerID, "view_analytics")
	if err != nil {
		return nil, err
	}

	key := cache.SurveySummaryKey(surveyID)
	var cached SurveySummary
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	start := s.now()
	questions, err := s.repo.Question().ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	responses, err := s.repo.Response().ListCompleted(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	counts, err := s.repo.Response().CountByStatus(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}

	summaries := make([]*analytics.Summary, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summaries[i] = analytics.Aggregate(&questions[i], responses)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SurveySummary{
		SurveyID:    surveyID,
		Title:       survey.Title,
		Responses:   *counts,
		Questions:   summaries,
		GeneratedAt: s.now().UTC(),
	}

	s.logger.Info("Survey summary computed",
		"survey_id", surveyID,
		"questions", len(questions),
		"responses", len(responses),
		"duration", s.now().Sub(start))

	s.toCache(ctx, key, result)
	return result, nil
}

// ===== HELPER METHODS =====

// fromCache treats every cache failure as a miss; the cache is an
// accelerator, never the source of truth.
func (s *analyticsService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Analytics cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *analyticsService) toCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.config.CacheTTL); err != nil {
		s.logger.Warn("Analytics cache write failed", "key", key, "error", err)
	}
}
