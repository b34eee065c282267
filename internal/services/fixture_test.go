package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/codec"
	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories/memory"
	"github.com/SAP-F-2025/survey-service/internal/tree"
	"github.com/SAP-F-2025/survey-service/internal/validator"
)

const ownerID = "owner-1"

type fixture struct {
	store     *memory.Store
	cache     cache.CacheService
	publisher *events.MockEventPublisher
	services  ServiceManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := discardLogger()
	f := &fixture{
		store:     memory.New(),
		cache:     cache.NewMemoryCache(),
		publisher: events.NewMockEventPublisher(logger),
	}
	f.services = NewServiceManager(f.store, f.cache, f.publisher, logger, validator.New(), ManagerConfig{
		ResponseTTL:       24 * time.Hour,
		AnalyticsWorkers:  4,
		AnalyticsCacheTTL: time.Minute,
	})
	return f
}

// carForest is a two-question survey where "Yes" opens a follow-up and
// "No" ends the survey.
func carForest() tree.Forest {
	car := tree.NewNode(models.BranchingChoice, "Do you own a car?", "Yes", "No")
	brand := tree.NewNode(models.ShortAnswer, "Which brand?")
	_ = car.AddChild("Yes", brand)
	_ = car.SetBranchEnd("No", models.BranchEndSurvey)
	rating := tree.NewNode(models.NumericRating, "How satisfied are you?")
	return tree.Forest{car, rating}
}

// publishedSurvey creates, fills and publishes the car survey.
func (f *fixture) publishedSurvey(t *testing.T) *models.Survey {
	t.Helper()
	ctx := context.Background()

	survey, err := f.services.Survey().Create(ctx, &CreateSurveyRequest{Title: "Car owners"}, ownerID)
	require.NoError(t, err)
	_, err = f.services.Survey().SaveTree(ctx, survey.ID, carForest(), ownerID)
	require.NoError(t, err)
	published, err := f.services.Survey().Publish(ctx, survey.ID, ownerID)
	require.NoError(t, err)
	return published
}

// respond starts a response and answers every presented question with the
// answer picked for its text, until the survey completes.
func (f *fixture) respond(t *testing.T, surveyID string, answers map[string]codec.Value) *ProgressResponse {
	t.Helper()
	ctx := context.Background()

	started, err := f.services.Response().Start(ctx, surveyID)
	require.NoError(t, err)

	state := started.State
	var progress *ProgressResponse
	for !state.Complete {
		answer, ok := answers[state.Question.Text]
		require.True(t, ok, "no answer for %q", state.Question.Text)
		progress, err = f.services.Response().SubmitAnswer(ctx, &SubmitAnswerRequest{
			ResponseID: started.ResponseID,
			SessionID:  started.SessionID,
			QuestionID: state.Question.ID,
			Answer:     answer,
		})
		require.NoError(t, err)
		state = progress.State
	}
	return progress
}

func intPtr(n int) *int { return &n }

func yesAnswers(brand string, rating int) map[string]codec.Value {
	return map[string]codec.Value{
		"Do you own a car?":      {Text: "Yes"},
		"Which brand?":           {Text: brand},
		"How satisfied are you?": {Number: intPtr(rating)},
	}
}

func noAnswers() map[string]codec.Value {
	return map[string]codec.Value{"Do you own a car?": {Text: "No"}}
}
