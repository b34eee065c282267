package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTTLPolicy_Expired(t *testing.T) {
	policy := TTLPolicy{Default: time.Hour}
	record := &models.ResponseRecord{StartedAt: testNow}

	tests := []struct {
		name    string
		survey  *models.Survey
		now     time.Time
		expired bool
	}{
		{"before default deadline", nil, testNow.Add(59 * time.Minute), false},
		{"at default deadline", nil, testNow.Add(time.Hour), true},
		{"survey override shortens", &models.Survey{ResponseTTLMinutes: 10}, testNow.Add(10 * time.Minute), true},
		{"survey override lengthens", &models.Survey{ResponseTTLMinutes: 120}, testNow.Add(90 * time.Minute), false},
		{"zero override falls back", &models.Survey{}, testNow.Add(2 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, policy.Expired(tt.survey, record, tt.now))
		})
	}

	assert.False(t, TTLPolicy{}.Expired(nil, record, testNow.Add(1000*time.Hour)))
	assert.False(t, NeverExpire{}.Expired(nil, record, testNow.Add(1000*time.Hour)))
}

func TestGuardService_SubmitUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown response", func(t *testing.T) {
		repo := NewMockRepository()
		repo.responses.On("GetByID", ctx, "missing").Return(nil, repositories.ErrNotFound)

		guard := NewGuardService(repo, TTLPolicy{Default: time.Hour}, discardLogger())
		_, err := guard.SubmitUpdate(ctx, "missing", "sess", models.ResponsePatch{})

		assert.ErrorIs(t, err, apperrors.ErrResponseNotFound)
		repo.responses.AssertNotCalled(t, "ConditionalUpdate", mock.Anything, mock.Anything)
	})

	t.Run("passes the survey deadline to the atomic update", func(t *testing.T) {
		repo := NewMockRepository()
		record := &models.ResponseRecord{ID: "r1", SurveyID: "s1", SessionID: "sess", Status: models.ResponseInProgress, StartedAt: testNow}
		repo.responses.On("GetByID", ctx, "r1").Return(record, nil)
		repo.surveys.On("GetByID", ctx, "s1").Return(&models.Survey{ID: "s1", ResponseTTLMinutes: 5}, nil)

		var captured repositories.GuardedUpdate
		repo.responses.On("ConditionalUpdate", ctx, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).(repositories.GuardedUpdate) }).
			Return(nil, apperrors.ErrResponseExpired)

		svc := NewGuardService(repo, TTLPolicy{Default: 24 * time.Hour}, discardLogger()).(*guardService)
		svc.now = func() time.Time { return testNow.Add(6 * time.Minute) }

		_, err := svc.SubmitUpdate(ctx, "r1", "sess", models.ResponsePatch{})
		assert.ErrorIs(t, err, apperrors.ErrResponseExpired)

		require.NotNil(t, captured.Expired)
		assert.Equal(t, "r1", captured.ResponseID)
		assert.Equal(t, "sess", captured.SessionID)
		assert.True(t, captured.Expired(record, testNow.Add(5*time.Minute)))
		assert.False(t, captured.Expired(record, testNow.Add(4*time.Minute)))
	})

	t.Run("storage failure is returned as is", func(t *testing.T) {
		repo := NewMockRepository()
		boom := errors.New("connection reset")
		repo.responses.On("GetByID", ctx, "r1").Return(nil, boom)

		guard := NewGuardService(repo, nil, discardLogger())
		_, err := guard.SubmitUpdate(ctx, "r1", "sess", models.ResponsePatch{})

		assert.ErrorIs(t, err, boom)
		var guardErr *apperrors.GuardError
		assert.False(t, errors.As(err, &guardErr))
	})
}

func TestGuardService_Check(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()
	repo.surveys.On("GetByID", ctx, "s1").Return(&models.Survey{ID: "s1"}, nil)

	svc := NewGuardService(repo, TTLPolicy{Default: time.Hour}, discardLogger()).(*guardService)
	svc.now = func() time.Time { return testNow.Add(30 * time.Minute) }

	live := &models.ResponseRecord{ID: "r1", SurveyID: "s1", SessionID: "sess", Status: models.ResponseInProgress, StartedAt: testNow}
	done := &models.ResponseRecord{ID: "r2", SurveyID: "s1", SessionID: "sess", Status: models.ResponseCompleted, StartedAt: testNow}
	stale := &models.ResponseRecord{ID: "r3", SurveyID: "s1", SessionID: "sess", Status: models.ResponseInProgress, StartedAt: testNow.Add(-time.Hour)}

	assert.NoError(t, svc.Check(ctx, live, "sess"))
	assert.ErrorIs(t, svc.Check(ctx, nil, "sess"), apperrors.ErrResponseNotFound)
	assert.ErrorIs(t, svc.Check(ctx, live, "other"), apperrors.ErrSessionMismatch)
	assert.ErrorIs(t, svc.Check(ctx, done, "sess"), apperrors.ErrAlreadyCompleted)
	assert.ErrorIs(t, svc.Check(ctx, stale, "sess"), apperrors.ErrResponseExpired)

	// A wrong session is reported before completion.
	assert.ErrorIs(t, svc.Check(ctx, done, "other"), apperrors.ErrSessionMismatch)

	// Check never touches the record it was given.
	assert.Equal(t, models.ResponseInProgress, live.Status)
	repo.responses.AssertNotCalled(t, "ConditionalUpdate", mock.Anything, mock.Anything)
}
