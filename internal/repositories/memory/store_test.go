package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newResponse(t *testing.T, store *Store, id, session string) {
	t.Helper()
	require.NoError(t, store.Response().Create(context.Background(), &models.ResponseRecord{
		ID:        id,
		SurveyID:  "s1",
		SessionID: session,
		Status:    models.ResponseInProgress,
		StartedAt: t0,
	}))
}

func statusPtr(s models.ResponseStatus) *models.ResponseStatus { return &s }

func update(id, session string, patch models.ResponsePatch) repositories.GuardedUpdate {
	return repositories.GuardedUpdate{ResponseID: id, SessionID: session, Patch: patch, Now: t0.Add(time.Minute)}
}

func TestConditionalUpdate_PreconditionOrder(t *testing.T) {
	ctx := context.Background()
	store := New()
	newResponse(t, store, "r1", "sess-1")

	_, err := store.Response().ConditionalUpdate(ctx, update("missing", "sess-1", models.ResponsePatch{}))
	assert.ErrorIs(t, err, apperrors.ErrResponseNotFound)

	_, err = store.Response().ConditionalUpdate(ctx, update("r1", "sess-2", models.ResponsePatch{}))
	assert.ErrorIs(t, err, apperrors.ErrSessionMismatch)

	expired := update("r1", "sess-1", models.ResponsePatch{})
	expired.Expired = func(*models.ResponseRecord, time.Time) bool { return true }
	_, err = store.Response().ConditionalUpdate(ctx, expired)
	assert.ErrorIs(t, err, apperrors.ErrResponseExpired)

	done, err := store.Response().ConditionalUpdate(ctx, update("r1", "sess-1", models.ResponsePatch{Status: statusPtr(models.ResponseCompleted)}))
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, t0.Add(time.Minute), *done.CompletedAt)

	// Once completed, the session check still runs first and completion is
	// reported ahead of expiry.
	_, err = store.Response().ConditionalUpdate(ctx, update("r1", "sess-2", models.ResponsePatch{}))
	assert.ErrorIs(t, err, apperrors.ErrSessionMismatch)
	_, err = store.Response().ConditionalUpdate(ctx, expired)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCompleted)
}

func TestConditionalUpdate_MergesAnswers(t *testing.T) {
	ctx := context.Background()
	store := New()
	newResponse(t, store, "r1", "sess")

	_, err := store.Response().ConditionalUpdate(ctx, update("r1", "sess", models.ResponsePatch{
		Answers: []models.AnswerEntry{{QuestionID: "q1", Answer: "A"}, {QuestionID: "q2", Answer: "x"}},
	}))
	require.NoError(t, err)

	got, err := store.Response().ConditionalUpdate(ctx, update("r1", "sess", models.ResponsePatch{
		Answers: []models.AnswerEntry{{QuestionID: "q1", Answer: "B"}, {QuestionID: "q3", Answer: "7"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, []models.AnswerEntry{
		{QuestionID: "q1", Answer: "B"},
		{QuestionID: "q2", Answer: "x"},
		{QuestionID: "q3", Answer: "7"},
	}, []models.AnswerEntry(got.Answers))
	assert.Equal(t, models.ResponseInProgress, got.Status)
}

func TestConditionalUpdate_TerminalStatesAreImmutable(t *testing.T) {
	ctx := context.Background()
	store := New()

	for _, status := range []models.ResponseStatus{models.ResponseAbandoned, models.ResponseExpired} {
		id := string(status)
		newResponse(t, store, id, "sess")
		_, err := store.Response().ConditionalUpdate(ctx, update(id, "sess", models.ResponsePatch{Status: statusPtr(status)}))
		require.NoError(t, err)

		_, err = store.Response().ConditionalUpdate(ctx, update(id, "sess", models.ResponsePatch{
			Answers: []models.AnswerEntry{{QuestionID: "q", Answer: "late"}},
		}))
		assert.ErrorIs(t, err, apperrors.ErrResponseExpired, status)

		got, err := store.Response().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got.Answers)
	}
}

func TestConditionalUpdate_RejectsInvalidStatusWithoutWriting(t *testing.T) {
	ctx := context.Background()
	store := New()
	newResponse(t, store, "r1", "sess")

	_, err := store.Response().ConditionalUpdate(ctx, update("r1", "sess", models.ResponsePatch{
		Answers: []models.AnswerEntry{{QuestionID: "q", Answer: "a"}},
		Status:  statusPtr("paused"),
	}))
	var ve *apperrors.ValidationError
	assert.True(t, errors.As(err, &ve))

	got, err := store.Response().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, got.Answers)
}

func TestConditionalUpdate_RejectsStaleAnswerCount(t *testing.T) {
	ctx := context.Background()
	store := New()
	newResponse(t, store, "r1", "sess")

	zero, one := 0, 1
	_, err := store.Response().ConditionalUpdate(ctx, update("r1", "sess", models.ResponsePatch{
		Answers:        []models.AnswerEntry{{QuestionID: "car", Answer: "Yes"}},
		ExpectAnswered: &zero,
	}))
	require.NoError(t, err)
	_, err = store.Response().ConditionalUpdate(ctx, update("r1", "sess", models.ResponsePatch{
		Answers:        []models.AnswerEntry{{QuestionID: "brand", Answer: "Toyota"}},
		ExpectAnswered: &one,
	}))
	require.NoError(t, err)

	// A write prepared against the empty history arrives last.
	_, err = store.Response().ConditionalUpdate(ctx, update("r1", "sess", models.ResponsePatch{
		Answers:        []models.AnswerEntry{{QuestionID: "car", Answer: "No"}},
		Status:         statusPtr(models.ResponseCompleted),
		ExpectAnswered: &zero,
	}))
	assert.ErrorIs(t, err, apperrors.ErrAnswerOutOfTurn)

	got, err := store.Response().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ResponseInProgress, got.Status)
	assert.Equal(t, []models.AnswerEntry{
		{QuestionID: "car", Answer: "Yes"},
		{QuestionID: "brand", Answer: "Toyota"},
	}, []models.AnswerEntry(got.Answers))
}

func TestConditionalUpdate_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		store := New()
		newResponse(t, store, "r1", "owner")

		var wg sync.WaitGroup
		results := make([]error, 2)
		sessions := []string{"owner", "intruder"}
		for i, session := range sessions {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, results[i] = store.Response().ConditionalUpdate(ctx, update("r1", session, models.ResponsePatch{
					Answers: []models.AnswerEntry{{QuestionID: "q", Answer: session}},
					Status:  statusPtr(models.ResponseCompleted),
				}))
			}()
		}
		wg.Wait()

		successes := 0
		for _, err := range results {
			if err == nil {
				successes++
				continue
			}
			assert.True(t, errors.Is(err, apperrors.ErrSessionMismatch) || errors.Is(err, apperrors.ErrAlreadyCompleted), err)
		}
		assert.LessOrEqual(t, successes, 1)

		got, err := store.Response().GetByID(ctx, "r1")
		require.NoError(t, err)
		answer, _ := got.AnswerFor("q")
		assert.Equal(t, "owner", answer)
	}
}

func TestConditionalUpdate_ConcurrentSameSessionCompletesOnce(t *testing.T) {
	ctx := context.Background()
	store := New()
	newResponse(t, store, "r1", "sess")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Response().ConditionalUpdate(ctx, update("r1", "sess", models.ResponsePatch{
				Status: statusPtr(models.ResponseCompleted),
			}))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrAlreadyCompleted)
		}
	}
	assert.Equal(t, 1, successes)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := New()
	newResponse(t, store, "r1", "sess")

	got, err := store.Response().GetByID(ctx, "r1")
	require.NoError(t, err)
	got.Status = models.ResponseCompleted

	again, err := store.Response().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ResponseInProgress, again.Status)
}

func TestStore_WithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Question().ReplaceForSurvey(ctx, "s1", []models.PersistedQuestion{{ID: "old", Type: models.ShortAnswer}}))

	boom := errors.New("boom")
	err := store.WithTransaction(ctx, func(repo repositories.Repository) error {
		if err := repo.Question().ReplaceForSurvey(ctx, "s1", []models.PersistedQuestion{{ID: "new", Type: models.ShortAnswer}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := store.Question().ListBySurvey(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "old", rows[0].ID)
}

func TestStore_RollbackKeepsOutsideWrites(t *testing.T) {
	ctx := context.Background()
	store := New()
	newResponse(t, store, "r1", "sess")

	started := make(chan struct{})
	done := make(chan error, 1)
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(repo repositories.Repository) error {
		if err := repo.Question().ReplaceForSurvey(ctx, "s1", []models.PersistedQuestion{{ID: "q1", Type: models.ShortAnswer}}); err != nil {
			return err
		}
		go func() {
			close(started)
			_, err := store.Response().ConditionalUpdate(ctx, update("r1", "sess", models.ResponsePatch{
				Answers: []models.AnswerEntry{{QuestionID: "q1", Answer: "x"}},
				Status:  statusPtr(models.ResponseCompleted),
			}))
			done <- err
		}()
		<-started
		select {
		case <-done:
			t.Error("write outside the transaction finished while it was open")
		case <-time.After(50 * time.Millisecond):
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, <-done)

	got, err := store.Response().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ResponseCompleted, got.Status)
	assert.Len(t, got.Answers, 1)

	rows, err := store.Question().ListBySurvey(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_NestedTransactionSharesLock(t *testing.T) {
	ctx := context.Background()
	store := New()

	err := store.WithTransaction(ctx, func(repo repositories.Repository) error {
		return repo.WithTransaction(ctx, func(inner repositories.Repository) error {
			return inner.Survey().Create(ctx, &models.Survey{ID: "s1", Title: "Nested"})
		})
	})
	require.NoError(t, err)

	require.NoError(t, store.Survey().LockForUpdate(ctx, "s1"))
	assert.ErrorIs(t, store.Survey().LockForUpdate(ctx, "missing"), repositories.ErrNotFound)
}

func TestStore_QuestionsOrdered(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Question().ReplaceForSurvey(ctx, "s1", []models.PersistedQuestion{
		{ID: "b", Order: 2}, {ID: "a", Order: 0}, {ID: "c", Order: 1},
	}))

	rows, err := store.Question().ListBySurvey(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "c", rows[1].ID)
	assert.Equal(t, "b", rows[2].ID)
	assert.Equal(t, "s1", rows[0].SurveyID)

	count, err := store.Question().CountBySurvey(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = store.Question().GetByID(ctx, "s1", "zzz")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestStore_StaleAndExpire(t *testing.T) {
	ctx := context.Background()
	store := New()
	newResponse(t, store, "old", "sess")
	require.NoError(t, store.Response().Create(ctx, &models.ResponseRecord{
		ID: "fresh", SurveyID: "s1", SessionID: "x", Status: models.ResponseInProgress, StartedAt: t0.Add(time.Hour),
	}))

	stale, err := store.Response().ListStale(ctx, repositories.StaleResponseFilters{StartedBefore: t0.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)

	ok, err := store.Response().MarkExpired(ctx, "old", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Response().MarkExpired(ctx, "old", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	counts, err := store.Response().CountByStatus(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Expired)
	assert.Equal(t, int64(1), counts.InProgress)
	assert.Equal(t, int64(2), counts.Total())
}

func TestStore_StalePagesWithCursor(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, id := range []string{"c", "a", "b", "d"} {
		require.NoError(t, store.Response().Create(ctx, &models.ResponseRecord{
			ID: id, SurveyID: "s1", SessionID: "x", Status: models.ResponseInProgress, StartedAt: t0,
		}))
	}

	filters := repositories.StaleResponseFilters{StartedBefore: t0.Add(time.Minute), Limit: 3}
	first, err := store.Response().ListStale(ctx, filters)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{first[0].ID, first[1].ID, first[2].ID})

	last := first[len(first)-1]
	filters.After = &repositories.StaleCursor{StartedAt: last.StartedAt, ID: last.ID}
	second, err := store.Response().ListStale(ctx, filters)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "d", second[0].ID)
}

func TestStore_SurveyList(t *testing.T) {
	ctx := context.Background()
	store := New()
	for i, title := range []string{"Beta", "alpha", "Gamma"} {
		require.NoError(t, store.Survey().Create(ctx, &models.Survey{
			ID: title, OwnerID: "owner", Title: title, CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Survey().Create(ctx, &models.Survey{ID: "other", OwnerID: "someone", Title: "Other"}))

	list, total, err := store.Survey().List(ctx, repositories.SurveyFilters{OwnerID: "owner", SortBy: "title", SortOrder: "asc", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Title)
	assert.Equal(t, "Beta", list[1].Title)

	list, _, err = store.Survey().List(ctx, repositories.SurveyFilters{OwnerID: "owner"})
	require.NoError(t, err)
	assert.Equal(t, "Gamma", list[0].Title)
	assert.Equal(t, models.SurveyDraft, list[0].Status)

	require.NoError(t, store.Survey().UpdateStatus(ctx, "Beta", models.SurveyPublished))
	published := models.SurveyPublished
	list, total, err = store.Survey().List(ctx, repositories.SurveyFilters{Status: &published})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Beta", list[0].ID)

	assert.ErrorIs(t, store.Survey().UpdateStatus(ctx, "nope", models.SurveyClosed), repositories.ErrNotFound)
}
