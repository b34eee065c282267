// Package memory is an in-process storage backend for development and tests.
// Every read returns a copy, so callers can never mutate stored state
// without going through the repository.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	surveys   map[string]*models.Survey
	questions map[string][]models.PersistedQuestion
	responses map[string]*models.ResponseRecord

	now func() time.Time
}

func New() *Store {
	return &Store{
		surveys:   make(map[string]*models.Survey),
		questions: make(map[string][]models.PersistedQuestion),
		responses: make(map[string]*models.ResponseRecord),
		now:       time.Now,
	}
}

func (s *Store) Survey() repositories.SurveyRepository     { return surveyRepo{s: s} }
func (s *Store) Question() repositories.QuestionRepository { return questionRepo{s: s} }
func (s *Store) Response() repositories.ResponseRepository { return responseRepo{s: s} }

// WithTransaction serialises transactions and restores a snapshot when fn
// fails. Writes outside a transaction wait for it to finish, so a rollback
// only ever discards fn's own writes.
func (s *Store) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	if err := fn(txStore{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

// writing takes the transaction lock for writes made outside a
// transaction. Use as defer s.writing(inTx)().
func (s *Store) writing(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

// txStore is the view handed to WithTransaction callbacks. Its writes skip
// the transaction lock the callback already runs under.
type txStore struct{ s *Store }

func (t txStore) Survey() repositories.SurveyRepository     { return surveyRepo{s: t.s, inTx: true} }
func (t txStore) Question() repositories.QuestionRepository { return questionRepo{s: t.s, inTx: true} }
func (t txStore) Response() repositories.ResponseRepository { return responseRepo{s: t.s, inTx: true} }

func (t txStore) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(t)
}

func (t txStore) Ping(ctx context.Context) error { return t.s.Ping(ctx) }
func (t txStore) Close() error                   { return nil }

type snapshot struct {
	surveys   map[string]*models.Survey
	questions map[string][]models.PersistedQuestion
	responses map[string]*models.ResponseRecord
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		surveys:   make(map[string]*models.Survey, len(s.surveys)),
		questions: make(map[string][]models.PersistedQuestion, len(s.questions)),
		responses: make(map[string]*models.ResponseRecord, len(s.responses)),
	}
	for id, survey := range s.surveys {
		snap.surveys[id] = cloneSurvey(survey)
	}
	for id, rows := range s.questions {
		snap.questions[id] = cloneQuestions(rows)
	}
	for id, response := range s.responses {
		snap.responses[id] = cloneResponse(response)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surveys = snap.surveys
	s.questions = snap.questions
	s.responses = snap.responses
}

// ===== SURVEYS =====

type surveyRepo struct {
	s    *Store
	inTx bool
}

func (r surveyRepo) Create(ctx context.Context, survey *models.Survey) error {
	defer r.s.writing(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = now
	}
	survey.UpdatedAt = now
	if survey.Status == "" {
		survey.Status = models.SurveyDraft
	}
	r.s.surveys[survey.ID] = cloneSurvey(survey)
	return nil
}

func (r surveyRepo) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	survey, ok := r.s.surveys[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneSurvey(survey), nil
}

func (r surveyRepo) Update(ctx context.Context, survey *models.Survey) error {
	defer r.s.writing(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.surveys[survey.ID]; !ok {
		return repositories.ErrNotFound
	}
	survey.UpdatedAt = r.s.now()
	r.s.surveys[survey.ID] = cloneSurvey(survey)
	return nil
}

func (r surveyRepo) Delete(ctx context.Context, id string) error {
	defer r.s.writing(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.surveys[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.surveys, id)
	return nil
}

func (r surveyRepo) List(ctx context.Context, filters repositories.SurveyFilters) ([]*models.Survey, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*models.Survey
	for _, survey := range r.s.surveys {
		if filters.OwnerID != "" && survey.OwnerID != filters.OwnerID {
			continue
		}
		if filters.Status != nil && survey.Status != *filters.Status {
			continue
		}
		matched = append(matched, cloneSurvey(survey))
	}

	less := func(a, b *models.Survey) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch filters.SortBy {
	case "title":
		less = func(a, b *models.Survey) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case "updated_at":
		less = func(a, b *models.Survey) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if filters.SortOrder == "asc" {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	total := int64(len(matched))
	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return []*models.Survey{}, total, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func (r surveyRepo) UpdateStatus(ctx context.Context, id string, status models.SurveyStatus) error {
	defer r.s.writing(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	survey, ok := r.s.surveys[id]
	if !ok {
		return repositories.ErrNotFound
	}
	survey.Status = status
	survey.UpdatedAt = r.s.now()
	return nil
}

// LockForUpdate only checks existence. Inside a transaction the store is
// already serialised; outside one there is nothing to hold.
func (r surveyRepo) LockForUpdate(ctx context.Context, id string) error {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.surveys[id]; !ok {
		return repositories.ErrNotFound
	}
	return nil
}

// ===== QUESTIONS =====

type questionRepo struct {
	s    *Store
	inTx bool
}

func (r questionRepo) ListBySurvey(ctx context.Context, surveyID string) ([]models.PersistedQuestion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := cloneQuestions(r.s.questions[surveyID])
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Order != rows[j].Order {
			return rows[i].Order < rows[j].Order
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (r questionRepo) GetByID(ctx context.Context, surveyID, questionID string) (*models.PersistedQuestion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, row := range r.s.questions[surveyID] {
		if row.ID == questionID {
			q := cloneQuestion(row)
			return &q, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r questionRepo) CountBySurvey(ctx context.Context, surveyID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.questions[surveyID])), nil
}

func (r questionRepo) ReplaceForSurvey(ctx context.Context, surveyID string, rows []models.PersistedQuestion) error {
	defer r.s.writing(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	stored := cloneQuestions(rows)
	for i := range stored {
		stored[i].SurveyID = surveyID
		if stored[i].CreatedAt.IsZero() {
			stored[i].CreatedAt = now
		}
		stored[i].UpdatedAt = now
	}
	r.s.questions[surveyID] = stored
	return nil
}

// ===== RESPONSES =====

type responseRepo struct {
	s    *Store
	inTx bool
}

func (r responseRepo) Create(ctx context.Context, response *models.ResponseRecord) error {
	defer r.s.writing(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if response.UpdatedAt.IsZero() {
		response.UpdatedAt = r.s.now()
	}
	r.s.responses[response.ID] = cloneResponse(response)
	return nil
}

func (r responseRepo) GetByID(ctx context.Context, id string) (*models.ResponseRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	response, ok := r.s.responses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneResponse(response), nil
}

func (r responseRepo) ListCompleted(ctx context.Context, surveyID string) ([]models.ResponseRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.ResponseRecord
	for _, response := range r.s.responses {
		if response.SurveyID == surveyID && response.Status == models.ResponseCompleted {
			out = append(out, *cloneResponse(response))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].CompletedAt, out[j].CompletedAt
		if ci != nil && cj != nil && !ci.Equal(*cj) {
			return ci.Before(*cj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r responseRepo) CountByStatus(ctx context.Context, surveyID string) (*repositories.ResponseCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := &repositories.ResponseCounts{}
	for _, response := range r.s.responses {
		if response.SurveyID != surveyID {
			continue
		}
		switch response.Status {
		case models.ResponseInProgress:
			counts.InProgress++
		case models.ResponseCompleted:
			counts.Completed++
		case models.ResponseAbandoned:
			counts.Abandoned++
		case models.ResponseExpired:
			counts.Expired++
		}
	}
	return counts, nil
}

func (r responseRepo) ListStale(ctx context.Context, filters repositories.StaleResponseFilters) ([]*models.ResponseRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.ResponseRecord
	for _, response := range r.s.responses {
		if response.Status == models.ResponseInProgress && response.StartedAt.Before(filters.StartedBefore) && filters.After.Past(response) {
			out = append(out, cloneResponse(response))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// ConditionalUpdate holds the store lock across check and write, which is
// what the row lock does for postgres.
func (r responseRepo) ConditionalUpdate(ctx context.Context, update repositories.GuardedUpdate) (*models.ResponseRecord, error) {
	defer r.s.writing(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.responses[update.ResponseID]
	if !ok {
		return nil, update.Apply(nil)
	}

	working := cloneResponse(stored)
	if err := update.Apply(working); err != nil {
		return nil, err
	}
	r.s.responses[working.ID] = working
	return cloneResponse(working), nil
}

func (r responseRepo) MarkExpired(ctx context.Context, id string, at time.Time) (bool, error) {
	defer r.s.writing(r.inTx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	response, ok := r.s.responses[id]
	if !ok || response.Status != models.ResponseInProgress {
		return false, nil
	}
	response.Status = models.ResponseExpired
	response.UpdatedAt = at
	return true, nil
}

// ===== COPIES =====

func cloneSurvey(s *models.Survey) *models.Survey {
	c := *s
	if s.Description != nil {
		d := *s.Description
		c.Description = &d
	}
	if s.TargetOptions != nil {
		c.TargetOptions = append([]byte(nil), s.TargetOptions...)
	}
	return &c
}

func cloneQuestion(q models.PersistedQuestion) models.PersistedQuestion {
	c := q
	if q.Options != nil {
		c.Options = append([]string(nil), q.Options...)
	}
	if q.ParentQuestionID != nil {
		id := *q.ParentQuestionID
		c.ParentQuestionID = &id
	}
	if q.ParentBranchOption != nil {
		opt := *q.ParentBranchOption
		c.ParentBranchOption = &opt
	}
	if policy := q.BranchEnd.Data(); policy != nil {
		copied := make(models.BranchPolicy, len(policy))
		for k, v := range policy {
			copied[k] = v
		}
		c.BranchEnd = datatypes.NewJSONType(copied)
	}
	return c
}

func cloneQuestions(rows []models.PersistedQuestion) []models.PersistedQuestion {
	out := make([]models.PersistedQuestion, 0, len(rows))
	for _, row := range rows {
		out = append(out, cloneQuestion(row))
	}
	return out
}

func cloneResponse(r *models.ResponseRecord) *models.ResponseRecord {
	c := *r
	if r.Answers != nil {
		c.Answers = append([]models.AnswerEntry(nil), r.Answers...)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
