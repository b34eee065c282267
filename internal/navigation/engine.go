// Package navigation decides which question a respondent sees next. The
// engine is rebuilt from the stored question rows and the answers given so
// far; it keeps no state between calls.
package navigation

import (
	"sort"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// State is either a question to present or the end of the survey.
type State struct {
	Complete bool                      `json:"complete"`
	Question *models.PersistedQuestion `json:"question,omitempty"`
}

func complete() State {
	return State{Complete: true}
}

func at(q *models.PersistedQuestion) State {
	return State{Question: q}
}

// QuestionID returns the id of the presented question, or "" when complete.
func (s State) QuestionID() string {
	if s.Complete || s.Question == nil {
		return ""
	}
	return s.Question.ID
}

type groupKey struct {
	parentID string
	option   string
}

func keyOf(q *models.PersistedQuestion) groupKey {
	if q.ParentQuestionID == nil {
		return groupKey{}
	}
	key := groupKey{parentID: *q.ParentQuestionID}
	if q.ParentBranchOption != nil {
		key.option = *q.ParentBranchOption
	}
	return key
}

type Engine struct {
	ordered  []*models.PersistedQuestion
	byID     map[string]*models.PersistedQuestion
	groups   map[groupKey][]*models.PersistedQuestion
	position map[string]int
}

// New indexes the question rows of one survey. Rows may arrive in any order.
func New(rows []models.PersistedQuestion) *Engine {
	e := &Engine{
		ordered:  make([]*models.PersistedQuestion, 0, len(rows)),
		byID:     make(map[string]*models.PersistedQuestion, len(rows)),
		groups:   make(map[groupKey][]*models.PersistedQuestion),
		position: make(map[string]int, len(rows)),
	}
	for i := range rows {
		q := &rows[i]
		if _, dup := e.byID[q.ID]; dup {
			continue
		}
		e.byID[q.ID] = q
		e.ordered = append(e.ordered, q)
	}
	sort.SliceStable(e.ordered, func(i, j int) bool {
		if e.ordered[i].Order != e.ordered[j].Order {
			return e.ordered[i].Order < e.ordered[j].Order
		}
		return e.ordered[i].ID < e.ordered[j].ID
	})
	for _, q := range e.ordered {
		key := keyOf(q)
		e.position[q.ID] = len(e.groups[key])
		e.groups[key] = append(e.groups[key], q)
	}
	return e
}

// Question looks up a question by id.
func (e *Engine) Question(id string) (*models.PersistedQuestion, bool) {
	q, ok := e.byID[id]
	return q, ok
}

// Questions returns every question in stored order.
func (e *Engine) Questions() []*models.PersistedQuestion {
	return e.ordered
}

// Start is the state before any answer: the first top-level question.
func (e *Engine) Start() State {
	roots := e.groups[groupKey{}]
	if len(roots) == 0 {
		return complete()
	}
	return at(roots[0])
}

// Next derives the state that follows the answer history. Only the last
// entry matters; an unknown question folds to completion.
func (e *Engine) Next(history []models.AnswerEntry) State {
	if len(history) == 0 {
		return e.Start()
	}
	last := history[len(history)-1]
	q, ok := e.byID[last.QuestionID]
	if !ok {
		return complete()
	}
	return e.After(q, last.Answer)
}

// After computes the state that follows answering q with answer, where
// answer is the stored text of the answer.
func (e *Engine) After(q *models.PersistedQuestion, answer string) State {
	if q.Type == models.BranchingChoice && q.HasOption(answer) {
		if children := e.groups[groupKey{parentID: q.ID, option: answer}]; len(children) > 0 {
			return at(children[0])
		}
		if q.EndOf(answer) == models.BranchEndSurvey {
			return complete()
		}
	}
	return e.advance(q)
}

// advance moves past q: to its next sibling, or out of the branch that
// holds it, following the branch end policy of the option that led there.
func (e *Engine) advance(q *models.PersistedQuestion) State {
	// Each pop climbs one level, so a well-formed tree needs at most one
	// iteration per question; anything longer means the parent chain loops.
	for steps := 0; steps <= len(e.byID); steps++ {
		key := keyOf(q)
		siblings := e.groups[key]
		if idx, ok := e.position[q.ID]; ok && idx+1 < len(siblings) {
			return at(siblings[idx+1])
		}
		if key.parentID == "" {
			return complete()
		}
		parent, ok := e.byID[key.parentID]
		if !ok {
			return complete()
		}
		if parent.EndOf(key.option) == models.BranchEndSurvey {
			return complete()
		}
		q = parent
	}
	return complete()
}

// Replay walks history from the start and reports whether every answer was
// given to the question the engine would have presented at that point. The
// returned state is where the history leads; it is only meaningful when ok.
func (e *Engine) Replay(history []models.AnswerEntry) (state State, ok bool) {
	state = e.Start()
	for _, entry := range history {
		if state.Complete || state.Question.ID != entry.QuestionID {
			return state, false
		}
		state = e.After(state.Question, entry.Answer)
	}
	return state, true
}

// Path lists the question ids a respondent would see when answering each
// question with the answer picked by choose.
func (e *Engine) Path(choose func(q *models.PersistedQuestion) string) []string {
	var path []string
	state := e.Start()
	for i := 0; !state.Complete && i <= len(e.byID); i++ {
		path = append(path, state.Question.ID)
		state = e.After(state.Question, choose(state.Question))
	}
	return path
}
