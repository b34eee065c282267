package models

import (
	"time"

	"gorm.io/datatypes"
)

type ResponseStatus string

const (
	ResponseInProgress ResponseStatus = "in_progress"
	ResponseCompleted  ResponseStatus = "completed"
	ResponseAbandoned  ResponseStatus = "abandoned"
	ResponseExpired    ResponseStatus = "expired"
)

func (s ResponseStatus) IsValid() bool {
	switch s {
	case ResponseInProgress, ResponseCompleted, ResponseAbandoned, ResponseExpired:
		return true
	}
	return false
}

// IsTerminal reports whether the status no longer accepts writes.
func (s ResponseStatus) IsTerminal() bool {
	return s == ResponseCompleted || s == ResponseAbandoned || s == ResponseExpired
}

// AnswerEntry is one encoded answer. Answer holds the codec's canonical text.
type AnswerEntry struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type ResponseRecord struct {
	ID          string                           `json:"id" gorm:"primaryKey;size:36"`
	SurveyID    string                           `json:"survey_id" gorm:"not null;size:36;index:idx_survey_responses_status"`
	SessionID   string                           `json:"-" gorm:"not null;size:64"`
	Status      ResponseStatus                   `json:"status" gorm:"not null;size:20;default:in_progress;index:idx_survey_responses_status"`
	Answers     datatypes.JSONSlice[AnswerEntry] `json:"answers" gorm:"type:jsonb"`
	StartedAt   time.Time                        `json:"started_at" gorm:"not null;index"`
	CompletedAt *time.Time                       `json:"completed_at"`
	UpdatedAt   time.Time                        `json:"updated_at"`
}

func (ResponseRecord) TableName() string {
	return "survey_responses"
}

// AnswerFor returns the stored answer for a question, if any.
func (r *ResponseRecord) AnswerFor(questionID string) (string, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a.Answer, true
		}
	}
	return "", false
}

// MergeAnswers replaces entries for questions already answered and appends
// the rest, keeping one entry per question in first-answered order.
func (r *ResponseRecord) MergeAnswers(entries []AnswerEntry) {
	for _, entry := range entries {
		replaced := false
		for i := range r.Answers {
			if r.Answers[i].QuestionID == entry.QuestionID {
				r.Answers[i].Answer = entry.Answer
				replaced = true
				break
			}
		}
		if !replaced {
			r.Answers = append(r.Answers, entry)
		}
	}
}

// ResponsePatch is the only way a started response changes.
type ResponsePatch struct {
	Answers []AnswerEntry   `json:"answers"`
	Status  *ResponseStatus `json:"status,omitempty"`

	// ExpectAnswered, when set, is the number of answers the record held
	// when the answered question was chosen. Any other count means another
	// write got in first.
	ExpectAnswered *int `json:"-"`
}
