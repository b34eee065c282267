package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice  QuestionType = "multiple_choice"
	MultipleSelect  QuestionType = "multiple_select"
	Ranking         QuestionType = "ranking"
	BranchingChoice QuestionType = "branching_choice"
	ShortAnswer     QuestionType = "short_answer"
	NumericRating   QuestionType = "numeric_rating"
	LikertScale     QuestionType = "likert_scale"
	ImageChoice     QuestionType = "image_choice"
	ImageBanner     QuestionType = "image_banner"
	ChoiceWithOther QuestionType = "choice_with_other"
)

// QuestionTypes lists every supported type in display order.
var QuestionTypes = []QuestionType{
	MultipleChoice,
	MultipleSelect,
	Ranking,
	BranchingChoice,
	ShortAnswer,
	NumericRating,
	LikertScale,
	ImageChoice,
	ImageBanner,
	ChoiceWithOther,
}

func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// BranchEnd decides what happens when a branch option has no follow-up
// questions left.
type BranchEnd string

const (
	BranchEndSurvey   BranchEnd = "end_survey"
	BranchEndContinue BranchEnd = "continue"
)

func (b BranchEnd) IsValid() bool {
	return b == BranchEndSurvey || b == BranchEndContinue
}

// BranchPolicy maps an option label to its end-of-branch behavior.
// Options without an entry continue.
type BranchPolicy map[string]BranchEnd

func (p BranchPolicy) For(option string) BranchEnd {
	if end, ok := p[option]; ok && end.IsValid() {
		return end
	}
	return BranchEndContinue
}

// PersistedQuestion is the flat storage form of one node of a survey's
// question tree. Children point at their parent through ParentQuestionID
// and the parent option that leads to them.
type PersistedQuestion struct {
	ID                 string                           `json:"id" gorm:"primaryKey;size:36"`
	SurveyID           string                           `json:"survey_id" gorm:"not null;size:36;index:idx_survey_questions_order"`
	Text               string                           `json:"text" gorm:"not null;type:text"`
	Type               QuestionType                     `json:"type" gorm:"not null;size:32"`
	Options            datatypes.JSONSlice[string]      `json:"options" gorm:"type:jsonb"`
	Order              int                              `json:"order" gorm:"not null;index:idx_survey_questions_order"`
	ParentQuestionID   *string                          `json:"parent_question_id" gorm:"size:36;index"`
	ParentBranchOption *string                          `json:"parent_branch_option" gorm:"type:text"`
	BranchEnd          datatypes.JSONType[BranchPolicy] `json:"branch_end" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PersistedQuestion) TableName() string {
	return "survey_questions"
}

func (q *PersistedQuestion) IsRoot() bool {
	return q.ParentQuestionID == nil
}

// EndOf reports what answering option does once its branch runs out.
func (q *PersistedQuestion) EndOf(option string) BranchEnd {
	return q.BranchEnd.Data().For(option)
}

func (q *PersistedQuestion) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// LastOption returns the trailing option, which choice_with_other treats
// as the "other" slot.
func (q *PersistedQuestion) LastOption() (string, bool) {
	if len(q.Options) == 0 {
		return "", false
	}
	return q.Options[len(q.Options)-1], true
}
