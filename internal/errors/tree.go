package errors

import (
	"errors"
	"fmt"
)

const CodeMalformedTree = "MALFORMED_TREE"

// ErrMalformedTree matches every *TreeError through errors.Is.
var ErrMalformedTree = errors.New("malformed question tree")

// TreeError reports a structural defect in a question tree or its flat form.
type TreeError struct {
	Code       string `json:"code"`
	QuestionID string `json:"question_id,omitempty"`
	Reason     string `json:"reason"`
}

func (te *TreeError) Error() string {
	if te.QuestionID == "" {
		return fmt.Sprintf("%s: %s", te.Code, te.Reason)
	}
	return fmt.Sprintf("%s: question %s: %s", te.Code, te.QuestionID, te.Reason)
}

func (te *TreeError) Is(target error) bool {
	return target == ErrMalformedTree
}

// NewTreeError creates a MALFORMED_TREE error for the given question.
func NewTreeError(questionID, format string, args ...interface{}) *TreeError {
	return &TreeError{
		Code:       CodeMalformedTree,
		QuestionID: questionID,
		Reason:     fmt.Sprintf(format, args...),
	}
}
