package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Survey specific errors
	ErrSurveyNotFound       = errors.New("survey not found")
	ErrSurveyAccessDenied   = errors.New("access denied to survey")
	ErrSurveyNotPublished   = errors.New("survey is not published")
	ErrSurveyInvalidStatus  = errors.New("invalid survey status transition")
	ErrSurveyHasResponses   = errors.New("survey questions cannot change - completed responses exist")
	ErrSurveyHasNoQuestions = errors.New("survey has no questions")
	ErrSurveyNotEditable    = errors.New("survey cannot be edited in current status")

	// Question specific errors
	ErrQuestionNotFound    = errors.New("question not found")
	ErrQuestionNotExpected = errors.New("question is not the one currently presented")

	// Response specific errors
	ErrInvalidAnswer = errors.New("invalid answer")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// Is lets errors.Is(err, ErrSurveyAccessDenied) match survey permission errors.
func (pe *PermissionError) Is(target error) bool {
	return target == ErrForbidden || (pe.Resource == "survey" && target == ErrSurveyAccessDenied)
}

// InvalidAnswerError carries the codec's field detail for a rejected answer.
type InvalidAnswerError struct {
	QuestionID string
	Detail     *ValidationError
}

func (e *InvalidAnswerError) Error() string {
	return fmt.Sprintf("invalid answer for question %s: %s %s", e.QuestionID, e.Detail.Field, e.Detail.Message)
}

func (e *InvalidAnswerError) Is(target error) bool {
	return target == ErrInvalidAnswer
}

func (e *InvalidAnswerError) Unwrap() error {
	return e.Detail
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSurveyNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, apperrors.ErrResponseNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrSurveyAccessDenied) ||
		errors.Is(err, apperrors.ErrSessionMismatch)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrInvalidAnswer) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsMalformedTree checks if error reports a structural tree defect
func IsMalformedTree(err error) bool {
	return errors.Is(err, apperrors.ErrMalformedTree)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSurveyHasResponses) ||
		errors.Is(err, ErrSurveyInvalidStatus) ||
		errors.Is(err, ErrSurveyNotPublished) ||
		errors.Is(err, ErrSurveyNotEditable) ||
		errors.Is(err, ErrQuestionNotExpected) ||
		errors.Is(err, apperrors.ErrAlreadyCompleted) ||
		errors.Is(err, apperrors.ErrAnswerOutOfTurn)
}

// IsGone checks if the target no longer accepts writes
func IsGone(err error) bool {
	return errors.Is(err, apperrors.ErrResponseExpired)
}
