package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// Validator is the main validator instance that combines struct tags and
// question tree content rules
type Validator struct {
	structValidator *validator.Validate
	treeValidator   *TreeValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		treeValidator:   NewTreeValidator(structValidator),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates struct tags and converts failures to ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Tree returns the question tree validator
func (v *Validator) Tree() *TreeValidator {
	return v.treeValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("branch_end", validateBranchEnd)
	validate.RegisterValidation("survey_status", validateSurveyStatus)
	validate.RegisterValidation("response_status", validateResponseStatus)
	validate.RegisterValidation("option_label", validateOptionLabel)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).IsValid()
}

func validateBranchEnd(fl validator.FieldLevel) bool {
	return models.BranchEnd(fl.Field().String()).IsValid()
}

func validateSurveyStatus(fl validator.FieldLevel) bool {
	switch models.SurveyStatus(fl.Field().String()) {
	case models.SurveyDraft, models.SurveyPublished, models.SurveyClosed:
		return true
	}
	return false
}

func validateResponseStatus(fl validator.FieldLevel) bool {
	return models.ResponseStatus(fl.Field().String()).IsValid()
}

func validateOptionLabel(fl validator.FieldLevel) bool {
	label := fl.Field().String()
	return strings.TrimSpace(label) != "" && !strings.Contains(label, ", ")
}
