package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/survey-service/internal/codec"
	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/tree"
)

const (
	MinChoiceOptions = 2
	MaxOptions       = 20
	MaxQuestions     = 200
)

// TreeValidator checks the authoring content rules of a question tree:
// text, option counts and label shapes per question type. Structural
// checks (cycles, unknown option keys) belong to tree.Validate.
type TreeValidator struct {
	validate *validator.Validate
}

func NewTreeValidator(validate *validator.Validate) *TreeValidator {
	return &TreeValidator{validate: validate}
}

// ValidateForest returns every content violation found, or nil.
func (v *TreeValidator) ValidateForest(forest tree.Forest) ValidationErrors {
	var errs ValidationErrors

	if size := forest.Size(); size > MaxQuestions {
		errs = append(errs, *apperrors.NewValidationErrorWithRule("questions",
			fmt.Sprintf("must have at most %d questions", MaxQuestions), "max", size))
	}

	_ = forest.Walk(func(n *tree.Node, _ int, _ *tree.Node, _ string) error {
		errs = append(errs, v.ValidateNode(n)...)
		return nil
	})
	return errs
}

// ValidateNode checks one question without looking at its follow-ups.
func (v *TreeValidator) ValidateNode(n *tree.Node) ValidationErrors {
	prefix := fmt.Sprintf("questions[%s]", n.ID)
	var errs ValidationErrors

	if err := v.validate.Struct(n); err != nil {
		for _, fe := range ToValidationErrors(err) {
			fe.Field = prefix + "." + fe.Field
			errs = append(errs, fe)
		}
	}
	if strings.TrimSpace(n.Text) == "" && len(errs) == 0 {
		errs = append(errs, *apperrors.NewValidationErrorWithRule(prefix+".text", "is required", "required", n.Text))
	}

	field := prefix + ".options"
	fail := func(message, rule string, value interface{}) {
		errs = append(errs, *apperrors.NewValidationErrorWithRule(field, message, rule, value))
	}

	if len(n.Options) > MaxOptions {
		fail(fmt.Sprintf("must have at most %d options", MaxOptions), "max", len(n.Options))
	}
	for _, opt := range n.Options {
		if strings.TrimSpace(opt) == "" {
			fail("must not contain empty labels", "required", opt)
			break
		}
	}

	switch n.Type {
	case models.MultipleChoice, models.BranchingChoice, models.Ranking:
		if len(n.Options) < MinChoiceOptions {
			fail(fmt.Sprintf("must have at least %d options", MinChoiceOptions), "min", len(n.Options))
		}

	case models.MultipleSelect:
		if len(n.Options) < MinChoiceOptions {
			fail(fmt.Sprintf("must have at least %d options", MinChoiceOptions), "min", len(n.Options))
		}
		for _, opt := range n.Options {
			if err := v.validate.Var(opt, "option_label"); err != nil {
				fail(fmt.Sprintf("label %q must not contain %q", opt, codec.SelectDelimiter), "option_label", opt)
			}
		}

	case models.ChoiceWithOther:
		if len(n.Options) < MinChoiceOptions {
			fail(fmt.Sprintf("must have at least %d options", MinChoiceOptions), "min", len(n.Options))
			break
		}
		other := n.Options[len(n.Options)-1]
		for _, opt := range n.Options[:len(n.Options)-1] {
			if strings.HasPrefix(opt, other+codec.OtherSeparator) {
				fail(fmt.Sprintf("label %q is ambiguous with the other option %q", opt, other), "option_label", opt)
			}
		}

	case models.ShortAnswer, models.NumericRating, models.LikertScale:
		if len(n.Options) > 0 {
			fail(fmt.Sprintf("must be empty for %s questions", n.Type), "len", len(n.Options))
		}

	case models.ImageChoice:
		if len(n.Options) < MinChoiceOptions {
			fail(fmt.Sprintf("must have at least %d image URLs", MinChoiceOptions), "min", len(n.Options))
		}
		errs = append(errs, v.validateURLs(field, n.Options)...)

	case models.ImageBanner:
		if len(n.Options) != 1 {
			fail("must hold exactly one image URL", "len", len(n.Options))
		}
		errs = append(errs, v.validateURLs(field, n.Options)...)
	}

	for opt, end := range n.BranchEnd {
		if err := v.validate.Var(string(end), "branch_end"); err != nil {
			errs = append(errs, *apperrors.NewValidationErrorWithRule(prefix+".branch_end."+opt, "must be end_survey or continue", "branch_end", end))
		}
	}

	return errs
}

func (v *TreeValidator) validateURLs(field string, urls []string) ValidationErrors {
	var errs ValidationErrors
	for _, u := range urls {
		if err := v.validate.Var(u, "required,url"); err != nil {
			errs = append(errs, *apperrors.NewValidationErrorWithRule(field, fmt.Sprintf("%q must be a valid URL", u), "url", u))
		}
	}
	return errs
}
