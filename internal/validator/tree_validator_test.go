package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/tree"
)

func rules(errs ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Rule)
	}
	return out
}

func TestValidateNode(t *testing.T) {
	v := New().Tree()

	tests := []struct {
		name  string
		node  *tree.Node
		rules []string
	}{
		{
			name: "valid multiple choice",
			node: tree.NewNode(models.MultipleChoice, "Pick one", "A", "B"),
		},
		{
			name:  "missing text",
			node:  tree.NewNode(models.MultipleChoice, "", "A", "B"),
			rules: []string{"required"},
		},
		{
			name:  "blank text",
			node:  tree.NewNode(models.ShortAnswer, "   "),
			rules: []string{"required"},
		},
		{
			name:  "unknown type",
			node:  &tree.Node{ID: "q", Text: "x", Type: "essay"},
			rules: []string{"question_type"},
		},
		{
			name:  "too few choice options",
			node:  tree.NewNode(models.BranchingChoice, "Go?", "Yes"),
			rules: []string{"min"},
		},
		{
			name:  "empty option label",
			node:  tree.NewNode(models.Ranking, "Rank", "A", " "),
			rules: []string{"required"},
		},
		{
			name:  "select label with delimiter",
			node:  tree.NewNode(models.MultipleSelect, "Pick", "Salt, pepper", "Oil"),
			rules: []string{"option_label"},
		},
		{
			name:  "other label ambiguity",
			node:  tree.NewNode(models.ChoiceWithOther, "Contact", "Other: email", "Other"),
			rules: []string{"option_label"},
		},
		{
			name:  "rating with options",
			node:  tree.NewNode(models.NumericRating, "Rate", "1"),
			rules: []string{"len"},
		},
		{
			name: "valid image choice",
			node: tree.NewNode(models.ImageChoice, "Which?", "https://cdn.example.com/a.png", "https://cdn.example.com/b.png"),
		},
		{
			name:  "image choice with bad url",
			node:  tree.NewNode(models.ImageChoice, "Which?", "https://cdn.example.com/a.png", "b.png"),
			rules: []string{"url"},
		},
		{
			name:  "banner needs exactly one image",
			node:  tree.NewNode(models.ImageBanner, "Welcome"),
			rules: []string{"len"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateNode(tt.node)
			if len(tt.rules) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.rules, rules(errs))
		})
	}
}

func TestValidateNode_BadBranchEnd(t *testing.T) {
	n := tree.NewNode(models.BranchingChoice, "Go?", "Yes", "No")
	n.BranchEnd["No"] = "stop"

	errs := New().Tree().ValidateNode(n)
	require.Len(t, errs, 1)
	assert.Equal(t, "branch_end", errs[0].Rule)
	assert.Contains(t, errs[0].Field, ".branch_end.No")
}

func TestValidateForest_VisitsFollowUps(t *testing.T) {
	root := tree.NewNode(models.BranchingChoice, "Go?", "Yes", "No")
	bad := tree.NewNode(models.LikertScale, "")
	require.NoError(t, root.AddChild("Yes", bad))

	errs := New().Tree().ValidateForest(tree.Forest{root, tree.NewNode(models.ShortAnswer, "Why?")})

	require.Len(t, errs, 1)
	assert.Equal(t, "questions["+bad.ID+"].text", errs[0].Field)
}

func TestValidator_ValidateReturnsValidationErrors(t *testing.T) {
	type request struct {
		Status string `json:"status" validate:"required,survey_status"`
	}

	err := New().Validate(request{Status: "archived"})

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "status", errs[0].Field)
	assert.Equal(t, "survey_status", errs[0].Rule)
	assert.NoError(t, New().Validate(request{Status: "published"}))
}
