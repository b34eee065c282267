// Package tree holds the authoring-time question tree of a survey, its cost
// model, and the conversion to and from the flat rows kept in storage.
package tree

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
)

// LocalIDPrefix marks ids that were generated while authoring and have not
// been saved yet.
const LocalIDPrefix = "local-"

// Node is one question of the authoring tree. Children and BranchEnd are
// keyed by option label and only carry meaning on branching_choice nodes.
type Node struct {
	ID        string              `json:"id"`
	Text      string              `json:"text" validate:"required,max=2000"`
	Type      models.QuestionType `json:"type" validate:"required,question_type"`
	Options   []string            `json:"options"`
	Children  map[string][]*Node  `json:"children,omitempty"`
	BranchEnd models.BranchPolicy `json:"branch_end,omitempty"`
	Cost      int                 `json:"cost"`
}

// Forest is the ordered list of top-level questions of a survey.
type Forest []*Node

// NewNode creates a node with a fresh local id.
func NewNode(questionType models.QuestionType, text string, options ...string) *Node {
	n := &Node{
		ID:      LocalIDPrefix + uuid.NewString(),
		Text:    text,
		Type:    questionType,
		Options: append([]string(nil), options...),
	}
	if questionType == models.BranchingChoice {
		n.Children = map[string][]*Node{}
		n.BranchEnd = models.BranchPolicy{}
	}
	return n
}

func (n *Node) IsLocal() bool {
	return n.ID == "" || strings.HasPrefix(n.ID, LocalIDPrefix)
}

func (n *Node) HasOption(label string) bool {
	return n.optionIndex(label) >= 0
}

func (n *Node) optionIndex(label string) int {
	for i, o := range n.Options {
		if o == label {
			return i
		}
	}
	return -1
}

// AddOption appends an option label.
func (n *Node) AddOption(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("option label cannot be empty")
	}
	if n.HasOption(label) {
		return fmt.Errorf("option %q already exists", label)
	}
	n.Options = append(n.Options, label)
	return nil
}

// RenameOption changes an option label and moves its subtree and branch
// policy to the new key in the same step.
func (n *Node) RenameOption(oldLabel, newLabel string) error {
	idx := n.optionIndex(oldLabel)
	if idx < 0 {
		return fmt.Errorf("option %q not found", oldLabel)
	}
	if oldLabel == newLabel {
		return nil
	}
	if strings.TrimSpace(newLabel) == "" {
		return fmt.Errorf("option label cannot be empty")
	}
	if n.HasOption(newLabel) {
		return fmt.Errorf("option %q already exists", newLabel)
	}

	n.Options[idx] = newLabel
	if children, ok := n.Children[oldLabel]; ok {
		delete(n.Children, oldLabel)
		n.Children[newLabel] = children
	}
	if end, ok := n.BranchEnd[oldLabel]; ok {
		delete(n.BranchEnd, oldLabel)
		n.BranchEnd[newLabel] = end
	}
	return nil
}

// RemoveOption drops an option together with its subtree and policy.
func (n *Node) RemoveOption(label string) error {
	idx := n.optionIndex(label)
	if idx < 0 {
		return fmt.Errorf("option %q not found", label)
	}
	n.Options = append(n.Options[:idx], n.Options[idx+1:]...)
	delete(n.Children, label)
	delete(n.BranchEnd, label)
	return nil
}

// AddChild appends a follow-up question under one option of a branching node.
func (n *Node) AddChild(option string, child *Node) error {
	if n.Type != models.BranchingChoice {
		return fmt.Errorf("only %s questions can have follow-ups", models.BranchingChoice)
	}
	if !n.HasOption(option) {
		return fmt.Errorf("option %q not found", option)
	}
	if child == nil {
		return fmt.Errorf("child question cannot be nil")
	}
	if n.Children == nil {
		n.Children = map[string][]*Node{}
	}
	n.Children[option] = append(n.Children[option], child)
	return nil
}

func (n *Node) SetBranchEnd(option string, end models.BranchEnd) error {
	if !n.HasOption(option) {
		return fmt.Errorf("option %q not found", option)
	}
	if !end.IsValid() {
		return fmt.Errorf("invalid branch end %q", end)
	}
	if n.BranchEnd == nil {
		n.BranchEnd = models.BranchPolicy{}
	}
	n.BranchEnd[option] = end
	return nil
}

// VisitFunc is called for every node in pre-order. parent is nil and
// option empty for top-level questions.
type VisitFunc func(n *Node, depth int, parent *Node, option string) error

// Walk visits the forest depth-first in author order: roots in slice order,
// then for each node its options in option order and each option's
// children in list order. It refuses to revisit a node.
func (f Forest) Walk(visit VisitFunc) error {
	seen := make(map[*Node]bool)
	for _, root := range f {
		if err := walk(root, 0, nil, "", seen, visit); err != nil {
			return err
		}
	}
	return nil
}

func walk(n *Node, depth int, parent *Node, option string, seen map[*Node]bool, visit VisitFunc) error {
	if n == nil {
		parentID := ""
		if parent != nil {
			parentID = parent.ID
		}
		return apperrors.NewTreeError(parentID, "empty follow-up under option %q", option)
	}
	if seen[n] {
		return errCycle(n)
	}
	seen[n] = true

	if err := visit(n, depth, parent, option); err != nil {
		return err
	}
	for _, opt := range n.Options {
		for _, child := range n.Children[opt] {
			if err := walk(child, depth+1, n, opt, seen, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find returns the node with the given id.
func (f Forest) Find(id string) *Node {
	var found *Node
	_ = f.Walk(func(n *Node, _ int, _ *Node, _ string) error {
		if found == nil && n.ID == id {
			found = n
		}
		return nil
	})
	return found
}

// Size counts every node of the forest.
func (f Forest) Size() int {
	count := 0
	_ = f.Walk(func(*Node, int, *Node, string) error {
		count++
		return nil
	})
	return count
}
