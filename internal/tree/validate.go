package tree

import (
	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
)

func errCycle(n *Node) error {
	return apperrors.NewTreeError(n.ID, "question reached twice; the tree contains a cycle or a shared subtree")
}

// Validate checks the structural rules the converter relies on. Content
// rules per question type live in the validator package.
func (f Forest) Validate() error {
	ids := make(map[string]bool)
	return f.Walk(func(n *Node, _ int, _ *Node, _ string) error {
		if n.ID != "" {
			if ids[n.ID] {
				return apperrors.NewTreeError(n.ID, "duplicate question id")
			}
			ids[n.ID] = true
		}
		if !n.Type.IsValid() {
			return apperrors.NewTreeError(n.ID, "unknown question type %q", n.Type)
		}

		labels := make(map[string]bool, len(n.Options))
		for _, opt := range n.Options {
			if labels[opt] {
				return apperrors.NewTreeError(n.ID, "duplicate option %q", opt)
			}
			labels[opt] = true
		}

		if n.Type != models.BranchingChoice {
			for opt, children := range n.Children {
				if len(children) > 0 {
					return apperrors.NewTreeError(n.ID, "follow-ups under %q on a %s question", opt, n.Type)
				}
			}
		}
		for opt := range n.Children {
			if !labels[opt] {
				return apperrors.NewTreeError(n.ID, "follow-ups keyed by unknown option %q", opt)
			}
		}
		for opt, end := range n.BranchEnd {
			if !labels[opt] {
				return apperrors.NewTreeError(n.ID, "branch end keyed by unknown option %q", opt)
			}
			if !end.IsValid() {
				return apperrors.NewTreeError(n.ID, "invalid branch end %q for option %q", end, opt)
			}
		}
		return nil
	})
}
