package tree

import (
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
)

// Flatten converts the forest into storage rows in pre-order. Every row
// points at the node it was reached from and the option that led there;
// Order is one counter shared by the whole traversal. Local ids are replaced
// by persisted ids, and the new ids are written back into the forest.
func Flatten(forest Forest, surveyID string) ([]models.PersistedQuestion, error) {
	if err := forest.Validate(); err != nil {
		return nil, err
	}

	rows := make([]models.PersistedQuestion, 0, forest.Size())
	err := forest.Walk(func(n *Node, _ int, parent *Node, option string) error {
		if n.IsLocal() {
			n.ID = uuid.NewString()
		}

		row := models.PersistedQuestion{
			ID:       n.ID,
			SurveyID: surveyID,
			Text:     n.Text,
			Type:     n.Type,
			Options:  append([]string{}, n.Options...),
			Order:    len(rows),
		}
		if parent != nil {
			parentID := parent.ID
			opt := option
			row.ParentQuestionID = &parentID
			row.ParentBranchOption = &opt
		}
		if n.Type == models.BranchingChoice && len(n.BranchEnd) > 0 {
			policy := make(models.BranchPolicy, len(n.BranchEnd))
			for k, v := range n.BranchEnd {
				policy[k] = v
			}
			row.BranchEnd = datatypes.NewJSONType(policy)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type childKey struct {
	parentID string
	option   string
}

// Hydrate rebuilds the forest from storage rows. It either returns the whole
// forest or a MALFORMED_TREE error; it never returns part of a tree.
func Hydrate(rows []models.PersistedQuestion) (Forest, error) {
	byID := make(map[string]*models.PersistedQuestion, len(rows))
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			return nil, apperrors.NewTreeError("", "question row without id")
		}
		if _, dup := byID[row.ID]; dup {
			return nil, apperrors.NewTreeError(row.ID, "duplicate question id")
		}
		seen := make(map[string]bool, len(row.Options))
		for _, opt := range row.Options {
			if seen[opt] {
				return nil, apperrors.NewTreeError(row.ID, "duplicate option %q", opt)
			}
			seen[opt] = true
		}
		byID[row.ID] = row
	}

	var roots []*models.PersistedQuestion
	children := make(map[childKey][]*models.PersistedQuestion)
	for i := range rows {
		row := &rows[i]
		if !row.Type.IsValid() {
			return nil, apperrors.NewTreeError(row.ID, "unknown question type %q", row.Type)
		}
		if row.ParentQuestionID == nil {
			if row.ParentBranchOption != nil {
				return nil, apperrors.NewTreeError(row.ID, "parent option %q set without a parent question", *row.ParentBranchOption)
			}
			roots = append(roots, row)
			continue
		}
		if row.ParentBranchOption == nil {
			return nil, apperrors.NewTreeError(row.ID, "parent question %s set without a parent option", *row.ParentQuestionID)
		}
		parent, ok := byID[*row.ParentQuestionID]
		if !ok {
			return nil, apperrors.NewTreeError(row.ID, "parent question %s does not exist", *row.ParentQuestionID)
		}
		if parent.Type != models.BranchingChoice {
			return nil, apperrors.NewTreeError(row.ID, "parent question %s is %s, not %s", parent.ID, parent.Type, models.BranchingChoice)
		}
		if !parent.HasOption(*row.ParentBranchOption) {
			return nil, apperrors.NewTreeError(row.ID, "option %q not found on parent %s", *row.ParentBranchOption, parent.ID)
		}
		key := childKey{parentID: parent.ID, option: *row.ParentBranchOption}
		children[key] = append(children[key], row)
	}

	sortRows(roots)
	for _, group := range children {
		sortRows(group)
	}

	built := 0
	onPath := make(map[string]bool)
	var build func(row *models.PersistedQuestion) (*Node, error)
	build = func(row *models.PersistedQuestion) (*Node, error) {
		if onPath[row.ID] {
			return nil, apperrors.NewTreeError(row.ID, "cycle detected")
		}
		onPath[row.ID] = true
		defer delete(onPath, row.ID)

		n := &Node{
			ID:      row.ID,
			Text:    row.Text,
			Type:    row.Type,
			Options: append([]string{}, row.Options...),
		}
		if row.Type == models.BranchingChoice {
			n.Children = map[string][]*Node{}
			n.BranchEnd = models.BranchPolicy{}
			for opt, end := range row.BranchEnd.Data() {
				if !n.HasOption(opt) {
					return nil, apperrors.NewTreeError(row.ID, "branch end keyed by unknown option %q", opt)
				}
				n.BranchEnd[opt] = end
			}
			for _, opt := range n.Options {
				for _, childRow := range children[childKey{parentID: row.ID, option: opt}] {
					child, err := build(childRow)
					if err != nil {
						return nil, err
					}
					n.Children[opt] = append(n.Children[opt], child)
				}
			}
		}
		built++
		return n, nil
	}

	forest := make(Forest, 0, len(roots))
	for _, root := range roots {
		n, err := build(root)
		if err != nil {
			return nil, err
		}
		forest = append(forest, n)
	}

	// Every row has an existing parent, so rows that were never reached hang
	// off a parent chain that loops back on itself.
	if built != len(rows) {
		for i := range rows {
			if !reachable(&rows[i], byID) {
				return nil, apperrors.NewTreeError(rows[i].ID, "cycle detected")
			}
		}
		return nil, apperrors.NewTreeError("", "%d questions unreachable from any root", len(rows)-built)
	}

	forest.ApplyCosts()
	return forest, nil
}

// reachable follows parent pointers up to a root.
func reachable(row *models.PersistedQuestion, byID map[string]*models.PersistedQuestion) bool {
	seen := make(map[string]bool)
	for row.ParentQuestionID != nil {
		if seen[row.ID] {
			return false
		}
		seen[row.ID] = true
		row = byID[*row.ParentQuestionID]
	}
	return true
}

func sortRows(rows []*models.PersistedQuestion) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Order != rows[j].Order {
			return rows[i].Order < rows[j].Order
		}
		return rows[i].ID < rows[j].ID
	})
}
