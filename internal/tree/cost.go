package tree

import (
	"github.com/SAP-F-2025/survey-service/internal/models"
)

const (
	DefaultBaseCost = 10

	// Questions below the top level cost 70% of their base, rounded half up.
	nestedCostNumerator   = 7
	nestedCostDenominator = 10
)

var baseCosts = map[models.QuestionType]int{
	models.BranchingChoice: 15,
	models.ImageChoice:     37,
}

func BaseCost(questionType models.QuestionType) int {
	if cost, ok := baseCosts[questionType]; ok {
		return cost
	}
	return DefaultBaseCost
}

// CostAt is the displayed cost of a question at the given depth. The
// discount is flat: depth 1 and depth 5 cost the same.
func CostAt(questionType models.QuestionType, depth int) int {
	base := BaseCost(questionType)
	if depth == 0 {
		return base
	}
	return (base*nestedCostNumerator + nestedCostDenominator/2) / nestedCostDenominator
}

// TotalCost charges for every question defined below n, on every branch,
// treating n as a top-level question.
func TotalCost(n *Node) int {
	return totalCost(n, 0)
}

func totalCost(n *Node, depth int) int {
	if n == nil {
		return 0
	}
	total := CostAt(n.Type, depth)
	for _, opt := range n.Options {
		for _, child := range n.Children[opt] {
			total += totalCost(child, depth+1)
		}
	}
	return total
}

// TotalCost sums the cost of every question in the forest.
func (f Forest) TotalCost() int {
	total := 0
	for _, root := range f {
		total += TotalCost(root)
	}
	return total
}

// ApplyCosts stores the depth-adjusted cost on every node.
func (f Forest) ApplyCosts() {
	_ = f.Walk(func(n *Node, depth int, _ *Node, _ string) error {
		n.Cost = CostAt(n.Type, depth)
		return nil
	})
}

// CostLine is one row of a cost breakdown.
type CostLine struct {
	QuestionID string              `json:"question_id"`
	Text       string              `json:"text"`
	Type       models.QuestionType `json:"type"`
	Depth      int                 `json:"depth"`
	Cost       int                 `json:"cost"`
}

// Breakdown lists the cost of each question in traversal order.
func (f Forest) Breakdown() []CostLine {
	var lines []CostLine
	_ = f.Walk(func(n *Node, depth int, _ *Node, _ string) error {
		lines = append(lines, CostLine{
			QuestionID: n.ID,
			Text:       n.Text,
			Type:       n.Type,
			Depth:      depth,
			Cost:       CostAt(n.Type, depth),
		})
		return nil
	})
	return lines
}
