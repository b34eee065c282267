package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ===== SHARED FILTER STRUCTS =====

type SurveyFilters struct {
	OwnerID   string               `json:"owner_id"`
	Status    *models.SurveyStatus `json:"status"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "title", "updated_at"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type StaleResponseFilters struct {
	StartedBefore time.Time `json:"started_before"`
	Limit         int       `json:"limit"`

	// After resumes a listing past the last record of the previous page.
	// Results are ordered by (StartedAt, ID).
	After *StaleCursor `json:"after,omitempty"`
}

type StaleCursor struct {
	StartedAt time.Time `json:"started_at"`
	ID        string    `json:"id"`
}

// Past reports whether r sorts after the cursor.
func (c *StaleCursor) Past(r *models.ResponseRecord) bool {
	if c == nil {
		return true
	}
	if !r.StartedAt.Equal(c.StartedAt) {
		return r.StartedAt.After(c.StartedAt)
	}
	return r.ID > c.ID
}

// ===== SHARED STATISTICS STRUCTS =====

type ResponseCounts struct {
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Abandoned  int64 `json:"abandoned"`
	Expired    int64 `json:"expired"`
}

func (c ResponseCounts) Total() int64 {
	return c.InProgress + c.Completed + c.Abandoned + c.Expired
}

// Repository groups the per-entity repositories behind one storage backend.
type Repository interface {
	Survey() SurveyRepository
	Question() QuestionRepository
	Response() ResponseRepository

	// WithTransaction runs fn against repositories bound to one transaction.
	// An error from fn rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}
