package repositories

import (
	"crypto/subtle"
	"time"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
)

// GuardedUpdate is one respondent write to a response record.
type GuardedUpdate struct {
	ResponseID string
	SessionID  string
	Patch      models.ResponsePatch
	Now        time.Time

	// Expired reports whether the record is past its time limit. It runs
	// after the ownership and completion checks; nil means never.
	Expired func(record *models.ResponseRecord, now time.Time) bool
}

// Apply checks the preconditions in order (existence, session, completion,
// expiry, answer count) and, when they hold, applies the patch to record. On error record
// is left untouched. Storage implementations call it while holding the row.
func (u GuardedUpdate) Apply(record *models.ResponseRecord) error {
	if record == nil {
		return apperrors.ErrResponseNotFound
	}
	if subtle.ConstantTimeCompare([]byte(record.SessionID), []byte(u.SessionID)) != 1 {
		return apperrors.ErrSessionMismatch
	}
	if record.Status == models.ResponseCompleted {
		return apperrors.ErrAlreadyCompleted
	}
	if record.Status.IsTerminal() || (u.Expired != nil && u.Expired(record, u.Now)) {
		return apperrors.ErrResponseExpired
	}
	if expect := u.Patch.ExpectAnswered; expect != nil && len(record.Answers) != *expect {
		return apperrors.ErrAnswerOutOfTurn
	}

	if status := u.Patch.Status; status != nil {
		if !status.IsValid() {
			return apperrors.NewValidationErrorWithRule("status", "must be a valid response status", "response_status", *status)
		}
	}

	record.MergeAnswers(u.Patch.Answers)
	if status := u.Patch.Status; status != nil {
		record.Status = *status
		if *status == models.ResponseCompleted {
			completedAt := u.Now
			record.CompletedAt = &completedAt
		}
	}
	record.UpdatedAt = u.Now
	return nil
}
