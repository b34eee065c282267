package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the survey lifecycle events the service emits
type EventType string

const (
	EventSurveyPublished   EventType = "survey.published"
	EventSurveyClosed      EventType = "survey.closed"
	EventResponseStarted   EventType = "response.started"
	EventResponseCompleted EventType = "response.completed"
	EventResponseAbandoned EventType = "response.abandoned"
	EventResponseExpired   EventType = "response.expired"
)

const (
	eventSource  = "survey-service"
	eventVersion = "1.0"
)

// SurveyEvent is the envelope for every published event
type SurveyEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewSurveyEvent stamps a payload with a fresh id and the current time.
func NewSurveyEvent(eventType EventType, data interface{}) *SurveyEvent {
	return &SurveyEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// Survey event payloads

type SurveyPublishedEvent struct {
	SurveyID      string    `json:"survey_id"`
	Title         string    `json:"title"`
	OwnerID       string    `json:"owner_id"`
	QuestionCount int       `json:"question_count"`
	TotalCost     int       `json:"total_cost"`
	PublishedAt   time.Time `json:"published_at"`
}

type SurveyClosedEvent struct {
	SurveyID string    `json:"survey_id"`
	OwnerID  string    `json:"owner_id"`
	ClosedAt time.Time `json:"closed_at"`
}

// Response event payloads

type ResponseStartedEvent struct {
	ResponseID string    `json:"response_id"`
	SurveyID   string    `json:"survey_id"`
	StartedAt  time.Time `json:"started_at"`
}

type ResponseCompletedEvent struct {
	ResponseID  string    `json:"response_id"`
	SurveyID    string    `json:"survey_id"`
	AnswerCount int       `json:"answer_count"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

type ResponseAbandonedEvent struct {
	ResponseID  string    `json:"response_id"`
	SurveyID    string    `json:"survey_id"`
	AnswerCount int       `json:"answer_count"`
	AbandonedAt time.Time `json:"abandoned_at"`
}

type ResponseExpiredEvent struct {
	ResponseID string    `json:"response_id"`
	SurveyID   string    `json:"survey_id"`
	StartedAt  time.Time `json:"started_at"`
	ExpiredAt  time.Time `json:"expired_at"`
}
