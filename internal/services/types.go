package services

import (
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/survey-service/internal/analytics"
	"github.com/SAP-F-2025/survey-service/internal/codec"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/navigation"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/tree"
)

// ===== SURVEY DTOs =====

type CreateSurveyRequest struct {
	Title              string         `json:"title" validate:"required,min=1,max=200"`
	Description        *string        `json:"description" validate:"omitempty,max=2000"`
	TargetOptions      datatypes.JSON `json:"target_options"`
	ResponseTTLMinutes int            `json:"response_ttl_minutes" validate:"min=0,max=43200"`
}

type UpdateSurveyRequest struct {
	Title              *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Description        *string        `json:"description" validate:"omitempty,max=2000"`
	TargetOptions      datatypes.JSON `json:"target_options"`
	ResponseTTLMinutes *int           `json:"response_ttl_minutes" validate:"omitempty,min=0,max=43200"`
}

type SurveyListResponse struct {
	Surveys []*models.Survey `json:"surveys"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type SaveTreeRequest struct {
	Questions tree.Forest `json:"questions"`
}

type TreeResponse struct {
	SurveyID  string      `json:"survey_id"`
	Questions tree.Forest `json:"questions"`
	TotalCost int         `json:"total_cost"`
}

type CostResponse struct {
	SurveyID  string          `json:"survey_id"`
	TotalCost int             `json:"total_cost"`
	Breakdown []tree.CostLine `json:"breakdown"`
}

// ===== RESPONSE (INTAKE) DTOs =====

type StartResponse struct {
	ResponseID string           `json:"response_id"`
	SurveyID   string           `json:"survey_id"`
	SessionID  string           `json:"session_id"`
	State      navigation.State `json:"state"`
}

type SubmitAnswerRequest struct {
	ResponseID string      `json:"-"`
	SessionID  string      `json:"-"`
	QuestionID string      `json:"question_id" validate:"required"`
	Answer     codec.Value `json:"answer"`
}

type ProgressResponse struct {
	ResponseID string                `json:"response_id"`
	SurveyID   string                `json:"survey_id"`
	Status     models.ResponseStatus `json:"status"`
	Answered   int                   `json:"answered"`
	State      navigation.State      `json:"state"`
}

// ===== ANALYTICS DTOs =====

type SurveySummary struct {
	SurveyID    string                      `json:"survey_id"`
	Title       string                      `json:"title"`
	Responses   repositories.ResponseCounts `json:"responses"`
	Questions   []*analytics.Summary        `json:"questions"`
	GeneratedAt time.Time                   `json:"generated_at"`
}
