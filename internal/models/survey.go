package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SurveyStatus string

const (
	SurveyDraft     SurveyStatus = "draft"
	SurveyPublished SurveyStatus = "published"
	SurveyClosed    SurveyStatus = "closed"
)

type Survey struct {
	ID          string       `json:"id" gorm:"primaryKey;size:36"`
	OwnerID     string       `json:"owner_id" gorm:"not null;size:64;index"`
	Title       string       `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Description *string      `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Status      SurveyStatus `json:"status" gorm:"not null;size:20;default:draft;index" validate:"omitempty,survey_status"`

	// TargetOptions is the audience targeting configuration, kept as an
	// opaque JSON object.
	TargetOptions datatypes.JSON `json:"target_options" gorm:"type:jsonb"`

	// ResponseTTLMinutes overrides the service-wide response expiry when > 0.
	ResponseTTLMinutes int `json:"response_ttl_minutes" gorm:"default:0" validate:"min=0,max=43200"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Computed fields (not stored)
	QuestionCount int `json:"question_count" gorm:"-"`
	TotalCost     int `json:"total_cost" gorm:"-"`
}

func (Survey) TableName() string {
	return "surveys"
}

func (s *Survey) ResponseTTL(fallback time.Duration) time.Duration {
	if s.ResponseTTLMinutes > 0 {
		return time.Duration(s.ResponseTTLMinutes) * time.Minute
	}
	return fallback
}
