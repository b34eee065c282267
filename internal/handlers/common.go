package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/middleware"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := h.contextFields(c)
	fields = append(fields, additionalFields...)
	h.logger.Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := h.contextFields(c)
	fields = append(fields, additionalFields...)
	h.logger.LogError(err, message, fields...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := h.contextFields(c)
	fields = append(fields, additionalFields...)
	h.logger.Warn(message, fields...)
}

func (h *BaseHandler) contextFields(c *gin.Context) []interface{} {
	return []interface{}{
		"request_id", c.GetString("request_id"),
		"user_id", c.GetString(middleware.ContextUserID),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
}

// currentUser returns the authenticated author, answering 401 when absent.
func (h *BaseHandler) currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, code, message string, err error, details interface{}) {
	if statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "code", code)
	}
	c.JSON(statusCode, ErrorResponse{
		Message: message,
		Details: details,
		Code:    code,
	})
}

// handleServiceError maps service and guard errors onto HTTP statuses.
// Guard codes are passed through unchanged.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var treeErr *apperrors.TreeError
	if errors.As(err, &treeErr) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, treeErr.Code, "Malformed question tree", err, treeErr)
		return
	}

	var answerErr *services.InvalidAnswerError
	if errors.As(err, &answerErr) {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_ANSWER", "Invalid answer", err, map[string]interface{}{
			"question_id": answerErr.QuestionID,
			"field":       answerErr.Detail.Field,
			"reason":      answerErr.Detail.Message,
		})
		return
	}

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err, validationErrors)
		return
	}

	var guardErr *apperrors.GuardError
	if errors.As(err, &guardErr) {
		h.RespondWithError(c, guardStatus(guardErr.Code), string(guardErr.Code), guardErr.Error(), err, nil)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "FORBIDDEN", "Access denied", err, map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, "BUSINESS_RULE", businessRuleError.Message, err, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSurveyHasNoQuestions):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "NO_QUESTIONS", err.Error(), err, nil)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), err, nil)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), err, nil)
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), err, nil)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "CONFLICT", err.Error(), err, nil)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "INTERNAL", "Internal server error", err, nil)
	}
}

func guardStatus(code apperrors.GuardCode) int {
	switch code {
	case apperrors.CodeResponseNotFound:
		return http.StatusNotFound
	case apperrors.CodeSessionMismatch:
		return http.StatusForbidden
	case apperrors.CodeAlreadyCompleted, apperrors.CodeAnswerOutOfTurn:
		return http.StatusConflict
	case apperrors.CodeResponseExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
