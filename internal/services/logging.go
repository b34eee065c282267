package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service   string
	Component string
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// ===== OPERATION LOGGING =====

// classify maps an operation error to a log level and status label.
func classify(err error) (slog.Level, string) {
	var guardErr *apperrors.GuardError
	switch {
	case err == nil:
		return slog.LevelInfo, "success"
	case IsMalformedTree(err):
		return slog.LevelWarn, "malformed_tree"
	case IsValidation(err) || IsBusinessRule(err):
		return slog.LevelWarn, "validation_error"
	case errors.As(err, &guardErr):
		return slog.LevelWarn, "rejected"
	case IsUnauthorized(err):
		return slog.LevelWarn, "unauthorized"
	case IsNotFound(err):
		return slog.LevelInfo, "not_found"
	case IsConflict(err):
		return slog.LevelWarn, "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return slog.LevelWarn, "cancelled"
	default:
		return slog.LevelError, "error"
	}
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, actorID, resourceID, resourceType string, duration time.Duration, err error) {
	level, status := classify(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("actor_id", actorID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErrs ValidationErrors
		var businessErr *BusinessRuleError
		var permErr *PermissionError
		var guardErr *apperrors.GuardError
		var treeErr *apperrors.TreeError
		switch {
		case errors.As(err, &validationErrs):
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErrs)))
		case errors.As(err, &businessErr):
			attrs = append(attrs, slog.String("business_rule", businessErr.Rule))
		case errors.As(err, &permErr):
			attrs = append(attrs, slog.String("permission_action", permErr.Action))
		case errors.As(err, &guardErr):
			attrs = append(attrs, slog.String("guard_code", string(guardErr.Code)))
		case errors.As(err, &treeErr):
			attrs = append(attrs, slog.String("tree_question_id", treeErr.QuestionID))
		}
	}

	if requestID, ok := ctx.Value("request_id").(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation, actorID string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("actor_id", actorID),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i < 5 { // Limit to first 5 errors to avoid log spam
			attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
				slog.String("field", err.Field),
				slog.String("message", err.Message),
				slog.Any("value", err.Value),
			))
		}
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

func (l *ServiceLogger) LogPermissionDenied(ctx context.Context, operation string, permError *PermissionError) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, "Permission denied",
		slog.String("operation", operation),
		slog.String("actor_id", permError.UserID),
		slog.String("resource_id", permError.ResourceID),
		slog.String("resource_type", permError.Resource),
		slog.String("action", permError.Action),
		slog.String("reason", permError.Reason),
	)
}

// ===== MIDDLEWARE AND HELPERS =====

// ContextualLogger wraps operations with automatic logging
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	actorID   string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, actorID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		actorID:   actorID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.actorID, resourceID, resourceType, time.Since(cl.startTime), err)

	var validationErrs ValidationErrors
	var permErr *PermissionError
	if errors.As(err, &validationErrs) {
		cl.logger.LogValidationError(cl.ctx, cl.operation, cl.actorID, validationErrs)
	} else if errors.As(err, &permErr) {
		cl.logger.LogPermissionDenied(cl.ctx, cl.operation, permErr)
	}
}

// ===== ERROR FORMATTING HELPERS =====

func FormatError(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	result := map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}

	var validationErrs ValidationErrors
	var businessErr *BusinessRuleError
	var permErr *PermissionError
	var guardErr *apperrors.GuardError
	var treeErr *apperrors.TreeError
	var answerErr *InvalidAnswerError

	switch {
	case errors.As(err, &validationErrs):
		result["type"] = "validation"
		result["count"] = len(validationErrs)
		fields := make([]map[string]interface{}, len(validationErrs))
		for i, validationErr := range validationErrs {
			fields[i] = map[string]interface{}{
				"field":   validationErr.Field,
				"message": validationErr.Message,
				"value":   validationErr.Value,
			}
		}
		result["errors"] = fields

	case errors.As(err, &answerErr):
		result["type"] = "invalid_answer"
		result["question_id"] = answerErr.QuestionID
		result["field"] = answerErr.Detail.Field

	case errors.As(err, &treeErr):
		result["type"] = "malformed_tree"
		result["code"] = treeErr.Code
		result["question_id"] = treeErr.QuestionID
		result["reason"] = treeErr.Reason

	case errors.As(err, &guardErr):
		result["type"] = "guard"
		result["code"] = string(guardErr.Code)

	case errors.As(err, &businessErr):
		result["type"] = "business_rule"
		result["rule"] = businessErr.Rule
		result["context"] = businessErr.Context

	case errors.As(err, &permErr):
		result["type"] = "permission"
		result["resource_id"] = permErr.ResourceID
		result["resource"] = permErr.Resource
		result["action"] = permErr.Action

	default:
		if IsNotFound(err) {
			result["type"] = "not_found"
		} else if IsUnauthorized(err) {
			result["type"] = "unauthorized"
		} else if IsConflict(err) {
			result["type"] = "conflict"
		}
	}

	return result
}
