package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/survey-service/internal/middleware"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

const serviceName = "survey-service"

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerManager struct {
	surveyHandler    *SurveyHandler
	responseHandler  *ResponseHandler
	analyticsHandler *AnalyticsHandler

	requireUser    gin.HandlerFunc
	requireSession gin.HandlerFunc
	storage        Pinger
	logger         utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	storage Pinger,
	tokens middleware.TokenParser,
	authOptions middleware.AuthOptions,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		surveyHandler:    NewSurveyHandler(serviceManager.Survey(), logger),
		responseHandler:  NewResponseHandler(serviceManager.Response(), logger),
		analyticsHandler: NewAnalyticsHandler(serviceManager.Analytics(), serviceManager.Export(), logger),
		requireUser:      middleware.RequireUser(tokens, logger, authOptions),
		requireSession:   middleware.RequireSession(),
		storage:          storage,
		logger:           logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Authoring routes
		surveys := v1.Group("/surveys")
		{
			surveys.POST("", hm.requireUser, hm.surveyHandler.CreateSurvey)
			surveys.GET("", hm.requireUser, hm.surveyHandler.ListSurveys)
			surveys.GET("/:id", hm.requireUser, hm.surveyHandler.GetSurvey)
			surveys.PUT("/:id", hm.requireUser, hm.surveyHandler.UpdateSurvey)
			surveys.DELETE("/:id", hm.requireUser, hm.surveyHandler.DeleteSurvey)
			surveys.POST("/:id/publish", hm.requireUser, hm.surveyHandler.PublishSurvey)
			surveys.POST("/:id/close", hm.requireUser, hm.surveyHandler.CloseSurvey)

			// Question tree
			surveys.PUT("/:id/tree", hm.requireUser, hm.surveyHandler.SaveTree)
			surveys.GET("/:id/tree", hm.requireUser, hm.surveyHandler.GetTree)
			surveys.GET("/:id/cost", hm.requireUser, hm.surveyHandler.GetCost)

			// Analytics
			surveys.GET("/:id/analytics", hm.requireUser, hm.analyticsHandler.GetSurveySummary)
			surveys.GET("/:id/analytics/questions/:qid", hm.requireUser, hm.analyticsHandler.GetQuestionSummary)
			surveys.GET("/:id/export", hm.requireUser, hm.analyticsHandler.ExportResponses)

			// Respondents start without an account
			surveys.POST("/:id/responses", hm.responseHandler.StartResponse)
		}

		responses := v1.Group("/responses", hm.requireSession)
		{
			responses.GET("/:id/current", hm.responseHandler.GetCurrent)
			responses.POST("/:id/answers", hm.responseHandler.SubmitAnswer)
			responses.POST("/:id/abandon", hm.responseHandler.AbandonResponse)
		}
	}
}

// HealthCheck reports service status and storage reachability
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":  "healthy",
		"service": serviceName,
	}

	if hm.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := hm.storage.Ping(ctx); err != nil {
			hm.logger.Warn("Health check failed", "error", err)
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["storage"] = err.Error()
		}
	}

	c.JSON(status, body)
}
