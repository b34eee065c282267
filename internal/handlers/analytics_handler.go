package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsHandler struct {
	BaseHandler
	analyticsService services.AnalyticsService
	exportService    services.ExportService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService, exportService services.ExportService, logger utils.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      NewBaseHandler(logger),
		analyticsService: analyticsService,
		exportService:    exportService,
	}
}

// GetSurveySummary returns statistics for every question of a survey
// @Summary Survey analytics
// @Tags analytics
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} services.SurveySummary
// @Router /surveys/{id}/analytics [get]
func (h *AnalyticsHandler) GetSurveySummary(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	summary, err := h.analyticsService.SurveySummary(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetQuestionSummary returns statistics for one question
// @Summary Question analytics
// @Tags analytics
// @Produce json
// @Param id path string true "Survey ID"
// @Param qid path string true "Question ID"
// @Success 200 {object} analytics.Summary
// @Router /surveys/{id}/analytics/questions/{qid} [get]
func (h *AnalyticsHandler) GetQuestionSummary(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	questionID := ParseStringIDParam(c, "qid")
	if questionID == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	summary, err := h.analyticsService.QuestionSummary(c.Request.Context(), id, questionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportResponses downloads completed responses as an Excel workbook
// @Summary Export responses
// @Tags analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Survey ID"
// @Success 200 {file} file
// @Router /surveys/{id}/export [get]
func (h *AnalyticsHandler) ExportResponses(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportResponses(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=survey-%s-responses.xlsx", id))
	c.Data(http.StatusOK, xlsxContentType, data)
}
