package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

type SurveyHandler struct {
	BaseHandler
	surveyService services.SurveyService
}

func NewSurveyHandler(surveyService services.SurveyService, logger utils.Logger) *SurveyHandler {
	return &SurveyHandler{
		BaseHandler:   NewBaseHandler(logger),
		surveyService: surveyService,
	}
}

// CreateSurvey creates a draft survey owned by the caller
// @Summary Create survey
// @Tags surveys
// @Accept json
// @Produce json
// @Param survey body services.CreateSurveyRequest true "Survey data"
// @Success 201 {object} models.Survey
// @Failure 400 {object} ErrorResponse
// @Router /surveys [post]
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	survey, err := h.surveyService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, survey)
}

// ListSurveys lists the caller's surveys
// @Summary List surveys
// @Tags surveys
// @Produce json
// @Param status query string false "draft, published or closed"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.SurveyListResponse
// @Router /surveys [get]
func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := repositories.SurveyFilters{
		OwnerID:   userID,
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		surveyStatus := models.SurveyStatus(status)
		filters.Status = &surveyStatus
	}

	list, err := h.surveyService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetSurvey retrieves a survey with its question count and total cost
// @Summary Get survey
// @Tags surveys
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} models.Survey
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{id} [get]
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	survey, err := h.surveyService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// UpdateSurvey changes survey metadata
// @Summary Update survey
// @Tags surveys
// @Accept json
// @Produce json
// @Param id path string true "Survey ID"
// @Param survey body services.UpdateSurveyRequest true "Survey update data"
// @Success 200 {object} models.Survey
// @Router /surveys/{id} [put]
func (h *SurveyHandler) UpdateSurvey(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	survey, err := h.surveyService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// DeleteSurvey removes a survey without completed responses
// @Summary Delete survey
// @Tags surveys
// @Param id path string true "Survey ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /surveys/{id} [delete]
func (h *SurveyHandler) DeleteSurvey(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.surveyService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PublishSurvey opens a draft survey for responses
// @Summary Publish survey
// @Tags surveys
// @Param id path string true "Survey ID"
// @Success 200 {object} models.Survey
// @Failure 409 {object} ErrorResponse
// @Router /surveys/{id}/publish [post]
func (h *SurveyHandler) PublishSurvey(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Publishing survey", "survey_id", id)
	survey, err := h.surveyService.Publish(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// CloseSurvey stops a published survey from taking new responses
// @Summary Close survey
// @Tags surveys
// @Param id path string true "Survey ID"
// @Success 200 {object} models.Survey
// @Router /surveys/{id}/close [post]
func (h *SurveyHandler) CloseSurvey(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Closing survey", "survey_id", id)
	survey, err := h.surveyService.Close(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// ===== QUESTION TREE =====

// SaveTree replaces the survey's question tree
// @Summary Save question tree
// @Tags surveys
// @Accept json
// @Produce json
// @Param id path string true "Survey ID"
// @Param tree body services.SaveTreeRequest true "Question tree"
// @Success 200 {object} services.TreeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /surveys/{id}/tree [put]
func (h *SurveyHandler) SaveTree(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.SaveTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Saving question tree", "survey_id", id, "roots", len(req.Questions))
	result, err := h.surveyService.SaveTree(c.Request.Context(), id, req.Questions, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTree returns the stored question tree with costs
// @Summary Get question tree
// @Tags surveys
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} services.TreeResponse
// @Router /surveys/{id}/tree [get]
func (h *SurveyHandler) GetTree(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	result, err := h.surveyService.GetTree(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCost returns the survey's total cost and its per-question breakdown
// @Summary Get survey cost
// @Tags surveys
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} services.CostResponse
// @Router /surveys/{id}/cost [get]
func (h *SurveyHandler) GetCost(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	result, err := h.surveyService.GetCost(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
