package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/survey-service/internal/middleware"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
)

// ResponseHandler serves respondents. Every route but StartResponse is
// authenticated by the session token issued when the response started.
type ResponseHandler struct {
	BaseHandler
	responseService services.ResponseService
}

func NewResponseHandler(responseService services.ResponseService, logger utils.Logger) *ResponseHandler {
	return &ResponseHandler{
		BaseHandler:     NewBaseHandler(logger),
		responseService: responseService,
	}
}

// StartResponse begins a response to a published survey
// @Summary Start response
// @Tags responses
// @Produce json
// @Param id path string true "Survey ID"
// @Success 201 {object} services.StartResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /surveys/{id}/responses [post]
func (h *ResponseHandler) StartResponse(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "id")
	if surveyID == "" {
		return
	}

	started, err := h.responseService.Start(c.Request.Context(), surveyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header(middleware.SessionHeader, started.SessionID)
	c.JSON(http.StatusCreated, started)
}

// GetCurrent returns the question the respondent should see next
// @Summary Current question
// @Tags responses
// @Produce json
// @Param id path string true "Response ID"
// @Param X-Session-ID header string true "Response session token"
// @Success 200 {object} services.ProgressResponse
// @Router /responses/{id}/current [get]
func (h *ResponseHandler) GetCurrent(c *gin.Context) {
	responseID := ParseStringIDParam(c, "id")
	if responseID == "" {
		return
	}

	progress, err := h.responseService.Current(c.Request.Context(), responseID, c.GetString(middleware.ContextSessionID))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// SubmitAnswer answers the presented question
// @Summary Submit answer
// @Tags responses
// @Accept json
// @Produce json
// @Param id path string true "Response ID"
// @Param X-Session-ID header string true "Response session token"
// @Param answer body services.SubmitAnswerRequest true "Answer"
// @Success 200 {object} services.ProgressResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /responses/{id}/answers [post]
func (h *ResponseHandler) SubmitAnswer(c *gin.Context) {
	responseID := ParseStringIDParam(c, "id")
	if responseID == "" {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.ResponseID = responseID
	req.SessionID = c.GetString(middleware.ContextSessionID)

	progress, err := h.responseService.SubmitAnswer(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// AbandonResponse ends a response without completing it
// @Summary Abandon response
// @Tags responses
// @Produce json
// @Param id path string true "Response ID"
// @Param X-Session-ID header string true "Response session token"
// @Success 200 {object} services.ProgressResponse
// @Router /responses/{id}/abandon [post]
func (h *ResponseHandler) AbandonResponse(c *gin.Context) {
	responseID := ParseStringIDParam(c, "id")
	if responseID == "" {
		return
	}

	progress, err := h.responseService.Abandon(c.Request.Context(), responseID, c.GetString(middleware.ContextSessionID))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
