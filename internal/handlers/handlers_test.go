package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/codec"
	"github.com/SAP-F-2025/survey-service/internal/events"
	"github.com/SAP-F-2025/survey-service/internal/middleware"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories/memory"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/tree"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/SAP-F-2025/survey-service/internal/validator"
)

const author = "author-1"

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewLogger("test", io.Discard)
	slogger := utils.ToSlogLogger(logger)
	store := memory.New()
	manager := services.NewServiceManager(store, cache.NewMemoryCache(), events.NewMockEventPublisher(slogger), slogger, validator.New(), services.ManagerConfig{
		ResponseTTL:       time.Hour,
		AnalyticsWorkers:  2,
		AnalyticsCacheTTL: time.Minute,
	})

	router := gin.New()
	NewHandlerManager(manager, store, nil, middleware.AuthOptions{AllowDevHeader: true}, logger).SetupRoutes(router)
	return &api{t: t, router: router}
}

func (a *api) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func asAuthor(user string) map[string]string {
	return map[string]string{middleware.DevUserHeader: user}
}

func withSession(session string) map[string]string {
	return map[string]string{middleware.SessionHeader: session}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	decode(t, w, &resp)
	return resp.Code
}

func choiceTree() tree.Forest {
	root := tree.NewNode(models.BranchingChoice, "Pick a path", "A", "B")
	_ = root.AddChild("A", tree.NewNode(models.ShortAnswer, "Why A?"))
	_ = root.SetBranchEnd("B", models.BranchEndSurvey)
	return tree.Forest{root}
}

// publishedSurvey drives the authoring API up to a published survey.
func (a *api) publishedSurvey() string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/surveys", services.CreateSurveyRequest{Title: "Paths"}, asAuthor(author))
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var survey models.Survey
	decode(a.t, w, &survey)

	w = a.do(http.MethodPut, "/api/v1/surveys/"+survey.ID+"/tree", services.SaveTreeRequest{Questions: choiceTree()}, asAuthor(author))
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/v1/surveys/"+survey.ID+"/publish", nil, asAuthor(author))
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return survey.ID
}

func TestHealthCheck(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestSurveyRoutes(t *testing.T) {
	a := newAPI(t)

	t.Run("requires a user", func(t *testing.T) {
		w := a.do(http.MethodPost, "/api/v1/surveys", services.CreateSurveyRequest{Title: "x"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		w := a.do(http.MethodPost, "/api/v1/surveys", services.CreateSurveyRequest{}, asAuthor(author))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
	})

	surveyID := a.publishedSurvey()

	t.Run("tree and cost", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/v1/surveys/"+surveyID+"/tree", nil, asAuthor(author))
		require.Equal(t, http.StatusOK, w.Code)
		var tr services.TreeResponse
		decode(t, w, &tr)
		require.Len(t, tr.Questions, 1)
		// 15 for the branching root and 7 for its nested short answer.
		assert.Equal(t, 22, tr.TotalCost)

		w = a.do(http.MethodGet, "/api/v1/surveys/"+surveyID+"/cost", nil, asAuthor(author))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total_cost":22`)
	})

	t.Run("other authors are refused", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/v1/surveys/"+surveyID, nil, asAuthor("someone-else"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown survey", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/v1/surveys/missing", nil, asAuthor(author))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("publishing twice conflicts", func(t *testing.T) {
		w := a.do(http.MethodPost, "/api/v1/surveys/"+surveyID+"/publish", nil, asAuthor(author))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSaveTree_MalformedTree(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodPost, "/api/v1/surveys", services.CreateSurveyRequest{Title: "Broken"}, asAuthor(author))
	require.Equal(t, http.StatusCreated, w.Code)
	var survey models.Survey
	decode(t, w, &survey)

	bad := tree.NewNode(models.QuestionType("essay"), "Tell us everything")
	w = a.do(http.MethodPut, "/api/v1/surveys/"+survey.ID+"/tree", services.SaveTreeRequest{Questions: tree.Forest{bad}}, asAuthor(author))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MALFORMED_TREE", errorCode(t, w))
}

func TestResponseRoutes(t *testing.T) {
	a := newAPI(t)
	surveyID := a.publishedSurvey()

	w := a.do(http.MethodPost, "/api/v1/surveys/"+surveyID+"/responses", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var started services.StartResponse
	decode(t, w, &started)
	require.NotEmpty(t, started.SessionID)
	assert.Equal(t, started.SessionID, w.Header().Get(middleware.SessionHeader))
	require.False(t, started.State.Complete)
	rootID := started.State.Question.ID

	answersPath := "/api/v1/responses/" + started.ResponseID + "/answers"
	answer := map[string]interface{}{"question_id": rootID, "answer": codec.Value{Text: "B"}}

	t.Run("missing session header", func(t *testing.T) {
		w := a.do(http.MethodPost, answersPath, answer, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("foreign session", func(t *testing.T) {
		w := a.do(http.MethodPost, answersPath, answer, withSession("not-mine"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "SESSION_MISMATCH", errorCode(t, w))
	})

	t.Run("unknown response", func(t *testing.T) {
		w := a.do(http.MethodPost, "/api/v1/responses/missing/answers", answer, withSession(started.SessionID))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "RESPONSE_NOT_FOUND", errorCode(t, w))
	})

	t.Run("invalid answer", func(t *testing.T) {
		w := a.do(http.MethodPost, answersPath, map[string]interface{}{"question_id": rootID, "answer": codec.Value{Text: "C"}}, withSession(started.SessionID))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_ANSWER", errorCode(t, w))
	})

	t.Run("B completes the survey", func(t *testing.T) {
		w := a.do(http.MethodPost, answersPath, answer, withSession(started.SessionID))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var progress services.ProgressResponse
		decode(t, w, &progress)
		assert.True(t, progress.State.Complete)
		assert.Equal(t, models.ResponseCompleted, progress.Status)
	})

	t.Run("completed responses refuse answers", func(t *testing.T) {
		w := a.do(http.MethodPost, answersPath, answer, withSession(started.SessionID))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ALREADY_COMPLETED", errorCode(t, w))
	})

	t.Run("current reports completion", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/v1/responses/"+started.ResponseID+"/current", nil, withSession(started.SessionID))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"complete":true`)
	})

	t.Run("analytics and export", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/v1/surveys/"+surveyID+"/analytics", nil, asAuthor(author))
		require.Equal(t, http.StatusOK, w.Code)
		var summary services.SurveySummary
		decode(t, w, &summary)
		assert.Equal(t, int64(1), summary.Responses.Completed)

		w = a.do(http.MethodGet, "/api/v1/surveys/"+surveyID+"/analytics/questions/"+rootID, nil, asAuthor(author))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"answered":1`)

		w = a.do(http.MethodGet, "/api/v1/surveys/"+surveyID+"/export", nil, asAuthor(author))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.NotEmpty(t, w.Body.Bytes())

		w = a.do(http.MethodGet, "/api/v1/surveys/"+surveyID+"/analytics", nil, asAuthor("someone-else"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAbandonRoute(t *testing.T) {
	a := newAPI(t)
	surveyID := a.publishedSurvey()

	w := a.do(http.MethodPost, "/api/v1/surveys/"+surveyID+"/responses", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var started services.StartResponse
	decode(t, w, &started)

	w = a.do(http.MethodPost, "/api/v1/responses/"+started.ResponseID+"/abandon", nil, withSession(started.SessionID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"abandoned"`)

	answer := map[string]interface{}{"question_id": started.State.Question.ID, "answer": codec.Value{Text: "A"}}
	w = a.do(http.MethodPost, "/api/v1/responses/"+started.ResponseID+"/answers", answer, withSession(started.SessionID))
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "RESPONSE_EXPIRED", errorCode(t, w))
}
