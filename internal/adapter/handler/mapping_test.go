package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/johnquangdev/lesson-attribution/internal/adapter/repository"
	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/batch"
	usecaseErrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/grouplesson"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/matching"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/review"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
	"github.com/johnquangdev/lesson-attribution/pkg/lexicon"
	pkgvalidator "github.com/johnquangdev/lesson-attribution/pkg/validator"
)

type rosterStub []entities.CRMStudent

func (r rosterStub) Roster(context.Context) ([]entities.CRMStudent, error) { return r, nil }

type busyRunner struct{}

func (busyRunner) Run(context.Context) (*batch.RunReport, error) {
	return nil, usecaseErrors.ErrRunInProgress
}

type apiBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func newTestServer(t *testing.T, runner RunTrigger) (*echo.Echo, *repository.MemoryMappingRepository) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	lx := lexicon.Default()
	scorer := matching.NewScorer(lx.DeviceTokens, matching.NewTransliterationTable(nil))

	mappings := repository.NewMemoryMappingRepository()
	reviewService := review.NewReviewService(mappings, rosterStub{{ID: "s-1", Name: "Noa Levi", Active: true}}, scorer, logger)
	analyzer := grouplesson.NewAnalyzer(grouplesson.NewSingingDetector(lx.Singing), 150)
	lessons := grouplesson.NewService(analyzer, repository.NewMemoryGroupLessonRepository(), mappings, logger)

	e := echo.New()
	e.Validator = pkgvalidator.New()
	NewRouter(&config.Config{}, NewMappingHandler(reviewService, logger), NewLessonHandler(lessons, runner, logger)).Setup(e)
	return e, mappings
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (int, apiBody) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out apiBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestMappingRoutes_ReviewFlow(t *testing.T) {
	e, repo := newTestServer(t, nil)
	_, _, err := repo.Observe(context.Background(), "t-1", "נועה")
	require.NoError(t, err)
	escaped := "/v1/mappings/" + url.PathEscape("נועה")

	code, body := do(t, e, http.MethodGet, "/v1/mappings?status=pending", "")
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Data []struct {
			OriginalName string `json:"original_name"`
		} `json:"data"`
		Pagination struct {
			TotalItems int64 `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "נועה", list.Data[0].OriginalName)
	assert.EqualValues(t, 1, list.Pagination.TotalItems)

	code, body = do(t, e, http.MethodPost, escaped+"/approve", `{"source":"custom","resolved_name":"   ","actor":"maya"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_ARGUMENT", body.Code)

	code, body = do(t, e, http.MethodPost, escaped+"/approve", `{"source":"suggestion","actor":"maya"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "MAPPING_NO_SUGGESTION", body.Code)

	code, body = do(t, e, http.MethodPost, escaped+"/approve", `{"source":"custom","resolved_name":"Noa Levi","actor":"maya"}`)
	require.Equal(t, http.StatusOK, code)
	var approved struct {
		Status       string `json:"status"`
		ResolvedName string `json:"resolved_name"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &approved))
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "Noa Levi", approved.ResolvedName)

	code, body = do(t, e, http.MethodPost, escaped+"/reject", `{"actor":"maya"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "MAPPING_INVALID_STATE", body.Code)
	assert.Equal(t, "נועה", body.Details["original_name"])

	code, body = do(t, e, http.MethodPost, "/v1/mappings/undo", `{"actor":"maya"}`)
	require.Equal(t, http.StatusOK, code)
	var undone struct {
		UndoneAction string `json:"undone_action"`
		Mapping      struct {
			Status string `json:"status"`
		} `json:"mapping"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &undone))
	assert.Equal(t, entities.ActionApprove, undone.UndoneAction)
	assert.Equal(t, "pending", undone.Mapping.Status)

	code, body = do(t, e, http.MethodPost, "/v1/mappings/undo", `{"actor":"maya"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "UNDO_EMPTY", body.Code)
}

func TestMappingRoutes_Errors(t *testing.T) {
	e, _ := newTestServer(t, busyRunner{})

	code, body := do(t, e, http.MethodGet, "/v1/mappings/"+url.PathEscape("אף אחד"), "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "MAPPING_NOT_FOUND", body.Code)

	code, _ = do(t, e, http.MethodGet, "/v1/mappings?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, e, http.MethodPost, "/v1/mappings/undo", `{"actor":" "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_ARGUMENT", body.Code)

	code, body = do(t, e, http.MethodGet, "/v1/transcripts/lesson-9/group-analysis", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "ANALYSIS_NOT_FOUND", body.Code)

	code, body = do(t, e, http.MethodPost, "/v1/runs", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "MATCH_RUN_IN_PROGRESS", body.Code)
}

func TestSearchStudents(t *testing.T) {
	e, _ := newTestServer(t, nil)

	code, body := do(t, e, http.MethodGet, "/v1/crm/students?q=Noa", "")
	require.Equal(t, http.StatusOK, code)
	var students []struct {
		ID    string `json:"id"`
		Score int    `json:"score"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &students))
	require.Len(t, students, 1)
	assert.Equal(t, "s-1", students[0].ID)
	assert.Equal(t, 90, students[0].Score)

	code, _ = do(t, e, http.MethodGet, "/v1/crm/students", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
