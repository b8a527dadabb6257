package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/internal/adapter/presenter"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/batch"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/grouplesson"
)

// RunTrigger starts a batch matching run
type RunTrigger interface {
	Run(ctx context.Context) (*batch.RunReport, error)
}

// Lesson handles group lesson reporting and matching runs
type Lesson struct {
	lessons *grouplesson.Service
	runner  RunTrigger
	logger  *zap.Logger
}

// NewLessonHandler creates a new lesson handler. runner may be nil when the
// process is not allowed to trigger runs.
func NewLessonHandler(lessons *grouplesson.Service, runner RunTrigger, logger *zap.Logger) *Lesson {
	return &Lesson{
		lessons: lessons,
		runner:  runner,
		logger:  logger,
	}
}

// GetGroupAnalysis handles GET /transcripts/:id/group-analysis
// @Summary      Group lesson analysis
// @Tags         Lessons
// @Produce      json
// @Param        id   path      string  true  "Transcript ID"
// @Success      200  {object}  lesson.GroupAnalysisResponse
// @Failure      404  {object}  map[string]interface{}  "Not a group lesson or not processed"
// @Router       /transcripts/{id}/group-analysis [get]
func (h *Lesson) GetGroupAnalysis(c echo.Context) error {
	id := pathName(c, "id")

	analysis, stats, err := h.lessons.Analysis(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, FromUsecase(err, id))
	}

	return HandleSuccess(h.logger, c, presenter.ToGroupAnalysisResponse(analysis, stats))
}

// GetStudentSummary handles GET /students/:name/summary
// @Summary      Student speaking summary
// @Description  Rolls up every group lesson where a label resolves to the student
// @Tags         Lessons
// @Produce      json
// @Param        name  path      string  true  "Resolved student name (URL-encoded)"
// @Success      200   {object}  lesson.StudentSummaryResponse
// @Router       /students/{name}/summary [get]
func (h *Lesson) GetStudentSummary(c echo.Context) error {
	name := pathName(c, "name")

	summary, err := h.lessons.StudentSummary(c.Request().Context(), name)
	if err != nil {
		return HandleError(h.logger, c, FromUsecase(err, name))
	}

	return HandleSuccess(h.logger, c, presenter.ToStudentSummaryResponse(summary))
}

// TriggerRun handles POST /runs
// @Summary      Run attribution and matching
// @Description  Ingests every stored transcript and matches pending names against the CRM
// @Tags         Runs
// @Produce      json
// @Success      200  {object}  batch.RunReport
// @Failure      409  {object}  map[string]interface{}  "Run already in progress"
// @Failure      502  {object}  map[string]interface{}  "CRM unavailable"
// @Router       /runs [post]
func (h *Lesson) TriggerRun(c echo.Context) error {
	report, err := h.runner.Run(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, FromUsecase(err, ""))
	}

	return HandleSuccess(h.logger, c, report)
}
