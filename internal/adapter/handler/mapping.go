package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/errors"
	"github.com/johnquangdev/lesson-attribution/internal/adapter/dto/mapping"
	"github.com/johnquangdev/lesson-attribution/internal/adapter/presenter"
	"github.com/johnquangdev/lesson-attribution/internal/domain/entities"
	"github.com/johnquangdev/lesson-attribution/internal/usecase/review"
)

const defaultSearchLimit = 20

// Mapping handles name mapping review requests
type Mapping struct {
	reviewService review.Service
	logger        *zap.Logger
}

// NewMappingHandler creates a new mapping review handler
func NewMappingHandler(reviewService review.Service, logger *zap.Logger) *Mapping {
	return &Mapping{
		reviewService: reviewService,
		logger:        logger,
	}
}

// ListMappings handles GET /mappings
// @Summary      List name mappings
// @Description  Lists mappings, optionally filtered by status, most frequent first
// @Tags         Mappings
// @Produce      json
// @Param        status     query     string  false  "pending | auto_matched | approved | rejected"
// @Param        page       query     int     false  "Page number"  default(1)
// @Param        page_size  query     int     false  "Page size"    default(50)
// @Success      200  {object}  common.ListResponse
// @Failure      400  {object}  map[string]interface{}
// @Router       /mappings [get]
func (h *Mapping) ListMappings(c echo.Context) error {
	var req mapping.ListMappingsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	// Set defaults
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 50
	}

	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	items, total, err := h.reviewService.List(
		c.Request().Context(),
		entities.MappingStatus(req.Status),
		req.PageSize,
		(req.Page-1)*req.PageSize,
	)
	if err != nil {
		return HandleError(h.logger, c, FromUsecase(err, req.Status))
	}

	return HandleSuccess(h.logger, c, presenter.ToMappingListResponse(items, total, req.Page, req.PageSize))
}

// GetMapping handles GET /mappings/:name
// @Summary      Get a name mapping
// @Tags         Mappings
// @Produce      json
// @Param        name  path      string  true  "Original speaker label (URL-encoded)"
// @Success      200   {object}  mapping.MappingResponse
// @Failure      404   {object}  map[string]interface{}
// @Router       /mappings/{name} [get]
func (h *Mapping) GetMapping(c echo.Context) error {
	name := pathName(c, "name")

	m, err := h.reviewService.Get(c.Request().Context(), name)
	if err != nil {
		return HandleError(h.logger, c, FromUsecase(err, name))
	}

	return HandleSuccess(h.logger, c, presenter.ToMappingResponse(m))
}

// ApproveMapping handles POST /mappings/:name/approve
// @Summary      Approve a pending mapping
// @Description  Resolves the label to the CRM suggestion, to itself, or to a typed name
// @Tags         Mappings
// @Accept       json
// @Produce      json
// @Param        name     path      string                          true  "Original speaker label (URL-encoded)"
// @Param        request  body      mapping.ApproveMappingRequest  true  "Approval"
// @Success      200      {object}  mapping.MappingResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      404      {object}  map[string]interface{}
// @Failure      409      {object}  map[string]interface{}  "Mapping already reviewed or has no suggestion"
// @Router       /mappings/{name}/approve [post]
func (h *Mapping) ApproveMapping(c echo.Context) error {
	name := pathName(c, "name")

	var req mapping.ApproveMappingRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	m, err := h.reviewService.Approve(c.Request().Context(), review.ApproveInput{
		OriginalName: name,
		Source:       review.ApproveSource(req.Source),
		ResolvedName: req.ResolvedName,
		Actor:        req.Actor,
	})
	if err != nil {
		return HandleError(h.logger, c, FromUsecase(err, name))
	}

	return HandleSuccess(h.logger, c, presenter.ToMappingResponse(m))
}

// RejectMapping handles POST /mappings/:name/reject
// @Summary      Reject a pending mapping
// @Tags         Mappings
// @Accept       json
// @Produce      json
// @Param        name     path      string                true  "Original speaker label (URL-encoded)"
// @Param        request  body      mapping.ActorRequest  true  "Reviewer"
// @Success      200      {object}  mapping.MappingResponse
// @Failure      409      {object}  map[string]interface{}
// @Router       /mappings/{name}/reject [post]
func (h *Mapping) RejectMapping(c echo.Context) error {
	name := pathName(c, "name")

	var req mapping.ActorRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	m, err := h.reviewService.Reject(c.Request().Context(), name, req.Actor)
	if err != nil {
		return HandleError(h.logger, c, FromUsecase(err, name))
	}

	return HandleSuccess(h.logger, c, presenter.ToMappingResponse(m))
}

// Undo handles POST /mappings/undo
// @Summary      Undo the latest mapping action
// @Description  Reverts the most recent approve, reject or auto-match across all mappings
// @Tags         Mappings
// @Accept       json
// @Produce      json
// @Param        request  body      mapping.ActorRequest  true  "Reviewer"
// @Success      200      {object}  mapping.UndoResponse
// @Failure      409      {object}  map[string]interface{}  "Nothing to undo"
// @Router       /mappings/undo [post]
func (h *Mapping) Undo(c echo.Context) error {
	var req mapping.ActorRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	m, entry, err := h.reviewService.Undo(c.Request().Context(), req.Actor)
	if err != nil {
		return HandleError(h.logger, c, FromUsecase(err, ""))
	}

	return HandleSuccess(h.logger, c, presenter.ToUndoResponse(m, entry, req.Actor))
}

// SearchStudents handles GET /crm/students
// @Summary      Search CRM students
// @Description  Manual lookup used when the matcher found nothing
// @Tags         CRM
// @Produce      json
// @Param        q      query     string  true   "Free text"
// @Param        limit  query     int     false  "Max results"  default(20)
// @Success      200    {array}   mapping.StudentResponse
// @Failure      502    {object}  map[string]interface{}  "CRM unavailable"
// @Router       /crm/students [get]
func (h *Mapping) SearchStudents(c echo.Context) error {
	var req mapping.SearchStudentsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}
	if req.Limit == 0 {
		req.Limit = defaultSearchLimit
	}

	results, err := h.reviewService.SearchCRM(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrCRMFailed("search students", err))
	}

	return HandleSuccess(h.logger, c, presenter.ToStudentResponses(results))
}
