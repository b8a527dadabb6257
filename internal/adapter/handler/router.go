package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/lesson-attribution/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	mappingHandler *Mapping
	lessonHandler  *Lesson
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, mappingHandler *Mapping, lessonHandler *Lesson) *Router {
	return &Router{
		cfg:            cfg,
		mappingHandler: mappingHandler,
		lessonHandler:  lessonHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupMappingRoutes(v1)
	rt.setupLessonRoutes(v1)
}

// setupMappingRoutes configures the review workflow routes
func (rt *Router) setupMappingRoutes(g *echo.Group) {
	mappings := g.Group("/mappings")
	mappings.GET("", rt.mappingHandler.ListMappings)
	mappings.POST("/undo", rt.mappingHandler.Undo)
	mappings.GET("/:name", rt.mappingHandler.GetMapping)
	mappings.POST("/:name/approve", rt.mappingHandler.ApproveMapping)
	mappings.POST("/:name/reject", rt.mappingHandler.RejectMapping)

	g.GET("/crm/students", rt.mappingHandler.SearchStudents)
}

// setupLessonRoutes configures reporting and run routes
func (rt *Router) setupLessonRoutes(g *echo.Group) {
	g.GET("/transcripts/:id/group-analysis", rt.lessonHandler.GetGroupAnalysis)
	g.GET("/students/:name/summary", rt.lessonHandler.GetStudentSummary)

	if rt.lessonHandler.runner != nil {
		g.POST("/runs", rt.lessonHandler.TriggerRun)
	} else {
		g.POST("/runs", rt.notImplemented)
	}
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":  "This endpoint is not enabled on this instance",
		"path":   c.Request().URL.Path,
		"method": c.Request().Method,
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	env := ""
	if rt.cfg != nil {
		env = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": env,
	})
}
