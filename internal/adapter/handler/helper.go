package handler

import (
	stdErrors "errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/lesson-attribution/errors"
	usecaseErrors "github.com/johnquangdev/lesson-attribution/internal/usecase/errors"
)

// Response shapes
type success struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errs struct {
	Code    interface{}       `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Info    string            `json:"info,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().Header.Get("X-Request-ID")
}

// pathName reads a URL-encoded name parameter such as a Hebrew speaker label
func pathName(c echo.Context, param string) string {
	raw := c.Param(param)
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// FromUsecase maps use-case sentinel errors onto API errors. subject names the
// mapping or transcript the request was about.
func FromUsecase(err error, subject string) error {
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		return err
	}

	var mapped errors.AppError
	switch {
	case stdErrors.Is(err, usecaseErrors.ErrMappingNotFound):
		mapped = errors.ErrMappingNotFound(subject)
	case stdErrors.Is(err, usecaseErrors.ErrInvalidTransition):
		mapped = errors.ErrMappingInvalidState(subject)
	case stdErrors.Is(err, usecaseErrors.ErrEmptyResolvedName):
		mapped = errors.ErrEmptyResolvedName()
	case stdErrors.Is(err, usecaseErrors.ErrNoSuggestion):
		mapped = errors.ErrNoSuggestion(subject)
	case stdErrors.Is(err, usecaseErrors.ErrNothingToUndo):
		mapped = errors.ErrNothingToUndo()
	case stdErrors.Is(err, usecaseErrors.ErrInvalidInput),
		stdErrors.Is(err, usecaseErrors.ErrInvalidApproveMode):
		mapped = errors.ErrInvalidArgument(err.Error())
	case stdErrors.Is(err, usecaseErrors.ErrRunInProgress):
		mapped = errors.ErrRunInProgress()
	case stdErrors.Is(err, usecaseErrors.ErrCRMUnavailable):
		mapped = errors.ErrCRMFailed("list students", err)
	case stdErrors.Is(err, usecaseErrors.ErrAnalysisNotFound):
		mapped = errors.ErrAnalysisNotFound(subject)
	case stdErrors.Is(err, usecaseErrors.ErrNotFound):
		mapped = errors.ErrNotFound(subject)
	default:
		return errors.ErrInternal(err)
	}

	if mapped.Raw == nil {
		mapped.Raw = err
	}
	return mapped
}

// HandleSuccess writes a standardized success response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	resp := success{
		Code:    errors.ErrorCode_HTTP_OK,
		Message: "success",
		Data:    data,
	}

	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleError centralizes error handling and logging using provided logger
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	reqID := getRequestID(c)

	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		if logger != nil {
			logger.Error("http.response.error",
				zap.String("request_id", reqID),
				zap.String("path", c.Path()),
				zap.Any("app_code", appErr.Code),
				zap.Error(err),
			)
		}

		info := ""
		if appErr.Raw != nil {
			info = appErr.Raw.Error()
		}

		body := errs{
			Code:    appErr.Code,
			Message: appErr.Message,
			Info:    info,
			Details: appErr.Details,
		}

		return c.JSON(appErr.HTTPCode, body)
	}

	if logger != nil {
		logger.Error("http.response.error",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	body := errs{
		Code:    errors.ErrorCode_INTERNAL,
		Message: "Internal server error",
		Info:    err.Error(),
	}

	return c.JSON(http.StatusInternalServerError, body)
}
