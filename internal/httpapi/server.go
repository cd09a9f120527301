// Package httpapi is the operator-facing HTTP surface: upload runs, supply
// participant names, search and export stored records.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"call-review-go/internal/errs"
	"call-review-go/internal/logger"
	"call-review-go/internal/pipeline"
	"call-review-go/internal/types"
)

// RecordSearcher finds stored call records.
type RecordSearcher interface {
	Search(ctx context.Context, field types.SearchField, query string) ([]types.CallRecord, error)
}

type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Records      RecordSearcher
	Gatherer     prometheus.Gatherer
	Log          *logger.Logger
	MaxUploadMB  int
}

type handler struct {
	orch    *pipeline.Orchestrator
	records RecordSearcher
	log     *logger.Logger
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// New builds the echo instance with all routes registered.
func New(d Deps) *echo.Echo {
	log := d.Log.Component("http")
	h := &handler{orch: d.Orchestrator, records: d.Records, log: log}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.Recover())
	if d.MaxUploadMB > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", d.MaxUploadMB)))
	}
	e.Use(requestLogger(log))

	e.GET("/healthz", h.health)
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	runs := e.Group("/runs")
	runs.POST("", h.createRun)
	runs.GET("/:id", h.getRun)
	runs.DELETE("/:id", h.discardRun)
	runs.POST("/:id/files/:fileID/metadata", h.supplyMetadata)

	records := e.Group("/records")
	records.GET("", h.searchRecords)
	records.GET("/export", h.exportRecords)
	return e
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			entry := log.WithRequest(c.Request()).
				WithField("status", c.Response().Status).
				WithField("latency_ms", time.Since(start).Milliseconds())
			if c.Response().Status >= http.StatusInternalServerError {
				entry.Warn("request failed")
			} else {
				entry.Info("request handled")
			}
			return nil
		}
	}
}

func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrorResponse{Error: "INTERNAL", Message: "internal server error"}

		var appErr *errs.Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.Kind.HTTPStatus()
			body = ErrorResponse{Error: string(appErr.Kind), Message: appErr.Message, Details: appErr.Details}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			body = ErrorResponse{Error: http.StatusText(status), Message: fmt.Sprint(httpErr.Message)}
		default:
			log.WithError(err).Error("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Error("failed to write error response")
		}
	}
}
