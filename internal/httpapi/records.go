package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"call-review-go/internal/actionable"
	"call-review-go/internal/aggregator"
	"call-review-go/internal/dataset"
	"call-review-go/internal/types"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type searchResponse struct {
	Records  []types.CallRecord    `json:"records"`
	Summary  aggregator.Summary    `json:"summary"`
	Coaching actionable.ActionCard `json:"coaching"`
}

func (h *handler) search(c echo.Context) ([]types.CallRecord, error) {
	by := c.QueryParam("by")
	if by == "" {
		by = string(types.FieldFileName)
	}
	field, err := types.ParseSearchField(by)
	if err != nil {
		return nil, err
	}
	return h.records.Search(c.Request().Context(), field, c.QueryParam("q"))
}

// searchRecords matches q case-insensitively as a substring of the "by" field.
func (h *handler) searchRecords(c echo.Context) error {
	recs, err := h.search(c)
	if err != nil {
		return err
	}
	summary := aggregator.Summarize(recs)
	return c.JSON(http.StatusOK, searchResponse{Records: recs, Summary: summary, Coaching: actionable.Generate(summary)})
}

func (h *handler) exportRecords(c echo.Context) error {
	recs, err := h.search(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := dataset.ExportRecords(&buf, recs, aggregator.Summarize(recs)); err != nil {
		return err
	}
	name := fmt.Sprintf("call-records-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
