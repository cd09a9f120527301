package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"call-review-go/internal/dataset"
	"call-review-go/internal/errs"
	"call-review-go/internal/types"
)

// metadataRequest carries participant names for one pending file.
type metadataRequest struct {
	SalespersonName string `json:"salesperson_name" form:"salesperson_name" validate:"required"`
	ProspectName    string `json:"prospect_name" form:"prospect_name" validate:"required"`
}

// createRun accepts a multipart upload: one or more "files", optional
// "salesperson_name[<file>]" / "prospect_name[<file>]" fields and an optional
// "manifest" workbook. Per-file fields win over the manifest.
func (h *handler) createRun(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return errs.Invalid("expected a multipart form upload")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return errs.Invalid("at least one file is required in the \"files\" field")
	}

	var manifest dataset.Manifest
	if mh := form.File["manifest"]; len(mh) > 0 {
		manifest, err = readManifest(mh[0], h)
		if err != nil {
			return err
		}
	}

	files := make([]types.AudioInput, 0, len(headers))
	meta := map[string]types.ParticipantMetadata{}
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			return err
		}
		files = append(files, types.AudioInput{Name: fh.Filename, Data: data})
		meta[fh.Filename] = participantsFor(fh.Filename, form.Value, manifest, len(headers) == 1)
	}

	run := h.orch.Start(c.Request().Context(), files, meta)
	return c.JSON(http.StatusCreated, run)
}

func participantsFor(name string, values map[string][]string, manifest dataset.Manifest, single bool) types.ParticipantMetadata {
	var m types.ParticipantMetadata
	if manifest != nil {
		m, _ = manifest.Lookup(name)
	}
	pick := func(key string) string {
		if v := first(values[fmt.Sprintf("%s[%s]", key, name)]); v != "" {
			return v
		}
		if single {
			return first(values[key])
		}
		return ""
	}
	if v := pick("salesperson_name"); v != "" {
		m.SalespersonName = v
	}
	if v := pick("prospect_name"); v != "" {
		m.ProspectName = v
	}
	return m.Normalize()
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

func readManifest(fh *multipart.FileHeader, h *handler) (dataset.Manifest, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	m, err := dataset.LoadManifest(f, h.log)
	if err != nil {
		return nil, errs.Invalid("manifest could not be read: " + err.Error())
	}
	return m, nil
}

func (h *handler) getRun(c echo.Context) error {
	run, err := h.orch.Run(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (h *handler) discardRun(c echo.Context) error {
	run, err := h.orch.Discard(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (h *handler) supplyMetadata(c echo.Context) error {
	var req metadataRequest
	if err := c.Bind(&req); err != nil {
		return errs.Invalid("invalid request body")
	}
	meta := types.ParticipantMetadata{SalespersonName: req.SalespersonName, ProspectName: req.ProspectName}.Normalize()
	req.SalespersonName, req.ProspectName = meta.SalespersonName, meta.ProspectName
	if err := c.Validate(&req); err != nil {
		return errs.Invalid("salesperson_name and prospect_name are required")
	}

	res, err := h.orch.SupplyMetadata(c.Request().Context(), c.Param("id"), c.Param("fileID"), meta)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
