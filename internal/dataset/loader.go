package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"call-review-go/internal/logger"
	"call-review-go/internal/types"
)

// Manifest maps uploaded file names to their participants.
type Manifest map[string]types.ParticipantMetadata

func manifestKey(name string) string {
	return strings.ToLower(strings.TrimSpace(filepath.Base(name)))
}

// Lookup finds the entry for a file name, ignoring case and directories.
func (m Manifest) Lookup(fileName string) (types.ParticipantMetadata, bool) {
	meta, ok := m[manifestKey(fileName)]
	return meta, ok
}

// LoadManifestFile opens path and reads it with LoadManifest.
func LoadManifestFile(path string, log *logger.Logger) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return LoadManifest(f, log)
}

// LoadManifest reads the first sheet of a workbook. The header row is matched
// by keyword: a file/recording column, a salesperson/agent column and a
// prospect/customer column. Rows without a file name are skipped.
func LoadManifest(r io.Reader, log *logger.Logger) (Manifest, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("manifest has no header row")
	}

	fileIdx, salesIdx, prospectIdx := detectColumns(rows[0])
	if fileIdx == -1 {
		return nil, fmt.Errorf("manifest has no file name column")
	}
	log.WithField("sheet", sheets[0]).
		WithField("file_idx", fileIdx).
		WithField("salesperson_idx", salesIdx).
		WithField("prospect_idx", prospectIdx).
		Debug("detected manifest columns")

	out := Manifest{}
	for _, row := range rows[1:] {
		name := cell(row, fileIdx)
		if name == "" {
			continue
		}
		out[manifestKey(name)] = types.ParticipantMetadata{
			SalespersonName: cell(row, salesIdx),
			ProspectName:    cell(row, prospectIdx),
		}.Normalize()
	}
	log.WithField("entries", len(out)).Info("manifest loaded")
	return out, nil
}

func detectColumns(header []string) (fileIdx, salesIdx, prospectIdx int) {
	fileIdx, salesIdx, prospectIdx = -1, -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "salesperson") || strings.Contains(l, "sales") || strings.Contains(l, "agent") || strings.Contains(l, "rep"):
			if salesIdx == -1 {
				salesIdx = i
			}
		case strings.Contains(l, "prospect") || strings.Contains(l, "customer") || strings.Contains(l, "client") || strings.Contains(l, "lead"):
			if prospectIdx == -1 {
				prospectIdx = i
			}
		case strings.Contains(l, "file") || strings.Contains(l, "recording") || strings.Contains(l, "audio"):
			if fileIdx == -1 {
				fileIdx = i
			}
		}
	}
	return fileIdx, salesIdx, prospectIdx
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
