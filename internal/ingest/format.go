// Package ingest turns an uploaded tabular file into a schema, a preview and a
// normalized CSV artifact.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"datasetapi/internal/model"
)

var extensions = map[string]model.FileType{
	".csv":  model.FileTypeCSV,
	".xlsx": model.FileTypeSpreadsheet,
	".xlsm": model.FileTypeSpreadsheet,
}

// DetectFormat maps a filename to its parser variant by lowercased extension.
// File contents are never inspected.
func DetectFormat(name string) (model.FileType, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ft, ok := extensions[ext]; ok {
		return ft, nil
	}
	if ext == "" {
		return "", model.E(model.KindUnsupportedFormat, "detect format", "file has no extension", nil)
	}
	return "", model.E(model.KindUnsupportedFormat, "detect format", fmt.Sprintf("unsupported file extension %q", ext), nil)
}
