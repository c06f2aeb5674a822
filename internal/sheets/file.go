/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/friendsincode/courseboard/internal/ingest"
)

// FileSource reads a grid snapshot from a JSON file, for offline imports
// and for replaying a week without Sheets API access. The file holds the
// same shape the API client produces: a list of {title, index, rows}.
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed grid source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Sheets loads the snapshot. The spreadsheetID argument is ignored; the
// file is the single source of truth for whichever campus it was saved for.
func (f *FileSource) Sheets(ctx context.Context, spreadsheetID string) ([]ingest.Sheet, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var sheets []ingest.Sheet
	if err := json.Unmarshal(data, &sheets); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", f.Path, err)
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("snapshot %s contains no sheets", f.Path)
	}

	sort.Slice(sheets, func(i, j int) bool { return sheets[i].Index < sheets[j].Index })
	return sheets, nil
}
