/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/courseboard/internal/models"
)

// CampusEntry maps one campus to its source spreadsheet in the registry
// file. Position controls display order.
type CampusEntry struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Position      int    `yaml:"position"`
}

// Campus converts a registry entry into its stored form.
func (e CampusEntry) Campus() models.Campus {
	return models.Campus{
		ID:            e.ID,
		Name:          e.Name,
		SpreadsheetID: e.SpreadsheetID,
		Position:      e.Position,
	}
}

type campusFile struct {
	Campuses []CampusEntry `yaml:"campuses"`
}

// LoadCampuses reads the campus registry YAML. A missing file is not an
// error; campuses can also be created through the API.
func LoadCampuses(path string) ([]CampusEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read campus registry: %w", err)
	}

	var file campusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse campus registry %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Campuses))
	for i, entry := range file.Campuses {
		if entry.ID == "" || entry.Name == "" {
			return nil, fmt.Errorf("campus registry entry %d: id and name are required", i)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("campus registry: duplicate id %q", entry.ID)
		}
		seen[entry.ID] = true
	}
	return file.Campuses, nil
}
