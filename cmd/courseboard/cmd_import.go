/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/ingest"
	"github.com/friendsincode/courseboard/internal/models"
	"github.com/friendsincode/courseboard/internal/sheets"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a campus week from its source spreadsheet",
	Long:  "Fetch the campus spreadsheet grid, extract schedule events, and reconcile them into the database",
}

var importSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Import from the Google Sheets API",
	Long:  "Fetch the campus grid over the Sheets API using the configured token and run one import job",
	RunE:  runImportSheets,
}

var importFileCmd = &cobra.Command{
	Use:   "file",
	Short: "Import from a local grid snapshot",
	Long:  "Run one import job from a JSON grid snapshot, for offline use and testing",
	RunE:  runImportFile,
}

var (
	importCampusID string
	importFilePath string
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importSheetsCmd)
	importCmd.AddCommand(importFileCmd)

	importSheetsCmd.Flags().StringVar(&importCampusID, "campus", "", "Campus ID to import (required)")
	importSheetsCmd.MarkFlagRequired("campus")

	importFileCmd.Flags().StringVar(&importCampusID, "campus", "", "Campus ID to import (required)")
	importFileCmd.Flags().StringVar(&importFilePath, "file", "", "Path to a JSON grid snapshot (required)")
	importFileCmd.MarkFlagRequired("campus")
	importFileCmd.MarkFlagRequired("file")
}

func runImportSheets(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if cfg.SheetsToken == "" {
		return fmt.Errorf("COURSEBOARD_SHEETS_TOKEN must be set for sheets imports")
	}

	client, err := sheets.NewClient(cfg.SheetsBaseURL, sheets.StaticToken(cfg.SheetsToken))
	if err != nil {
		return fmt.Errorf("create sheets client: %w", err)
	}

	return runImportJob(cmd.Context(), client)
}

func runImportFile(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	return runImportJob(cmd.Context(), sheets.NewFileSource(importFilePath))
}

func runImportJob(ctx context.Context, source ingest.GridSource) error {
	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	var campus models.Campus
	if err := database.First(&campus, "id = ?", importCampusID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("campus %q not found", importCampusID)
		}
		return fmt.Errorf("load campus: %w", err)
	}
	if campus.SpreadsheetID == "" {
		return fmt.Errorf("campus %q has no spreadsheet configured", importCampusID)
	}

	bus := events.NewBus()
	svc := ingest.NewService(database, bus, logger)

	job, err := svc.Run(ctx, campus, source)
	if err != nil {
		if job != nil {
			logger.Error().Str("job_id", job.ID).Str("error", job.Error).Msg("import failed")
		}
		return fmt.Errorf("import: %w", err)
	}

	logger.Info().
		Str("job_id", job.ID).
		Str("campus_id", campus.ID).
		Int("rooms", job.Result.Rooms).
		Int("events_created", job.Result.EventsCreated).
		Int("events_removed", job.Result.EventsRemoved).
		Int("cells_skipped", job.Result.CellsSkipped).
		Msg("import completed")

	for _, cell := range job.Skipped {
		logger.Warn().
			Str("sheet", cell.Sheet).
			Int("row", cell.Row).
			Int("column", cell.Column).
			Str("reason", cell.Reason).
			Msg("cell skipped")
	}
	return nil
}
