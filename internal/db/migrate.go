/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/ingest"
	"github.com/friendsincode/courseboard/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Platform-level models
		&models.User{},
		&models.APIKey{},
		&models.AuditLog{},

		// Schedule data
		&models.Campus{},
		&models.ScheduleEvent{},
		&models.RosterEntry{},

		// Import jobs
		&ingest.Job{},
	); err != nil {
		return err
	}

	if err := normalizeLegacyRoles(database); err != nil {
		return err
	}

	return nil
}

// normalizeLegacyRoles folds role spellings from early deployments into the
// current set.
func normalizeLegacyRoles(database *gorm.DB) error {
	if err := database.Exec("UPDATE users SET role = ? WHERE LOWER(TRIM(role)) IN ?", models.RoleAdmin, []string{"admin", "administrator", "owner"}).Error; err != nil {
		return fmt.Errorf("normalize legacy admin role: %w", err)
	}
	if err := database.Exec("UPDATE users SET role = ? WHERE LOWER(TRIM(role)) IN ?", models.RoleStaff, []string{"staff", "editor", "manager"}).Error; err != nil {
		return fmt.Errorf("normalize legacy staff role: %w", err)
	}
	return nil
}
