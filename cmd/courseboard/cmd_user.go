/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/friendsincode/courseboard/internal/auth"
	"github.com/friendsincode/courseboard/internal/models"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long:  "Create a user with a role of admin, staff, or viewer. The first admin is usually created this way before the API is reachable.",
	RunE:  runUserCreate,
}

var (
	userEmail    string
	userPassword string
	userRole     string
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", "viewer", "Role: admin, staff, or viewer")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	role := models.RoleName(strings.ToLower(userRole))
	if role != models.RoleAdmin && role != models.RoleStaff && role != models.RoleViewer {
		return fmt.Errorf("unknown role %q", userRole)
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	hash, err := auth.HashPassword(userPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    strings.TrimSpace(userEmail),
		Password: hash,
		Role:     role,
	}
	if err := database.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger.Info().Str("user_id", user.ID).Str("email", user.Email).Str("role", string(role)).Msg("user created")
	return nil
}
