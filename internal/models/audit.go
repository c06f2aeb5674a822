/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

const (
	AuditActionScheduleImport AuditAction = "schedule.import"
	AuditActionEventCreate    AuditAction = "event.create"
	AuditActionEventUpdate    AuditAction = "event.update"
	AuditActionEventDelete    AuditAction = "event.delete"
	AuditActionAPIKeyCreate   AuditAction = "apikey.create"
	AuditActionAPIKeyRevoke   AuditAction = "apikey.revoke"
	AuditActionCampusCreate   AuditAction = "campus.create"
	AuditActionCampusUpdate   AuditAction = "campus.update"
)

// AuditLog records sensitive operations for accountability. It mirrors the
// audit_log tab that operators kept in the index workbook before this
// service existed.
type AuditLog struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	Action    AuditAction    `gorm:"type:varchar(64);index" json:"action"`
	UserID    string         `gorm:"index" json:"user_id,omitempty"`
	UserEmail string         `json:"user_email,omitempty"`
	CampusID  string         `gorm:"index" json:"campus_id,omitempty"`
	TargetID  string         `gorm:"index" json:"target_id,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Details   map[string]any `gorm:"serializer:json" json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
