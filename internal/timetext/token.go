/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timetext parses the loosely formatted time expressions found in
// weekly schedule spreadsheets: 12-hour tokens with am/pm markers, bare
// 24-hour tokens, and "start - end" ranges where one side's meridiem may
// have been keyed incorrectly.
package timetext

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Parse errors. Callers treat any of them as "this cell is not a time" and
// skip the cell rather than aborting an import.
var (
	ErrInvalidToken = errors.New("invalid time token")
	ErrInvalidRange = errors.New("invalid time range")
)

// TimePoint is a clock time within a single day.
type TimePoint struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Minutes returns the point as minutes since midnight.
func (p TimePoint) Minutes() int {
	return p.Hour*60 + p.Minute
}

// String formats the point as 24-hour "HH:MM".
func (p TimePoint) String() string {
	return pad2(p.Hour) + ":" + pad2(p.Minute)
}

// FromMinutes builds a TimePoint from minutes since midnight, wrapped into
// [0, 1440).
func FromMinutes(m int) TimePoint {
	m = ((m % 1440) + 1440) % 1440
	return TimePoint{Hour: m / 60, Minute: m % 60}
}

// Token is a single parsed time token. HasMeridiem records whether the
// source text carried an explicit am/pm marker, which controls whether the
// range disambiguator may touch it.
type Token struct {
	TimePoint
	HasMeridiem bool
}

var (
	// 4pm, 4:15pm, 04:15 PM
	pattern12 = regexp.MustCompile(`^([0-9]{1,2})(?::([0-9]{2}))?\s*([aApP][mM])$`)
	// 16:15, 9:05, or a whole hour like 16
	pattern24 = regexp.MustCompile(`^([0-9]{1,2})(?::([0-9]{2}))?$`)
)

// ParseToken parses one trimmed time token. Two grammars are tried in
// order: 12-hour with explicit meridiem (hour 1-12), then 24-hour without
// (hour 0-23). Minutes default to 0. Out-of-range components are parse
// failures, never wrapped.
func ParseToken(s string) (Token, error) {
	s = strings.TrimSpace(s)

	if m := pattern12.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return Token{}, ErrInvalidToken
		}
		if hour == 12 {
			hour = 0
		}
		if strings.EqualFold(m[3], "pm") {
			hour += 12
		}
		return Token{TimePoint: TimePoint{Hour: hour, Minute: minute}, HasMeridiem: true}, nil
	}

	if m := pattern24.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour > 23 || minute > 59 {
			return Token{}, ErrInvalidToken
		}
		return Token{TimePoint: TimePoint{Hour: hour, Minute: minute}}, nil
	}

	return Token{}, ErrInvalidToken
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
