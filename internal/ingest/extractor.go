/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ingest converts the free-text weekly schedule grids kept in
// spreadsheets into normalized schedule events. Parsing is deliberately
// tolerant: a malformed cell is dropped and reported, never fatal, so one
// bad entry cannot abort a whole weekly import.
package ingest

import (
	"errors"
	"regexp"
	"strings"

	"github.com/friendsincode/courseboard/internal/timetext"
)

// ErrEmptyCell marks a cell with no usable content. ErrNoTimeRange marks a
// cell whose first line is not a time range; both cause the cell to be
// skipped.
var (
	ErrEmptyCell   = errors.New("empty cell")
	ErrNoTimeRange = errors.New("first line is not a time range")
)

// CellEvent is the structured draft extracted from one grid cell.
type CellEvent struct {
	Start    timetext.TimePoint
	End      timetext.TimePoint
	Subject  string
	Students []string
	Teachers []string
}

var (
	// A line consisting solely of a parenthesized group is the teacher line.
	teacherLinePattern = regexp.MustCompile(`^\(.+\)$`)
	// "Student Name (Subject)"
	studentLinePattern = regexp.MustCompile(`^(.+?)\s*\((.+?)\)\s*$`)
	// People separators: comma, ampersand, slash, or the word "and".
	peopleSeparator = regexp.MustCompile(`(?i)\s*(?:,|&|/|\band\b)\s*`)
	// The "1v1" marker on teacher names carries no name information.
	oneOnOneMarker = regexp.MustCompile(`(?i)\b1v1\b`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ExtractCell parses the raw multi-line text of one grid cell.
//
// The first line must be a time range; the last parenthesized-only line, if
// any, names the teachers; the lines in between are students, optionally as
// "Name (Subject)". The first subject seen becomes the event subject, and a
// student line that doesn't match the pattern is kept verbatim as a name.
func ExtractCell(text string) (CellEvent, error) {
	lines := normalizeLines(text)
	if len(lines) == 0 {
		return CellEvent{}, ErrEmptyCell
	}

	span, err := timetext.ParseRange(lines[0])
	if err != nil {
		return CellEvent{}, ErrNoTimeRange
	}

	teacherLine := -1
	for i := len(lines) - 1; i >= 1; i-- {
		if teacherLinePattern.MatchString(lines[i]) {
			teacherLine = i
			break
		}
	}

	var teachers []string
	studentLines := lines[1:]
	if teacherLine != -1 {
		inside := strings.TrimSpace(lines[teacherLine][1 : len(lines[teacherLine])-1])
		teachers = splitPeople(inside, cleanTeacherName)
		studentLines = lines[1:teacherLine]
	}

	var students []string
	var subject string
	for _, line := range studentLines {
		if m := studentLinePattern.FindStringSubmatch(line); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				students = append(students, name)
			}
			if subject == "" {
				subject = strings.TrimSpace(m[2])
			}
			continue
		}
		students = append(students, line)
	}

	return CellEvent{
		Start:    span.Start,
		End:      span.End,
		Subject:  subject,
		Students: students,
		Teachers: teachers,
	}, nil
}

// normalizeLines maps full-width parentheses to ASCII, unifies line break
// styles, and returns the trimmed non-empty lines.
func normalizeLines(text string) []string {
	text = strings.NewReplacer("（", "(", "）", ")", "\r\n", "\n", "\r", "\n").Replace(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitPeople breaks "A, B & C / D and E" into individual names.
func splitPeople(s string, clean func(string) string) []string {
	var people []string
	for _, part := range peopleSeparator.Split(s, -1) {
		if name := clean(part); name != "" {
			people = append(people, name)
		}
	}
	return people
}

func cleanTeacherName(name string) string {
	name = oneOnOneMarker.ReplaceAllString(name, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
}
