/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timetext

import (
	"math"
	"regexp"
)

// TimeRange is a parsed start/end pair. No ordering invariant is enforced
// here: overnight and zero-duration ranges are valid parse results that
// downstream code must handle explicitly.
type TimeRange struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

var rangePattern = regexp.MustCompile(`^(.+?)\s*-\s*(.+?)$`)

// ParseRange splits "A - B" on the first dash and parses both sides. When
// both tokens carried an explicit am/pm marker the pair is run through the
// meridiem disambiguator; a 24-hour side or a mixed pair is assumed already
// unambiguous and passed through as parsed.
func ParseRange(s string) (TimeRange, error) {
	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return TimeRange{}, ErrInvalidRange
	}

	start, err := ParseToken(m[1])
	if err != nil {
		return TimeRange{}, ErrInvalidRange
	}
	end, err := ParseToken(m[2])
	if err != nil {
		return TimeRange{}, ErrInvalidRange
	}

	if start.HasMeridiem && end.HasMeridiem {
		fixedStart, fixedEnd := Disambiguate(start.TimePoint, end.TimePoint)
		return TimeRange{Start: fixedStart, End: fixedEnd}, nil
	}

	return TimeRange{Start: start.TimePoint, End: end.TimePoint}, nil
}

// Fractional day thresholds for the meridiem correction heuristic. These
// were tuned against real schedule data in the spreadsheet era and must be
// kept bit-for-bit compatible with it.
const (
	thresholdStartEarly = 1.0 / 3.0
	thresholdEndEarly   = 7.0 / 8.0
	thresholdEndNight   = 23.0 / 24.0
	thresholdStartLate  = 3.0 / 8.0
	thresholdEndMid     = 11.0 / 24.0
	thresholdStartEve   = 5.0 / 6.0
)

// Disambiguate corrects a start/end pair where one side's am/pm marker was
// keyed incorrectly. It applies only to pairs that both carried an explicit
// meridiem; ParseRange enforces that.
//
// Each boundary is expressed as a fraction of the day. An apparent duration
// over 12 hours or a negative duration triggers a 12-hour shift of exactly
// one boundary; a plausible duration (0 to 12 hours) is left untouched, so
// the correction is idempotent. Results wrap into [0, 1440) minutes.
func Disambiguate(start, end TimePoint) (TimePoint, TimePoint) {
	st := float64(start.Minutes()) / 1440
	et := float64(end.Minutes()) / 1440

	fixedST, fixedET := st, et

	switch {
	case et-st > 0.5:
		// Apparent duration over 12 hours.
		if st < thresholdStartEarly || et < thresholdEndEarly {
			fixedST = st + 0.5
		} else if et >= thresholdEndNight || st >= thresholdStartLate {
			fixedET = et - 0.5
		}
	case et < st:
		// Apparent negative duration.
		if st >= thresholdEndEarly || et >= thresholdEndMid {
			fixedST = st - 0.5
		} else if et < thresholdStartLate || st < thresholdStartEve {
			fixedET = et + 0.5
		}
	}

	return FromMinutes(roundDayFraction(fixedST)), FromMinutes(roundDayFraction(fixedET))
}

func roundDayFraction(f float64) int {
	return int(math.Round(f * 1440))
}
