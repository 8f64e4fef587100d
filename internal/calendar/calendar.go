// Albumrotor - Rotating Virtual Photo Album Service
// Copyright 2026 P. Kjellman (kjellman)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kjellman/albumrotor

// Package calendar provides year-agnostic date comparison for the album
// selector's "today" and "this week" buckets.
//
// Capture dates are compared by month and day only; a photo taken on
// June 3rd of any year matches a June 3rd reference date. Leap days are
// normalized so that Feb 29 in a leap year compares equal to Feb 28 in a
// non-leap year, and week-distance calculations wrap across the year
// boundary so that Dec 30 and Jan 2 are three days apart, not ~363.
package calendar

import "time"

// weekWindowDays is the inclusive distance, in days, that still counts
// as "this week".
const weekWindowDays = 7

// isLeap reports whether year is a leap year in the Gregorian calendar.
func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// daysInYear returns 366 for leap years and 365 otherwise.
func daysInYear(year int) int {
	if isLeap(year) {
		return 366
	}
	return 365
}

// MakeComparable adjusts two dates so their month/day and day-of-year
// values can be compared across leap/non-leap year boundaries.
//
// If exactly one date falls in a leap year, a Feb 29 is rewritten to
// Feb 28 in the other date's year; any date still in a leap year after
// that is moved to the other date's year. The returned years carry no
// meaning and must not be read by callers.
func MakeComparable(a, b time.Time) (time.Time, time.Time) {
	if isLeap(a.Year()) == isLeap(b.Year()) {
		return a, b
	}

	if a.Month() == time.February && a.Day() == 29 {
		a = time.Date(b.Year(), time.February, 28, 0, 0, 0, 0, a.Location())
	} else if b.Month() == time.February && b.Day() == 29 {
		b = time.Date(a.Year(), time.February, 28, 0, 0, 0, 0, b.Location())
	}

	// The leap-day rewrite above guarantees neither date is Feb 29 here,
	// so changing the year cannot produce an invalid date.
	if isLeap(a.Year()) {
		a = time.Date(b.Year(), a.Month(), a.Day(), 0, 0, 0, 0, a.Location())
	}
	if isLeap(b.Year()) {
		b = time.Date(a.Year(), b.Month(), b.Day(), 0, 0, 0, 0, b.Location())
	}

	return a, b
}

// SameDay reports whether candidate falls on the same month and day as
// reference, ignoring year and time of day.
func SameDay(reference, candidate time.Time) bool {
	ref, cand := MakeComparable(reference, candidate)
	return ref.Month() == cand.Month() && ref.Day() == cand.Day()
}

// WithinWeek reports whether candidate is at most seven days away from
// reference, ignoring year. The boundary is inclusive: a date exactly
// seven days away matches. Distances wrap around the year boundary.
func WithinWeek(reference, candidate time.Time) bool {
	ref, cand := MakeComparable(reference, candidate)

	refDay := ref.YearDay()
	candDay := cand.YearDay()

	delta := refDay - candDay
	if delta < 0 {
		delta = -delta
	}

	if delta > weekWindowDays {
		lo, hi := refDay, candDay
		if lo > hi {
			lo, hi = hi, lo
		}
		delta = lo + daysInYear(ref.Year()) - hi
	}

	return delta <= weekWindowDays
}
