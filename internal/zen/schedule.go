/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package zen

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Calendar weekday values used in schedule day lists, Sunday through
// Saturday. These match the persisted representation.
const (
	Sunday    = 1
	Monday    = 2
	Tuesday   = 3
	Wednesday = 4
	Thursday  = 5
	Friday    = 6
	Saturday  = 7
)

var (
	// AllDays covers every day of the week.
	AllDays = []int{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
	// WeeknightDays covers nights before a workday.
	WeeknightDays = []int{Sunday, Monday, Tuesday, Wednesday, Thursday}
	// WeekendDays covers Friday and Saturday nights.
	WeekendDays = []int{Friday, Saturday}
)

// MinuteBuckets are the countdown durations offered to pickers: quarter,
// half and three-quarter hour, then every whole hour up to twelve.
var MinuteBuckets = generateMinuteBuckets()

func generateMinuteBuckets() []int {
	const maxHours = 12
	buckets := make([]int, maxHours+3)
	buckets[0] = 15
	buckets[1] = 30
	buckets[2] = 45
	for i := 1; i <= maxHours; i++ {
		buckets[2+i] = 60 * i
	}
	return buckets
}

// IsValidHour reports whether val is a valid hour of day.
func IsValidHour(val int) bool { return val >= 0 && val < 24 }

// IsValidMinute reports whether val is a valid minute of hour.
func IsValidMinute(val int) bool { return val >= 0 && val < 60 }

const countdownPath = "countdown"

// ToCountdownConditionID builds a countdown identifier, e.g.
// condition://android/countdown/1399917958951.
func ToCountdownConditionID(timeMillis int64) *ConditionURI {
	return MustConditionURI(fmt.Sprintf("%s://%s/%s/%d",
		Scheme, SystemAuthority, countdownPath, timeMillis))
}

// TryParseCountdownConditionID extracts the target epoch millis from a
// countdown identifier. Returns 0 for anything that is not a well-formed
// countdown id; callers must treat 0 as invalid.
func TryParseCountdownConditionID(id *ConditionURI) int64 {
	if !isValidSystemID(id, SystemAuthority) {
		return 0
	}
	segments := id.pathSegments()
	if len(segments) != 2 || segments[0] != countdownPath {
		return 0
	}
	millis, err := strconv.ParseInt(segments[1], 10, 64)
	if err != nil {
		return 0
	}
	return millis
}

// IsValidCountdownConditionID reports whether id is a parseable countdown
// identifier.
func IsValidCountdownConditionID(id *ConditionURI) bool {
	return TryParseCountdownConditionID(id) != 0
}

const schedulePath = "schedule"

// ScheduleInfo is the decoded form of a schedule condition identifier: a
// recurring weekly time window.
type ScheduleInfo struct {
	Days        []int
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// Equal compares two schedules, preserving day list order.
func (s *ScheduleInfo) Equal(other *ScheduleInfo) bool {
	if s == nil || other == nil {
		return s == other
	}
	return toDayList(s.Days) == toDayList(other.Days) &&
		s.StartHour == other.StartHour &&
		s.StartMinute == other.StartMinute &&
		s.EndHour == other.EndHour &&
		s.EndMinute == other.EndMinute
}

// Copy returns a deep copy of the schedule.
func (s *ScheduleInfo) Copy() *ScheduleInfo {
	if s == nil {
		return nil
	}
	out := *s
	out.Days = append([]int(nil), s.Days...)
	return &out
}

// ToScheduleConditionID builds a schedule identifier, e.g.
// condition://android/schedule?days=1.2&start=22.0&end=7.0.
func ToScheduleConditionID(schedule ScheduleInfo) *ConditionURI {
	return MustConditionURI(fmt.Sprintf("%s://%s/%s?days=%s&start=%d.%d&end=%d.%d",
		Scheme, SystemAuthority, schedulePath, toDayList(schedule.Days),
		schedule.StartHour, schedule.StartMinute,
		schedule.EndHour, schedule.EndMinute))
}

// TryParseScheduleConditionID decodes a schedule identifier. Any malformed
// component invalidates the whole parse; the result is never partial.
func TryParseScheduleConditionID(id *ConditionURI) *ScheduleInfo {
	if !isValidSystemID(id, SystemAuthority) {
		return nil
	}
	segments := id.pathSegments()
	if len(segments) != 1 || segments[0] != schedulePath {
		return nil
	}
	query := id.query()
	startHour, startMinute, ok := tryParseHourAndMinute(query.Get("start"))
	if !ok {
		return nil
	}
	endHour, endMinute, ok := tryParseHourAndMinute(query.Get("end"))
	if !ok {
		return nil
	}
	return &ScheduleInfo{
		Days:        tryParseDayList(query.Get("days"), "."),
		StartHour:   startHour,
		StartMinute: startMinute,
		EndHour:     endHour,
		EndMinute:   endMinute,
	}
}

// IsValidScheduleConditionID reports whether id is a parseable schedule
// identifier.
func IsValidScheduleConditionID(id *ConditionURI) bool {
	return TryParseScheduleConditionID(id) != nil
}

func toDayList(days []int) string {
	if len(days) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, day := range days {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(day))
	}
	return sb.String()
}

// tryParseDayList decodes a separator-joined decimal day list. A single
// non-integer token rejects the entire list.
func tryParseDayList(dayList, sep string) []int {
	if dayList == "" {
		return nil
	}
	tokens := strings.Split(dayList, sep)
	days := make([]int, len(tokens))
	for i, token := range tokens {
		day, err := strconv.Atoi(token)
		if err != nil {
			return nil
		}
		days[i] = day
	}
	return days
}

func tryParseHourAndMinute(value string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(value, ".")
	if !found || h == "" || m == "" {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m)
	if err != nil {
		return 0, 0, false
	}
	if !IsValidHour(hour) || !IsValidMinute(minute) {
		return 0, 0, false
	}
	return hour, minute, true
}

// InWindow reports whether the instant now falls inside the weekly window.
// Windows whose end time is not after the start time cross midnight and
// extend into the following day.
func (s *ScheduleInfo) InWindow(now time.Time) bool {
	if s == nil {
		return false
	}
	start := time.Duration(s.StartHour)*time.Hour + time.Duration(s.StartMinute)*time.Minute
	end := time.Duration(s.EndHour)*time.Hour + time.Duration(s.EndMinute)*time.Minute
	elapsed := time.Duration(now.Hour())*time.Hour + time.Duration(now.Minute())*time.Minute

	if end > start {
		return s.hasDay(now.Weekday()) && elapsed >= start && elapsed < end
	}
	// Crossing midnight: the window belongs to the day it started on.
	if elapsed >= start {
		return s.hasDay(now.Weekday())
	}
	return elapsed < end && s.hasDay(now.AddDate(0, 0, -1).Weekday())
}

func (s *ScheduleInfo) hasDay(weekday time.Weekday) bool {
	// time.Weekday is zero-based from Sunday; day lists are one-based.
	want := int(weekday) + 1
	for _, day := range s.Days {
		if day == want {
			return true
		}
	}
	return false
}
