// Package schedule holds the pure time arithmetic behind attendance
// eligibility: wall-clock parsing, the weekly day roster, the day-group
// partition and the check-in window math.
//
// All "current" values (time of day, weekday, calendar date) are taken in
// the configured attendance timezone, never the process-local or UTC clock,
// so the sweep schedule and the calendar date can not disagree near midnight.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

// Day is a weekday name as stored on a group's weekly roster.
type Day string

const (
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
)

// AllDays lists the roster week in business order (week starts Saturday).
var AllDays = []Day{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

var (
	ErrInvalidDay  = errors.New("invalid day")
	ErrInvalidTime = errors.New("invalid time: expected HH:MM")
)

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

func now() time.Time {
	return NowFunc().In(core.Conf.Attendance.Location())
}

// ParseDay validates a weekday name against the fixed enumeration.
func ParseDay(s string) (Day, error) {
	d := Day(s)
	for _, known := range AllDays {
		if d == known {
			return d, nil
		}
	}
	return "", errors.Wrap(ErrInvalidDay, s)
}

// IsDay reports whether s is a valid weekday name.
func IsDay(s string) bool {
	_, err := ParseDay(s)
	return err == nil
}

// CurrentDay returns today's weekday name in the attendance timezone.
func CurrentDay() Day {
	return Day(now().Weekday().String())
}

// Today returns the current calendar date as YYYY-MM-DD in the attendance timezone.
func Today() string {
	return now().Format("2006-01-02")
}

// CurrentMinutes returns the current wall-clock time as minutes since midnight.
func CurrentMinutes() int {
	t := now()
	return t.Hour()*60 + t.Minute()
}

// CurrentHour returns the current wall-clock hour (0-23).
func CurrentHour() int {
	return now().Hour()
}

// ToMinutes converts a strict "HH:MM" clock time to minutes since midnight.
func ToMinutes(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, errors.Wrap(ErrInvalidTime, clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.Wrap(ErrInvalidTime, clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.Wrap(ErrInvalidTime, clock)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errors.Wrap(ErrInvalidTime, clock)
	}
	return h*60 + m, nil
}

// FromMinutes converts minutes since midnight back to "HH:MM",
// normalizing any out-of-range value into [0, 1440).
func FromMinutes(minutes int) string {
	minutes %= 24 * 60
	if minutes < 0 {
		minutes += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// StartHour returns the hour component of a "HH:MM" start time.
func StartHour(clock string) (int, error) {
	mins, err := ToMinutes(clock)
	if err != nil {
		return 0, err
	}
	return mins / 60, nil
}
