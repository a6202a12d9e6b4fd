package schedule

import "time"

// Window describes the span of wall-clock time during which a session
// accepts check-ins.
type Window struct {
	Start  string `json:"start"` // HH:MM
	End    string `json:"end"`   // HH:MM
	Active bool   `json:"active"`
}

// minutesSinceStart returns current minutes minus the session's start
// minutes; negative before start.
func minutesSinceStart(startTime string) (int, error) {
	startMins, err := ToMinutes(startTime)
	if err != nil {
		return 0, err
	}
	return CurrentMinutes() - startMins, nil
}

// WithinWindow reports whether the current time lies in the closed interval
// [startTime-before, startTime+after]. This is the single source of truth
// for "is this session live for check-in".
func WithinWindow(startTime string, before, after time.Duration) (bool, error) {
	diff, err := minutesSinceStart(startTime)
	if err != nil {
		return false, err
	}
	return diff >= -int(before.Minutes()) && diff <= int(after.Minutes()), nil
}

// Started reports whether the session's start time has passed.
// Used by the explicit-group check-in path, which grants no early grace.
func Started(startTime string) (bool, error) {
	diff, err := minutesSinceStart(startTime)
	if err != nil {
		return false, err
	}
	return diff >= 0, nil
}

// WindowFor materializes the check-in window around a start time.
func WindowFor(startTime string, before, after time.Duration) (Window, error) {
	startMins, err := ToMinutes(startTime)
	if err != nil {
		return Window{}, err
	}
	active, err := WithinWindow(startTime, before, after)
	if err != nil {
		return Window{}, err
	}
	return Window{
		Start:  FromMinutes(startMins - int(before.Minutes())),
		End:    FromMinutes(startMins + int(after.Minutes())),
		Active: active,
	}, nil
}

// HoursSinceStart returns the current hour minus the session's start hour.
// The sweep works at hour granularity on purpose: a group is only reconciled
// once the tick lands at least one full hour bucket past its start.
func HoursSinceStart(startTime string) (int, error) {
	startHour, err := StartHour(startTime)
	if err != nil {
		return 0, err
	}
	return CurrentHour() - startHour, nil
}
