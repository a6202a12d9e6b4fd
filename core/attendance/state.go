package attendance

// State is the recorded state of a (group, student, date) cell.
type State int

const (
	StateUnrecorded State = iota
	StateAbsent
	StatePresent
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	}
	return "unrecorded"
}

// StateOf maps a stored row (or its absence) to a State.
func StateOf(att *Attendance) State {
	if att == nil {
		return StateUnrecorded
	}
	if att.Status == StatusPresent {
		return StatePresent
	}
	return StateAbsent
}

// Action is an operation applied to a cell.
type Action int

const (
	ActionCheckIn Action = iota + 1
	ActionMarkAbsent
	ActionSetPresent
)

func (a Action) String() string {
	switch a {
	case ActionCheckIn:
		return "check_in"
	case ActionMarkAbsent:
		return "mark_absent"
	case ActionSetPresent:
		return "set_present"
	}
	return "unknown"
}

// Outcome describes what a transition did to the cell.
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeFlipped    Outcome = "updated_from_absent"
	OutcomeBackfilled Outcome = "backfilled_absent"
	OutcomeNone       Outcome = "unchanged"
)

// Transition computes the next state for an action. It is pure; callers
// persist the change and attach contextual details to any returned error.
func Transition(s State, a Action) (State, Outcome, *Error) {
	switch s {
	case StateUnrecorded:
		switch a {
		case ActionCheckIn:
			return StatePresent, OutcomeCreated, nil
		case ActionMarkAbsent:
			return StateAbsent, OutcomeBackfilled, nil
		case ActionSetPresent:
			return s, OutcomeNone, newError(KindAttendanceNotFound, "No attendance record found for this student on the specified date")
		}
	case StateAbsent:
		switch a {
		case ActionCheckIn, ActionSetPresent:
			return StatePresent, OutcomeFlipped, nil
		case ActionMarkAbsent:
			return s, OutcomeNone, nil
		}
	case StatePresent:
		switch a {
		case ActionCheckIn:
			return s, OutcomeNone, newError(KindAlreadyPresent, "Attendance already recorded as present for this student today")
		case ActionSetPresent:
			return s, OutcomeNone, newError(KindAlreadyPresent, "Student is already marked as present for this date")
		case ActionMarkAbsent:
			return s, OutcomeNone, nil
		}
	}
	return s, OutcomeNone, newError(KindInvalidDayOrTime, "invalid attendance action %q", a)
}
