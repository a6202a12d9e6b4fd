package attendance

import "testing"

func TestTransition(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		action   Action
		want     State
		outcome  Outcome
		wantKind Kind
	}{
		{"unrecorded check-in creates present", StateUnrecorded, ActionCheckIn, StatePresent, OutcomeCreated, 0},
		{"unrecorded mark-absent backfills", StateUnrecorded, ActionMarkAbsent, StateAbsent, OutcomeBackfilled, 0},
		{"unrecorded set-present fails", StateUnrecorded, ActionSetPresent, StateUnrecorded, OutcomeNone, KindAttendanceNotFound},
		{"absent check-in flips", StateAbsent, ActionCheckIn, StatePresent, OutcomeFlipped, 0},
		{"absent set-present flips", StateAbsent, ActionSetPresent, StatePresent, OutcomeFlipped, 0},
		{"absent mark-absent no-op", StateAbsent, ActionMarkAbsent, StateAbsent, OutcomeNone, 0},
		{"present check-in rejected", StatePresent, ActionCheckIn, StatePresent, OutcomeNone, KindAlreadyPresent},
		{"present set-present rejected", StatePresent, ActionSetPresent, StatePresent, OutcomeNone, KindAlreadyPresent},
		{"present mark-absent no-op", StatePresent, ActionMarkAbsent, StatePresent, OutcomeNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome, err := Transition(tt.state, tt.action)
			if got != tt.want {
				t.Errorf("state = %v; want %v", got, tt.want)
			}
			if outcome != tt.outcome {
				t.Errorf("outcome = %v; want %v", outcome, tt.outcome)
			}
			if tt.wantKind == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			} else if err == nil || err.Kind != tt.wantKind {
				t.Errorf("error = %v; want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestStateOf(t *testing.T) {
	if s := StateOf(nil); s != StateUnrecorded {
		t.Errorf("StateOf(nil) = %v", s)
	}
	if s := StateOf(&Attendance{Status: StatusPresent}); s != StatePresent {
		t.Errorf("present row = %v", s)
	}
	if s := StateOf(&Attendance{Status: StatusAbsent}); s != StateAbsent {
		t.Errorf("absent row = %v", s)
	}
}
