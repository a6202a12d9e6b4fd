package schedule

import "testing"

func TestDayGroupOf(t *testing.T) {
	for _, d := range []Day{Saturday, Sunday, Monday} {
		if got := DayGroupOf(d); len(got) != 3 || got[0] != Saturday {
			t.Errorf("DayGroupOf(%v) = %v; want the Saturday cycle", d, got)
		}
	}
	for _, d := range []Day{Tuesday, Wednesday, Thursday} {
		if got := DayGroupOf(d); len(got) != 3 || got[0] != Tuesday {
			t.Errorf("DayGroupOf(%v) = %v; want the Tuesday cycle", d, got)
		}
	}
	if got := DayGroupOf(Friday); got != nil {
		t.Errorf("DayGroupOf(Friday) = %v; want nil", got)
	}
	if got := DayGroupOf(Day("Holiday")); got != nil {
		t.Errorf("DayGroupOf(unknown) = %v; want nil", got)
	}
}

func TestSameDayGroup(t *testing.T) {
	tests := []struct {
		name   string
		d1, d2 Day
		want   bool
	}{
		{name: "same cycle", d1: Saturday, d2: Monday, want: true},
		{name: "same cycle reversed", d1: Monday, d2: Saturday, want: true},
		{name: "second cycle", d1: Tuesday, d2: Thursday, want: true},
		{name: "across cycles", d1: Monday, d2: Tuesday, want: false},
		{name: "friday never matches", d1: Friday, d2: Saturday, want: false},
		{name: "friday not even itself", d1: Friday, d2: Friday, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameDayGroup(tt.d1, tt.d2); got != tt.want {
				t.Errorf("SameDayGroup(%v, %v) = %v; want %v", tt.d1, tt.d2, got, tt.want)
			}
		})
	}

	// every non-Friday day matches itself
	for _, d := range AllDays {
		want := d != Friday
		if got := SameDayGroup(d, d); got != want {
			t.Errorf("SameDayGroup(%v, %v) = %v; want %v", d, d, got, want)
		}
	}
}
