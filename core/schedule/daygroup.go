package schedule

// The business week is split into two session cycles: a class meets either
// on the Saturday cycle or on the Tuesday cycle, and a student is credited
// at most once per cycle. Friday belongs to neither.
var (
	dayGroup1 = []Day{Saturday, Sunday, Monday}
	dayGroup2 = []Day{Tuesday, Wednesday, Thursday}
)

// DayGroupOf returns the day-group containing d, or nil for Friday
// and unknown days. Callers must not mutate the returned slice.
func DayGroupOf(d Day) []Day {
	for _, gd := range dayGroup1 {
		if d == gd {
			return dayGroup1
		}
	}
	for _, gd := range dayGroup2 {
		if d == gd {
			return dayGroup2
		}
	}
	return nil
}

// SameDayGroup reports whether both days fall in the same day-group.
// Friday never matches anything, including itself.
func SameDayGroup(d1, d2 Day) bool {
	g1 := DayGroupOf(d1)
	g2 := DayGroupOf(d2)
	return g1 != nil && g2 != nil && &g1[0] == &g2[0]
}
