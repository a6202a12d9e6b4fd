package group

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/schedule"
)

var (
	rosterDaysTag  = "rosterdays"
	rosterDaysText = "days must be distinct weekday names"
)

func init() {
	_ = core.Validate.RegisterValidation(rosterDaysTag, rosterDaysValidation)
	core.RegisterCustomTranslation(rosterDaysTag, rosterDaysText)
}

// rosterDaysValidation checks that every value is a known weekday name and
// that none repeats. Violating values are rejected, never silently dropped.
func rosterDaysValidation(fl validator.FieldLevel) bool {
	days, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		if !schedule.IsDay(d) {
			return false
		}
		if seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}
