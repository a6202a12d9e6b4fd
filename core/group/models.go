package group

import (
	"strings"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/schedule"
)

// Group is a recurring class session with a weekly roster and a start time.
type Group struct {
	ID        int            `json:"id"`
	Name      string         `json:"group_name"`
	StartTime string         `json:"start_time"` // HH:MM, local wall-clock
	Level     int            `json:"level"`      // 1..3
	Days      []schedule.Day `json:"days"`
	CreatedAt time.Time      `json:"created_at"` // UTC
	UpdatedAt time.Time      `json:"updated_at"` // UTC

	// list annotation, not a column
	StudentsCount int `json:"students_count,omitempty"`
}

// ScheduledOn reports whether the group meets on the given weekday.
func (g Group) ScheduledOn(d schedule.Day) bool {
	for _, gd := range g.Days {
		if gd == d {
			return true
		}
	}
	return false
}

// DaysString renders the roster for human-readable rejection messages.
func (g Group) DaysString() string {
	if len(g.Days) == 0 {
		return "No days"
	}
	days := make([]string, 0, len(g.Days))
	for _, d := range g.Days {
		days = append(days, string(d))
	}
	return strings.Join(days, ", ")
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name      string   `json:"group_name" validate:"required,max=150"`
	StartTime string   `json:"start_time" validate:"required,clocktime"`
	Level     int      `json:"level" validate:"required,min=1,max=3"`
	Days      []string `json:"days" validate:"required,min=1,rosterdays"`
}

func (ng *NewGroup) Validate(ctx Validator) error {
	ng.Name = core.CleanString(ng.Name)
	if err := core.Validate.Struct(ng); err != nil {
		return err
	}
	return ctx.CheckUniqueness(ng.Name, ng.Level)
}

// RosterDays converts the validated day names to their enum type.
func (ng NewGroup) RosterDays() []schedule.Day {
	days := make([]schedule.Day, 0, len(ng.Days))
	for _, d := range ng.Days {
		days = append(days, schedule.Day(d))
	}
	return days
}

// UpdateGroup defines what information may be provided to modify an existing Group.
// Zero-valued fields are left unchanged.
type UpdateGroup struct {
	Name      string   `json:"group_name" validate:"omitempty,max=150"`
	StartTime string   `json:"start_time" validate:"omitempty,clocktime"`
	Level     int      `json:"level" validate:"omitempty,min=1,max=3"`
	Days      []string `json:"days" validate:"omitempty,min=1,rosterdays"`
}

func (ug *UpdateGroup) Validate(orig Group, ctx Validator) error {
	name := core.CleanString(ug.Name)
	if name != "" {
		ug.Name = name
	} else {
		ug.Name = orig.Name
	}
	if ug.StartTime == "" {
		ug.StartTime = orig.StartTime
	}
	if ug.Level == 0 {
		ug.Level = orig.Level
	}

	if err := core.Validate.Struct(ug); err != nil {
		return err
	}
	return ctx.CheckUniqueness(ug.Name, ug.Level, orig)
}

func (ug UpdateGroup) RosterDays(orig Group) []schedule.Day {
	if ug.Days == nil {
		return orig.Days
	}
	days := make([]schedule.Day, 0, len(ug.Days))
	for _, d := range ug.Days {
		days = append(days, schedule.Day(d))
	}
	return days
}

// Validator is the subset of Service needed by payload validation.
type Validator interface {
	CheckUniqueness(name string, level int, excludedGroups ...Group) error
}

type QueryFilter struct {
	Search string       `query:"search"`
	Level  int          `query:"level"`
	Day    schedule.Day `query:"day"`
	Page   int          `query:"page"`
	Limit  int          `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.Limit < 1 {
		qf.Limit = 20
	}
	if qf.Limit > 100 {
		qf.Limit = 100
	}
}
