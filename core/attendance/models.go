package attendance

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/schedule"
	"github.com/trezcool/mahudhurio/core/student"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// Attendance is one row per (group, student, calendar date).
// StudentID is the student's business key, not the storage id.
type Attendance struct {
	ID         int       `json:"id"`
	GroupID    int       `json:"group_id"`
	StudentID  int       `json:"student_id"`
	Date       string    `json:"attendance_date"` // YYYY-MM-DD
	Status     Status    `json:"status"`
	RecordedBy *int      `json:"recorded_by"` // nil means system-recorded
	RecordedAt time.Time `json:"recorded_at"` // UTC
	CreatedAt  time.Time `json:"created_at"`  // UTC
	UpdatedAt  time.Time `json:"updated_at"`  // UTC

	// joined details, populated on read/list payloads
	Student *student.Student `json:"student,omitempty"`
	Group   *group.Group     `json:"group,omitempty"`
}

// CheckIn is a live check-in request. The group may be omitted, in which
// case the currently-live group matching the student's assignment is
// resolved from today's schedule.
type CheckIn struct {
	StudentID int  `json:"student_id" validate:"required,min=1"`
	GroupID   *int `json:"group_id" validate:"omitempty,min=1"`
}

func (ci *CheckIn) Validate() error { return core.Validate.Struct(ci) }

// SetPresent is a manual correction: it flips an existing row to present
// and never creates one.
type SetPresent struct {
	StudentID int    `json:"student_id" validate:"required,min=1"`
	GroupID   *int   `json:"group_id" validate:"omitempty,min=1"`
	Date      string `json:"attendance_date" validate:"omitempty,datetime=2006-01-02"`
}

func (sp *SetPresent) Validate() error { return core.Validate.Struct(sp) }

// Result is the discriminated outcome of a successful state transition.
type Result struct {
	Outcome    Outcome    `json:"outcome"`
	Attendance Attendance `json:"attendance"`
}

// Statistics summarizes a filtered attendance set.
type Statistics struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

type QueryFilter struct {
	Date    string       `query:"date"`
	GroupID int          `query:"group_id"`
	Status  Status       `query:"status"`
	Day     schedule.Day `query:"day"`
	Page    int          `query:"page"`
	Limit   int          `query:"limit"`
}

func (qf *QueryFilter) Clean() {
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
