package student

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
)

// Student is an enrolled learner. StudentID is the externally-meaningful
// business key (badge number); ID is the storage identifier.
type Student struct {
	ID               int        `json:"id"`
	StudentID        int        `json:"student_id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email,omitempty"`
	PhoneNumber      string     `json:"phone_number"`
	GuardianNumber   string     `json:"guardian_number"`
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	Gender           string     `json:"gender"`
	Level            int        `json:"level"`
	SchoolName       string     `json:"school_name,omitempty"`
	UID              *int       `json:"uid,omitempty"` // fingerprint device id
	IsSubscription   bool       `json:"is_subscription"`
	SubscriptionDate *time.Time `json:"subscription_date,omitempty"`
	Archived         bool       `json:"archived"`
	Blocked          bool       `json:"blocked"`
	GroupID          *int       `json:"group_id"` // a student may be group-less
	CreatedAt        time.Time  `json:"created_at"` // UTC
	UpdatedAt        time.Time  `json:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Active students are the only ones the reconciliation sweep considers.
func (s Student) Active() bool {
	return !s.Blocked && !s.Archived
}

// InGroup reports whether the student is assigned to the given group.
func (s Student) InGroup(groupID int) bool {
	return s.GroupID != nil && *s.GroupID == groupID
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	StudentID        int        `json:"student_id" validate:"required,min=1"`
	FirstName        string     `json:"first_name" validate:"required,max=100"`
	LastName         string     `json:"last_name" validate:"required,max=100"`
	Email            string     `json:"email" validate:"omitempty,email"`
	PhoneNumber      string     `json:"phone_number" validate:"required,max=30"`
	GuardianNumber   string     `json:"guardian_number" validate:"required,max=30"`
	BirthDate        *time.Time `json:"birth_date"`
	Gender           string     `json:"gender" validate:"required,oneof=male female"`
	Level            int        `json:"level" validate:"required,min=1,max=3"`
	SchoolName       string     `json:"school_name" validate:"omitempty,max=150"`
	UID              *int       `json:"uid"`
	IsSubscription   bool       `json:"is_subscription"`
	SubscriptionDate *time.Time `json:"subscription_date"`
	GroupID          *int       `json:"group_id"`
}

func (ns *NewStudent) Validate(svc Validator) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.StudentID, ns.UID)
}

// UpdateStudent defines what information may be provided to modify an
// existing Student. Nil pointers leave the field unchanged.
type UpdateStudent struct {
	StudentID        *int       `json:"student_id" validate:"omitempty,min=1"`
	FirstName        string     `json:"first_name" validate:"omitempty,max=100"`
	LastName         string     `json:"last_name" validate:"omitempty,max=100"`
	Email            string     `json:"email" validate:"omitempty,email"`
	PhoneNumber      string     `json:"phone_number" validate:"omitempty,max=30"`
	GuardianNumber   string     `json:"guardian_number" validate:"omitempty,max=30"`
	BirthDate        *time.Time `json:"birth_date"`
	Gender           string     `json:"gender" validate:"omitempty,oneof=male female"`
	Level            *int       `json:"level" validate:"omitempty,min=1,max=3"`
	SchoolName       string     `json:"school_name" validate:"omitempty,max=150"`
	UID              *int       `json:"uid"`
	IsSubscription   *bool      `json:"is_subscription"`
	SubscriptionDate *time.Time `json:"subscription_date"`
	GroupID          *int       `json:"group_id"`
	Blocked          *bool      `json:"blocked"`
	Archived         *bool      `json:"archived"`
}

func (us *UpdateStudent) Validate(orig Student, svc Validator) error {
	us.FirstName = core.CleanString(us.FirstName)
	us.LastName = core.CleanString(us.LastName)
	us.Email = core.CleanString(us.Email, true /* lower */)
	if err := core.Validate.Struct(us); err != nil {
		return err
	}

	sid := orig.StudentID
	if us.StudentID != nil {
		sid = *us.StudentID
	}
	uid := orig.UID
	if us.UID != nil {
		uid = us.UID
	}
	return svc.CheckUniqueness(sid, uid, orig)
}

// Validator is the subset of Service needed by payload validation.
type Validator interface {
	CheckUniqueness(studentID int, uid *int, excludedStudents ...Student) error
}

type QueryFilter struct {
	Search   string `query:"search"`
	Level    int    `query:"level"`
	GroupID  int    `query:"group_id"`
	Blocked  *bool  `query:"blocked"`
	Archived *bool  `query:"archived"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
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
