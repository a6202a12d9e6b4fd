package attendance

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/schedule"
	"github.com/trezcool/mahudhurio/core/student"
)

var (
	// errors
	ErrRowNotFound  = errors.New("attendance record not found")
	ErrDuplicateRow = errors.New("attendance record already exists")
)

type (
	Repository interface {
		// GetAttendance fetches the row for (group, student, date);
		// ErrRowNotFound when absent. studentID is the business key.
		GetAttendance(ctx context.Context, groupID, studentID int, date string) (Attendance, error)
		// QueryStudentGroupAttendance returns all of the student's rows in
		// the group, any date, any status.
		QueryStudentGroupAttendance(ctx context.Context, studentID, groupID int) ([]Attendance, error)
		// QueryGroupDateStudentIDs returns the business keys of students
		// already recorded for the group on the date.
		QueryGroupDateStudentIDs(ctx context.Context, groupID int, date string) ([]int, error)
		// CreateAttendance inserts a row; ErrDuplicateRow when the
		// (group, student, date) cell is already taken.
		CreateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		UpdateAttendanceStatus(ctx context.Context, id int, status Status, recordedBy *int) (Attendance, error)
		// BulkCreateAttendance inserts rows, skipping cells already taken,
		// and returns the number actually inserted.
		BulkCreateAttendance(ctx context.Context, atts []Attendance) (int, error)
		// FilterAttendance applies AND on available QueryFilter fields and
		// returns one page plus the unpaginated total, rows carrying joined
		// student and group details.
		FilterAttendance(ctx context.Context, filter QueryFilter) ([]Attendance, int, error)
		// GetAttendanceStats counts rows per status for the filter,
		// ignoring its Status and pagination fields.
		GetAttendanceStats(ctx context.Context, filter QueryFilter) (Statistics, error)
		GetAttendanceByID(ctx context.Context, id int) (Attendance, error)
	}

	Service interface {
		// Record performs a live check-in for a student, resolving the
		// session from today's schedule when no group is given. actorID is
		// the recording user; nil for device-originated check-ins.
		Record(ctx context.Context, ci CheckIn, actorID *int) (Result, error)
		// SetPresent flips an existing row to present; it never creates one.
		SetPresent(ctx context.Context, sp SetPresent, actorID *int) (Result, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Attendance, Statistics, core.ListMeta, error)
		GetByID(ctx context.Context, id int) (Attendance, error)
	}

	service struct {
		repo     Repository
		groups   group.Service
		students student.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, groups group.Service, students student.Service) Service {
	return &service{repo: repo, groups: groups, students: students}
}

func (svc *service) Record(ctx context.Context, ci CheckIn, actorID *int) (Result, error) {
	std, err := svc.students.GetByBusinessKey(ctx, ci.StudentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Result{}, newError(KindStudentNotFound, "Student not found")
		}
		return Result{}, err
	}

	today := schedule.CurrentDay()
	date := schedule.Today()

	var grp group.Group
	if ci.GroupID != nil {
		if grp, err = svc.resolveExplicitGroup(ctx, std, *ci.GroupID, today); err != nil {
			return Result{}, err
		}
	} else {
		if grp, err = svc.resolveLiveGroup(ctx, std, today); err != nil {
			return Result{}, err
		}
	}

	if schedule.DayGroupOf(today) == nil {
		return Result{}, newError(KindInvalidDayOrTime, "Invalid day for attendance")
	}

	// same-day row first: re-checking in is idempotent, an absent row flips
	att, err := svc.repo.GetAttendance(ctx, grp.ID, std.StudentID, date)
	switch errors.Cause(err) {
	case nil:
		return svc.applyAction(ctx, att, ActionCheckIn, actorID)
	case ErrRowNotFound:
	default:
		return Result{}, err
	}

	if err = svc.checkDayGroupConflict(ctx, std.StudentID, grp, today); err != nil {
		return Result{}, err
	}

	now := schedule.NowFunc().UTC()
	created, err := svc.repo.CreateAttendance(ctx, Attendance{
		GroupID:    grp.ID,
		StudentID:  std.StudentID,
		Date:       date,
		Status:     StatusPresent,
		RecordedBy: actorID,
		RecordedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		// lost an insert race: re-read and resolve against the winning row
		if errors.Cause(err) == ErrDuplicateRow {
			if att, err = svc.repo.GetAttendance(ctx, grp.ID, std.StudentID, date); err != nil {
				return Result{}, err
			}
			return svc.applyAction(ctx, att, ActionCheckIn, actorID)
		}
		return Result{}, err
	}
	return Result{Outcome: OutcomeCreated, Attendance: created}, nil
}

func (svc *service) SetPresent(ctx context.Context, sp SetPresent, actorID *int) (Result, error) {
	std, err := svc.students.GetByBusinessKey(ctx, sp.StudentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Result{}, newError(KindStudentNotFound, "Student not found")
		}
		return Result{}, err
	}

	date := sp.Date
	if date == "" {
		date = schedule.Today()
	}

	var groupID int
	if sp.GroupID != nil {
		grp, err := svc.groups.GetByID(ctx, *sp.GroupID)
		if err != nil {
			if errors.Cause(err) == group.ErrNotFound {
				return Result{}, newError(KindGroupNotFound, "Group not found")
			}
			return Result{}, err
		}
		if !std.InGroup(grp.ID) {
			return Result{}, svc.groupMismatchErr(ctx, std)
		}
		groupID = grp.ID
	} else {
		if std.GroupID == nil {
			return Result{}, newError(KindGroupMismatch, "Student is not assigned to any group")
		}
		groupID = *std.GroupID
	}

	att, err := svc.repo.GetAttendance(ctx, groupID, std.StudentID, date)
	if err != nil {
		if errors.Cause(err) == ErrRowNotFound {
			_, _, terr := Transition(StateUnrecorded, ActionSetPresent)
			return Result{}, terr
		}
		return Result{}, err
	}
	return svc.applyAction(ctx, att, ActionSetPresent, actorID)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Attendance, Statistics, core.ListMeta, error) {
	filter.Clean()
	if filter.Day != "" && !schedule.IsDay(string(filter.Day)) {
		return nil, Statistics{}, core.ListMeta{}, newError(KindInvalidDayOrTime, "Invalid day for attendance")
	}

	atts, total, err := svc.repo.FilterAttendance(ctx, filter)
	if err != nil {
		return nil, Statistics{}, core.ListMeta{}, err
	}
	stats, err := svc.repo.GetAttendanceStats(ctx, filter)
	if err != nil {
		return nil, Statistics{}, core.ListMeta{}, err
	}
	return atts, stats, core.NewListMeta(filter.Page, filter.Limit, total), nil
}

func (svc *service) GetByID(ctx context.Context, id int) (Attendance, error) {
	return svc.repo.GetAttendanceByID(ctx, id)
}

// applyAction runs an existing row through the state machine and persists
// the resulting flip, if any.
func (svc *service) applyAction(ctx context.Context, att Attendance, action Action, actorID *int) (Result, error) {
	_, outcome, terr := Transition(StateOf(&att), action)
	if terr != nil {
		return Result{}, terr
	}
	if outcome == OutcomeFlipped {
		updated, err := svc.repo.UpdateAttendanceStatus(ctx, att.ID, StatusPresent, actorID)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeFlipped, Attendance: updated}, nil
	}
	return Result{Outcome: outcome, Attendance: att}, nil
}

// resolveExplicitGroup validates a caller-chosen group: it must exist, be the
// student's own, meet today, and have started. There is no early grace on
// this path since the caller asserted the session.
func (svc *service) resolveExplicitGroup(ctx context.Context, std student.Student, groupID int, today schedule.Day) (group.Group, error) {
	grp, err := svc.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return group.Group{}, newError(KindGroupNotFound, "Group not found")
		}
		return group.Group{}, err
	}
	if !std.InGroup(grp.ID) {
		return group.Group{}, svc.groupMismatchErr(ctx, std)
	}
	if !grp.ScheduledOn(today) {
		return group.Group{}, newError(KindNotScheduledToday,
			`Today (%s) is not a scheduled day for group "%s" (Days: %s). Student: %s`,
			today, grp.Name, grp.DaysString(), std.FullName())
	}
	started, err := schedule.Started(grp.StartTime)
	if err != nil {
		return group.Group{}, newError(KindInvalidDayOrTime, `Invalid start time %q for group "%s"`, grp.StartTime, grp.Name)
	}
	if !started {
		return group.Group{}, newError(KindSessionNotStarted,
			`Group "%s" has not started yet (starts at %s). Current time: %s. Student: %s`,
			grp.Name, grp.StartTime, schedule.FromMinutes(schedule.CurrentMinutes()), std.FullName())
	}
	return grp, nil
}

// resolveLiveGroup infers the session: of today's groups whose check-in
// window is open, pick the one the student is assigned to.
func (svc *service) resolveLiveGroup(ctx context.Context, std student.Student, today schedule.Day) (group.Group, error) {
	candidates, err := svc.groups.QueryByDay(ctx, today)
	if err != nil {
		return group.Group{}, err
	}

	live := candidates[:0]
	for _, grp := range candidates {
		ok, err := schedule.WithinWindow(grp.StartTime, core.Conf.Attendance.GraceBefore, core.Conf.Attendance.GraceAfter)
		if err != nil || !ok {
			continue
		}
		live = append(live, grp)
	}
	if len(live) == 0 {
		return group.Group{}, newError(KindNoActiveGroup,
			"No group is active for check-in at this time (%s)", schedule.FromMinutes(schedule.CurrentMinutes()))
	}

	for _, grp := range live {
		if std.InGroup(grp.ID) {
			return grp, nil
		}
	}
	return group.Group{}, svc.groupMismatchErr(ctx, std)
}

// checkDayGroupConflict enforces the once-per-cycle rule: any prior row for
// the student in this group, whatever its date or status, blocks a new
// check-in on a day the group meets within today's cycle.
func (svc *service) checkDayGroupConflict(ctx context.Context, studentID int, grp group.Group, today schedule.Day) error {
	rows, err := svc.repo.QueryStudentGroupAttendance(ctx, studentID, grp.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for _, d := range grp.Days {
		if schedule.SameDayGroup(d, today) {
			return newError(KindDuplicateInDayGroup, "Attendance already recorded for %s", d)
		}
	}
	return nil
}

// groupMismatchErr describes where the student actually belongs, so front
// desk can redirect them on the spot.
func (svc *service) groupMismatchErr(ctx context.Context, std student.Student) error {
	name, level, days := "No Group", "N/A", "No days"
	if std.GroupID != nil {
		if grp, err := svc.groups.GetByID(ctx, *std.GroupID); err == nil {
			name = grp.Name
			level = strconv.Itoa(grp.Level)
			days = grp.DaysString()
		}
	}
	return newError(KindGroupMismatch,
		`This student is in group "%s" (Level: %s, Days: %s) and student name: %s`,
		name, level, days, std.FullName())
}
