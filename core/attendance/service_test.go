package attendance_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/schedule"
	"github.com/trezcool/mahudhurio/core/student"
	dummydb "github.com/trezcool/mahudhurio/storage/database/dummy"
)

var ctx = context.Background()

type testEnv struct {
	svc      attendance.Service
	repo     attendance.Repository
	groups   group.Service
	students student.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}
	groups := group.NewService(dummydb.NewGroupRepository(db))
	students := student.NewService(dummydb.NewStudentRepository(db))
	repo := dummydb.NewAttendanceRepository(db)
	return &testEnv{
		svc:      attendance.NewService(repo, groups, students),
		repo:     repo,
		groups:   groups,
		students: students,
	}
}

// 2021-03-01 was a Monday; 2021-02-27 the Saturday of the same business week.
func at(t *testing.T, day, hour, min int) {
	t.Helper()
	loc := core.Conf.Attendance.Location()
	orig := schedule.NowFunc
	schedule.NowFunc = func() time.Time {
		return time.Date(2021, time.March, day, hour, min, 0, 0, loc)
	}
	t.Cleanup(func() { schedule.NowFunc = orig })
}

func (e *testEnv) addGroup(t *testing.T, name, startTime string, days ...string) group.Group {
	t.Helper()
	grp, err := e.groups.Create(ctx, group.NewGroup{Name: name, StartTime: startTime, Level: 1, Days: days})
	if err != nil {
		t.Fatal(err)
	}
	return grp
}

func (e *testEnv) addStudent(t *testing.T, studentID int, groupID *int) student.Student {
	t.Helper()
	std, err := e.students.Create(ctx, student.NewStudent{
		StudentID:      studentID,
		FirstName:      "Test",
		LastName:       "Student",
		PhoneNumber:    "0500000000",
		GuardianNumber: "0500000001",
		Gender:         "male",
		Level:          1,
		GroupID:        groupID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return std
}

func (e *testEnv) addRow(t *testing.T, groupID, studentID int, date string, status attendance.Status) attendance.Attendance {
	t.Helper()
	att, err := e.repo.CreateAttendance(ctx, attendance.Attendance{
		GroupID: groupID, StudentID: studentID, Date: date, Status: status,
	})
	if err != nil {
		t.Fatal(err)
	}
	return att
}

func wantKind(t *testing.T, err error, kind attendance.Kind) *attendance.Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	aerr, ok := attendance.AsError(err)
	if !ok {
		t.Fatalf("unexpected error type: %v", err)
	}
	if aerr.Kind != kind {
		t.Fatalf("error kind = %v (%v); want %v", aerr.Kind, aerr, kind)
	}
	return aerr
}

func TestRecord_InferredCheckIn(t *testing.T) {
	e := setup(t)
	at(t, 1, 16, 30) // Monday 16:30

	grp := e.addGroup(t, "Group A", "16:00", "Saturday", "Monday")
	std := e.addStudent(t, 1001, &grp.ID)

	res, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != attendance.OutcomeCreated {
		t.Errorf("outcome = %v; want %v", res.Outcome, attendance.OutcomeCreated)
	}
	if res.Attendance.Status != attendance.StatusPresent {
		t.Errorf("status = %v; want present", res.Attendance.Status)
	}
	if res.Attendance.Date != "2021-03-01" {
		t.Errorf("date = %v; want 2021-03-01", res.Attendance.Date)
	}
	if res.Attendance.GroupID != grp.ID {
		t.Errorf("group = %d; want %d", res.Attendance.GroupID, grp.ID)
	}
	if res.Attendance.RecordedBy != nil {
		t.Errorf("recordedBy = %v; want nil", res.Attendance.RecordedBy)
	}
}

func TestRecord_SecondCheckInRejected(t *testing.T) {
	e := setup(t)
	at(t, 1, 16, 30)

	grp := e.addGroup(t, "Group A", "16:00", "Monday")
	std := e.addStudent(t, 1001, &grp.ID)

	if _, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil); err != nil {
		t.Fatal(err)
	}
	_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
	aerr := wantKind(t, err, attendance.KindAlreadyPresent)
	if aerr.Error() != "Attendance already recorded as present for this student today" {
		t.Errorf("unexpected message: %v", aerr)
	}
}

func TestRecord_FlipsAbsentRow(t *testing.T) {
	e := setup(t)
	at(t, 1, 16, 30)

	grp := e.addGroup(t, "Group A", "16:00", "Monday")
	std := e.addStudent(t, 1001, &grp.ID)
	e.addRow(t, grp.ID, std.StudentID, "2021-03-01", attendance.StatusAbsent)

	actorID := 7
	res, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, &actorID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != attendance.OutcomeFlipped {
		t.Errorf("outcome = %v; want %v", res.Outcome, attendance.OutcomeFlipped)
	}
	if res.Attendance.Status != attendance.StatusPresent {
		t.Errorf("status = %v; want present", res.Attendance.Status)
	}
	if res.Attendance.RecordedBy == nil || *res.Attendance.RecordedBy != actorID {
		t.Errorf("recordedBy = %v; want %d", res.Attendance.RecordedBy, actorID)
	}
}

func TestRecord_ExplicitGroup(t *testing.T) {
	e := setup(t)

	t.Run("group not found", func(t *testing.T) {
		at(t, 1, 16, 30)
		std := e.addStudent(t, 1001, nil)
		missing := 999
		_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID, GroupID: &missing}, nil)
		wantKind(t, err, attendance.KindGroupNotFound)
	})

	t.Run("not the student's group", func(t *testing.T) {
		at(t, 1, 16, 30)
		own := e.addGroup(t, "Group A", "16:00", "Monday")
		other := e.addGroup(t, "Group B", "16:00", "Monday")
		std := e.addStudent(t, 1002, &own.ID)

		_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID, GroupID: &other.ID}, nil)
		aerr := wantKind(t, err, attendance.KindGroupMismatch)
		if !strings.Contains(aerr.Error(), `in group "Group A"`) {
			t.Errorf("message should name the student's group: %v", aerr)
		}
	})

	t.Run("not scheduled today", func(t *testing.T) {
		at(t, 1, 16, 30) // Monday
		grp := e.addGroup(t, "Group C", "16:00", "Tuesday", "Thursday")
		std := e.addStudent(t, 1003, &grp.ID)

		_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID, GroupID: &grp.ID}, nil)
		aerr := wantKind(t, err, attendance.KindNotScheduledToday)
		if !strings.Contains(aerr.Error(), "Today (Monday)") {
			t.Errorf("message should name today: %v", aerr)
		}
	})

	t.Run("no early grace before start", func(t *testing.T) {
		at(t, 1, 15, 59)
		grp := e.addGroup(t, "Group D", "16:00", "Monday")
		std := e.addStudent(t, 1004, &grp.ID)

		_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID, GroupID: &grp.ID}, nil)
		aerr := wantKind(t, err, attendance.KindSessionNotStarted)
		if !strings.Contains(aerr.Error(), "starts at 16:00") {
			t.Errorf("message should name the start time: %v", aerr)
		}
	})

	t.Run("records at start time", func(t *testing.T) {
		at(t, 1, 16, 0)
		grp := e.addGroup(t, "Group E", "16:00", "Monday")
		std := e.addStudent(t, 1005, &grp.ID)

		res, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID, GroupID: &grp.ID}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != attendance.OutcomeCreated {
			t.Errorf("outcome = %v; want %v", res.Outcome, attendance.OutcomeCreated)
		}
	})
}

func TestRecord_InferredEdges(t *testing.T) {
	t.Run("no group live", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 18, 30) // more than an hour past start
		grp := e.addGroup(t, "Group A", "16:00", "Monday")
		std := e.addStudent(t, 1001, &grp.ID)

		_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
		wantKind(t, err, attendance.KindNoActiveGroup)
	})

	t.Run("window is inclusive", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 15, 0) // exactly start-1h
		grp := e.addGroup(t, "Group A", "16:00", "Monday")
		std := e.addStudent(t, 1001, &grp.ID)

		res, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != attendance.OutcomeCreated {
			t.Errorf("outcome = %v; want %v", res.Outcome, attendance.OutcomeCreated)
		}
	})

	t.Run("live group is not the student's", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 16, 30)
		live := e.addGroup(t, "Group A", "16:00", "Monday")
		own := e.addGroup(t, "Group B", "19:00", "Tuesday")
		_ = live
		std := e.addStudent(t, 1001, &own.ID)

		_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
		aerr := wantKind(t, err, attendance.KindGroupMismatch)
		if !strings.Contains(aerr.Error(), `in group "Group B"`) {
			t.Errorf("message should name the student's group: %v", aerr)
		}
	})

	t.Run("student without a group", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 16, 30)
		e.addGroup(t, "Group A", "16:00", "Monday")
		std := e.addStudent(t, 1001, nil)

		_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
		aerr := wantKind(t, err, attendance.KindGroupMismatch)
		if !strings.Contains(aerr.Error(), `"No Group"`) {
			t.Errorf("message should fall back to No Group: %v", aerr)
		}
	})
}

func TestRecord_DayGroupConflict(t *testing.T) {
	e := setup(t)
	at(t, 1, 16, 30) // Monday

	grp := e.addGroup(t, "Group A", "16:00", "Saturday", "Monday")
	std := e.addStudent(t, 1001, &grp.ID)
	// already credited on the Saturday of the same cycle
	e.addRow(t, grp.ID, std.StudentID, "2021-02-27", attendance.StatusPresent)

	_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
	aerr := wantKind(t, err, attendance.KindDuplicateInDayGroup)
	if aerr.Error() != "Attendance already recorded for Saturday" {
		t.Errorf("unexpected message: %v", aerr)
	}
}

func TestRecord_AnyPriorRowInGroupConflicts(t *testing.T) {
	e := setup(t)
	at(t, 1, 16, 30) // Monday

	grp := e.addGroup(t, "Group A", "16:00", "Saturday", "Monday")
	std := e.addStudent(t, 1001, &grp.ID)

	t.Run("absent sibling day", func(t *testing.T) {
		e.addRow(t, grp.ID, std.StudentID, "2021-02-27", attendance.StatusAbsent)

		_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
		aerr := wantKind(t, err, attendance.KindDuplicateInDayGroup)
		if aerr.Error() != "Attendance already recorded for Saturday" {
			t.Errorf("unexpected message: %v", aerr)
		}
	})

	t.Run("row from a past week", func(t *testing.T) {
		e2 := setup(t)
		grp := e2.addGroup(t, "Group A", "16:00", "Saturday", "Monday")
		std := e2.addStudent(t, 1001, &grp.ID)
		e2.addRow(t, grp.ID, std.StudentID, "2021-02-20", attendance.StatusPresent)

		_, err := e2.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
		wantKind(t, err, attendance.KindDuplicateInDayGroup)
	})
}

func TestRecord_OtherGroupRowsDoNotConflict(t *testing.T) {
	e := setup(t)
	at(t, 2, 16, 30) // Tuesday

	former := e.addGroup(t, "Group A", "16:00", "Saturday")
	grp := e.addGroup(t, "Group B", "16:00", "Tuesday")
	std := e.addStudent(t, 1001, &grp.ID)
	// credited in the group the student has since left
	e.addRow(t, former.ID, std.StudentID, "2021-02-27", attendance.StatusPresent)

	res, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != attendance.OutcomeCreated {
		t.Errorf("outcome = %v; want %v", res.Outcome, attendance.OutcomeCreated)
	}
}

func TestRecord_FridayRejected(t *testing.T) {
	e := setup(t)
	at(t, 5, 16, 30) // Friday

	grp := e.addGroup(t, "Group A", "16:00", "Friday")
	std := e.addStudent(t, 1001, &grp.ID)

	_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: std.StudentID, GroupID: &grp.ID}, nil)
	wantKind(t, err, attendance.KindInvalidDayOrTime)
}

func TestRecord_StudentNotFound(t *testing.T) {
	e := setup(t)
	at(t, 1, 16, 30)

	_, err := e.svc.Record(ctx, attendance.CheckIn{StudentID: 999}, nil)
	wantKind(t, err, attendance.KindStudentNotFound)
}

func TestSetPresent(t *testing.T) {
	t.Run("flips an absent row", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 20, 0)
		grp := e.addGroup(t, "Group A", "16:00", "Monday")
		std := e.addStudent(t, 1001, &grp.ID)
		e.addRow(t, grp.ID, std.StudentID, "2021-03-01", attendance.StatusAbsent)

		actorID := 3
		res, err := e.svc.SetPresent(ctx, attendance.SetPresent{StudentID: std.StudentID}, &actorID)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != attendance.OutcomeFlipped {
			t.Errorf("outcome = %v; want %v", res.Outcome, attendance.OutcomeFlipped)
		}
		if res.Attendance.RecordedBy == nil || *res.Attendance.RecordedBy != actorID {
			t.Errorf("recordedBy = %v; want %d", res.Attendance.RecordedBy, actorID)
		}
	})

	t.Run("explicit past date", func(t *testing.T) {
		e := setup(t)
		at(t, 3, 10, 0) // Wednesday
		grp := e.addGroup(t, "Group A", "16:00", "Monday")
		std := e.addStudent(t, 1001, &grp.ID)
		e.addRow(t, grp.ID, std.StudentID, "2021-03-01", attendance.StatusAbsent)

		res, err := e.svc.SetPresent(ctx, attendance.SetPresent{StudentID: std.StudentID, Date: "2021-03-01"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.Attendance.Date != "2021-03-01" {
			t.Errorf("date = %v; want 2021-03-01", res.Attendance.Date)
		}
	})

	t.Run("never creates a row", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 20, 0)
		grp := e.addGroup(t, "Group A", "16:00", "Monday")
		std := e.addStudent(t, 1001, &grp.ID)

		_, err := e.svc.SetPresent(ctx, attendance.SetPresent{StudentID: std.StudentID}, nil)
		aerr := wantKind(t, err, attendance.KindAttendanceNotFound)
		if aerr.Error() != "No attendance record found for this student on the specified date" {
			t.Errorf("unexpected message: %v", aerr)
		}
	})

	t.Run("already present", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 20, 0)
		grp := e.addGroup(t, "Group A", "16:00", "Monday")
		std := e.addStudent(t, 1001, &grp.ID)
		e.addRow(t, grp.ID, std.StudentID, "2021-03-01", attendance.StatusPresent)

		_, err := e.svc.SetPresent(ctx, attendance.SetPresent{StudentID: std.StudentID}, nil)
		aerr := wantKind(t, err, attendance.KindAlreadyPresent)
		if aerr.Error() != "Student is already marked as present for this date" {
			t.Errorf("unexpected message: %v", aerr)
		}
	})

	t.Run("student without a group", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 20, 0)
		std := e.addStudent(t, 1001, nil)

		_, err := e.svc.SetPresent(ctx, attendance.SetPresent{StudentID: std.StudentID}, nil)
		aerr := wantKind(t, err, attendance.KindGroupMismatch)
		if aerr.Error() != "Student is not assigned to any group" {
			t.Errorf("unexpected message: %v", aerr)
		}
	})

	t.Run("not the student's group", func(t *testing.T) {
		e := setup(t)
		at(t, 1, 20, 0)
		own := e.addGroup(t, "Group A", "16:00", "Monday")
		other := e.addGroup(t, "Group B", "16:00", "Monday")
		std := e.addStudent(t, 1001, &own.ID)
		e.addRow(t, other.ID, std.StudentID, "2021-03-01", attendance.StatusAbsent)

		_, err := e.svc.SetPresent(ctx, attendance.SetPresent{StudentID: std.StudentID, GroupID: &other.ID}, nil)
		aerr := wantKind(t, err, attendance.KindGroupMismatch)
		if !strings.Contains(aerr.Error(), `in group "Group A"`) {
			t.Errorf("message should name the student's group: %v", aerr)
		}
	})
}

func TestFilter(t *testing.T) {
	e := setup(t)
	at(t, 1, 20, 0)

	grp := e.addGroup(t, "Group A", "16:00", "Saturday", "Monday")
	other := e.addGroup(t, "Group B", "17:00", "Monday")
	s1 := e.addStudent(t, 1001, &grp.ID)
	s2 := e.addStudent(t, 1002, &grp.ID)
	s3 := e.addStudent(t, 1003, &other.ID)
	e.addRow(t, grp.ID, s1.StudentID, "2021-03-01", attendance.StatusPresent)
	e.addRow(t, grp.ID, s2.StudentID, "2021-03-01", attendance.StatusAbsent)
	e.addRow(t, other.ID, s3.StudentID, "2021-03-01", attendance.StatusPresent)
	e.addRow(t, grp.ID, s1.StudentID, "2021-02-27", attendance.StatusPresent)

	t.Run("by date", func(t *testing.T) {
		atts, stats, meta, err := e.svc.Filter(ctx, attendance.QueryFilter{Date: "2021-03-01"})
		if err != nil {
			t.Fatal(err)
		}
		if len(atts) != 3 {
			t.Errorf("len = %d; want 3", len(atts))
		}
		if stats != (attendance.Statistics{Total: 3, Present: 2, Absent: 1}) {
			t.Errorf("stats = %+v", stats)
		}
		if meta.Total != 3 {
			t.Errorf("meta.Total = %d; want 3", meta.Total)
		}
		for _, att := range atts {
			if att.Student == nil || att.Group == nil {
				t.Errorf("row %d missing joined details", att.ID)
			}
		}
	})

	t.Run("by group and status", func(t *testing.T) {
		atts, stats, _, err := e.svc.Filter(ctx, attendance.QueryFilter{Date: "2021-03-01", GroupID: grp.ID, Status: attendance.StatusAbsent})
		if err != nil {
			t.Fatal(err)
		}
		if len(atts) != 1 || atts[0].StudentID != s2.StudentID {
			t.Errorf("unexpected rows: %+v", atts)
		}
		// stats ignore the status filter
		if stats != (attendance.Statistics{Total: 2, Present: 1, Absent: 1}) {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("by day", func(t *testing.T) {
		// groups meeting Saturday, whatever the rows' dates
		atts, _, _, err := e.svc.Filter(ctx, attendance.QueryFilter{Day: schedule.Saturday})
		if err != nil {
			t.Fatal(err)
		}
		if len(atts) != 3 {
			t.Fatalf("len = %d; want 3", len(atts))
		}
		for _, att := range atts {
			if att.GroupID != grp.ID {
				t.Errorf("row %d from group %d; want %d", att.ID, att.GroupID, grp.ID)
			}
		}
	})

	t.Run("by unknown day", func(t *testing.T) {
		_, _, _, err := e.svc.Filter(ctx, attendance.QueryFilter{Day: "Blursday"})
		wantKind(t, err, attendance.KindInvalidDayOrTime)
	})
}
