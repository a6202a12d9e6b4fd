package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/schedule"
	"github.com/trezcool/mahudhurio/core/student"
)

// Sweeper backfills absent rows for active students who never checked in.
// It runs hourly during opening hours and only reconciles a group once the
// tick lands at least one full hour past the group's start, so the regular
// check-in grace can never race the backfill.
type Sweeper struct {
	repo     Repository
	groups   group.Service
	students student.Service
	logger   core.Logger
	mailSvc  core.EmailService
}

func NewSweeper(repo Repository, groups group.Service, students student.Service, logger core.Logger, mailSvc core.EmailService) *Sweeper {
	return &Sweeper{repo: repo, groups: groups, students: students, logger: logger, mailSvc: mailSvc}
}

// Run reconciles all of today's groups. A failing group is logged and
// skipped; it gets another chance on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	runID := uuid.New().String()
	day := schedule.CurrentDay()
	date := schedule.Today()
	s.logger.Info(fmt.Sprintf("attendance sweep %s starting: day=%s date=%s", runID, day, date))

	groups, err := s.groups.QueryByDay(ctx, day)
	if err != nil {
		return err
	}

	var backfilled int
	var summary []string
	for _, grp := range groups {
		n, err := s.sweepGroup(ctx, grp, date)
		if err != nil {
			s.logger.Error(fmt.Sprintf("attendance sweep %s: group %q failed: %v", runID, grp.Name, err))
			continue
		}
		if n > 0 {
			backfilled += n
			summary = append(summary, fmt.Sprintf("%s (Level %d): %d absent", grp.Name, grp.Level, n))
		}
	}

	s.logger.Info(fmt.Sprintf("attendance sweep %s done: groups=%d backfilled=%d", runID, len(groups), backfilled))
	if backfilled > 0 {
		s.notifyAdmin(date, summary)
	}
	return nil
}

// sweepGroup marks the group's unrecorded active students absent for the
// date. Students recorded in any state are left alone.
func (s *Sweeper) sweepGroup(ctx context.Context, grp group.Group, date string) (int, error) {
	hrs, err := schedule.HoursSinceStart(grp.StartTime)
	if err != nil {
		return 0, err
	}
	if hrs < 1 {
		return 0, nil
	}

	roster, err := s.students.QueryActiveByGroup(ctx, grp.ID)
	if err != nil {
		return 0, err
	}
	if len(roster) == 0 {
		return 0, nil
	}

	recordedIDs, err := s.repo.QueryGroupDateStudentIDs(ctx, grp.ID, date)
	if err != nil {
		return 0, err
	}
	recorded := make(map[int]struct{}, len(recordedIDs))
	for _, id := range recordedIDs {
		recorded[id] = struct{}{}
	}

	now := schedule.NowFunc().UTC()
	var rows []Attendance
	for _, std := range roster {
		if _, ok := recorded[std.StudentID]; ok {
			continue
		}
		if _, _, terr := Transition(StateUnrecorded, ActionMarkAbsent); terr != nil {
			return 0, terr
		}
		rows = append(rows, Attendance{
			GroupID:    grp.ID,
			StudentID:  std.StudentID,
			Date:       date,
			Status:     StatusAbsent,
			RecordedBy: nil, // system-recorded
			RecordedAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return s.repo.BulkCreateAttendance(ctx, rows)
}

func (s *Sweeper) notifyAdmin(date string, summary []string) {
	if s.mailSvc == nil || core.Conf.AdminEmail == "" {
		return
	}
	s.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: core.Conf.AdminEmail}},
		Subject: fmt.Sprintf("%s: absences recorded for %s", core.Conf.AppName, date),
		BodyStr: strings.Join(summary, "\n"),
	})
}
