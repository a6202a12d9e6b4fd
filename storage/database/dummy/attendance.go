package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/schedule"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) query() []attendance.Attendance {
	atts := make([]attendance.Attendance, 0, len(repo.db.attendance.table))
	for _, att := range repo.db.attendance.table {
		atts = append(atts, *att)
	}
	sort.Slice(atts, func(i, j int) bool { return atts[i].ID < atts[j].ID })
	return atts
}

// exists reports whether the (group, student, date) cell is taken.
// Caller must hold the lock.
func (repo *attendanceRepository) exists(groupID, studentID int, date string) bool {
	for _, att := range repo.db.attendance.table {
		if att.GroupID == groupID && att.StudentID == studentID && att.Date == date {
			return true
		}
	}
	return false
}

func (repo *attendanceRepository) join(att attendance.Attendance) attendance.Attendance {
	repo.db.student.RLock()
	for _, std := range repo.db.student.table {
		if std.StudentID == att.StudentID {
			s := *std
			att.Student = &s
			break
		}
	}
	repo.db.student.RUnlock()

	repo.db.group.RLock()
	if grp, ok := repo.db.group.table[att.GroupID]; ok {
		g := *grp
		att.Group = &g
	}
	repo.db.group.RUnlock()
	return att
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, groupID, studentID int, date string) (attendance.Attendance, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	for _, att := range repo.query() {
		if att.GroupID == groupID && att.StudentID == studentID && att.Date == date {
			return att, nil
		}
	}
	return attendance.Attendance{}, attendance.ErrRowNotFound
}

func (repo *attendanceRepository) QueryStudentGroupAttendance(ctx context.Context, studentID, groupID int) ([]attendance.Attendance, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	var atts []attendance.Attendance
	for _, att := range repo.query() {
		if att.StudentID == studentID && att.GroupID == groupID {
			atts = append(atts, att)
		}
	}
	return atts, nil
}

func (repo *attendanceRepository) QueryGroupDateStudentIDs(ctx context.Context, groupID int, date string) ([]int, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	var ids []int
	for _, att := range repo.query() {
		if att.GroupID == groupID && att.Date == date {
			ids = append(ids, att.StudentID)
		}
	}
	return ids, nil
}

func (repo *attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	if repo.exists(att.GroupID, att.StudentID, att.Date) {
		return attendance.Attendance{}, attendance.ErrDuplicateRow
	}
	repo.db.attendance.pkCount++
	att.ID = repo.db.attendance.pkCount
	repo.db.attendance.table[att.ID] = &att
	return att, nil
}

func (repo *attendanceRepository) UpdateAttendanceStatus(ctx context.Context, id int, status attendance.Status, recordedBy *int) (attendance.Attendance, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	att, ok := repo.db.attendance.table[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrRowNotFound
	}
	now := time.Now().UTC()
	att.Status = status
	att.RecordedBy = recordedBy
	att.RecordedAt = now
	att.UpdatedAt = now
	return *att, nil
}

func (repo *attendanceRepository) BulkCreateAttendance(ctx context.Context, atts []attendance.Attendance) (int, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	var inserted int
	for _, att := range atts {
		if repo.exists(att.GroupID, att.StudentID, att.Date) {
			continue
		}
		repo.db.attendance.pkCount++
		att.ID = repo.db.attendance.pkCount
		a := att
		repo.db.attendance.table[a.ID] = &a
		inserted++
	}
	return inserted, nil
}

func (repo *attendanceRepository) FilterAttendance(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Attendance, int, error) {
	repo.db.attendance.RLock()
	atts := repo.filtered(filter, true)
	repo.db.attendance.RUnlock()

	total := len(atts)
	lo, hi := paginate(total, filter.Page, filter.Limit)
	page := atts[lo:hi]
	for i := range page {
		page[i] = repo.join(page[i])
	}
	return page, total, nil
}

func (repo *attendanceRepository) GetAttendanceStats(ctx context.Context, filter attendance.QueryFilter) (attendance.Statistics, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	var stats attendance.Statistics
	for _, att := range repo.filtered(filter, false) {
		stats.Total++
		if att.Status == attendance.StatusPresent {
			stats.Present++
		} else {
			stats.Absent++
		}
	}
	return stats, nil
}

func (repo *attendanceRepository) GetAttendanceByID(ctx context.Context, id int) (attendance.Attendance, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	if att, ok := repo.db.attendance.table[id]; ok {
		return repo.join(*att), nil
	}
	return attendance.Attendance{}, attendance.ErrRowNotFound
}

// filtered applies the filter without pagination. Caller must hold the
// attendance lock.
func (repo *attendanceRepository) filtered(filter attendance.QueryFilter, withStatus bool) []attendance.Attendance {
	var dayGroupIDs map[int]bool
	if filter.Day != "" {
		dayGroupIDs = repo.groupIDsMeetingOn(filter.Day)
	}

	var atts []attendance.Attendance
	for _, att := range repo.query() {
		if filter.Date != "" && att.Date != filter.Date {
			continue
		}
		if filter.GroupID != 0 && att.GroupID != filter.GroupID {
			continue
		}
		if withStatus && filter.Status != "" && att.Status != filter.Status {
			continue
		}
		if dayGroupIDs != nil && !dayGroupIDs[att.GroupID] {
			continue
		}
		atts = append(atts, att)
	}
	return atts
}

// groupIDsMeetingOn returns the ids of groups whose roster contains the day.
func (repo *attendanceRepository) groupIDsMeetingOn(day schedule.Day) map[int]bool {
	repo.db.group.RLock()
	defer repo.db.group.RUnlock()

	ids := make(map[int]bool, len(repo.db.group.table))
	for id, grp := range repo.db.group.table {
		if grp.ScheduledOn(day) {
			ids[id] = true
		}
	}
	return ids
}
