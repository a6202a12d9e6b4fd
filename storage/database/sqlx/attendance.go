package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/student"
)

type attendanceRow struct {
	ID         int       `db:"id"`
	GroupID    int       `db:"group_id"`
	StudentID  int       `db:"student_id"`
	Date       string    `db:"attendance_date"`
	Status     string    `db:"status"`
	RecordedBy null.Int  `db:"recorded_by"`
	RecordedAt time.Time `db:"recorded_at"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row attendanceRow) toAttendance() attendance.Attendance {
	return attendance.Attendance{
		ID:         row.ID,
		GroupID:    row.GroupID,
		StudentID:  row.StudentID,
		Date:       row.Date,
		Status:     attendance.Status(row.Status),
		RecordedBy: nullIntPtr(row.RecordedBy),
		RecordedAt: row.RecordedAt,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

// attendanceDetailRow carries the row plus the joined student and group
// columns used by list payloads.
type attendanceDetailRow struct {
	attendanceRow
	SPK            int            `db:"s_pk"`
	SFirstName     string         `db:"s_first_name"`
	SLastName      string         `db:"s_last_name"`
	SPhoneNumber   string         `db:"s_phone_number"`
	SGuardianPhone string         `db:"s_guardian_number"`
	SLevel         int            `db:"s_level"`
	SBlocked       bool           `db:"s_blocked"`
	SArchived      bool           `db:"s_archived"`
	SGroupID       null.Int       `db:"s_group_id"`
	GName          string         `db:"g_name"`
	GStartTime     string         `db:"g_start_time"`
	GLevel         int            `db:"g_level"`
	GDays          types.JSONText `db:"g_days"`
}

func (row attendanceDetailRow) toAttendance() (attendance.Attendance, error) {
	att := row.attendanceRow.toAttendance()
	att.Student = &student.Student{
		ID:             row.SPK,
		StudentID:      row.StudentID,
		FirstName:      row.SFirstName,
		LastName:       row.SLastName,
		PhoneNumber:    row.SPhoneNumber,
		GuardianNumber: row.SGuardianPhone,
		Level:          row.SLevel,
		Blocked:        row.SBlocked,
		Archived:       row.SArchived,
		GroupID:        nullIntPtr(row.SGroupID),
	}
	grp, err := groupRow{
		ID:        att.GroupID,
		Name:      row.GName,
		StartTime: row.GStartTime,
		Level:     row.GLevel,
		Days:      row.GDays,
	}.toGroup()
	if err != nil {
		return attendance.Attendance{}, err
	}
	att.Group = &grp
	return att, nil
}

const attendanceDetailQuery = `
	SELECT a.*,
	       s.id AS s_pk, s.first_name AS s_first_name, s.last_name AS s_last_name,
	       s.phone_number AS s_phone_number, s.guardian_number AS s_guardian_number,
	       s.level AS s_level, s.blocked AS s_blocked, s.archived AS s_archived,
	       s.group_id AS s_group_id,
	       g.group_name AS g_name, g.start_time AS g_start_time, g.level AS g_level,
	       g.days AS g_days
	FROM attendance a
	JOIN student s ON s.student_id = a.student_id
	JOIN "group" g ON g.id = a.group_id`

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, groupID, studentID int, date string) (attendance.Attendance, error) {
	var row attendanceRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM attendance WHERE group_id = $1 AND student_id = $2 AND attendance_date = $3`,
		groupID, studentID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Attendance{}, attendance.ErrRowNotFound
		}
		return attendance.Attendance{}, errors.Wrap(err, "getting attendance")
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) QueryStudentGroupAttendance(ctx context.Context, studentID, groupID int) ([]attendance.Attendance, error) {
	var rows []attendanceRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM attendance WHERE student_id = $1 AND group_id = $2 ORDER BY id`,
		studentID, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student group attendance")
	}
	atts := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		atts = append(atts, row.toAttendance())
	}
	return atts, nil
}

func (repo *attendanceRepository) QueryGroupDateStudentIDs(ctx context.Context, groupID int, date string) ([]int, error) {
	var ids []int
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT student_id FROM attendance WHERE group_id = $1 AND attendance_date = $2`,
		groupID, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying recorded student ids")
	}
	return ids, nil
}

func (repo *attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	err := repo.db.GetContext(ctx, &att.ID,
		`INSERT INTO attendance (
			group_id, student_id, attendance_date, status, recorded_by,
			recorded_at, created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		att.GroupID, att.StudentID, att.Date, string(att.Status), att.RecordedBy,
		att.RecordedAt, att.CreatedAt, att.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "attendance_cell_idx") {
			return attendance.Attendance{}, attendance.ErrDuplicateRow
		}
		return attendance.Attendance{}, errors.Wrap(err, "creating attendance")
	}
	return att, nil
}

func (repo *attendanceRepository) UpdateAttendanceStatus(ctx context.Context, id int, status attendance.Status, recordedBy *int) (attendance.Attendance, error) {
	var row attendanceRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE attendance SET status = $1, recorded_by = $2, recorded_at = $3, updated_at = $3
		 WHERE id = $4 RETURNING *`,
		string(status), recordedBy, time.Now().UTC(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Attendance{}, attendance.ErrRowNotFound
		}
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance status")
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) BulkCreateAttendance(ctx context.Context, atts []attendance.Attendance) (int, error) {
	if len(atts) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(atts))
	args := make([]interface{}, 0, len(atts)*8)
	for i, att := range atts {
		n := i * 8
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8))
		args = append(args,
			att.GroupID, att.StudentID, att.Date, string(att.Status), att.RecordedBy,
			att.RecordedAt, att.CreatedAt, att.UpdatedAt)
	}

	// concurrent check-ins win the cell
	query := `INSERT INTO attendance (
			group_id, student_id, attendance_date, status, recorded_by,
			recorded_at, created_at, updated_at
		 ) VALUES ` + strings.Join(values, ", ") +
		` ON CONFLICT (group_id, student_id, attendance_date) DO NOTHING`

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "bulk creating attendance")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "bulk creating attendance")
	}
	return int(n), nil
}

func (repo *attendanceRepository) FilterAttendance(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Attendance, int, error) {
	where, args := attendanceWhere(filter, true)

	var total int
	err := repo.db.GetContext(ctx, &total,
		`SELECT count(*) FROM attendance a JOIN "group" g ON g.id = a.group_id WHERE `+where, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting attendance")
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY a.id LIMIT $%d OFFSET $%d`,
		attendanceDetailQuery, where, len(args)-1, len(args))

	var rows []attendanceDetailRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering attendance")
	}

	atts := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		att, err := row.toAttendance()
		if err != nil {
			return nil, 0, err
		}
		atts = append(atts, att)
	}
	return atts, total, nil
}

func (repo *attendanceRepository) GetAttendanceStats(ctx context.Context, filter attendance.QueryFilter) (attendance.Statistics, error) {
	where, args := attendanceWhere(filter, false)

	var stats attendance.Statistics
	err := repo.db.GetContext(ctx, &stats,
		`SELECT count(*) AS total,
		        count(*) FILTER (WHERE a.status = 'present') AS present,
		        count(*) FILTER (WHERE a.status = 'absent') AS absent
		 FROM attendance a JOIN "group" g ON g.id = a.group_id WHERE `+where, args...)
	if err != nil {
		return attendance.Statistics{}, errors.Wrap(err, "getting attendance stats")
	}
	return stats, nil
}

func (repo *attendanceRepository) GetAttendanceByID(ctx context.Context, id int) (attendance.Attendance, error) {
	var row attendanceDetailRow
	err := repo.db.GetContext(ctx, &row, attendanceDetailQuery+` WHERE a.id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Attendance{}, attendance.ErrRowNotFound
		}
		return attendance.Attendance{}, errors.Wrap(err, "getting attendance")
	}
	return row.toAttendance()
}

// attendanceWhere builds the shared filter clause; callers must join
// `"group" g` for the day condition. The status condition is skipped for
// stats so counts always cover both statuses.
func attendanceWhere(filter attendance.QueryFilter, withStatus bool) (string, []interface{}) {
	where := "TRUE"
	args := make([]interface{}, 0, 3)
	if filter.Date != "" {
		args = append(args, filter.Date)
		where += fmt.Sprintf(" AND a.attendance_date = $%d", len(args))
	}
	if filter.GroupID != 0 {
		args = append(args, filter.GroupID)
		where += fmt.Sprintf(" AND a.group_id = $%d", len(args))
	}
	if withStatus && filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if filter.Day != "" {
		args = append(args, string(filter.Day))
		where += fmt.Sprintf(" AND g.days @> to_jsonb($%d::text)", len(args))
	}
	return where, args
}
