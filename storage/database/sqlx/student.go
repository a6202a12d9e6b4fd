package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core/student"
)

type studentRow struct {
	ID               int       `db:"id"`
	StudentID        int       `db:"student_id"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	Email            string    `db:"email"`
	PhoneNumber      string    `db:"phone_number"`
	GuardianNumber   string    `db:"guardian_number"`
	BirthDate        null.Time `db:"birth_date"`
	Gender           string    `db:"gender"`
	Level            int       `db:"level"`
	SchoolName       string    `db:"school_name"`
	UID              null.Int  `db:"uid"`
	IsSubscription   bool      `db:"is_subscription"`
	SubscriptionDate null.Time `db:"subscription_date"`
	Archived         bool      `db:"archived"`
	Blocked          bool      `db:"blocked"`
	GroupID          null.Int  `db:"group_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row studentRow) toStudent() student.Student {
	return student.Student{
		ID:               row.ID,
		StudentID:        row.StudentID,
		FirstName:        row.FirstName,
		LastName:         row.LastName,
		Email:            row.Email,
		PhoneNumber:      row.PhoneNumber,
		GuardianNumber:   row.GuardianNumber,
		BirthDate:        nullTimePtr(row.BirthDate),
		Gender:           row.Gender,
		Level:            row.Level,
		SchoolName:       row.SchoolName,
		UID:              nullIntPtr(row.UID),
		IsSubscription:   row.IsSubscription,
		SubscriptionDate: nullTimePtr(row.SubscriptionDate),
		Archived:         row.Archived,
		Blocked:          row.Blocked,
		GroupID:          nullIntPtr(row.GroupID),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func nullTimePtr(t null.Time) *time.Time {
	if t.Valid {
		v := t.Time
		return &v
	}
	return nil
}

func nullIntPtr(i null.Int) *int {
	if i.Valid {
		v := i.Int
		return &v
	}
	return nil
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckStudentIDUniqueness(ctx context.Context, studentID int, uid *int, excludedStudents ...student.Student) error {
	excl := make([]int, 0, len(excludedStudents))
	for _, std := range excludedStudents {
		excl = append(excl, std.ID)
	}

	check := func(column string, value interface{}, dupErr error) error {
		query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM student WHERE %s = ?`, column)
		args := []interface{}{value}
		if len(excl) > 0 {
			query += ` AND id NOT IN (?)`
			args = append(args, excl)
		}
		query += `)`

		query, inArgs, err := sqlx.In(query, args...)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), inArgs...); err != nil {
			return errors.Wrap(err, "checking student uniqueness")
		}
		if exists {
			return dupErr
		}
		return nil
	}

	if err := check("student_id", studentID, student.ErrStudentIDExists); err != nil {
		return err
	}
	if uid != nil {
		return check("uid", *uid, student.ErrUIDExists)
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	err := repo.db.GetContext(ctx, &std.ID,
		`INSERT INTO student (
			student_id, first_name, last_name, email, phone_number, guardian_number,
			birth_date, gender, level, school_name, uid, is_subscription,
			subscription_date, archived, blocked, group_id, created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING id`,
		std.StudentID, std.FirstName, std.LastName, std.Email, std.PhoneNumber, std.GuardianNumber,
		std.BirthDate, std.Gender, std.Level, std.SchoolName, std.UID, std.IsSubscription,
		std.SubscriptionDate, std.Archived, std.Blocked, std.GroupID, std.CreatedAt, std.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, "student_student_id_idx"):
			return student.Student{}, student.ErrStudentIDExists
		case isUniqueViolation(err, "student_uid_idx"):
			return student.Student{}, student.ErrUIDExists
		}
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	return repo.get(ctx, `SELECT * FROM student WHERE id = $1`, id)
}

func (repo *studentRepository) GetStudentByStudentID(ctx context.Context, studentID int) (student.Student, error) {
	return repo.get(ctx, `SELECT * FROM student WHERE student_id = $1`, studentID)
}

func (repo *studentRepository) get(ctx context.Context, query string, arg interface{}) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryActiveStudentsByGroup(ctx context.Context, groupID int) ([]student.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM student
		 WHERE group_id = $1 AND blocked = FALSE AND archived = FALSE ORDER BY id`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "querying active students")
	}
	return rowsToStudents(rows), nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, int, error) {
	where := "TRUE"
	args := make([]interface{}, 0, 5)
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		where += fmt.Sprintf(
			" AND (lower(first_name || ' ' || last_name) LIKE $%d OR lower(email) LIKE $%d OR student_id::text LIKE $%d)",
			n, n, n)
	}
	if filter.Level != 0 {
		args = append(args, filter.Level)
		where += fmt.Sprintf(" AND level = $%d", len(args))
	}
	if filter.GroupID != 0 {
		args = append(args, filter.GroupID)
		where += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	if filter.Blocked != nil {
		args = append(args, *filter.Blocked)
		where += fmt.Sprintf(" AND blocked = $%d", len(args))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		where += fmt.Sprintf(" AND archived = $%d", len(args))
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT count(*) FROM student WHERE `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT * FROM student WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering students")
	}
	return rowsToStudents(rows), total, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE student SET
			student_id = $1, first_name = $2, last_name = $3, email = $4, phone_number = $5,
			guardian_number = $6, birth_date = $7, gender = $8, level = $9, school_name = $10,
			uid = $11, is_subscription = $12, subscription_date = $13, archived = $14,
			blocked = $15, group_id = $16, updated_at = $17
		 WHERE id = $18`,
		std.StudentID, std.FirstName, std.LastName, std.Email, std.PhoneNumber,
		std.GuardianNumber, std.BirthDate, std.Gender, std.Level, std.SchoolName,
		std.UID, std.IsSubscription, std.SubscriptionDate, std.Archived,
		std.Blocked, std.GroupID, std.UpdatedAt, std.ID)
	if err != nil {
		switch {
		case isUniqueViolation(err, "student_student_id_idx"):
			return student.Student{}, student.ErrStudentIDExists
		case isUniqueViolation(err, "student_uid_idx"):
			return student.Student{}, student.ErrUIDExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM student WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}

func rowsToStudents(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students
}
