package dummydb

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/trezcool/mahudhurio/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, std := range repo.db.table {
		students = append(students, *std)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students
}

func (repo *studentRepository) CheckStudentIDUniqueness(ctx context.Context, studentID int, uid *int, excludedStudents ...student.Student) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.query() {
		if studentExcluded(std, excludedStudents) {
			continue
		}
		if std.StudentID == studentID {
			return student.ErrStudentIDExists
		}
		if uid != nil && std.UID != nil && *std.UID == *uid {
			return student.ErrUIDExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	std.ID = repo.db.pkCount
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByStudentID(ctx context.Context, studentID int) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.query() {
		if std.StudentID == studentID {
			return std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryActiveStudentsByGroup(ctx context.Context, groupID int) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students []student.Student
	for _, std := range repo.query() {
		if std.Active() && std.InGroup(groupID) {
			students = append(students, std)
		}
	}
	return students, nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students []student.Student
	for _, std := range repo.query() {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(std.FullName()), search) &&
				!strings.Contains(strings.ToLower(std.Email), search) &&
				!strings.Contains(strconv.Itoa(std.StudentID), search) {
				continue
			}
		}
		if filter.Level != 0 && std.Level != filter.Level {
			continue
		}
		if filter.GroupID != 0 && !std.InGroup(filter.GroupID) {
			continue
		}
		if filter.Blocked != nil && std.Blocked != *filter.Blocked {
			continue
		}
		if filter.Archived != nil && std.Archived != *filter.Archived {
			continue
		}
		students = append(students, std)
	}

	total := len(students)
	lo, hi := paginate(total, filter.Page, filter.Limit)
	return students[lo:hi], total, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func studentExcluded(std student.Student, excluded []student.Student) bool {
	for _, ex := range excluded {
		if ex.ID == std.ID {
			return true
		}
	}
	return false
}
