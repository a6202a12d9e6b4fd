package dummydb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

type (
	DB struct {
		group      *groupTable
		student    *studentTable
		attendance *attendanceTable
		user       *userTable
	}

	groupTable struct {
		sync.RWMutex
		table   map[int]*group.Group
		pkCount int
	}

	studentTable struct {
		sync.RWMutex
		table   map[int]*student.Student
		pkCount int
	}

	attendanceTable struct {
		sync.RWMutex
		table   map[int]*attendance.Attendance
		pkCount int
	}

	userTable struct {
		sync.RWMutex
		table   map[int]*user.User
		pkCount int
	}
)

func Open() (*DB, error) {
	db := &DB{
		group:      &groupTable{table: make(map[int]*group.Group)},
		student:    &studentTable{table: make(map[int]*student.Student)},
		attendance: &attendanceTable{table: make(map[int]*attendance.Attendance)},
		user:       &userTable{table: make(map[int]*user.User)},
	}
	return db, nil
}

func paginate(total, page, limit int) (lo, hi int) {
	lo = (page - 1) * limit
	if lo > total {
		lo = total
	}
	hi = lo + limit
	if hi > total {
		hi = total
	}
	return lo, hi
}
