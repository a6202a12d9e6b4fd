package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound        = errors.New("student not found")
	ErrStudentIDExists = errors.New("a student with this student_id already exists")
	ErrUIDExists       = errors.New("a student with this uid already exists")
)

type (
	Repository interface {
		CheckStudentIDUniqueness(ctx context.Context, studentID int, uid *int, excludedStudents ...Student) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		// GetStudentByStudentID resolves a student by business key.
		GetStudentByStudentID(ctx context.Context, studentID int) (Student, error)
		// QueryActiveStudentsByGroup returns blocked=false, archived=false
		// students assigned to the group.
		QueryActiveStudentsByGroup(ctx context.Context, groupID int) ([]Student, error)
		FilterStudents(ctx context.Context, filter QueryFilter) ([]Student, int, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...int) error
	}

	Service interface {
		CheckUniqueness(studentID int, uid *int, excludedStudents ...Student) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		GetByID(ctx context.Context, id int) (Student, error)
		GetByBusinessKey(ctx context.Context, studentID int) (Student, error)
		QueryActiveByGroup(ctx context.Context, groupID int) ([]Student, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Student, core.ListMeta, error)
		Update(ctx context.Context, id int, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, ids ...int) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(studentID int, uid *int, excludedStudents ...Student) error {
	if err := svc.repo.CheckStudentIDUniqueness(context.Background(), studentID, uid, excludedStudents...); err != nil {
		var field string
		switch err {
		case ErrStudentIDExists:
			field = "student_id"
		case ErrUIDExists:
			field = "uid"
		default:
			return err
		}
		return core.NewFieldError(field, err)
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		StudentID:        ns.StudentID,
		FirstName:        ns.FirstName,
		LastName:         ns.LastName,
		Email:            ns.Email,
		PhoneNumber:      ns.PhoneNumber,
		GuardianNumber:   ns.GuardianNumber,
		BirthDate:        ns.BirthDate,
		Gender:           ns.Gender,
		Level:            ns.Level,
		SchoolName:       ns.SchoolName,
		UID:              ns.UID,
		IsSubscription:   ns.IsSubscription,
		SubscriptionDate: ns.SubscriptionDate,
		GroupID:          ns.GroupID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *service) GetByBusinessKey(ctx context.Context, studentID int) (Student, error) {
	return svc.repo.GetStudentByStudentID(ctx, studentID)
}

func (svc *service) QueryActiveByGroup(ctx context.Context, groupID int) ([]Student, error) {
	return svc.repo.QueryActiveStudentsByGroup(ctx, groupID)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Student, core.ListMeta, error) {
	filter.Clean()
	students, total, err := svc.repo.FilterStudents(ctx, filter)
	if err != nil {
		return nil, core.ListMeta{}, err
	}
	return students, core.NewListMeta(filter.Page, filter.Limit, total), nil
}

func (svc *service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}

	if us.StudentID != nil {
		std.StudentID = *us.StudentID
	}
	if us.FirstName != "" {
		std.FirstName = us.FirstName
	}
	if us.LastName != "" {
		std.LastName = us.LastName
	}
	if us.Email != "" {
		std.Email = us.Email
	}
	if us.PhoneNumber != "" {
		std.PhoneNumber = us.PhoneNumber
	}
	if us.GuardianNumber != "" {
		std.GuardianNumber = us.GuardianNumber
	}
	if us.BirthDate != nil {
		std.BirthDate = us.BirthDate
	}
	if us.Gender != "" {
		std.Gender = us.Gender
	}
	if us.Level != nil {
		std.Level = *us.Level
	}
	if us.SchoolName != "" {
		std.SchoolName = us.SchoolName
	}
	if us.UID != nil {
		std.UID = us.UID
	}
	if us.IsSubscription != nil {
		std.IsSubscription = *us.IsSubscription
	}
	if us.SubscriptionDate != nil {
		std.SubscriptionDate = us.SubscriptionDate
	}
	if us.GroupID != nil {
		std.GroupID = us.GroupID
	}
	if us.Blocked != nil {
		std.Blocked = *us.Blocked
	}
	if us.Archived != nil {
		std.Archived = *us.Archived
	}
	std.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteStudentsByID(ctx, ids...)
}
