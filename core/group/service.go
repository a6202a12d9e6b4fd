package group

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/schedule"
)

var (
	// errors
	ErrNotFound    = errors.New("group not found")
	ErrGroupExists = errors.New("a group with this name and level already exists")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, level int, excludedGroups ...Group) error
		CreateGroup(ctx context.Context, grp Group) (Group, error)
		GetGroupByID(ctx context.Context, id int) (Group, error)
		// QueryGroupsByDay returns all groups whose roster contains the given weekday.
		QueryGroupsByDay(ctx context.Context, day schedule.Day) ([]Group, error)
		// FilterGroups applies AND on available QueryFilter fields and returns
		// one page plus the unpaginated total. Each group carries StudentsCount.
		FilterGroups(ctx context.Context, filter QueryFilter) ([]Group, int, error)
		UpdateGroup(ctx context.Context, grp Group) (Group, error)
		DeleteGroupsByID(ctx context.Context, ids ...int) error
	}

	Service interface {
		CheckUniqueness(name string, level int, excludedGroups ...Group) error
		Create(ctx context.Context, ng NewGroup) (Group, error)
		GetByID(ctx context.Context, id int) (Group, error)
		QueryByDay(ctx context.Context, day schedule.Day) ([]Group, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Group, core.ListMeta, error)
		Update(ctx context.Context, id int, ug UpdateGroup) (Group, error)
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

func (svc *service) CheckUniqueness(name string, level int, excludedGroups ...Group) error {
	if err := svc.repo.CheckNameUniqueness(context.Background(), name, level, excludedGroups...); err != nil {
		if err == ErrGroupExists {
			return core.NewFieldError("group_name", err)
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	now := time.Now().UTC()
	grp := Group{
		Name:      ng.Name,
		StartTime: ng.StartTime,
		Level:     ng.Level,
		Days:      ng.RosterDays(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateGroup(ctx, grp)
}

func (svc *service) GetByID(ctx context.Context, id int) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *service) QueryByDay(ctx context.Context, day schedule.Day) ([]Group, error) {
	return svc.repo.QueryGroupsByDay(ctx, day)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Group, core.ListMeta, error) {
	filter.Clean()
	groups, total, err := svc.repo.FilterGroups(ctx, filter)
	if err != nil {
		return nil, core.ListMeta{}, err
	}
	return groups, core.NewListMeta(filter.Page, filter.Limit, total), nil
}

func (svc *service) Update(ctx context.Context, id int, ug UpdateGroup) (Group, error) {
	orig, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	orig.Name = ug.Name
	orig.StartTime = ug.StartTime
	orig.Level = ug.Level
	orig.Days = ug.RosterDays(orig)
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGroup(ctx, orig)
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteGroupsByID(ctx, ids...)
}
