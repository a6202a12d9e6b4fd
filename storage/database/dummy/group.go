package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/schedule"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) query() []group.Group {
	groups := make([]group.Group, 0, len(repo.db.group.table))
	for _, grp := range repo.db.group.table {
		groups = append(groups, *grp)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

func (repo *groupRepository) studentsCount(groupID int) int {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	var n int
	for _, std := range repo.db.student.table {
		if std.InGroup(groupID) {
			n++
		}
	}
	return n
}

func (repo *groupRepository) CheckNameUniqueness(ctx context.Context, name string, level int, excludedGroups ...group.Group) error {
	repo.db.group.RLock()
	defer repo.db.group.RUnlock()

	for _, grp := range repo.query() {
		if strings.EqualFold(grp.Name, name) && grp.Level == level && !groupExcluded(grp, excludedGroups) {
			return group.ErrGroupExists
		}
	}
	return nil
}

func (repo *groupRepository) CreateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	repo.db.group.Lock()
	defer repo.db.group.Unlock()

	repo.db.group.pkCount++
	grp.ID = repo.db.group.pkCount
	repo.db.group.table[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id int) (group.Group, error) {
	repo.db.group.RLock()
	defer repo.db.group.RUnlock()

	if grp, ok := repo.db.group.table[id]; ok {
		return *grp, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) QueryGroupsByDay(ctx context.Context, day schedule.Day) ([]group.Group, error) {
	repo.db.group.RLock()
	defer repo.db.group.RUnlock()

	var groups []group.Group
	for _, grp := range repo.query() {
		if grp.ScheduledOn(day) {
			groups = append(groups, grp)
		}
	}
	return groups, nil
}

func (repo *groupRepository) FilterGroups(ctx context.Context, filter group.QueryFilter) ([]group.Group, int, error) {
	repo.db.group.RLock()
	defer repo.db.group.RUnlock()

	var groups []group.Group
	for _, grp := range repo.query() {
		if filter.Search != "" && !strings.Contains(strings.ToLower(grp.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Level != 0 && grp.Level != filter.Level {
			continue
		}
		if filter.Day != "" && !grp.ScheduledOn(filter.Day) {
			continue
		}
		grp.StudentsCount = repo.studentsCount(grp.ID)
		groups = append(groups, grp)
	}

	total := len(groups)
	lo, hi := paginate(total, filter.Page, filter.Limit)
	return groups[lo:hi], total, nil
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	repo.db.group.Lock()
	defer repo.db.group.Unlock()

	if _, ok := repo.db.group.table[grp.ID]; !ok {
		return group.Group{}, group.ErrNotFound
	}
	repo.db.group.table[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) DeleteGroupsByID(ctx context.Context, ids ...int) error {
	repo.db.group.Lock()
	defer repo.db.group.Unlock()
	for _, id := range ids {
		delete(repo.db.group.table, id)
	}
	return nil
}

func groupExcluded(grp group.Group, excluded []group.Group) bool {
	for _, ex := range excluded {
		if ex.ID == grp.ID {
			return true
		}
	}
	return false
}
