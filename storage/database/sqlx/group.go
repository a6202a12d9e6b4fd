package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/schedule"
)

type groupRow struct {
	ID            int            `db:"id"`
	Name          string         `db:"group_name"`
	StartTime     string         `db:"start_time"`
	Level         int            `db:"level"`
	Days          types.JSONText `db:"days"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	StudentsCount int            `db:"students_count"`
}

func (row groupRow) toGroup() (group.Group, error) {
	var days []schedule.Day
	if err := json.Unmarshal(row.Days, &days); err != nil {
		return group.Group{}, errors.Wrap(err, "unmarshalling group days")
	}
	return group.Group{
		ID:            row.ID,
		Name:          row.Name,
		StartTime:     row.StartTime,
		Level:         row.Level,
		Days:          days,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		StudentsCount: row.StudentsCount,
	}, nil
}

func marshalDays(days []schedule.Day) (types.JSONText, error) {
	if days == nil {
		days = []schedule.Day{}
	}
	data, err := json.Marshal(days)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling group days")
	}
	return data, nil
}

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) CheckNameUniqueness(ctx context.Context, name string, level int, excludedGroups ...group.Group) error {
	query := `SELECT EXISTS (SELECT 1 FROM "group" WHERE lower(group_name) = lower(?) AND level = ?`
	args := []interface{}{name, level}
	if len(excludedGroups) > 0 {
		ids := make([]int, 0, len(excludedGroups))
		for _, grp := range excludedGroups {
			ids = append(ids, grp.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var exists bool
	if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), inArgs...); err != nil {
		return errors.Wrap(err, "checking group uniqueness")
	}
	if exists {
		return group.ErrGroupExists
	}
	return nil
}

func (repo *groupRepository) CreateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	days, err := marshalDays(grp.Days)
	if err != nil {
		return group.Group{}, err
	}
	err = repo.db.GetContext(ctx, &grp.ID,
		`INSERT INTO "group" (group_name, start_time, level, days, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		grp.Name, grp.StartTime, grp.Level, days, grp.CreatedAt, grp.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "group_name_level_idx") {
			return group.Group{}, group.ErrGroupExists
		}
		return group.Group{}, errors.Wrap(err, "creating group")
	}
	return grp, nil
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id int) (group.Group, error) {
	var row groupRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT g.*, (SELECT count(*) FROM student s WHERE s.group_id = g.id) AS students_count
		 FROM "group" g WHERE g.id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return group.Group{}, group.ErrNotFound
		}
		return group.Group{}, errors.Wrap(err, "getting group")
	}
	return row.toGroup()
}

func (repo *groupRepository) QueryGroupsByDay(ctx context.Context, day schedule.Day) ([]group.Group, error) {
	var rows []groupRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT g.*, 0 AS students_count FROM "group" g
		 WHERE g.days @> to_jsonb($1::text) ORDER BY g.start_time, g.id`, string(day))
	if err != nil {
		return nil, errors.Wrap(err, "querying groups by day")
	}
	return rowsToGroups(rows)
}

func (repo *groupRepository) FilterGroups(ctx context.Context, filter group.QueryFilter) ([]group.Group, int, error) {
	where := "TRUE"
	args := make([]interface{}, 0, 3)
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		where += fmt.Sprintf(" AND lower(g.group_name) LIKE $%d", len(args))
	}
	if filter.Level != 0 {
		args = append(args, filter.Level)
		where += fmt.Sprintf(" AND g.level = $%d", len(args))
	}
	if filter.Day != "" {
		args = append(args, string(filter.Day))
		where += fmt.Sprintf(" AND g.days @> to_jsonb($%d::text)", len(args))
	}

	var total int
	err := repo.db.GetContext(ctx, &total, `SELECT count(*) FROM "group" g WHERE `+where, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting groups")
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(
		`SELECT g.*, (SELECT count(*) FROM student s WHERE s.group_id = g.id) AS students_count
		 FROM "group" g WHERE %s ORDER BY g.id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	var rows []groupRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering groups")
	}
	groups, err := rowsToGroups(rows)
	return groups, total, err
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	days, err := marshalDays(grp.Days)
	if err != nil {
		return group.Group{}, err
	}
	res, err := repo.db.ExecContext(ctx,
		`UPDATE "group" SET group_name = $1, start_time = $2, level = $3, days = $4, updated_at = $5
		 WHERE id = $6`,
		grp.Name, grp.StartTime, grp.Level, days, grp.UpdatedAt, grp.ID)
	if err != nil {
		if isUniqueViolation(err, "group_name_level_idx") {
			return group.Group{}, group.ErrGroupExists
		}
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return group.Group{}, group.ErrNotFound
	}
	return grp, nil
}

func (repo *groupRepository) DeleteGroupsByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "group" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting groups")
	}
	return nil
}

func rowsToGroups(rows []groupRow) ([]group.Group, error) {
	groups := make([]group.Group, 0, len(rows))
	for _, row := range rows {
		grp, err := row.toGroup()
		if err != nil {
			return nil, err
		}
		groups = append(groups, grp)
	}
	return groups, nil
}
