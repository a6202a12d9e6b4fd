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
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core/user"
)

type userRow struct {
	ID           int            `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        types.JSONText `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (row userRow) toUser() (user.User, error) {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username,
		Email:        row.Email,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time
	}
	if len(row.Roles) > 0 {
		if err := json.Unmarshal(row.Roles, &usr.Roles); err != nil {
			return user.User{}, errors.Wrap(err, "unmarshalling user roles")
		}
	}
	return usr, nil
}

func marshalRoles(roles []string) (types.JSONText, error) {
	if roles == nil {
		roles = []string{}
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling user roles")
	}
	return data, nil
}

func nullLastLogin(t time.Time) null.Time {
	return null.NewTime(t, !t.IsZero())
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excludedIDs := make([]int, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excludedIDs = append(excludedIDs, usr.ID)
	}

	check := func(column, value string, dupErr error) error {
		if value == "" {
			return nil
		}
		query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE lower(` + column + `) = lower(?)`
		args := []interface{}{value}
		if len(excludedIDs) > 0 {
			query += ` AND id NOT IN (?)`
			args = append(args, excludedIDs)
		}
		query += `)`

		query, inArgs, err := sqlx.In(query, args...)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), inArgs...); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if exists {
			return dupErr
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	roles, err := marshalRoles(usr.Roles)
	if err != nil {
		return user.User{}, err
	}
	err = repo.db.GetContext(ctx, &usr.ID,
		`INSERT INTO "user" (
			name, username, email, is_active, roles, password_hash,
			created_at, updated_at, last_login
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		usr.Name, usr.Username, usr.Email, usr.IsActive, roles, usr.PasswordHash,
		usr.CreatedAt, usr.UpdatedAt, nullLastLogin(usr.LastLogin))
	if err != nil {
		return user.User{}, mapUserDupErr(err, errors.Wrap(err, "creating user"))
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return rowsToUsers(rows)
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.get(ctx, `SELECT * FROM "user" WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, `SELECT * FROM "user" WHERE lower(username) = lower($1)`, username)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, `SELECT * FROM "user" WHERE lower(email) = lower($1)`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx,
		`SELECT * FROM "user" WHERE lower(username) = lower($1) OR lower(email) = lower($1)`,
		username)
}

func (repo *userRepository) get(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser()
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	where := "TRUE"
	args := make([]interface{}, 0, 5)

	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		where += fmt.Sprintf(" AND (name ILIKE $%d OR username ILIKE $%d OR email ILIKE $%d)", n, n, n)
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if !filter.CreatedFrom.IsZero() {
		args = append(args, filter.CreatedFrom)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.CreatedTo.IsZero() {
		args = append(args, filter.CreatedTo)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if len(filter.Roles) > 0 {
		// a role filter matches any of the wanted roles
		conds := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			args = append(args, fmt.Sprintf(`["%s"]`, role))
			conds = append(conds, fmt.Sprintf("roles @> $%d::jsonb", len(args)))
		}
		where += " AND ("
		for i, cond := range conds {
			if i > 0 {
				where += " OR "
			}
			where += cond
		}
		where += ")"
	}

	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return rowsToUsers(rows)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	roles, err := marshalRoles(usr.Roles)
	if err != nil {
		return user.User{}, err
	}
	res, err := repo.db.ExecContext(ctx,
		`UPDATE "user" SET
			name = $1, username = $2, email = $3, is_active = $4, roles = $5,
			password_hash = $6, updated_at = $7
		 WHERE id = $8`,
		usr.Name, usr.Username, usr.Email, usr.IsActive, roles,
		usr.PasswordHash, usr.UpdatedAt, usr.ID)
	if err != nil {
		return user.User{}, mapUserDupErr(err, errors.Wrap(err, "updating user"))
	}
	if n, err := res.RowsAffected(); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) SetUserLastLogin(ctx context.Context, id int, t time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE "user" SET last_login = $1, updated_at = $1 WHERE id = $2`, t, id)
	if err != nil {
		return errors.Wrap(err, "recording user login")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "recording user login")
	} else if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building user delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func mapUserDupErr(err, wrapped error) error {
	switch {
	case isUniqueViolation(err, "user_username_idx"):
		return user.ErrUsernameExists
	case isUniqueViolation(err, "user_email_idx"):
		return user.ErrEmailExists
	}
	return wrapped
}

func rowsToUsers(rows []userRow) ([]user.User, error) {
	usrs := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usr, err := row.toUser()
		if err != nil {
			return nil, err
		}
		usrs = append(usrs, usr)
	}
	return usrs, nil
}
