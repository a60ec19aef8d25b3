package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// uniqueViolation is the SQLSTATE Postgres reports for a unique index conflict.
const uniqueViolation = "23505"

const (
	insertUserSQL = `INSERT INTO users (email, password, first_name, last_name)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	selectUserColumns = `SELECT id, email, password, first_name, last_name, created_at FROM users`

	findUserByEmailSQL = selectUserColumns + ` WHERE email = $1`
	findUserByIDSQL    = selectUserColumns + ` WHERE id = $1`
	listUsersSQL       = selectUserColumns + ` ORDER BY id LIMIT $1 OFFSET $2`
	countUsersSQL      = `SELECT COUNT(*) FROM users`
)

// UserDirectory is the SQL user store. The users_email_unique index is the
// single source of truth for email uniqueness.
type UserDirectory struct {
	db *sql.DB
}

func NewUserDirectory(db *sql.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (r *UserDirectory) Create(ctx context.Context, in domain.NewUser) (*domain.UserRecord, error) {
	u := &domain.UserRecord{
		Email:               in.Email,
		PasswordPlaceholder: in.StoredPassword(),
		FirstName:           in.FirstName,
		LastName:            in.LastName,
	}

	err := r.db.QueryRowContext(ctx, insertUserSQL,
		u.Email, u.PasswordPlaceholder, u.FirstName, u.LastName,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateKey
		}
		return nil, storeErr("insert user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *UserDirectory) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	return r.findOne(ctx, findUserByEmailSQL, email)
}

func (r *UserDirectory) FindByID(ctx context.Context, id int64) (*domain.UserRecord, error) {
	return r.findOne(ctx, findUserByIDSQL, id)
}

func (r *UserDirectory) List(ctx context.Context, offset, limit int) ([]*domain.UserRecord, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, countUsersSQL).Scan(&total); err != nil {
		return nil, 0, storeErr("count users", err)
	}

	rows, err := r.db.QueryContext(ctx, listUsersSQL, limit, offset)
	if err != nil {
		return nil, 0, storeErr("list users", err)
	}
	defer rows.Close()

	items := make([]*domain.UserRecord, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, storeErr("scan user", err)
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("list users", err)
	}
	return items, total, nil
}

func (r *UserDirectory) findOne(ctx context.Context, query string, arg any) (*domain.UserRecord, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeErr("find user", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.UserRecord, error) {
	var u domain.UserRecord
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordPlaceholder, &u.FirstName, &u.LastName, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
