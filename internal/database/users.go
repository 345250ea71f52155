package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lmarchetti/sidechat/internal/apperr"
	"github.com/lmarchetti/sidechat/internal/model"
)

const userColumns = "user_id, full_name, email, profile_pic, role, created_at"

type CreateUserParams struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           model.Role
}

// UserCredentials pairs a user with its password hash. It never leaves
// the auth path.
type UserCredentials struct {
	User           model.User
	HashedPassword string
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u          model.User
		id         pgtype.UUID
		profilePic pgtype.Text
		createdAt  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &u.FullName, &u.Email, &profilePic, &u.Role, &createdAt); err != nil {
		return model.User{}, err
	}
	u.ID = id.Bytes
	u.ProfilePic = profilePic.String
	u.CreatedAt = createdAt.Time
	return u, nil
}

func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (model.User, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, full_name, email, hashed_password, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		pgUUID(p.ID), p.FullName, p.Email, p.HashedPassword, p.Role,
		pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true})

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, apperr.AlreadyExists("user already exists")
		}
		return model.User{}, fmt.Errorf("database: create user: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, pgUUID(id))

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("database: get user by id: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserCredentials, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT `+userColumns+`, hashed_password
		FROM users WHERE email = $1`, email)

	var (
		creds      UserCredentials
		id         pgtype.UUID
		profilePic pgtype.Text
		createdAt  pgtype.Timestamptz
	)
	err := row.Scan(&id, &creds.User.FullName, &creds.User.Email, &profilePic,
		&creds.User.Role, &createdAt, &creds.HashedPassword)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserCredentials{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return UserCredentials{}, fmt.Errorf("database: get user by email: %w", err)
	}
	creds.User.ID = id.Bytes
	creds.User.ProfilePic = profilePic.String
	creds.User.CreatedAt = createdAt.Time
	return creds, nil
}

func (q *Queries) GetUserCredentials(ctx context.Context, id uuid.UUID) (UserCredentials, error) {
	u, err := q.GetUserByID(ctx, id)
	if err != nil {
		return UserCredentials{}, err
	}

	var hash string
	err = q.pool.QueryRow(ctx,
		`SELECT hashed_password FROM users WHERE user_id = $1`, pgUUID(id)).Scan(&hash)
	if err != nil {
		return UserCredentials{}, fmt.Errorf("database: get credentials: %w", err)
	}
	return UserCredentials{User: u, HashedPassword: hash}, nil
}

// ListUsersExcept returns every user other than userID, newest first.
// Feeds the conversation sidebar.
func (q *Queries) ListUsersExcept(ctx context.Context, userID uuid.UUID) ([]model.User, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE user_id <> $1
		ORDER BY created_at DESC`, pgUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("database: list users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (q *Queries) ListUsers(ctx context.Context, limit, offset int32) ([]model.User, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("database: list users page: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("database: scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("database: count users: %w", err)
	}
	return n, nil
}

func (q *Queries) UpdateUserRole(ctx context.Context, id uuid.UUID, role model.Role) (model.User, error) {
	row := q.pool.QueryRow(ctx, `
		UPDATE users SET role = $2 WHERE user_id = $1
		RETURNING `+userColumns, pgUUID(id), role)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("database: update role: %w", err)
	}
	return u, nil
}

func (q *Queries) UpdateProfilePic(ctx context.Context, id uuid.UUID, url string) (model.User, error) {
	row := q.pool.QueryRow(ctx, `
		UPDATE users SET profile_pic = $2 WHERE user_id = $1
		RETURNING `+userColumns, pgUUID(id), pgText(url))

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("database: update profile pic: %w", err)
	}
	return u, nil
}

func (q *Queries) UpdateUserInfo(ctx context.Context, id uuid.UUID, fullName, email string) (model.User, error) {
	row := q.pool.QueryRow(ctx, `
		UPDATE users SET full_name = $2, email = $3 WHERE user_id = $1
		RETURNING `+userColumns, pgUUID(id), fullName, email)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, apperr.AlreadyExists("email already in use")
		}
		return model.User{}, fmt.Errorf("database: update user: %w", err)
	}
	return u, nil
}

func (q *Queries) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := q.pool.Exec(ctx,
		`UPDATE users SET hashed_password = $2 WHERE user_id = $1`, pgUUID(id), hash)
	if err != nil {
		return fmt.Errorf("database: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// EmailTaken reports whether another account already owns email.
func (q *Queries) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := q.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE email = $1 AND user_id <> $2
		)`, email, pgUUID(exclude)).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("database: email taken: %w", err)
	}
	return taken, nil
}
