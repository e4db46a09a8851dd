package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

const userColumns = `
	id, username, email, password, first_name, last_name,
	avatar, phone_number, birth_of_date, created_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
// Soft-deleted rows (deleted_at set) are invisible to every query.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a user by ID.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// FindByLogin retrieves a user by username or email.
func (r *PostgresRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE (username = $1 OR lower(email) = lower($1)) AND deleted_at IS NULL
		LIMIT 1
	`
	return scanUser(r.pool.QueryRow(ctx, query, login))
}

// Create inserts a new user and sets its ID.
func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			username, email, password, first_name, last_name,
			avatar, phone_number, birth_of_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		passwordHash,
		user.FirstName,
		user.LastName,
		user.Avatar,
		user.PhoneNumber,
		user.BirthDate,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u            User
		passwordHash *string
		createdAt    *time.Time
	)

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&passwordHash,
		&u.FirstName,
		&u.LastName,
		&u.Avatar,
		&u.PhoneNumber,
		&u.BirthDate,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if createdAt != nil {
		u.CreatedAt = *createdAt
	}
	return &u, nil
}
