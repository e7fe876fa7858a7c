package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// UserRepo persists users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u (with an already hashed password) and returns its ID.
// An empty phone is stored as NULL so any number of users may omit it.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	phone := sql.NullString{String: u.Phone, Valid: u.Phone != ""}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, phone, password_hash, role, is_verified) VALUES (?, ?, ?, ?, ?)`,
		email, phone, u.PasswordHash, u.Role, u.IsVerified)
	if err != nil {
		if isDuplicateKey(err) {
			if duplicateKeyName(err) == "uq_users_phone" {
				return 0, ErrPhoneExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.get(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *UserRepo) get(ctx context.Context, cond string, arg any) (model.User, error) {
	var (
		u     model.User
		phone sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, phone, password_hash, role, is_active, is_verified, created_at, updated_at
		 FROM users WHERE `+cond+` LIMIT 1`, arg).
		Scan(&u.ID, &u.Email, &phone, &u.PasswordHash, &u.Role, &u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	u.Phone = phone.String
	return u, err
}
