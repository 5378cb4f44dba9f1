package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/pawmate/pawmate/internal/app/domain/user"
)

const userColumns = `id, email, password_hash, full_name, phone, avatar_url, role, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :email, :password_hash, :full_name, :phone, :avatar_url, :role, :created_at, :updated_at)
	`, u)
	if err != nil {
		return user.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = now()
	err := s.db.GetContext(ctx, &u.CreatedAt, `
		UPDATE users
		SET email = $2, password_hash = $3, full_name = $4, phone = $5, avatar_url = $6, role = $7, updated_at = $8
		WHERE id = $1
		RETURNING created_at
	`, u.ID, u.Email, u.PasswordHash, u.FullName, u.Phone, u.AvatarURL, u.Role, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return u, mapErr(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return u, mapErr(err)
}
