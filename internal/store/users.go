package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

func (s *PostgresStore) CreateAdmin(ctx context.Context, admin Admin) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admins (name, email, password_hash, phone, is_super)
		VALUES ($1, LOWER($2), $3, $4, $5)
		RETURNING id
	`, admin.Name, strings.TrimSpace(admin.Email), admin.PasswordHash, nullableText(admin.Phone), admin.IsSuper).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrEmailTaken
	}
	if err != nil {
		return 0, fmt.Errorf("insert admin: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	var (
		admin Admin
		phone sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, phone, is_super, created_at
		FROM admins
		WHERE email = LOWER($1)
	`, strings.TrimSpace(email)).Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &phone, &admin.IsSuper, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, ErrNotFound
	}
	if err != nil {
		return Admin{}, fmt.Errorf("lookup admin: %w", err)
	}
	admin.Phone = phone.String
	return admin, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (int64, error) {
	role := user.Role
	if role == "" {
		role = "student"
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, bio)
		VALUES ($1, LOWER($2), $3, $4, $5)
		RETURNING id
	`, user.Name, strings.TrimSpace(user.Email), user.PasswordHash, role, nullableText(user.Bio)).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrEmailTaken
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var (
		user      User
		bio       sql.NullString
		avatarURL sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, bio, avatar_url, created_at
		FROM users
		WHERE email = LOWER($1)
	`, strings.TrimSpace(email)).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &bio, &avatarURL, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	user.Bio = bio.String
	user.AvatarURL = avatarURL.String
	return user, nil
}

// HasAdmins reports whether any admin account exists yet.
func (s *PostgresStore) HasAdmins(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM admins)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check admins: %w", err)
	}
	return exists, nil
}
