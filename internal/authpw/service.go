// Package authpw provides email/password registration and login for admins
// and students.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tutorials/api/internal/store"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid registration input")
)

// InputError is a registration request that failed validation. It matches
// ErrInvalidInput under errors.Is.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Service provides email/password authentication
type Service struct {
	store UserStore
	cost  int
}

// UserStore defines the storage interface for auth
type UserStore interface {
	CreateAdmin(ctx context.Context, admin store.Admin) (int64, error)
	GetAdminByEmail(ctx context.Context, email string) (store.Admin, error)
	CreateUser(ctx context.Context, user store.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
}

func NewService(store UserStore) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

// WithCost returns a copy of the service hashing at the given bcrypt cost.
func (s *Service) WithCost(cost int) *Service {
	clone := *s
	clone.cost = cost
	return &clone
}

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
	IsSuper  bool
}

// Identity is the authenticated principal returned by login and registration.
type Identity struct {
	ID      int64
	Name    string
	Email   string
	Role    string
	IsSuper bool
}

func (s *Service) RegisterAdmin(ctx context.Context, req RegisterRequest) (Identity, error) {
	email, hash, err := s.prepare(req)
	if err != nil {
		return Identity{}, err
	}
	id, err := s.store.CreateAdmin(ctx, store.Admin{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
		IsSuper:      req.IsSuper,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("create admin: %w", err)
	}
	return Identity{ID: id, Name: strings.TrimSpace(req.Name), Email: email, Role: "admin", IsSuper: req.IsSuper}, nil
}

func (s *Service) RegisterUser(ctx context.Context, req RegisterRequest) (Identity, error) {
	email, hash, err := s.prepare(req)
	if err != nil {
		return Identity{}, err
	}
	id, err := s.store.CreateUser(ctx, store.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("create user: %w", err)
	}
	return Identity{ID: id, Name: strings.TrimSpace(req.Name), Email: email, Role: "student"}, nil
}

// LoginAdmin checks credentials against the admins table. Unknown emails and
// wrong passwords both return ErrInvalidCredentials.
func (s *Service) LoginAdmin(ctx context.Context, email, password string) (Identity, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}
	admin, err := s.store.GetAdminByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup admin: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: "admin", IsSuper: admin.IsSuper}, nil
}

func (s *Service) LoginUser(ctx context.Context, email, password string) (Identity, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}, nil
}

func (s *Service) prepare(req RegisterRequest) (string, string, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return "", "", &InputError{Message: "name, email, and password are required"}
	}
	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", &InputError{Message: "email is not valid"}
	}
	if len(req.Password) < minPasswordLength {
		return "", "", &InputError{Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return "", "", fmt.Errorf("hash password: %w", err)
	}
	return email, string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
