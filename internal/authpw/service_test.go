package authpw

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"tutorials/api/internal/store"
)

// mockUserStore is an in-memory UserStore keyed by lowercased email.
type mockUserStore struct {
	admins map[string]store.Admin
	users  map[string]store.User
	nextID int64
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{admins: map[string]store.Admin{}, users: map[string]store.User{}}
}

func (m *mockUserStore) CreateAdmin(_ context.Context, admin store.Admin) (int64, error) {
	if _, ok := m.admins[admin.Email]; ok {
		return 0, store.ErrEmailTaken
	}
	m.nextID++
	admin.ID = m.nextID
	m.admins[admin.Email] = admin
	return admin.ID, nil
}

func (m *mockUserStore) GetAdminByEmail(_ context.Context, email string) (store.Admin, error) {
	admin, ok := m.admins[email]
	if !ok {
		return store.Admin{}, store.ErrNotFound
	}
	return admin, nil
}

func (m *mockUserStore) CreateUser(_ context.Context, user store.User) (int64, error) {
	if _, ok := m.users[user.Email]; ok {
		return 0, store.ErrEmailTaken
	}
	m.nextID++
	user.ID = m.nextID
	if user.Role == "" {
		user.Role = "student"
	}
	m.users[user.Email] = user
	return user.ID, nil
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := m.users[email]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func newTestService() (*Service, *mockUserStore) {
	users := newMockUserStore()
	return NewService(users).WithCost(bcrypt.MinCost), users
}

func TestRegisterAndLoginAdmin(t *testing.T) {
	svc, users := newTestService()
	ctx := context.Background()

	identity, err := svc.RegisterAdmin(ctx, RegisterRequest{
		Name:     "Root",
		Email:    " Root@Example.com ",
		Password: "password123",
		IsSuper:  true,
	})
	if err != nil {
		t.Fatalf("RegisterAdmin() error = %v", err)
	}
	if identity.Role != "admin" || !identity.IsSuper || identity.Email != "root@example.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if users.admins["root@example.com"].PasswordHash == "password123" {
		t.Fatal("password stored in plain text")
	}

	loggedIn, err := svc.LoginAdmin(ctx, "ROOT@example.com", "password123")
	if err != nil {
		t.Fatalf("LoginAdmin() error = %v", err)
	}
	if loggedIn.ID != identity.ID || !loggedIn.IsSuper {
		t.Fatalf("unexpected login identity: %+v", loggedIn)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "password123"}); err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}

	if _, err := svc.LoginUser(ctx, "ann@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.LoginUser(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := svc.LoginAdmin(ctx, "ann@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("students must not log in as admins, got %v", err)
	}

	identity, err := svc.LoginUser(ctx, "ann@example.com", "password123")
	if err != nil {
		t.Fatalf("LoginUser() error = %v", err)
	}
	if identity.Role != "student" {
		t.Fatalf("role = %q, want student", identity.Role)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []RegisterRequest{
		{Email: "a@example.com", Password: "password123"},
		{Name: "A", Email: "not-an-email", Password: "password123"},
		{Name: "A", Email: "a@example.com", Password: "short"},
	}
	for _, req := range cases {
		if _, err := svc.RegisterUser(ctx, req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("RegisterUser(%+v) error = %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	req := RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "password123"}

	if _, err := svc.RegisterUser(ctx, req); err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}
	req.Email = "ANN@example.com"
	if _, err := svc.RegisterUser(ctx, req); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}
