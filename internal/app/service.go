package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tutorials/api/internal/auth"
	"tutorials/api/internal/authpw"
	"tutorials/api/internal/config"
	"tutorials/api/internal/rbac"
	"tutorials/api/internal/store"
	"tutorials/api/internal/tree"
	"tutorials/api/internal/upload"
)

// Session is the caller identity carried by a verified access token.
type Session struct {
	Token     string
	UserID    int64
	UserName  string
	Role      string
	IsSuper   bool
	JTI       string
	ExpiresAt time.Time
}

func (s Session) rbacRole() rbac.Role {
	return rbac.Normalize(s.Role, s.IsSuper)
}

type dataStore interface {
	Ping(context.Context) error
	HasAdmins(context.Context) (bool, error)

	CreateTopic(context.Context, store.NewTopic) (int64, error)
	UpdateTopic(context.Context, int64, store.TopicPatch) (int64, error)
	DeleteTopic(context.Context, int64) (int64, error)
	GetTopic(context.Context, int64) (store.Topic, error)
	GetTopicByFullPath(context.Context, string) (store.Topic, error)
	GetTopicBySlugSegments(context.Context, []string) (store.Topic, error)
	ListChildren(context.Context, *int64) ([]store.Topic, error)
	ListRootTopics(context.Context, store.RootListOptions) ([]store.Topic, error)
	BuildSubtree(context.Context, *int64, int) ([]store.TopicNode, error)
	BulkReorder(context.Context, *int64, []tree.ReorderItem) ([]store.OrderAssignment, error)
	RebuildPaths(context.Context) (int, error)

	CreateBlock(context.Context, store.NewBlock) (store.BlockResult, error)
	GetBlocksByTopic(context.Context, int64) ([]store.ContentBlock, error)
	GetBlock(context.Context, int64) (store.ContentBlock, error)
	UpdateBlock(context.Context, int64, store.BlockPatch) (int64, error)
	DeleteBlock(context.Context, int64) (int64, error)

	CreateComment(context.Context, store.Comment) (int64, error)
	ListComments(context.Context, int64) ([]store.Comment, error)
	LikeComment(context.Context, int64, int64) error

	CreateMCQ(context.Context, store.MCQ) (int64, error)
	GetMCQ(context.Context, int64) (store.MCQ, error)
}

// TokenRevoker remembers logged-out token ids until the token would expire.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type UploadPresigner interface {
	Presign(ctx context.Context, req upload.Request) (upload.Presigned, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	accounts *authpw.Service
	revoked  TokenRevoker
	uploads  UploadPresigner
	log      zerolog.Logger
}

// New wires a Service. uploads may be nil, in which case presigning reports
// that object storage is not configured.
func New(cfg config.Config, dataStore *store.PostgresStore, revoked TokenRevoker, uploads UploadPresigner, logger zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		accounts: authpw.NewService(dataStore),
		revoked:  revoked,
		uploads:  uploads,
		log:      logger,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Can(session Session, action rbac.Action) bool {
	return rbac.Can(session.rbacRole(), action)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	IsSuper  bool   `json:"is_super"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	As       string `json:"as"`
}

func (s *Service) RegisterUser(ctx context.Context, input RegisterInput) (map[string]any, error) {
	identity, err := s.accounts.RegisterUser(ctx, authpw.RegisterRequest{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		return nil, accountError(err)
	}
	return identityPayload(identity), nil
}

// RegisterAdmin creates an admin account. The first admin may register
// without a session and is made a super admin; after that only a super admin
// can add admins.
func (s *Service) RegisterAdmin(ctx context.Context, caller *Session, input RegisterInput) (map[string]any, error) {
	exists, err := s.store.HasAdmins(ctx)
	if err != nil {
		return nil, err
	}
	isSuper := input.IsSuper
	if !exists {
		isSuper = true
	} else {
		if caller == nil {
			return nil, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		}
		if !s.Can(*caller, rbac.ActionManageAdmins) {
			return nil, domainError(http.StatusForbidden, "FORBIDDEN", "super-admin only", nil)
		}
	}

	identity, err := s.accounts.RegisterAdmin(ctx, authpw.RegisterRequest{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Phone:    input.Phone,
		IsSuper:  isSuper,
	})
	if err != nil {
		return nil, accountError(err)
	}
	s.log.Info().Int64("admin_id", identity.ID).Bool("is_super", isSuper).Msg("admin registered")
	return identityPayload(identity), nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (map[string]any, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" || input.As == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "email, password and as (admin|user) required", nil)
	}

	var (
		identity authpw.Identity
		err      error
	)
	switch strings.ToLower(strings.TrimSpace(input.As)) {
	case "admin":
		identity, err = s.accounts.LoginAdmin(ctx, input.Email, input.Password)
	case "user":
		identity, err = s.accounts.LoginUser(ctx, input.Email, input.Password)
	default:
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "as must be admin or user", nil)
	}
	if err != nil {
		return nil, accountError(err)
	}

	session, err := s.issueSession(identity)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
		"user":      identityPayload(identity),
	}, nil
}

func (s *Service) issueSession(identity authpw.Identity) (Session, error) {
	token, claims, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		ID:      identity.ID,
		Name:    identity.Name,
		Role:    identity.Role,
		IsSuper: identity.IsSuper,
	}, s.cfg.TokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    identity.ID,
		UserName:  identity.Name,
		Role:      identity.Role,
		IsSuper:   identity.IsSuper,
		JTI:       claims.RegisteredClaims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.RegisteredClaims.ID)
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, auth.ErrInvalidToken
		}
	}

	return Session{
		Token:     token,
		UserID:    claims.ID,
		UserName:  claims.Name,
		Role:      claims.Role,
		IsSuper:   claims.IsSuper,
		JTI:       claims.RegisteredClaims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session) error {
	if s.revoked == nil || session.JTI == "" {
		return nil
	}
	if err := s.revoked.RevokeToken(ctx, session.JTI, session.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func identityPayload(identity authpw.Identity) map[string]any {
	payload := map[string]any{
		"id":    identity.ID,
		"name":  identity.Name,
		"email": identity.Email,
		"role":  identity.Role,
	}
	if identity.IsSuper {
		payload["is_super"] = true
	}
	return payload
}

func accountError(err error) error {
	var inputErr *authpw.InputError
	switch {
	case errors.As(err, &inputErr):
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", inputErr.Message, nil)
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	case errors.Is(err, store.ErrEmailTaken):
		return domainError(http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists", nil)
	default:
		return err
	}
}
