package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrSlugConflict     = errors.New("slug already exists under this parent")
	ErrPathConflict     = errors.New("full path already exists")
	ErrParentNotFound   = errors.New("parent topic not found")
	ErrCycle            = errors.New("topic cannot be moved under itself or its descendants")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrDuplicateContent = errors.New("identical content already exists for this topic")
	ErrEmailTaken       = errors.New("email already registered")
	ErrAlreadyLiked     = errors.New("comment already liked")
	ErrNotFound         = errors.New("not found")
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"

	constraintParentSlug = "topics_parent_slug_key"
	constraintFullPath   = "topics_full_path_key"
	constraintBlockHash  = "content_blocks_topic_hash_key"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// topicWriteError maps constraint violations from a topic insert or update
// onto sentinels and wraps anything else with op.
func topicWriteError(op string, err error) error {
	if pgErr, ok := pgError(err); ok {
		switch {
		case pgErr.Code == sqlStateUniqueViolation && pgErr.ConstraintName == constraintParentSlug:
			return ErrSlugConflict
		case pgErr.Code == sqlStateUniqueViolation && pgErr.ConstraintName == constraintFullPath:
			return ErrPathConflict
		case pgErr.Code == sqlStateForeignKeyViolation:
			return ErrParentNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func blockWriteError(op string, err error) error {
	if pgErr, ok := pgError(err); ok {
		switch {
		case pgErr.Code == sqlStateUniqueViolation && pgErr.ConstraintName == constraintBlockHash:
			return ErrDuplicateContent
		case pgErr.Code == sqlStateForeignKeyViolation:
			return ErrTopicNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == sqlStateUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == sqlStateForeignKeyViolation
}
