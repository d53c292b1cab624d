package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) CreateComment(ctx context.Context, comment Comment) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (topic_id, parent_comment_id, user_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, comment.TopicID, comment.ParentCommentID, comment.UserID, comment.Content).Scan(&id)
	if isForeignKeyViolation(err) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, topicID int64) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic_id, parent_comment_id, user_id, content, like_count, created_at
		FROM comments
		WHERE topic_id=$1
		ORDER BY created_at ASC, id ASC
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.TopicID, &item.ParentCommentID, &item.UserID, &item.Content, &item.LikeCount, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

// LikeComment records one like per user and bumps the cached counter in the
// same transaction. A repeated like fails with ErrAlreadyLiked.
func (s *PostgresStore) LikeComment(ctx context.Context, commentID, userID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO comment_likes (comment_id, user_id) VALUES ($1, $2)
		`, commentID, userID)
		if isUniqueViolation(err) {
			return ErrAlreadyLiked
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("insert comment like: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE comments SET like_count = like_count + 1 WHERE id=$1`, commentID); err != nil {
			return fmt.Errorf("bump like count: %w", err)
		}
		return nil
	})
}
