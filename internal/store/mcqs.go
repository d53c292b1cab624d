package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *PostgresStore) CreateMCQ(ctx context.Context, mcq MCQ) (int64, error) {
	questionType := mcq.QuestionType
	if questionType == "" {
		questionType = "practice"
	}
	difficulty := mcq.Difficulty
	if difficulty == "" {
		difficulty = "Level1"
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mcqs (topic_id, title, description, options, is_single_answer, correct_answers, code_snippets, question_type, difficulty, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, mcq.TopicID, mcq.Title, mcq.Description, jsonText(mcq.Options), mcq.IsSingleAnswer, jsonText(mcq.CorrectAnswers),
		mcq.CodeSnippets, questionType, difficulty, mcq.Images).Scan(&id)
	if isForeignKeyViolation(err) {
		return 0, ErrTopicNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("insert mcq: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetMCQ(ctx context.Context, id int64) (MCQ, error) {
	var (
		item           MCQ
		options        sql.NullString
		correctAnswers sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, topic_id, title, description, options, is_single_answer, correct_answers,
			code_snippets, question_type, difficulty, images, created_at
		FROM mcqs
		WHERE id=$1
	`, id).Scan(&item.ID, &item.TopicID, &item.Title, &item.Description, &options, &item.IsSingleAnswer,
		&correctAnswers, &item.CodeSnippets, &item.QuestionType, &item.Difficulty, &item.Images, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MCQ{}, ErrNotFound
	}
	if err != nil {
		return MCQ{}, fmt.Errorf("get mcq: %w", err)
	}
	item.Options = looseJSON(options)
	item.CorrectAnswers = looseJSON(correctAnswers)
	return item, nil
}
