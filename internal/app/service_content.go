package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tutorials/api/internal/auth"
	"tutorials/api/internal/rbac"
	"tutorials/api/internal/store"
	"tutorials/api/internal/upload"
)

type BlockInput struct {
	TopicID    int64           `json:"topic_id"`
	BlockType  string          `json:"block_type"`
	Title      *string         `json:"title"`
	Components json.RawMessage `json:"components"`
	BlockOrder int             `json:"block_order"`
	Metadata   json.RawMessage `json:"metadata"`
}

type CommentInput struct {
	ParentCommentID *int64 `json:"parent_comment_id"`
	Content         string `json:"content"`
}

type MCQInput struct {
	TopicID        *int64          `json:"topic_id"`
	Title          *string         `json:"title"`
	Description    *string         `json:"description"`
	Options        json.RawMessage `json:"options"`
	IsSingleAnswer *bool           `json:"is_single_answer"`
	CorrectAnswers json.RawMessage `json:"correct_answers"`
	CodeSnippets   *string         `json:"code_snippets"`
	QuestionType   string          `json:"question_type"`
	Difficulty     string          `json:"difficulty"`
	Images         *string         `json:"images"`
}

// AddContent attaches a block to a topic. Content identical to a block the
// topic already has is reported as a conflict carrying the existing id.
func (s *Service) AddContent(ctx context.Context, topicID int64, input BlockInput) (map[string]any, error) {
	if topicID <= 0 {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid topic id", nil)
	}
	result, err := s.store.CreateBlock(ctx, store.NewBlock{
		TopicID:    topicID,
		BlockType:  input.BlockType,
		Title:      input.Title,
		Components: input.Components,
		BlockOrder: input.BlockOrder,
		Metadata:   input.Metadata,
	})
	if err != nil {
		return nil, storeError(err)
	}
	if result.Existed {
		return nil, domainError(http.StatusConflict, "DUPLICATE_CONTENT", "Duplicate content", map[string]any{"id": result.ID})
	}
	s.log.Debug().Int64("topic_id", topicID).Int64("block_id", result.ID).Msg("content block created")
	return map[string]any{"id": result.ID, "message": "Content block created"}, nil
}

func (s *Service) AddContentByPath(ctx context.Context, path string, input BlockInput) (map[string]any, error) {
	topic, err := s.resolveTopic(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.AddContent(ctx, topic.ID, input)
}

func (s *Service) ListBlocks(ctx context.Context, topicID int64) ([]store.ContentBlock, error) {
	return s.store.GetBlocksByTopic(ctx, topicID)
}

func (s *Service) GetBlock(ctx context.Context, id int64) (store.ContentBlock, error) {
	block, err := s.store.GetBlock(ctx, id)
	if err != nil {
		return store.ContentBlock{}, notFoundAs(err, "Content block not found")
	}
	return block, nil
}

func blockPatchFromFields(fields map[string]json.RawMessage) (store.BlockPatch, error) {
	var patch store.BlockPatch
	invalid := func(message string) (store.BlockPatch, error) {
		return store.BlockPatch{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
	}

	if raw, ok := fields["block_type"]; ok {
		var blockType string
		if err := json.Unmarshal(raw, &blockType); err != nil || strings.TrimSpace(blockType) == "" {
			return invalid("block_type must be a non-empty string")
		}
		blockType = strings.TrimSpace(blockType)
		patch.BlockType = &blockType
	}
	if raw, ok := fields["title"]; ok {
		var title *string
		if err := json.Unmarshal(raw, &title); err != nil {
			return invalid("title must be a string or null")
		}
		if title == nil {
			empty := ""
			title = &empty
		}
		patch.Title = title
	}
	if raw, ok := fields["components"]; ok {
		patch.Components = raw
	}
	if raw, ok := fields["block_order"]; ok {
		var order int
		if err := json.Unmarshal(raw, &order); err != nil {
			return invalid("block_order must be an integer")
		}
		patch.BlockOrder = &order
	}
	if raw, ok := fields["metadata"]; ok {
		patch.Metadata = raw
	}
	return patch, nil
}

func (s *Service) UpdateBlock(ctx context.Context, id int64, fields map[string]json.RawMessage) (map[string]any, error) {
	patch, err := blockPatchFromFields(fields)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "No updatable fields provided", nil)
	}
	affected, err := s.store.UpdateBlock(ctx, id, patch)
	if err != nil {
		return nil, storeError(err)
	}
	if affected == 0 {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Content block not found", nil)
	}
	return map[string]any{"id": id, "message": "Content block updated"}, nil
}

func (s *Service) DeleteBlock(ctx context.Context, id int64) (map[string]any, error) {
	affected, err := s.store.DeleteBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Content block not found", nil)
	}
	return map[string]any{"id": id, "message": "Content block deleted"}, nil
}

// PostComment records a comment on a topic. Only student accounts are linked
// as the comment's author; admins live in a separate table.
func (s *Service) PostComment(ctx context.Context, session Session, topicID int64, input CommentInput) (map[string]any, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "content required", nil)
	}
	var userID *int64
	if session.Role != auth.RoleAdmin {
		id := session.UserID
		userID = &id
	}
	id, err := s.store.CreateComment(ctx, store.Comment{
		TopicID:         topicID,
		ParentCommentID: input.ParentCommentID,
		UserID:          userID,
		Content:         content,
	})
	if err != nil {
		return nil, storeError(err)
	}
	return map[string]any{"id": id}, nil
}

func (s *Service) ListComments(ctx context.Context, topicID int64) ([]store.Comment, error) {
	return s.store.ListComments(ctx, topicID)
}

func (s *Service) LikeComment(ctx context.Context, session Session, commentID int64) (map[string]any, error) {
	if !s.Can(session, rbac.ActionLike) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "only student accounts can like comments", nil)
	}
	if err := s.store.LikeComment(ctx, commentID, session.UserID); err != nil {
		return nil, storeError(err)
	}
	return map[string]any{"message": "liked"}, nil
}

func (s *Service) CreateMCQ(ctx context.Context, input MCQInput) (map[string]any, error) {
	if !jsonPresent(input.Options) {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "options required", nil)
	}
	if !jsonPresent(input.CorrectAnswers) {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "correct_answers required", nil)
	}
	single := true
	if input.IsSingleAnswer != nil {
		single = *input.IsSingleAnswer
	}
	id, err := s.store.CreateMCQ(ctx, store.MCQ{
		TopicID:        input.TopicID,
		Title:          input.Title,
		Description:    input.Description,
		Options:        input.Options,
		IsSingleAnswer: single,
		CorrectAnswers: input.CorrectAnswers,
		CodeSnippets:   input.CodeSnippets,
		QuestionType:   strings.TrimSpace(input.QuestionType),
		Difficulty:     strings.TrimSpace(input.Difficulty),
		Images:         input.Images,
	})
	if err != nil {
		return nil, storeError(err)
	}
	return map[string]any{"id": id}, nil
}

func (s *Service) GetMCQ(ctx context.Context, id int64) (store.MCQ, error) {
	mcq, err := s.store.GetMCQ(ctx, id)
	if err != nil {
		return store.MCQ{}, notFoundAs(err, "not found")
	}
	return mcq, nil
}

func (s *Service) PresignUpload(ctx context.Context, req upload.Request) (upload.Presigned, error) {
	if s.uploads == nil {
		return upload.Presigned{}, domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "S3 bucket not configured", nil)
	}
	presigned, err := s.uploads.Presign(ctx, req)
	if errors.Is(err, upload.ErrContentTypeRequired) {
		return upload.Presigned{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "contentType required", nil)
	}
	if err != nil {
		return upload.Presigned{}, err
	}
	return presigned, nil
}

func jsonPresent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}
