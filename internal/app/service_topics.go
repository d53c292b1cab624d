package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"tutorials/api/internal/auth"
	"tutorials/api/internal/store"
	"tutorials/api/internal/tree"
)

type CreateTopicInput struct {
	ParentID    *int64          `json:"parent_id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description *string         `json:"description"`
	OrderNo     *int            `json:"order_no"`
	IsPublished flexBool        `json:"is_published"`
	Metadata    json.RawMessage `json:"metadata"`
}

type ReorderItemInput struct {
	ID      *int64 `json:"id"`
	OrderNo *int   `json:"order_no"`
}

// flexBool accepts true/false as well as the 0/1 and "true"/"1" forms older
// clients send.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	parsed, err := parseFlexBool(data)
	if err != nil {
		return err
	}
	*b = flexBool(parsed)
	return nil
}

func parseFlexBool(data []byte) (bool, error) {
	switch strings.Trim(strings.ToLower(string(bytes.TrimSpace(data))), `"`) {
	case "true", "1":
		return true, nil
	case "false", "0", "", "null":
		return false, nil
	default:
		return false, errors.New("is_published must be a boolean")
	}
}

func validateSlug(raw string) (string, error) {
	normalized := tree.NormalizeSlug(raw)
	if normalized == "" {
		return "", domainError(http.StatusBadRequest, "VALIDATION_ERROR", "title and slug required", nil)
	}
	if !slug.IsSlug(normalized) {
		return "", domainError(http.StatusBadRequest, "VALIDATION_ERROR", "slug may only contain lowercase letters, digits, hyphens and underscores", map[string]any{
			"suggestion": slug.Make(raw),
		})
	}
	return normalized, nil
}

func validateParentID(parentID *int64) error {
	if parentID != nil && *parentID <= 0 {
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "parent_id must be a positive id or null", nil)
	}
	return nil
}

func validateOrderNo(orderNo *int) error {
	if orderNo != nil && *orderNo < 0 {
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "order_no must be zero or greater", nil)
	}
	return nil
}

func (s *Service) CreateTopic(ctx context.Context, session Session, input CreateTopicInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.Slug) == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "title and slug required", nil)
	}
	normalized, err := validateSlug(input.Slug)
	if err != nil {
		return nil, err
	}
	if err := validateParentID(input.ParentID); err != nil {
		return nil, err
	}
	if err := validateOrderNo(input.OrderNo); err != nil {
		return nil, err
	}

	var authorID *int64
	if session.Role == auth.RoleAdmin && session.UserID != 0 {
		id := session.UserID
		authorID = &id
	}
	id, err := s.store.CreateTopic(ctx, store.NewTopic{
		ParentID:    input.ParentID,
		Title:       title,
		Slug:        normalized,
		Description: input.Description,
		OrderNo:     input.OrderNo,
		IsPublished: bool(input.IsPublished),
		Metadata:    input.Metadata,
		AuthorID:    authorID,
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.log.Info().Int64("topic_id", id).Str("slug", normalized).Msg("topic created")
	return map[string]any{"id": id}, nil
}

// topicPatchFromFields builds a patch from the keys present in a JSON body.
// parent_id may be null to move a topic to the root. Keys the store derives
// itself, such as full_path, are ignored.
func topicPatchFromFields(fields map[string]json.RawMessage) (store.TopicPatch, error) {
	var patch store.TopicPatch
	invalid := func(message string) (store.TopicPatch, error) {
		return store.TopicPatch{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
	}

	if raw, ok := fields["parent_id"]; ok {
		patch.SetParent = true
		if err := json.Unmarshal(raw, &patch.ParentID); err != nil {
			return invalid("parent_id must be a number or null")
		}
		if err := validateParentID(patch.ParentID); err != nil {
			return store.TopicPatch{}, err
		}
	}
	if raw, ok := fields["title"]; ok {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil || strings.TrimSpace(title) == "" {
			return invalid("title must be a non-empty string")
		}
		title = strings.TrimSpace(title)
		patch.Title = &title
	}
	if raw, ok := fields["slug"]; ok {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return invalid("slug must be a string")
		}
		normalized, err := validateSlug(value)
		if err != nil {
			return store.TopicPatch{}, err
		}
		patch.Slug = &normalized
	}
	if raw, ok := fields["description"]; ok {
		var description *string
		if err := json.Unmarshal(raw, &description); err != nil {
			return invalid("description must be a string or null")
		}
		if description == nil {
			empty := ""
			description = &empty
		}
		patch.Description = description
	}
	if raw, ok := fields["order_no"]; ok {
		var orderNo int
		if err := json.Unmarshal(raw, &orderNo); err != nil {
			return invalid("order_no must be an integer")
		}
		if err := validateOrderNo(&orderNo); err != nil {
			return store.TopicPatch{}, err
		}
		patch.OrderNo = &orderNo
	}
	if raw, ok := fields["is_published"]; ok {
		published, err := parseFlexBool(raw)
		if err != nil {
			return invalid(err.Error())
		}
		patch.IsPublished = &published
	}
	if raw, ok := fields["metadata"]; ok {
		patch.Metadata = raw
	}
	return patch, nil
}

func (s *Service) UpdateTopic(ctx context.Context, id int64, fields map[string]json.RawMessage) (map[string]any, error) {
	patch, err := topicPatchFromFields(fields)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "No updatable fields provided", nil)
	}
	affected, err := s.store.UpdateTopic(ctx, id, patch)
	if err != nil {
		return nil, storeError(err)
	}
	if affected == 0 {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Topic not found", nil)
	}
	if patch.SetParent || patch.Slug != nil {
		s.log.Info().Int64("topic_id", id).Msg("topic path changed")
	}
	return map[string]any{"id": id, "message": "Topic updated"}, nil
}

func (s *Service) DeleteTopic(ctx context.Context, id int64) (map[string]any, error) {
	affected, err := s.store.DeleteTopic(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if affected == 0 {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Topic not found", nil)
	}
	s.log.Info().Int64("topic_id", id).Msg("topic deleted")
	return map[string]any{"id": id, "message": "Topic and descendants deleted"}, nil
}

func (s *Service) GetTopic(ctx context.Context, id int64) (map[string]any, error) {
	topic, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Topic not found")
	}
	return map[string]any{"topic": topic}, nil
}

func (s *Service) ListChildren(ctx context.Context, parentID *int64) ([]store.Topic, error) {
	return s.store.ListChildren(ctx, parentID)
}

func (s *Service) ListRootTopics(ctx context.Context, opts store.RootListOptions) (map[string]any, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "limit and offset must be zero or greater", nil)
	}
	topics, err := s.store.ListRootTopics(ctx, opts)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(topics), "topics": topics}, nil
}

func (s *Service) TopicTree(ctx context.Context, parentID *int64, depth int) ([]store.TopicNode, error) {
	if depth < 0 {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "depth must be zero or greater", nil)
	}
	return s.store.BuildSubtree(ctx, parentID, depth)
}

// resolveTopic finds a topic by its slug path, preferring the materialized
// full_path and falling back to walking the segments from the root.
func (s *Service) resolveTopic(ctx context.Context, path string) (store.Topic, error) {
	segments := tree.SplitPath(path)
	if len(segments) == 0 {
		return store.Topic{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "No slug provided", nil)
	}
	topic, err := s.store.GetTopicByFullPath(ctx, strings.Join(segments, tree.Separator))
	if errors.Is(err, store.ErrNotFound) {
		topic, err = s.store.GetTopicBySlugSegments(ctx, segments)
	}
	if err != nil {
		return store.Topic{}, notFoundAs(err, "Topic not found")
	}
	return topic, nil
}

func (s *Service) ResolvePath(ctx context.Context, path string) (map[string]any, error) {
	topic, err := s.resolveTopic(ctx, path)
	if err != nil {
		return nil, err
	}
	blocks, err := s.store.GetBlocksByTopic(ctx, topic.ID)
	if err != nil {
		return nil, err
	}
	children, err := s.store.ListChildren(ctx, &topic.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"topic": topic, "blocks": blocks, "children": children}, nil
}

func (s *Service) BulkReorder(ctx context.Context, parentID *int64, input []ReorderItemInput) (map[string]any, error) {
	if len(input) == 0 {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Array must contain at least one item", nil)
	}
	items := make([]tree.ReorderItem, 0, len(input))
	for _, item := range input {
		if item.ID == nil || item.OrderNo == nil {
			return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Each item must contain id and order_no", nil)
		}
		if *item.OrderNo < 0 {
			return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "order_no must be zero or greater", nil)
		}
		items = append(items, tree.ReorderItem{ID: *item.ID, OrderNo: *item.OrderNo})
	}

	result, err := s.store.BulkReorder(ctx, parentID, items)
	if err != nil {
		return nil, storeError(err)
	}
	return map[string]any{"message": "Reorder applied", "result": result}, nil
}

func (s *Service) RebuildPaths(ctx context.Context) (map[string]any, error) {
	updated, err := s.store.RebuildPaths(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("updated", updated).Msg("topic paths rebuilt")
	return map[string]any{"updated": updated}, nil
}

// ParseParentID reads a path parameter naming a sibling partition. "null"
// (or an empty value) means the root partition.
func ParseParentID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid parentId", nil)
	}
	return &id, nil
}
