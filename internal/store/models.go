package store

import (
	"encoding/json"
	"time"
)

type Admin struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	IsSuper      bool
	CreatedAt    time.Time
}

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Bio          string
	AvatarURL    string
	CreatedAt    time.Time
}

// Topic is one node of the tutorial hierarchy. FullPath is the materialized
// slug chain from the root, e.g. "python/dict/methods".
type Topic struct {
	ID          int64           `json:"id"`
	ParentID    *int64          `json:"parent_id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description *string         `json:"description"`
	FullPath    string          `json:"full_path"`
	OrderNo     int             `json:"order_no"`
	IsPublished bool            `json:"is_published"`
	Metadata    json.RawMessage `json:"metadata"`
	AuthorID    *int64          `json:"author_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ChildCount  *int            `json:"child_count,omitempty"`
}

// TopicNode is a topic with its children loaded, as returned by BuildSubtree.
type TopicNode struct {
	Topic
	Children []TopicNode `json:"children"`
}

type NewTopic struct {
	ParentID    *int64
	Title       string
	Slug        string
	Description *string
	OrderNo     *int
	IsPublished bool
	Metadata    json.RawMessage
	AuthorID    *int64
}

// TopicPatch holds the fields to change on a topic. Nil pointers are left
// alone; an empty Description clears it. SetParent distinguishes "move to
// root" (SetParent with nil ParentID) from "parent not supplied".
type TopicPatch struct {
	SetParent   bool
	ParentID    *int64
	Title       *string
	Slug        *string
	Description *string
	OrderNo     *int
	IsPublished *bool
	Metadata    json.RawMessage
}

// Empty reports whether the patch changes nothing.
func (p TopicPatch) Empty() bool {
	return !p.SetParent && p.Title == nil && p.Slug == nil && p.Description == nil &&
		p.OrderNo == nil && p.IsPublished == nil && p.Metadata == nil
}

type RootListOptions struct {
	Limit             int
	Offset            int
	IncludeChildCount bool
}

type OrderAssignment struct {
	ID      int64 `json:"id"`
	OrderNo int   `json:"order_no"`
}

// ContentBlock is a unit of page content. Components and Metadata are
// returned as stored; values that were not valid JSON come back as a JSON
// string holding the raw text.
type ContentBlock struct {
	ID          int64           `json:"id"`
	TopicID     int64           `json:"topic_id"`
	BlockType   string          `json:"block_type"`
	Title       *string         `json:"title"`
	Components  json.RawMessage `json:"components"`
	BlockOrder  int             `json:"block_order"`
	Metadata    json.RawMessage `json:"metadata"`
	ContentHash string          `json:"content_hash"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type NewBlock struct {
	TopicID    int64
	BlockType  string
	Title      *string
	Components json.RawMessage
	BlockOrder int
	Metadata   json.RawMessage
}

type BlockPatch struct {
	BlockType  *string
	Title      *string
	Components json.RawMessage
	BlockOrder *int
	Metadata   json.RawMessage
}

// Empty reports whether the patch changes nothing.
func (p BlockPatch) Empty() bool {
	return p.BlockType == nil && p.Title == nil && p.Components == nil && p.BlockOrder == nil && p.Metadata == nil
}

// BlockResult is the outcome of CreateBlock. Existed is set when an identical
// block was already attached to the topic and no row was written.
type BlockResult struct {
	ID      int64 `json:"id"`
	Existed bool  `json:"existed"`
}

type Comment struct {
	ID              int64     `json:"id"`
	TopicID         int64     `json:"topic_id"`
	ParentCommentID *int64    `json:"parent_comment_id"`
	UserID          *int64    `json:"user_id"`
	Content         string    `json:"content"`
	LikeCount       int       `json:"like_count"`
	CreatedAt       time.Time `json:"created_at"`
}

type MCQ struct {
	ID             int64           `json:"id"`
	TopicID        *int64          `json:"topic_id"`
	Title          *string         `json:"title"`
	Description    *string         `json:"description"`
	Options        json.RawMessage `json:"options"`
	IsSingleAnswer bool            `json:"is_single_answer"`
	CorrectAnswers json.RawMessage `json:"correct_answers"`
	CodeSnippets   *string         `json:"code_snippets"`
	QuestionType   string          `json:"question_type"`
	Difficulty     string          `json:"difficulty"`
	Images         *string         `json:"images"`
	CreatedAt      time.Time       `json:"created_at"`
}
