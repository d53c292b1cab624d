package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tutorials/api/internal/tree"
)

const (
	DefaultRootLimit    = 50
	DefaultSubtreeDepth = 5
	MaxSubtreeDepth     = 20
)

const topicColumns = `id, parent_id, title, slug, description, full_path, order_no, is_published, metadata, author_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner, extra ...any) (Topic, error) {
	var (
		item     Topic
		fullPath sql.NullString
		metadata sql.NullString
	)
	dest := []any{
		&item.ID, &item.ParentID, &item.Title, &item.Slug, &item.Description, &fullPath,
		&item.OrderNo, &item.IsPublished, &metadata, &item.AuthorID, &item.CreatedAt, &item.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Topic{}, err
	}
	item.FullPath = fullPath.String
	item.Metadata = looseJSON(metadata)
	return item, nil
}

func scanTopics(rows *sql.Rows) ([]Topic, error) {
	defer rows.Close()
	items := make([]Topic, 0)
	for rows.Next() {
		item, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return items, nil
}

// CreateTopic inserts a topic under in.ParentID. Without a requested
// position, or when the requested position is already taken, the topic is
// appended to its siblings.
func (s *PostgresStore) CreateTopic(ctx context.Context, in NewTopic) (int64, error) {
	slug := tree.NormalizeSlug(in.Slug)

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if in.ParentID != nil {
			if err := lockPaths(ctx, tx, false); err != nil {
				return err
			}
		}
		if err := lockPartitions(ctx, tx, in.ParentID); err != nil {
			return err
		}

		parentPath := ""
		if in.ParentID != nil {
			path, err := topicPath(ctx, tx, *in.ParentID)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrParentNotFound
			}
			if err != nil {
				return fmt.Errorf("load parent path: %w", err)
			}
			parentPath = path
		}

		plan, err := planInsert(ctx, tx, in.ParentID, in.OrderNo)
		if err != nil {
			return err
		}
		if plan.Shift {
			if err := shiftSiblings(ctx, tx, in.ParentID, plan.Order); err != nil {
				return err
			}
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO topics (parent_id, title, slug, description, full_path, order_no, is_published, metadata, author_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, in.ParentID, in.Title, slug, in.Description, tree.ComputePath(slug, parentPath),
			plan.Order, in.IsPublished, jsonText(in.Metadata), in.AuthorID).Scan(&id)
		if err != nil {
			return topicWriteError("insert topic", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func planInsert(ctx context.Context, q queryer, parentID *int64, requested *int) (tree.InsertPlan, error) {
	maxOrder, err := maxSiblingOrder(ctx, q, parentID)
	if err != nil {
		return tree.InsertPlan{}, err
	}
	occupied := false
	if requested != nil {
		occupied, err = siblingOrderTaken(ctx, q, parentID, max(*requested, 0))
		if err != nil {
			return tree.InsertPlan{}, err
		}
	}
	return tree.PlanInsert(requested, occupied, maxOrder), nil
}

// topicPath reads a parent's full_path and holds a share lock on the row so it
// cannot be renamed or moved before the caller commits.
func topicPath(ctx context.Context, q queryer, id int64) (string, error) {
	var path sql.NullString
	if err := q.QueryRowContext(ctx, `SELECT full_path FROM topics WHERE id=$1 FOR SHARE`, id).Scan(&path); err != nil {
		return "", err
	}
	return path.String, nil
}

// lockTopic locks the sibling partition a topic currently lives in, then the
// row itself. The partition is re-checked under the lock because a
// concurrent move may have changed it between the two reads.
func lockTopic(ctx context.Context, tx *sql.Tx, id int64, extra ...*int64) (Topic, error) {
	for {
		var parentID *int64
		if err := tx.QueryRowContext(ctx, `SELECT parent_id FROM topics WHERE id=$1`, id).Scan(&parentID); err != nil {
			return Topic{}, err
		}
		if err := lockPartitions(ctx, tx, append([]*int64{parentID}, extra...)...); err != nil {
			return Topic{}, err
		}
		current, err := scanTopic(tx.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return Topic{}, err
		}
		if sameParent(current.ParentID, parentID) {
			return current, nil
		}
	}
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// UpdateTopic applies patch to a topic and returns the number of topics
// changed: 0 when id does not exist. A new slug or parent rewrites the
// topic's full_path and the full_path of every descendant in the same
// transaction. Moving to another parent leaves no gap behind: without an
// explicit order_no the topic is appended to its new siblings, with one it is
// placed like a new topic.
func (s *PostgresStore) UpdateTopic(ctx context.Context, id int64, patch TopicPatch) (int64, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if patch.SetParent || patch.Slug != nil {
			if err := lockPaths(ctx, tx, true); err != nil {
				return err
			}
		}
		var target []*int64
		if patch.SetParent {
			target = append(target, patch.ParentID)
		}
		current, err := lockTopic(ctx, tx, id, target...)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load topic: %w", err)
		}
		affected = 1
		if patch.Empty() {
			return nil
		}

		next := current
		parentChanged := patch.SetParent && !sameParent(patch.ParentID, current.ParentID)
		if parentChanged {
			next.ParentID = patch.ParentID
		}
		slugChanged := false
		if patch.Slug != nil {
			if slug := tree.NormalizeSlug(*patch.Slug); slug != current.Slug {
				next.Slug = slug
				slugChanged = true
			}
		}
		if patch.Title != nil {
			next.Title = *patch.Title
		}
		if patch.Description != nil {
			// an empty description clears the column
			next.Description = patch.Description
			if *patch.Description == "" {
				next.Description = nil
			}
		}
		if patch.IsPublished != nil {
			next.IsPublished = *patch.IsPublished
		}
		if patch.Metadata != nil {
			next.Metadata = patch.Metadata
		}
		if patch.OrderNo != nil && !parentChanged {
			next.OrderNo = *patch.OrderNo
		}

		if parentChanged || slugChanged {
			parentPath := ""
			if next.ParentID != nil {
				if *next.ParentID == current.ID {
					return ErrCycle
				}
				path, err := topicPath(ctx, tx, *next.ParentID)
				if errors.Is(err, sql.ErrNoRows) {
					return ErrParentNotFound
				}
				if err != nil {
					return fmt.Errorf("load parent path: %w", err)
				}
				if parentChanged {
					cycle, err := createsCycle(ctx, tx, current, *next.ParentID, path)
					if err != nil {
						return err
					}
					if cycle {
						return ErrCycle
					}
				}
				parentPath = path
			}
			next.FullPath = tree.ComputePath(next.Slug, parentPath)
		}

		if parentChanged {
			plan, err := planInsert(ctx, tx, next.ParentID, patch.OrderNo)
			if err != nil {
				return err
			}
			if plan.Shift {
				if err := shiftSiblings(ctx, tx, next.ParentID, plan.Order); err != nil {
					return err
				}
			}
			next.OrderNo = plan.Order
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE topics
			SET parent_id=$2, title=$3, slug=$4, description=$5, full_path=$6,
				order_no=$7, is_published=$8, metadata=$9, updated_at=NOW()
			WHERE id=$1
		`, id, next.ParentID, next.Title, next.Slug, next.Description, nullableText(next.FullPath),
			next.OrderNo, next.IsPublished, jsonText(next.Metadata))
		if err != nil {
			return topicWriteError("update topic", err)
		}

		if parentChanged {
			if err := closeSiblingGap(ctx, tx, current.ParentID, current.OrderNo); err != nil {
				return err
			}
		}
		if (parentChanged || slugChanged) && current.FullPath != "" && current.FullPath != next.FullPath {
			if _, err := rewriteDescendantPaths(ctx, tx, current.FullPath, next.FullPath); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// createsCycle reports whether parentID lies inside node's subtree. When both
// paths are materialized they answer directly; otherwise the new parent's
// ancestor chain is walked.
func createsCycle(ctx context.Context, q queryer, node Topic, parentID int64, parentPath string) (bool, error) {
	if node.FullPath != "" && parentPath != "" {
		return tree.IsWithin(parentPath, node.FullPath), nil
	}
	var found bool
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id, 1 AS depth FROM topics WHERE id = $1
			UNION ALL
			SELECT t.id, t.parent_id, a.depth + 1
			FROM topics t
			JOIN ancestors a ON t.id = a.parent_id
			WHERE a.depth < 1000
		)
		SELECT EXISTS(SELECT 1 FROM ancestors WHERE id = $2)
	`, parentID, node.ID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check ancestor chain: %w", err)
	}
	return found, nil
}

// rewriteDescendantPaths replaces oldPath with newPath at the front of every
// descendant's full_path in one statement, covering all depths.
func rewriteDescendantPaths(ctx context.Context, q queryer, oldPath, newPath string) (int64, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE topics
		SET full_path = $2::text || substr(full_path, char_length($1::text) + 1), updated_at = NOW()
		WHERE full_path LIKE $3 ESCAPE '\'
	`, oldPath, newPath, tree.LikePrefix(tree.DescendantPrefix(oldPath)))
	if err != nil {
		return 0, topicWriteError("rewrite descendant paths", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rewrite descendant paths rows: %w", err)
	}
	return affected, nil
}

// DeleteTopic removes a topic. Descendants and their content blocks go with
// it through ON DELETE CASCADE; the remaining siblings close the gap.
func (s *PostgresStore) DeleteTopic(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := lockTopic(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load topic: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE id=$1`, id)
		if err != nil {
			return fmt.Errorf("delete topic: %w", err)
		}
		if affected, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("delete topic rows: %w", err)
		}
		return closeSiblingGap(ctx, tx, current.ParentID, current.OrderNo)
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *PostgresStore) GetTopic(ctx context.Context, id int64) (Topic, error) {
	item, err := scanTopic(s.db.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Topic{}, ErrNotFound
	}
	if err != nil {
		return Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return item, nil
}

// GetTopicByFullPath is the primary resolution for public slug URLs.
func (s *PostgresStore) GetTopicByFullPath(ctx context.Context, fullPath string) (Topic, error) {
	if fullPath == "" {
		return Topic{}, ErrNotFound
	}
	item, err := scanTopic(s.db.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE full_path=$1`, fullPath))
	if errors.Is(err, sql.ErrNoRows) {
		return Topic{}, ErrNotFound
	}
	if err != nil {
		return Topic{}, fmt.Errorf("get topic by path: %w", err)
	}
	return item, nil
}

// GetTopicBySlugSegments walks the tree from the roots one slug at a time.
// It does not depend on full_path being materialized.
func (s *PostgresStore) GetTopicBySlugSegments(ctx context.Context, segments []string) (Topic, error) {
	if len(segments) == 0 {
		return Topic{}, ErrNotFound
	}
	var (
		parentID *int64
		item     Topic
	)
	for _, segment := range segments {
		found, err := scanTopic(s.db.QueryRowContext(ctx, `
			SELECT `+topicColumns+`
			FROM topics
			WHERE parent_id IS NOT DISTINCT FROM $1::bigint AND slug=$2
		`, parentID, segment))
		if errors.Is(err, sql.ErrNoRows) {
			return Topic{}, ErrNotFound
		}
		if err != nil {
			return Topic{}, fmt.Errorf("walk slug %q: %w", segment, err)
		}
		item = found
		id := found.ID
		parentID = &id
	}
	return item, nil
}

func (s *PostgresStore) ListChildren(ctx context.Context, parentID *int64) ([]Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+topicColumns+`
		FROM topics
		WHERE parent_id IS NOT DISTINCT FROM $1::bigint
		ORDER BY order_no ASC, title ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return scanTopics(rows)
}

func (s *PostgresStore) ListRootTopics(ctx context.Context, opts RootListOptions) ([]Topic, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRootLimit
	}
	offset := max(opts.Offset, 0)

	if !opts.IncludeChildCount {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+topicColumns+`
			FROM topics
			WHERE parent_id IS NULL
			ORDER BY order_no ASC, title ASC
			LIMIT $1 OFFSET $2
		`, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("list root topics: %w", err)
		}
		return scanTopics(rows)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.parent_id, t.title, t.slug, t.description, t.full_path, t.order_no,
			t.is_published, t.metadata, t.author_id, t.created_at, t.updated_at,
			COALESCE(c.child_count, 0)
		FROM topics t
		LEFT JOIN (
			SELECT parent_id, COUNT(*) AS child_count
			FROM topics
			WHERE parent_id IS NOT NULL
			GROUP BY parent_id
		) c ON c.parent_id = t.id
		WHERE t.parent_id IS NULL
		ORDER BY t.order_no ASC, t.title ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list root topics: %w", err)
	}
	defer rows.Close()

	items := make([]Topic, 0)
	for rows.Next() {
		var count int
		item, err := scanTopic(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan root topic: %w", err)
		}
		item.ChildCount = &count
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate root topics: %w", err)
	}
	return items, nil
}

// BuildSubtree loads the children of parentID and their descendants down to
// maxDepth levels. A non-positive depth means DefaultSubtreeDepth; depths
// above MaxSubtreeDepth are capped.
func (s *PostgresStore) BuildSubtree(ctx context.Context, parentID *int64, maxDepth int) ([]TopicNode, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultSubtreeDepth
	}
	maxDepth = min(maxDepth, MaxSubtreeDepth)
	return s.buildLevel(ctx, parentID, maxDepth)
}

func (s *PostgresStore) buildLevel(ctx context.Context, parentID *int64, remaining int) ([]TopicNode, error) {
	children, err := s.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	nodes := make([]TopicNode, 0, len(children))
	for _, child := range children {
		node := TopicNode{Topic: child, Children: []TopicNode{}}
		if remaining > 1 {
			id := child.ID
			if node.Children, err = s.buildLevel(ctx, &id, remaining-1); err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// BulkReorder rewrites order_no for every child of parentID. items may name
// any subset of the children; the rest keep their relative order. An item
// naming a topic outside the partition fails with *tree.ForeignChildError.
func (s *PostgresStore) BulkReorder(ctx context.Context, parentID *int64, items []tree.ReorderItem) ([]OrderAssignment, error) {
	var assignments []OrderAssignment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockPartitions(ctx, tx, parentID); err != nil {
			return err
		}
		current, err := siblingIDs(ctx, tx, parentID)
		if err != nil {
			return err
		}
		ordered, err := tree.PlanReorder(parentID, current, items)
		if err != nil {
			return err
		}
		if err := writeSiblingOrder(ctx, tx, ordered); err != nil {
			return err
		}
		for _, assignment := range tree.Assignments(ordered) {
			assignments = append(assignments, OrderAssignment{ID: assignment.ID, OrderNo: assignment.OrderNo})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []OrderAssignment{}
	}
	return assignments, nil
}

// RebuildPaths recomputes every full_path from the parent chain and slugs,
// returning how many rows changed. It repairs trees whose paths were never
// materialized or drifted.
func (s *PostgresStore) RebuildPaths(ctx context.Context) (int, error) {
	var changed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE topics IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("lock topics: %w", err)
		}
		result, err := tx.ExecContext(ctx, `
			WITH RECURSIVE paths AS (
				SELECT id, slug::text AS path, 1 AS depth
				FROM topics
				WHERE parent_id IS NULL
				UNION ALL
				SELECT t.id, p.path || '/' || t.slug, p.depth + 1
				FROM topics t
				JOIN paths p ON t.parent_id = p.id
				WHERE p.depth < 1000
			)
			UPDATE topics
			SET full_path = paths.path, updated_at = NOW()
			FROM paths
			WHERE topics.id = paths.id AND topics.full_path IS DISTINCT FROM paths.path
		`)
		if err != nil {
			return topicWriteError("rebuild paths", err)
		}
		changed, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rebuild paths rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(changed), nil
}
