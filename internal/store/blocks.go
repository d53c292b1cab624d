package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tutorials/api/internal/contenthash"
)

const DefaultBlockType = "page"

const blockColumns = `id, topic_id, block_type, title, components, block_order, metadata, content_hash, created_at, updated_at`

func scanBlock(row rowScanner) (ContentBlock, error) {
	var (
		item       ContentBlock
		components sql.NullString
		metadata   sql.NullString
	)
	err := row.Scan(&item.ID, &item.TopicID, &item.BlockType, &item.Title, &components,
		&item.BlockOrder, &metadata, &item.ContentHash, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return ContentBlock{}, err
	}
	item.Components = looseJSON(components)
	item.Metadata = looseJSON(metadata)
	return item, nil
}

// CreateBlock attaches a content block to a topic. Submitting components
// identical to a block the topic already has writes nothing and returns the
// existing id with Existed set.
func (s *PostgresStore) CreateBlock(ctx context.Context, in NewBlock) (BlockResult, error) {
	components, err := contenthash.NormalizeComponents(in.Components)
	if err != nil {
		return BlockResult{}, fmt.Errorf("normalize components: %w", err)
	}
	blockType := strings.TrimSpace(in.BlockType)
	if blockType == "" {
		blockType = DefaultBlockType
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO content_blocks (topic_id, block_type, title, components, block_order, metadata, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (topic_id, content_hash) DO NOTHING
		RETURNING id
	`, in.TopicID, blockType, in.Title, jsonText(components.Raw), in.BlockOrder, jsonText(in.Metadata), components.Hash).Scan(&id)
	if err == nil {
		return BlockResult{ID: id}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return BlockResult{}, blockWriteError("insert content block", err)
	}

	existing, err := s.findBlockByHash(ctx, in.TopicID, components.Hash)
	if err != nil {
		return BlockResult{}, err
	}
	return BlockResult{ID: existing, Existed: true}, nil
}

func (s *PostgresStore) findBlockByHash(ctx context.Context, topicID int64, hash string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM content_blocks WHERE topic_id=$1 AND content_hash=$2
	`, topicID, hash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup existing content block: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetBlocksByTopic(ctx context.Context, topicID int64) ([]ContentBlock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+blockColumns+`
		FROM content_blocks
		WHERE topic_id=$1
		ORDER BY block_order ASC, created_at ASC
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("list content blocks: %w", err)
	}
	defer rows.Close()

	items := make([]ContentBlock, 0)
	for rows.Next() {
		item, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content block: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content blocks: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetBlock(ctx context.Context, id int64) (ContentBlock, error) {
	item, err := scanBlock(s.db.QueryRowContext(ctx, `SELECT `+blockColumns+` FROM content_blocks WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ContentBlock{}, ErrNotFound
	}
	if err != nil {
		return ContentBlock{}, fmt.Errorf("get content block: %w", err)
	}
	return item, nil
}

// UpdateBlock changes the supplied fields of a block. New components get a
// fresh content hash; if another block of the same topic already has that
// content the update fails with ErrDuplicateContent. It returns 0 when the
// block does not exist or the patch is empty.
func (s *PostgresStore) UpdateBlock(ctx context.Context, id int64, patch BlockPatch) (int64, error) {
	if patch.Empty() {
		return 0, nil
	}

	var (
		components any
		hash       any
	)
	setComponents := patch.Components != nil
	if setComponents {
		normalized, err := contenthash.NormalizeComponents(patch.Components)
		if err != nil {
			return 0, fmt.Errorf("normalize components: %w", err)
		}
		components = jsonText(normalized.Raw)
		hash = normalized.Hash
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE content_blocks
		SET block_type = COALESCE($2::text, block_type),
			title = CASE WHEN $3::boolean THEN $4::text ELSE title END,
			components = CASE WHEN $5::boolean THEN $6::text ELSE components END,
			content_hash = CASE WHEN $5::boolean THEN $7::text ELSE content_hash END,
			block_order = COALESCE($8::integer, block_order),
			metadata = CASE WHEN $9::boolean THEN $10::text ELSE metadata END,
			updated_at = NOW()
		WHERE id=$1
	`, id, patch.BlockType,
		patch.Title != nil, emptyAsNull(patch.Title),
		setComponents, components, hash,
		patch.BlockOrder,
		patch.Metadata != nil, jsonText(patch.Metadata))
	if err != nil {
		return 0, blockWriteError("update content block", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update content block rows: %w", err)
	}
	return affected, nil
}

func (s *PostgresStore) DeleteBlock(ctx context.Context, id int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM content_blocks WHERE id=$1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete content block: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete content block rows: %w", err)
	}
	return affected, nil
}

// RehashBlocks recomputes content_hash for every block from its stored
// components and returns how many hashes changed. Blocks whose new hash would
// collide with a sibling block are left alone and counted in skipped.
func (s *PostgresStore) RehashBlocks(ctx context.Context) (changed int, skipped int, err error) {
	type stale struct {
		id   int64
		hash string
	}
	var pending []stale

	rows, err := s.db.QueryContext(ctx, `SELECT id, components, content_hash FROM content_blocks ORDER BY id`)
	if err != nil {
		return 0, 0, fmt.Errorf("list content blocks: %w", err)
	}
	for rows.Next() {
		var (
			id         int64
			components sql.NullString
			current    string
		)
		if err := rows.Scan(&id, &components, &current); err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("scan content block: %w", err)
		}
		normalized, err := contenthash.NormalizeComponents(looseJSON(components))
		if err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("normalize block %d: %w", id, err)
		}
		if normalized.Hash != strings.TrimSpace(current) {
			pending = append(pending, stale{id: id, hash: normalized.Hash})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, 0, fmt.Errorf("iterate content blocks: %w", err)
	}
	rows.Close()

	for _, item := range pending {
		_, err := s.db.ExecContext(ctx, `UPDATE content_blocks SET content_hash=$2, updated_at=NOW() WHERE id=$1`, item.id, item.hash)
		if isUniqueViolation(err) {
			skipped++
			continue
		}
		if err != nil {
			return changed, skipped, fmt.Errorf("rehash block %d: %w", item.id, err)
		}
		changed++
	}
	return changed, skipped, nil
}
