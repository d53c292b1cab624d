package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// partitionKey identifies the sibling set under parentID. Root topics share
// key 0; BIGSERIAL ids start at 1.
func partitionKey(parentID *int64) int64 {
	if parentID == nil {
		return 0
	}
	return *parentID
}

// lockPartitions serializes writers of the given sibling sets until the
// surrounding transaction ends. Keys are taken in ascending order so two
// movers between the same partitions cannot deadlock.
func lockPartitions(ctx context.Context, tx *sql.Tx, parents ...*int64) error {
	keys := make([]int64, 0, len(parents))
	seen := make(map[int64]struct{}, len(parents))
	for _, parent := range parents {
		key := partitionKey(parent)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return fmt.Errorf("lock sibling partition %d: %w", key, err)
		}
	}
	return nil
}

// pathLockClass keys the advisory lock guarding materialized paths. The
// two-key form does not collide with sibling partition keys.
const pathLockClass = 1

// lockPaths orders child inserts against path rewrites. Inserts take it
// shared and run alongside each other; a rename or move takes it exclusively,
// so its descendant rewrite sees every child committed before it and later
// inserts read the rewritten parent path. Take it before any partition lock.
func lockPaths(ctx context.Context, tx *sql.Tx, exclusive bool) error {
	query := `SELECT pg_advisory_xact_lock_shared($1::int, 0)`
	if exclusive {
		query = `SELECT pg_advisory_xact_lock($1::int, 0)`
	}
	if _, err := tx.ExecContext(ctx, query, pathLockClass); err != nil {
		return fmt.Errorf("lock topic paths: %w", err)
	}
	return nil
}

func maxSiblingOrder(ctx context.Context, q queryer, parentID *int64) (int, error) {
	var maxOrder int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(order_no), -1)
		FROM topics
		WHERE parent_id IS NOT DISTINCT FROM $1::bigint
	`, parentID).Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("read max sibling order: %w", err)
	}
	return maxOrder, nil
}

func siblingOrderTaken(ctx context.Context, q queryer, parentID *int64, orderNo int) (bool, error) {
	var taken bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM topics
			WHERE parent_id IS NOT DISTINCT FROM $1::bigint AND order_no = $2
		)
	`, parentID, orderNo).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check sibling order: %w", err)
	}
	return taken, nil
}

// shiftSiblings opens a slot at orderNo by moving every sibling at or after
// it down by one.
func shiftSiblings(ctx context.Context, q queryer, parentID *int64, orderNo int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE topics
		SET order_no = order_no + 1
		WHERE parent_id IS NOT DISTINCT FROM $1::bigint AND order_no >= $2
	`, parentID, orderNo)
	if err != nil {
		return fmt.Errorf("shift siblings: %w", err)
	}
	return nil
}

// closeSiblingGap pulls siblings after a vacated orderNo up by one.
func closeSiblingGap(ctx context.Context, q queryer, parentID *int64, orderNo int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE topics
		SET order_no = order_no - 1
		WHERE parent_id IS NOT DISTINCT FROM $1::bigint AND order_no > $2
	`, parentID, orderNo)
	if err != nil {
		return fmt.Errorf("close sibling gap: %w", err)
	}
	return nil
}

func siblingIDs(ctx context.Context, q queryer, parentID *int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id
		FROM topics
		WHERE parent_id IS NOT DISTINCT FROM $1::bigint
		ORDER BY order_no ASC, id ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list sibling ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sibling id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sibling ids: %w", err)
	}
	return ids, nil
}

func writeSiblingOrder(ctx context.Context, tx *sql.Tx, ordered []int64) error {
	stmt, err := tx.PrepareContext(ctx, `UPDATE topics SET order_no = $2, updated_at = NOW() WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("prepare sibling order update: %w", err)
	}
	defer stmt.Close()

	for index, id := range ordered {
		if _, err := stmt.ExecContext(ctx, id, index); err != nil {
			return fmt.Errorf("write order for topic %d: %w", id, err)
		}
	}
	return nil
}
