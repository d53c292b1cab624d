package tree

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
)

// InsertPlan says where a new sibling goes and whether siblings at or after
// that position must move down first.
type InsertPlan struct {
	Order int
	Shift bool
}

// PlanInsert places a new child in a partition whose highest order_no is
// maxOrder (-1 when empty). Without a requested position the child is
// appended. A requested position that is already taken also appends, leaving
// existing siblings untouched; a free one shifts the tail and inserts there.
// Requests past the end are pulled back to maxOrder+1 so no gap opens.
func PlanInsert(requested *int, occupied bool, maxOrder int) InsertPlan {
	if requested == nil || occupied {
		return InsertPlan{Order: maxOrder + 1}
	}
	position := min(max(*requested, 0), maxOrder+1)
	return InsertPlan{Order: position, Shift: true}
}

// ReorderItem is one requested placement in a bulk reorder.
type ReorderItem struct {
	ID      int64 `json:"id"`
	OrderNo int   `json:"order_no"`
}

// Assignment is a persisted position after a reorder.
type Assignment struct {
	ID      int64 `json:"id"`
	OrderNo int   `json:"order_no"`
}

// ForeignChildError reports a reorder item that is not a child of the parent
// being reordered.
type ForeignChildError struct {
	ID       int64
	ParentID *int64
}

func (e *ForeignChildError) Error() string {
	parent := "null"
	if e.ParentID != nil {
		parent = strconv.FormatInt(*e.ParentID, 10)
	}
	return fmt.Sprintf("Topic id %d does not belong to parent %s", e.ID, parent)
}

// PlanReorder computes the final sibling order for a partition. current is
// the partition ordered by (order_no, id). Requested items claim their slot,
// probing forward when it is taken; untouched children fill the remaining
// gaps in their original relative order. The result is compacted.
func PlanReorder(parentID *int64, current []int64, items []ReorderItem) ([]int64, error) {
	members := make(map[int64]struct{}, len(current))
	for _, id := range current {
		members[id] = struct{}{}
	}
	for _, item := range items {
		if item.ID <= 0 {
			continue
		}
		if _, ok := members[item.ID]; !ok {
			return nil, &ForeignChildError{ID: item.ID, ParentID: parentID}
		}
	}

	type claim struct {
		position uint64
		id       int64
	}
	taken := make(map[uint64]struct{}, len(items))
	placed := make(map[int64]struct{}, len(items))
	claims := make([]claim, 0, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			continue
		}
		if _, dup := placed[item.ID]; dup {
			continue
		}
		position := uint64(max(item.OrderNo, 0))
		for {
			if _, ok := taken[position]; !ok {
				break
			}
			position++
		}
		taken[position] = struct{}{}
		placed[item.ID] = struct{}{}
		claims = append(claims, claim{position: position, id: item.ID})
	}
	slices.SortFunc(claims, func(a, b claim) int {
		return cmp.Compare(a.position, b.position)
	})

	remaining := make([]int64, 0, len(current))
	for _, id := range current {
		if _, ok := placed[id]; !ok {
			remaining = append(remaining, id)
		}
	}

	// Free slots before each claimed position take the untouched children
	// in order; whatever is left goes after the last claim.
	final := make([]int64, 0, len(current))
	var cursor uint64
	for _, c := range claims {
		for cursor < c.position && len(remaining) > 0 {
			final = append(final, remaining[0])
			remaining = remaining[1:]
			cursor++
		}
		final = append(final, c.id)
		cursor = c.position + 1
	}
	return append(final, remaining...), nil
}

// Assignments numbers an ordered id list from zero.
func Assignments(ordered []int64) []Assignment {
	out := make([]Assignment, len(ordered))
	for i, id := range ordered {
		out[i] = Assignment{ID: id, OrderNo: i}
	}
	return out
}
