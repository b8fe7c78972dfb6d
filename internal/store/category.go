// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// CategoryStore manages warning categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `warning_category_id, parent_category_id, display_order, lft, rgt, depth, allowed_user_group_ids, warning_count`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var (
		c      models.Category
		groups string
	)
	err := scanner.Scan(
		&c.ID, &c.ParentID, &c.DisplayOrder, &c.Lft, &c.Rgt, &c.Depth,
		&groups, &c.WarningCount,
	)
	if err != nil {
		return nil, err
	}
	c.AllowedGroupIDs = models.SplitGroupIDs(groups)
	return &c, nil
}

// List returns all categories ordered for child enumeration: display
// order first, ties broken by id.
func (s *CategoryStore) List(ctx context.Context) ([]*models.Category, error) {
	return s.list(ctx, s.db)
}

func (s *CategoryStore) list(ctx context.Context, q Queryer) ([]*models.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM warning_categories
		ORDER BY display_order, warning_category_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM warning_categories WHERE warning_category_id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO warning_categories (parent_category_id, display_order, lft, rgt, depth, allowed_user_group_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+categoryColumns,
		c.ParentID, c.DisplayOrder, c.Lft, c.Rgt, c.Depth,
		models.JoinGroupIDs(c.AllowedGroupIDs),
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return result, nil
}

// Update modifies an existing category.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE warning_categories SET
			parent_category_id = $1, display_order = $2,
			allowed_user_group_ids = $3
		WHERE warning_category_id = $4
	`, c.ParentID, c.DisplayOrder, models.JoinGroupIDs(c.AllowedGroupIDs), c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// CountOthers returns how many categories exist besides the given one.
// Used by the last-category delete guard.
func (s *CategoryStore) CountOthers(ctx context.Context, q Queryer, id int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warning_categories WHERE warning_category_id <> $1
	`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count other categories: %w", err)
	}
	return count, nil
}

// AnySurvivorID returns the id of an arbitrary category other than the
// given one. Returns 0 if none exists.
func (s *CategoryStore) AnySurvivorID(ctx context.Context, q Queryer, id int64) (int64, error) {
	var survivor int64
	err := q.QueryRowContext(ctx, `
		SELECT warning_category_id FROM warning_categories
		WHERE warning_category_id <> $1
		ORDER BY warning_category_id
		LIMIT 1
	`, id).Scan(&survivor)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find survivor category: %w", err)
	}
	return survivor, nil
}

// LockRow takes a row-level lock on the category so concurrent counter
// rebuilds for the same category serialize instead of clobbering each
// other with stale re-reads. Must be called inside a transaction.
func (s *CategoryStore) LockRow(ctx context.Context, q Queryer, id int64) error {
	var locked int64
	err := q.QueryRowContext(ctx, `
		SELECT warning_category_id FROM warning_categories
		WHERE warning_category_id = $1
		FOR UPDATE
	`, id).Scan(&locked)
	if err != nil {
		return fmt.Errorf("lock category %d: %w", id, err)
	}
	return nil
}

// SetBounds persists recomputed tree bounds for a category.
func (s *CategoryStore) SetBounds(ctx context.Context, q Queryer, id int64, lft, rgt, depth int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE warning_categories SET lft = $1, rgt = $2, depth = $3 WHERE warning_category_id = $4
	`, lft, rgt, depth, id)
	if err != nil {
		return fmt.Errorf("set category bounds: %w", err)
	}
	return nil
}

// SetWarningCount persists a freshly recomputed definition count.
func (s *CategoryStore) SetWarningCount(ctx context.Context, q Queryer, id int64, count int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE warning_categories SET warning_count = $1 WHERE warning_category_id = $2
	`, count, id)
	if err != nil {
		return fmt.Errorf("set warning count: %w", err)
	}
	return nil
}

// DeleteRow removes the category row itself. The cascade around it (the
// reparenting and dependent deletes) is owned by the category service.
func (s *CategoryStore) DeleteRow(ctx context.Context, q Queryer, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM warning_categories WHERE warning_category_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// BuildTree assembles a flat, display-ordered category list into a tree,
// filling Depth on every node. Nodes whose parent is missing from the
// list are dropped.
func BuildTree(flat []*models.Category) []*models.Category {
	return buildTree(flat, nil, 0)
}

func buildTree(flat []*models.Category, parentID *int64, depth int) []*models.Category {
	var result []*models.Category
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			node := *c
			node.Depth = depth
			node.Children = buildTree(flat, &node.ID, depth+1)
			result = append(result, &node)
		}
	}
	return result
}

// ptrEqual compares two *int64 for equality (both nil or same value).
func ptrEqual(a, b *int64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
