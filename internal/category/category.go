// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

// Package category maintains the warning-category tree: per-viewer
// visibility, the cached per-category definition counter, and the delete
// cascade with its last-category guard.
package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/perms"
	"github.com/ticktackk/XenForo2-WarningImprovements/internal/store"
)

// ErrLastCategory is returned when a delete would remove the last
// remaining category. At least one category must exist at all times.
var ErrLastCategory = errors.New("the last warning category cannot be deleted")

// ErrCustomDefinition is returned when a delete targets the synthetic
// definition backing fully custom warnings.
var ErrCustomDefinition = errors.New("the custom warning definition cannot be deleted")

// PhraseKind enumerates the translatable texts bound to a category. The
// explicit table replaces lookups by constructed relation name.
type PhraseKind int

const (
	PhraseTitle PhraseKind = iota
	PhraseDescription
)

// phrasePrefixes maps each phrase kind to its key prefix. A category's
// title phrase is keyed "warning_category_title.<id>".
var phrasePrefixes = map[PhraseKind]string{
	PhraseTitle:       "warning_category_title",
	PhraseDescription: "warning_category_description",
}

// PhraseKey builds the phrase key binding a category to one of its texts.
func PhraseKey(kind PhraseKind, categoryID int64) string {
	return fmt.Sprintf("%s.%d", phrasePrefixes[kind], categoryID)
}

// Service wires the category tree logic to its stores and the permission
// oracle.
type Service struct {
	db          *sql.DB
	categories  *store.CategoryStore
	definitions *store.DefinitionStore
	actions     *store.ActionStore
	phrases     *store.PhraseStore
	oracle      perms.Oracle
}

// NewService creates the category service.
func NewService(db *sql.DB, categories *store.CategoryStore, definitions *store.DefinitionStore, actions *store.ActionStore, phrases *store.PhraseStore, oracle perms.Oracle) *Service {
	return &Service{
		db:          db,
		categories:  categories,
		definitions: definitions,
		actions:     actions,
		phrases:     phrases,
		oracle:      oracle,
	}
}

// IsUsable reports whether the viewer may use the category. It is false
// whenever any ancestor is unusable for that viewer; otherwise true iff
// the viewer belongs to one of the allowed groups, or the allowed list
// carries the "everyone" sentinel. byID must contain the ancestor chain.
func IsUsable(ctx context.Context, cat *models.Category, byID map[int64]*models.Category, viewerID int64, oracle perms.Oracle) (bool, error) {
	if cat.ParentID != nil {
		parent, ok := byID[*cat.ParentID]
		if ok {
			usable, err := IsUsable(ctx, parent, byID, viewerID, oracle)
			if err != nil {
				return false, err
			}
			if !usable {
				return false, nil
			}
		}
	}

	for _, groupID := range cat.AllowedGroupIDs {
		if groupID == models.EveryoneGroupID {
			return true, nil
		}
		member, err := oracle.IsMemberOf(ctx, viewerID, groupID)
		if err != nil {
			return false, err
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

// IsUsable answers visibility for a single category, loading its
// ancestor chain from the store.
func (s *Service) IsUsable(ctx context.Context, cat *models.Category, viewerID int64) (bool, error) {
	byID, err := s.index(ctx)
	if err != nil {
		return false, err
	}
	return IsUsable(ctx, cat, byID, viewerID, s.oracle)
}

// VisibleTree returns the category tree pruned to the nodes usable by
// the viewer, with titles resolved and Depth filled in.
func (s *Service) VisibleTree(ctx context.Context, viewerID int64) ([]*models.Category, error) {
	flat, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Category, len(flat))
	for _, c := range flat {
		byID[c.ID] = c
	}

	var visible []*models.Category
	for _, c := range flat {
		usable, err := IsUsable(ctx, c, byID, viewerID, s.oracle)
		if err != nil {
			return nil, err
		}
		if !usable {
			continue
		}
		title, err := s.phrases.Text(ctx, PhraseKey(PhraseTitle, c.ID), "")
		if err != nil {
			return nil, err
		}
		c.Title = title
		visible = append(visible, c)
	}

	return store.BuildTree(visible), nil
}

// index loads all categories keyed by id.
func (s *Service) index(ctx context.Context) (map[int64]*models.Category, error) {
	flat, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Category, len(flat))
	for _, c := range flat {
		byID[c.ID] = c
	}
	return byID, nil
}

// Save creates or updates a category and its title phrase. A default
// title phrase is created on first save if none is bound yet.
func (s *Service) Save(ctx context.Context, cat *models.Category, title string) (*models.Category, error) {
	var (
		saved *models.Category
		err   error
	)
	if cat.ID == 0 {
		saved, err = s.categories.Create(ctx, cat)
	} else {
		err = s.categories.Update(ctx, cat)
		saved = cat
	}
	if err != nil {
		return nil, err
	}

	key := PhraseKey(PhraseTitle, saved.ID)
	if title == "" {
		existing, err := s.phrases.Find(ctx, s.db, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			saved.Title = existing.Text
			return saved, nil
		}
		title = fmt.Sprintf("Warning category #%d", saved.ID)
	}
	if err := s.phrases.Upsert(ctx, s.db, key, title); err != nil {
		return nil, err
	}
	saved.Title = title

	if err := s.RebuildBounds(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

// RebuildBounds recomputes the lft/rgt/depth columns with a depth-first
// walk over the parent links and persists the nodes that moved. Runs
// after any structural change.
func (s *Service) RebuildBounds(ctx context.Context) error {
	flat, err := s.categories.List(ctx)
	if err != nil {
		return err
	}

	children := make(map[int64][]*models.Category)
	byID := make(map[int64]*models.Category, len(flat))
	for _, c := range flat {
		byID[c.ID] = c
	}
	var roots []*models.Category
	for _, c := range flat {
		if c.ParentID == nil || byID[*c.ParentID] == nil {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	counter := 0
	var walk func(c *models.Category, depth int) error
	walk = func(c *models.Category, depth int) error {
		counter++
		lft := counter
		for _, child := range children[c.ID] {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		counter++
		if c.Lft == lft && c.Rgt == counter && c.Depth == depth {
			return nil
		}
		return s.categories.SetBounds(ctx, s.db, c.ID, lft, counter, depth)
	}
	for _, root := range roots {
		if err := walk(root, 0); err != nil {
			return err
		}
	}
	return nil
}

// CreateDefinition adds a warning definition and refreshes its
// category's cached definition count.
func (s *Service) CreateDefinition(ctx context.Context, def *models.WarningDefinition) (*models.WarningDefinition, error) {
	saved, err := s.definitions.Create(ctx, def)
	if err != nil {
		return nil, err
	}
	if _, err := s.RebuildWarningCount(ctx, saved.CategoryID); err != nil {
		return nil, err
	}
	return saved, nil
}

// DeleteDefinition removes a warning definition and refreshes its
// category's cached definition count. The synthetic custom definition
// is refused. Returns nil without error when the id is unknown.
func (s *Service) DeleteDefinition(ctx context.Context, id int64) (*models.WarningDefinition, error) {
	def, err := s.definitions.FindByID(ctx, id)
	if err != nil || def == nil {
		return nil, err
	}
	if def.ID == models.CustomDefinitionID {
		return nil, ErrCustomDefinition
	}

	if err := s.definitions.Delete(ctx, s.db, id); err != nil {
		return nil, err
	}
	if _, err := s.RebuildWarningCount(ctx, def.CategoryID); err != nil {
		return nil, err
	}
	return def, nil
}

// Renumber moves a category to a new id, rewriting the bound phrase keys
// so the title follows the node. Used by import/merge tooling.
func (s *Service) Renumber(ctx context.Context, oldID, newID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin renumber: %w", err)
	}
	defer tx.Rollback()

	// Category references are declared ON UPDATE CASCADE, so definitions,
	// actions and child categories follow the id change automatically.
	if _, err := tx.ExecContext(ctx, `
		UPDATE warning_categories SET warning_category_id = $1 WHERE warning_category_id = $2
	`, newID, oldID); err != nil {
		return fmt.Errorf("renumber category: %w", err)
	}

	for kind := range phrasePrefixes {
		if err := s.phrases.Rename(ctx, tx, PhraseKey(kind, oldID), PhraseKey(kind, newID)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RebuildWarningCount re-queries the live count of definitions
// referencing the category and persists it, clamped at zero. The
// category row is locked for the duration so concurrent rebuilds for the
// same category serialize instead of racing a stale re-read.
func (s *Service) RebuildWarningCount(ctx context.Context, categoryID int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if err := s.categories.LockRow(ctx, tx, categoryID); err != nil {
		return 0, err
	}

	count, err := s.definitions.CountByCategory(ctx, tx, categoryID)
	if err != nil {
		return 0, err
	}
	if count < 0 {
		count = 0
	}

	if err := s.categories.SetWarningCount(ctx, tx, categoryID, count); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rebuild: %w", err)
	}
	return count, nil
}

// Delete removes a category and cascades: custom definitions are
// reparented to the parent (or an arbitrary survivor for a root),
// built-in definitions and the category's warning actions are deleted,
// and the bound phrases go with the node. The whole cascade runs
// synchronously in one transaction.
func (s *Service) Delete(ctx context.Context, cat *models.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	others, err := s.categories.CountOthers(ctx, tx, cat.ID)
	if err != nil {
		return err
	}
	if cat.IsRoot() && others == 0 {
		return ErrLastCategory
	}

	// Custom definitions survive; pick their new home once.
	newParentID := int64(0)
	if cat.ParentID != nil {
		newParentID = *cat.ParentID
	} else {
		newParentID, err = s.categories.AnySurvivorID(ctx, tx, cat.ID)
		if err != nil {
			return err
		}
	}

	definitions, err := s.definitions.ListByCategory(ctx, tx, cat.ID)
	if err != nil {
		return err
	}
	reparented := 0
	for _, def := range definitions {
		if def.IsCustom {
			if err := s.definitions.Reparent(ctx, tx, def.ID, newParentID); err != nil {
				return err
			}
			reparented++
			continue
		}
		if err := s.definitions.Delete(ctx, tx, def.ID); err != nil {
			return err
		}
	}

	if err := s.actions.DeleteByCategory(ctx, tx, cat.ID); err != nil {
		return err
	}

	for kind := range phrasePrefixes {
		if err := s.phrases.Delete(ctx, tx, PhraseKey(kind, cat.ID)); err != nil {
			return err
		}
	}

	// Children of the deleted node move up to its parent.
	if _, err := tx.ExecContext(ctx, `
		UPDATE warning_categories SET parent_category_id = $1 WHERE parent_category_id = $2
	`, cat.ParentID, cat.ID); err != nil {
		return fmt.Errorf("reparent children: %w", err)
	}

	if err := s.categories.DeleteRow(ctx, tx, cat.ID); err != nil {
		return err
	}

	// Reparented definitions changed the survivor's live count.
	if reparented > 0 && newParentID != 0 {
		count, err := s.definitions.CountByCategory(ctx, tx, newParentID)
		if err != nil {
			return err
		}
		if err := s.categories.SetWarningCount(ctx, tx, newParentID, count); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	if err := s.RebuildBounds(ctx); err != nil {
		return err
	}

	slog.Info("warning category deleted",
		"category_id", cat.ID,
		"reparented_definitions", reparented,
	)
	return nil
}
