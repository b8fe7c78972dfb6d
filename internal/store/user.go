// This file is part of the Warning Improvements service.
// See LICENSE for copyright and license details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// UserStore handles user rows, group membership and per-group permission
// grants. It is the persistence behind the permission oracle.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `user_id, username, email, password_hash, created_at`

func scanUser(scanner interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := scanner.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user with a bcrypt-hashed password.
func (s *UserStore) Create(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		username, email, string(hash),
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by ID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByUsername retrieves a user by name. Returns nil if not found.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (s *UserStore) CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// GroupIDs returns the ids of the groups the user belongs to.
func (s *UserStore) GroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_group_id FROM user_group_members WHERE user_id = $1 ORDER BY user_group_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("user groups: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddToGroup puts the user into a group. Adding twice is a no-op.
func (s *UserStore) AddToGroup(ctx context.Context, userID, groupID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_group_members (user_id, user_group_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, groupID)
	if err != nil {
		return fmt.Errorf("add user to group: %w", err)
	}
	return nil
}

// RemoveFromGroup takes the user out of a group.
func (s *UserStore) RemoveFromGroup(ctx context.Context, userID, groupID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM user_group_members WHERE user_id = $1 AND user_group_id = $2
	`, userID, groupID)
	if err != nil {
		return fmt.Errorf("remove user from group: %w", err)
	}
	return nil
}

// GroupsGrant reports whether any of the given groups carries the named
// permission.
func (s *UserStore) GroupsGrant(ctx context.Context, groupIDs []int64, permission string) (bool, error) {
	if len(groupIDs) == 0 {
		return false, nil
	}
	var granted bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM group_permissions
			WHERE permission = $1 AND user_group_id = ANY($2)
		)
	`, permission, groupIDs).Scan(&granted)
	if err != nil {
		return false, fmt.Errorf("check group permission: %w", err)
	}
	return granted, nil
}

// GroupTitles returns all group titles keyed by id. Feeds the cached
// group list used for consequence-action descriptions.
func (s *UserStore) GroupTitles(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_group_id, title FROM user_groups`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	titles := make(map[int64]string)
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

// GrantPermission attaches a permission to a group.
func (s *UserStore) GrantPermission(ctx context.Context, groupID int64, permission string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_permissions (user_group_id, permission)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, groupID, permission)
	if err != nil {
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}
