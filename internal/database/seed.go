package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with the fixtures the warning subsystem
// cannot run without: the root warning category, the synthetic custom
// definition (id 0), the default groups with their capability grants,
// and a development admin user. It is a no-op once data exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM warning_categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	// Root category, visible to everyone. At least one category must
	// exist at all times.
	var categoryID int64
	err := db.QueryRow(`
		INSERT INTO warning_categories (parent_category_id, display_order, allowed_user_group_ids)
		VALUES (NULL, 0, '-1')
		RETURNING warning_category_id
	`).Scan(&categoryID)
	if err != nil {
		return fmt.Errorf("seed root category: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO phrases (title, phrase_text)
		VALUES ($1, 'Warnings')
	`, fmt.Sprintf("warning_category_title.%d", categoryID))
	if err != nil {
		return fmt.Errorf("seed category phrase: %w", err)
	}

	// Synthetic definition backing fully custom warnings. Its fixed id 0
	// is what the issue flow checks for, and is_custom keeps it alive
	// through category delete cascades.
	_, err = db.Exec(`
		INSERT INTO warning_definitions (warning_definition_id, warning_category_id, title, points, expiry_days, allow_custom_title, is_custom)
		VALUES (0, $1, '', 1, 30, TRUE, TRUE)
	`, categoryID)
	if err != nil {
		return fmt.Errorf("seed custom definition: %w", err)
	}

	// Default groups: registered members and moderators.
	var memberGroupID, modGroupID int64
	if err := db.QueryRow(`INSERT INTO user_groups (title) VALUES ('Registered') RETURNING user_group_id`).Scan(&memberGroupID); err != nil {
		return fmt.Errorf("seed member group: %w", err)
	}
	if err := db.QueryRow(`INSERT INTO user_groups (title) VALUES ('Moderators') RETURNING user_group_id`).Scan(&modGroupID); err != nil {
		return fmt.Errorf("seed moderator group: %w", err)
	}

	for _, permission := range []string{
		"give_warnings",
		"view_warnings",
		"view_warning_issuer",
		"view_warning_actions",
		"view_non_summary_warning_actions",
		"view_discouraged_warning_actions",
		"edit_warning_actions",
	} {
		if _, err := db.Exec(`
			INSERT INTO group_permissions (user_group_id, permission) VALUES ($1, $2)
		`, modGroupID, permission); err != nil {
			return fmt.Errorf("seed moderator permission: %w", err)
		}
	}

	// Development admin user.
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	var adminID int64
	err = db.QueryRow(`
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING user_id
	`, "admin", "admin@warnings.local", string(hash)).Scan(&adminID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	for _, groupID := range []int64{memberGroupID, modGroupID} {
		if _, err := db.Exec(`
			INSERT INTO user_group_members (user_id, user_group_id) VALUES ($1, $2)
		`, adminID, groupID); err != nil {
			return fmt.Errorf("seed admin groups: %w", err)
		}
	}

	slog.Info("database seeded",
		"root_category_id", categoryID,
		"admin_username", "admin",
	)
	return nil
}
