package warn

import (
	"strings"
	"testing"
	"time"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

func TestBuildReplacements(t *testing.T) {
	recipient := &models.User{ID: 42, Username: "alice"}
	warning := &models.Warning{
		Title:      "Spam",
		Points:     3,
		ExpiryDate: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC).Unix(),
	}

	tokens := BuildReplacements(recipient, warning, "moderator_bob", "Added to user groups")

	want := map[string]string{
		"{username}":       "alice",
		"{user_id}":        "42",
		"{warning_title}":  "Spam",
		"{warning_points}": "3",
		"{warned_by}":      "moderator_bob",
		"{action}":         "Added to user groups",
	}
	for k, v := range want {
		if tokens[k] != v {
			t.Errorf("token %s = %q, want %q", k, tokens[k], v)
		}
	}
	if !strings.Contains(tokens["{warning_expiry}"], "2026") {
		t.Errorf("expiry token = %q", tokens["{warning_expiry}"])
	}
}

func TestBuildReplacementsUntitledWarning(t *testing.T) {
	tokens := BuildReplacements(&models.User{Username: "bob"}, &models.Warning{}, "mod", "")
	if tokens["{warning_title}"] != "Warning" {
		t.Errorf("blank title token = %q, want Warning", tokens["{warning_title}"])
	}
	if tokens["{warning_expiry}"] != "Never" {
		t.Errorf("permanent expiry token = %q, want Never", tokens["{warning_expiry}"])
	}
}

func TestReplacementsApply(t *testing.T) {
	tokens := Replacements{
		"{username}":      "alice",
		"{warning_title}": "Spam",
	}

	got := tokens.Apply("Warning {warning_title} issued to {username} ({username}).")
	want := "Warning Spam issued to alice (alice)."
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestReplacementsApplyLeavesUnknownTokens(t *testing.T) {
	tokens := Replacements{"{username}": "alice"}
	got := tokens.Apply("{username} {not_a_token}")
	if got != "alice {not_a_token}" {
		t.Errorf("Apply = %q", got)
	}
}
