package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/ticktackk/XenForo2-WarningImprovements/internal/models"
)

// stubWarnings returns a fixed warning list, already in decay order.
type stubWarnings struct {
	warnings []models.Warning
}

func (s *stubWarnings) ActiveOrPermanent(ctx context.Context, userID int64) ([]models.Warning, error) {
	return s.warnings, nil
}

// stubActions resolves warning actions from a fixed map.
type stubActions struct {
	actions map[int64]*models.WarningAction
}

func (s *stubActions) FindByID(ctx context.Context, id int64) (*models.WarningAction, error) {
	return s.actions[id], nil
}

// stubOracle grants capabilities from a fixed set.
type stubOracle struct {
	capabilities map[string]bool
	groups       map[int64]bool
}

func (s *stubOracle) IsMemberOf(ctx context.Context, userID, groupID int64) (bool, error) {
	return s.groups[groupID], nil
}

func (s *stubOracle) HasCapability(ctx context.Context, userID int64, capability string) (bool, error) {
	return s.capabilities[capability], nil
}

func TestWalkDecay(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	t2 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC).Unix()

	// Shortest-lived first, permanent last.
	warnings := []models.Warning{
		{Points: 5, ExpiryDate: t1},
		{Points: 3, ExpiryDate: t2},
		{Points: 2, ExpiryDate: models.PermanentExpiry},
	}

	tests := []struct {
		name      string
		threshold int
		want      models.Expiry
	}{
		{
			name:      "threshold met mid-list",
			threshold: 7,
			want:      models.Expiry{Kind: models.ExpiryAt, Date: t2},
		},
		{
			name:      "threshold met at first warning",
			threshold: 5,
			want:      models.Expiry{Kind: models.ExpiryAt, Date: t1},
		},
		{
			name:      "threshold met only with permanent warning",
			threshold: 9,
			want:      models.Expiry{Kind: models.ExpiryPermanent},
		},
		{
			name:      "threshold never met",
			threshold: 100,
			want:      models.Expiry{Kind: models.ExpiryNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WalkDecay(warnings, tt.threshold)
			if got != tt.want {
				t.Errorf("WalkDecay(threshold=%d) = %+v, want %+v", tt.threshold, got, tt.want)
			}
		})
	}
}

func TestWalkDecayNoWarnings(t *testing.T) {
	got := WalkDecay(nil, 1)
	if got.Kind != models.ExpiryNone {
		t.Errorf("WalkDecay with no warnings = %+v, want ExpiryNone", got)
	}
}

func TestRoundUpToHour(t *testing.T) {
	// 14:22:10 rounds up to 15:00:00.
	in := time.Date(2026, 5, 10, 14, 22, 10, 0, time.UTC)
	want := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	if got := RoundUpToHour(in.Unix()); got != want.Unix() {
		t.Errorf("RoundUpToHour(%v) = %v, want %v", in, time.Unix(got, 0).UTC(), want)
	}

	// An exact hour still advances to the next one.
	exact := time.Date(2026, 5, 10, 14, 0, 0, 0, time.UTC)
	wantNext := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	if got := RoundUpToHour(exact.Unix()); got != wantNext.Unix() {
		t.Errorf("RoundUpToHour(exact hour) = %v, want %v", time.Unix(got, 0).UTC(), wantNext)
	}
}

func TestParseActionKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID int64
		wantOK bool
	}{
		{"warning_action_42", 42, true},
		{"warning_action_0", 0, true},
		{"warning_action_", 0, false},
		{"warning_action_12x", 0, false},
		{"ban", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		id, ok := ParseActionKey(tt.key)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("ParseActionKey(%q) = (%d, %v), want (%d, %v)", tt.key, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestComputeEffectiveExpiryExplicitDate(t *testing.T) {
	engine := New(&stubWarnings{}, &stubActions{}, &stubOracle{
		capabilities: map[string]bool{models.CapViewWarnings: true},
	})

	date := time.Now().Add(time.Hour).Unix()
	action := &models.ConsequenceAction{ChangeKey: "warning_action_1", ExpiryDate: &date}

	got, err := engine.ComputeEffectiveExpiry(context.Background(), 10, action, 20)
	if err != nil {
		t.Fatalf("ComputeEffectiveExpiry: %v", err)
	}
	if got.Kind != models.ExpiryAt || got.Date != date {
		t.Errorf("explicit expiry = %+v, want ExpiryAt(%d)", got, date)
	}
}

func TestComputeEffectiveExpiryExplicitPermanent(t *testing.T) {
	engine := New(&stubWarnings{}, &stubActions{}, &stubOracle{})

	zero := int64(models.PermanentExpiry)
	action := &models.ConsequenceAction{ChangeKey: "warning_action_1", ExpiryDate: &zero}

	got, err := engine.ComputeEffectiveExpiry(context.Background(), 10, action, 20)
	if err != nil {
		t.Fatalf("ComputeEffectiveExpiry: %v", err)
	}
	if got.Kind != models.ExpiryPermanent {
		t.Errorf("stored permanent sentinel = %+v, want ExpiryPermanent", got)
	}
}

func TestComputeEffectiveExpiryUnrelatedChangeKey(t *testing.T) {
	engine := New(&stubWarnings{}, &stubActions{}, &stubOracle{})

	action := &models.ConsequenceAction{ChangeKey: "ban"}

	got, err := engine.ComputeEffectiveExpiry(context.Background(), 10, action, 0)
	if err != nil {
		t.Fatalf("ComputeEffectiveExpiry: %v", err)
	}
	if got.Kind != models.ExpiryPermanent {
		t.Errorf("unrelated change key = %+v, want ExpiryPermanent", got)
	}
}

func TestComputeEffectiveExpiryNonPointsAction(t *testing.T) {
	engine := New(&stubWarnings{}, &stubActions{
		actions: map[int64]*models.WarningAction{
			7: {ID: 7, Points: 5, ActionLengthType: models.ActionLengthDays, ActionLength: 30},
		},
	}, &stubOracle{})

	action := &models.ConsequenceAction{ChangeKey: "warning_action_7"}

	got, err := engine.ComputeEffectiveExpiry(context.Background(), 10, action, 0)
	if err != nil {
		t.Fatalf("ComputeEffectiveExpiry: %v", err)
	}
	if got.Kind != models.ExpiryPermanent {
		t.Errorf("non-points action = %+v, want ExpiryPermanent", got)
	}
}

func TestComputeEffectiveExpiryPointsDecay(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 14, 22, 10, 0, time.UTC).Unix()
	t2 := time.Date(2026, 4, 1, 9, 45, 0, 0, time.UTC).Unix()

	warnings := &stubWarnings{warnings: []models.Warning{
		{Points: 5, ExpiryDate: t1},
		{Points: 3, ExpiryDate: t2},
	}}
	actions := &stubActions{actions: map[int64]*models.WarningAction{
		3: {ID: 3, Points: 7, ActionLengthType: models.ActionLengthPoints},
	}}

	action := &models.ConsequenceAction{ChangeKey: "warning_action_3"}

	t.Run("privileged viewer sees the exact timestamp", func(t *testing.T) {
		engine := New(warnings, actions, &stubOracle{
			capabilities: map[string]bool{models.CapViewWarnings: true},
		})

		got, err := engine.ComputeEffectiveExpiry(context.Background(), 10, action, 20)
		if err != nil {
			t.Fatalf("ComputeEffectiveExpiry: %v", err)
		}
		if got.Kind != models.ExpiryAt || got.Date != t2 {
			t.Errorf("got %+v, want exact ExpiryAt(%d)", got, t2)
		}
	})

	t.Run("restricted viewer gets the timestamp rounded up", func(t *testing.T) {
		engine := New(warnings, actions, &stubOracle{})

		got, err := engine.ComputeEffectiveExpiry(context.Background(), 10, action, 20)
		if err != nil {
			t.Fatalf("ComputeEffectiveExpiry: %v", err)
		}
		want := RoundUpToHour(t2)
		if got.Kind != models.ExpiryAt || got.Date != want {
			t.Errorf("got %+v, want rounded ExpiryAt(%d)", got, want)
		}
	})

	t.Run("system viewer gets the exact timestamp", func(t *testing.T) {
		engine := New(warnings, actions, &stubOracle{})

		got, err := engine.ComputeEffectiveExpiry(context.Background(), 10, action, 0)
		if err != nil {
			t.Fatalf("ComputeEffectiveExpiry: %v", err)
		}
		if got.Kind != models.ExpiryAt || got.Date != t2 {
			t.Errorf("got %+v, want exact ExpiryAt(%d)", got, t2)
		}
	})

	t.Run("permanent result is never rounded", func(t *testing.T) {
		permWarnings := &stubWarnings{warnings: []models.Warning{
			{Points: 7, ExpiryDate: models.PermanentExpiry},
		}}
		engine := New(permWarnings, actions, &stubOracle{})

		got, err := engine.ComputeEffectiveExpiry(context.Background(), 10, action, 20)
		if err != nil {
			t.Fatalf("ComputeEffectiveExpiry: %v", err)
		}
		if got.Kind != models.ExpiryPermanent {
			t.Errorf("got %+v, want ExpiryPermanent", got)
		}
	})
}
