package outreach

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadSubstitutesDefaultsForMissingRecords(t *testing.T) {
	store := newFakeStore() // knows nothing about u1
	l := NewLoader(store)
	l.clock = fixedClock

	c, err := l.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Prefs != DefaultPreferences() {
		t.Fatalf("expected default preferences, got %+v", c.Prefs)
	}
	if len(c.Model.PreferredHours) != 0 || c.Model.EngagementRate != 0 {
		t.Fatalf("expected zero engagement model, got %+v", c.Model)
	}
	if c.Streak.Count != 0 || c.Streak.LastLoggedAt != nil {
		t.Fatalf("expected zero streak, got %+v", c.Streak)
	}
	if c.UserName != "there" {
		t.Fatalf("expected greeting fallback name, got %q", c.UserName)
	}
}

func TestLoadAssemblesContext(t *testing.T) {
	logged := fixedClock().Add(-5 * time.Hour)
	active := fixedClock().Add(-30 * time.Hour)

	store := newFakeStore()
	store.prefs["u1"] = Preferences{AutoNudgeEnabled: true, MaxNudgesPerDay: 3, QuietHoursStart: "21:00", QuietHoursEnd: "08:00"}
	store.models["u1"] = EngagementModel{PreferredHours: []int{19}, EngagementRate: 72.5}
	store.streaks["u1"] = StreakState{Count: 7, LastLoggedAt: &logged}
	store.alerts["u1"] = []Alert{{Severity: SeverityWarning}}
	store.counts["u1"] = 2
	store.lastActive["u1"] = &active
	store.names["u1"] = "Grace"

	l := NewLoader(store)
	l.clock = fixedClock

	c, err := l.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Prefs.MaxNudgesPerDay != 3 || c.Prefs.QuietHoursStart != "21:00" {
		t.Fatalf("unexpected prefs %+v", c.Prefs)
	}
	if c.Model.EngagementRate != 72.5 {
		t.Fatalf("unexpected model %+v", c.Model)
	}
	if c.Streak.Count != 7 {
		t.Fatalf("unexpected streak %+v", c.Streak)
	}
	if len(c.Alerts) != 1 || c.Alerts[0].Severity != SeverityWarning {
		t.Fatalf("unexpected alerts %+v", c.Alerts)
	}
	if c.RecentOutreach != 2 {
		t.Fatalf("unexpected recent count %d", c.RecentOutreach)
	}
	if c.UserName != "Grace" {
		t.Fatalf("unexpected name %q", c.UserName)
	}
	if c.LastActivityAt == nil || !c.LastActivityAt.Equal(active) {
		t.Fatalf("unexpected last activity %v", c.LastActivityAt)
	}
}

func TestLoadHardFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.prefsErr["u1"] = errors.New("store unreachable")

	l := NewLoader(store)
	if _, err := l.Load(context.Background(), "u1"); err == nil {
		t.Fatal("expected a hard fetch failure to propagate")
	}
}

func TestHoursSinceLogSentinel(t *testing.T) {
	s := StreakState{Count: 4, LastLoggedAt: nil}
	if got := s.HoursSinceLog(fixedClock()); got != neverLoggedHours {
		t.Fatalf("expected sentinel %d, got %v", neverLoggedHours, got)
	}
}
