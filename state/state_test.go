package state

import (
	"errdash/dashboard"
	"testing"
	"time"
)

func newController() *dashboard.Controller {
	return dashboard.NewController(nil, dashboard.Options{})
}

func TestGetOrCreate(t *testing.T) {
	s := NewAppState()

	id, first, created := s.GetOrCreate("", newController)
	if !created || id == "" || first == nil {
		t.Fatalf("expected new session, got %q %v", id, created)
	}

	again, second, created := s.GetOrCreate(id, newController)
	if created || again != id || second != first {
		t.Fatalf("expected existing session to be reused")
	}

	other, _, created := s.GetOrCreate("not-a-uuid", newController)
	if !created || other == id {
		t.Fatalf("malformed id must get a fresh session")
	}
	if s.Count() != 2 {
		t.Fatalf("sessions = %d, want 2", s.Count())
	}
}

func TestSweepIdle(t *testing.T) {
	s := NewAppState()
	id, _, _ := s.GetOrCreate("", newController)

	if n := s.SweepIdle(time.Hour, time.Now()); n != 0 {
		t.Fatalf("fresh session swept")
	}
	if n := s.SweepIdle(time.Hour, time.Now().Add(2*time.Hour)); n != 1 {
		t.Fatalf("expected idle session to be swept, got %d", n)
	}
	if _, ok := s.GetSession(id); ok {
		t.Fatalf("session still present")
	}
}

func TestSweepIdle_KeepsSubscribedSessions(t *testing.T) {
	s := NewAppState()
	id, ctrl, _ := s.GetOrCreate("", newController)
	_, cancel := ctrl.Subscribe()

	later := time.Now().Add(2 * time.Hour)
	if n := s.SweepIdle(time.Hour, later); n != 0 {
		t.Fatalf("session with an open subscriber was swept")
	}
	cancel()
	if n := s.SweepIdle(time.Hour, later); n != 1 {
		t.Fatalf("expected session to be swept once unsubscribed, got %d", n)
	}
	if _, ok := s.GetSession(id); ok {
		t.Fatalf("session still present")
	}
}

func TestRemoveSession(t *testing.T) {
	s := NewAppState()
	id, _, _ := s.GetOrCreate("", newController)

	if !s.RemoveSession(id) {
		t.Fatalf("expected known session to be removed")
	}
	if s.RemoveSession(id) {
		t.Fatalf("second remove should report unknown")
	}
	if s.Count() != 0 {
		t.Fatalf("sessions = %d", s.Count())
	}
}
