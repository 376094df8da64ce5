package service

import (
	"context"
	"errdash/dashboard"
	"errdash/database"
	"errdash/diagnostics"
	"errdash/state"
	"log"
	"time"
)

// Services is the global service container
type Services struct {
	Fetcher     dashboard.Fetcher
	Diagnostics *diagnostics.Logger
	Store       *database.DiagnosticStore
	Sessions    *state.AppState
	SyncMarker  string
}

// GlobalServices is the global service instance
var GlobalServices *Services

// InitServices initializes all services
func InitServices(fetcher dashboard.Fetcher, diag *diagnostics.Logger, store *database.DiagnosticStore, sessions *state.AppState, syncMarker string) {
	GlobalServices = &Services{
		Fetcher:     fetcher,
		Diagnostics: diag,
		Store:       store,
		Sessions:    sessions,
		SyncMarker:  syncMarker,
	}
}

// NewController builds a dashboard view backed by the shared fetcher and diagnostics
func (s *Services) NewController() *dashboard.Controller {
	opts := dashboard.Options{SyncSuccessMarker: s.SyncMarker}
	if s.Diagnostics != nil {
		opts.Diagnostics = s.Diagnostics
	}
	return dashboard.NewController(s.Fetcher, opts)
}

// Session returns the controller for a browser session, creating it on first use
func (s *Services) Session(id string) (string, *dashboard.Controller, bool) {
	return s.Sessions.GetOrCreate(id, s.NewController)
}

// CloseSession forgets a browser session; false when it was unknown
func (s *Services) CloseSession(id string) bool {
	return s.Sessions.RemoveSession(id)
}

// RunSessionSweeper drops idle sessions every interval until ctx is done
func (s *Services) RunSessionSweeper(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sessions.SweepIdle(idle, now); n > 0 {
				log.Printf("Dropped %d idle dashboard session(s)", n)
			}
		}
	}
}
