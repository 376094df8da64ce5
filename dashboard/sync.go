package dashboard

import (
	"errdash/models"
	"fmt"
	"strings"
	"sync"
)

// Sync button labels
const (
	SyncIdleLabel    = "Sync"
	SyncLoadingLabel = "Syncing..."
)

// Fixed alert texts
const (
	AlertSyncSucceeded = "Synchronization completed successfully"
	unknownSyncError   = "Unknown error occurred"
)

// statusSkipped is the backend status for a sync that did not run
const statusSkipped = "skipped"

// ButtonState is what the sync button currently shows
type ButtonState struct {
	Disabled bool   `json:"disabled"`
	Label    string `json:"label"`
}

// SyncButton guards against overlapping sync presses
type SyncButton struct {
	mu    sync.Mutex
	state ButtonState
}

func newSyncButton() *SyncButton {
	return &SyncButton{state: ButtonState{Label: SyncIdleLabel}}
}

// State returns a snapshot of the button
func (b *SyncButton) State() ButtonState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// begin disables the button and returns false if it already was
func (b *SyncButton) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Disabled {
		return false
	}
	b.state = ButtonState{Disabled: true, Label: SyncLoadingLabel}
	return true
}

func (b *SyncButton) settle() {
	b.mu.Lock()
	b.state = ButtonState{Label: SyncIdleLabel}
	b.mu.Unlock()
}

// SyncKind classifies a finished sync request
type SyncKind int

const (
	SyncFailed SyncKind = iota
	SyncSkipped
	SyncSucceeded
)

func (k SyncKind) String() string {
	switch k {
	case SyncSkipped:
		return "skipped"
	case SyncSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// SyncOutcome is the user-visible result of one sync press
type SyncOutcome struct {
	Kind   SyncKind
	Alert  string
	Reload bool
}

func classifySync(resp *models.SyncResponse, err error, marker string) SyncOutcome {
	if err != nil {
		// *apiclient.APIError renders as "HTTP error! status: <code>"
		return SyncOutcome{Kind: SyncFailed, Alert: fmt.Sprintf("Sync failed: %v", err)}
	}
	if resp == nil {
		return SyncOutcome{Kind: SyncFailed, Alert: "Sync failed: " + unknownSyncError}
	}
	if resp.Status == statusSkipped {
		return SyncOutcome{Kind: SyncSkipped, Alert: resp.Message}
	}
	if marker != "" && strings.Contains(resp.Message, marker) {
		return SyncOutcome{Kind: SyncSucceeded, Alert: AlertSyncSucceeded, Reload: true}
	}
	msg := resp.Message
	if msg == "" {
		msg = unknownSyncError
	}
	return SyncOutcome{Kind: SyncFailed, Alert: "Sync failed: " + msg}
}
