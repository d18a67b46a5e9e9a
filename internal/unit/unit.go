// Package unit controls and inspects the one systemd unit the panel
// manages.
package unit

import "context"

// Status values normalized from systemd's ActiveState.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
	StatusFailed  = "failed"
	StatusUnknown = "unknown"
)

// Start types normalized from systemd's UnitFileState.
const (
	StartTypeAuto     = "auto"
	StartTypeManual   = "manual"
	StartTypeDisabled = "disabled"
)

// Info describes the managed unit at one point in time.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	ActiveState string `json:"active_state"`
	SubState    string `json:"sub_state"`
	LoadState   string `json:"load_state"`
	StartType   string `json:"start_type"`
	MainPID     int    `json:"main_pid,omitempty"`
	Since       string `json:"since,omitempty"`
}

// Manager controls the lifecycle of one service unit.
type Manager interface {
	// Name returns the unit name without the .service suffix.
	Name() string

	// Get returns the unit's current state.
	Get(ctx context.Context) (Info, error)

	// Start starts the unit.
	Start(ctx context.Context) error

	// Stop stops the unit.
	Stop(ctx context.Context) error

	// Restart restarts the unit.
	Restart(ctx context.Context) error

	// Enable enables the unit at boot.
	Enable(ctx context.Context) error

	// Disable disables the unit at boot.
	Disable(ctx context.Context) error

	// IsActive returns the unit's normalized status.
	IsActive(ctx context.Context) (string, error)
}
