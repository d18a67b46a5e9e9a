package unit

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// showProperties are the systemctl show fields the panel reads.
const showProperties = "Description,LoadState,ActiveState,SubState,MainPID,UnitFileState,ActiveEnterTimestamp"

// Runner executes a system command and returns its standard output. The
// systemd manager shells out through it so tests can stub systemctl.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, err
	}
	return out, nil
}

// SystemdManager manages one systemd unit through systemctl.
type SystemdManager struct {
	unit string
	run  Runner
}

// NewSystemdManager creates a manager for the named unit. A .service
// suffix on the name is accepted and trimmed. It fails when systemctl is
// not on PATH.
func NewSystemdManager(unit string) (*SystemdManager, error) {
	if _, err := exec.LookPath("systemctl"); err != nil {
		return nil, fmt.Errorf("systemctl not found: %w", err)
	}
	return &SystemdManager{unit: strings.TrimSuffix(unit, ".service"), run: execRunner}, nil
}

// Name returns the unit name without the .service suffix.
func (m *SystemdManager) Name() string { return m.unit }

func (m *SystemdManager) service() string { return m.unit + ".service" }

// Get returns the unit's current state, parsed from systemctl show.
func (m *SystemdManager) Get(ctx context.Context) (Info, error) {
	info := Info{Name: m.unit, Status: StatusUnknown}

	output, err := m.run(ctx, "systemctl", "show", m.service(), "--property="+showProperties)
	if err != nil {
		return info, fmt.Errorf("failed to query unit: %w", err)
	}

	for _, line := range strings.Split(string(output), "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]

		switch key {
		case "Description":
			info.Description = value
		case "LoadState":
			info.LoadState = value
		case "ActiveState":
			info.ActiveState = value
			info.Status = normalizeActive(value)
		case "SubState":
			info.SubState = value
		case "MainPID":
			if pid, err := strconv.Atoi(value); err == nil && pid > 0 {
				info.MainPID = pid
			}
		case "UnitFileState":
			switch value {
			case "enabled", "enabled-runtime":
				info.StartType = StartTypeAuto
			case "disabled":
				info.StartType = StartTypeDisabled
			default:
				info.StartType = StartTypeManual
			}
		case "ActiveEnterTimestamp":
			info.Since = value
		}
	}

	return info, nil
}

// Start starts the unit.
func (m *SystemdManager) Start(ctx context.Context) error {
	return m.action(ctx, "start")
}

// Stop stops the unit.
func (m *SystemdManager) Stop(ctx context.Context) error {
	return m.action(ctx, "stop")
}

// Restart restarts the unit.
func (m *SystemdManager) Restart(ctx context.Context) error {
	return m.action(ctx, "restart")
}

// Enable enables the unit at boot.
func (m *SystemdManager) Enable(ctx context.Context) error {
	return m.action(ctx, "enable")
}

// Disable disables the unit at boot.
func (m *SystemdManager) Disable(ctx context.Context) error {
	return m.action(ctx, "disable")
}

func (m *SystemdManager) action(ctx context.Context, verb string) error {
	if _, err := m.run(ctx, "systemctl", verb, m.service()); err != nil {
		return fmt.Errorf("failed to %s %s: %w", verb, m.service(), err)
	}
	return nil
}

// IsActive returns the normalized status from systemctl is-active. The
// command exits non-zero for anything but an active unit, so its exit code
// is ignored and only the printed state matters.
func (m *SystemdManager) IsActive(ctx context.Context) (string, error) {
	output, _ := m.run(ctx, "systemctl", "is-active", m.service())
	return normalizeActive(strings.TrimSpace(string(output))), nil
}

func normalizeActive(state string) string {
	switch state {
	case "active":
		return StatusRunning
	case "inactive":
		return StatusStopped
	case "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}
