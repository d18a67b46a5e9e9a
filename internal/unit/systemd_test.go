package unit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and replays canned output per subcommand.
type fakeRunner struct {
	calls  [][]string
	output map[string]string
	err    error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, f.err
	}
	if len(args) > 0 {
		if out, ok := f.output[args[0]]; ok {
			return []byte(out), nil
		}
	}
	return nil, nil
}

func newFakeManager(fake *fakeRunner) *SystemdManager {
	return &SystemdManager{unit: "adsbcot", run: fake.run}
}

const showOutput = `Description=ADS-B to Cursor-on-Target gateway
LoadState=loaded
ActiveState=active
SubState=running
MainPID=4242
UnitFileState=enabled
ActiveEnterTimestamp=Fri 2026-08-21 09:15:04 UTC
`

func TestSystemdManager_Get(t *testing.T) {
	fake := &fakeRunner{output: map[string]string{"show": showOutput}}
	m := newFakeManager(fake)

	info, err := m.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "adsbcot", info.Name)
	assert.Equal(t, "ADS-B to Cursor-on-Target gateway", info.Description)
	assert.Equal(t, StatusRunning, info.Status)
	assert.Equal(t, "active", info.ActiveState)
	assert.Equal(t, "running", info.SubState)
	assert.Equal(t, "loaded", info.LoadState)
	assert.Equal(t, StartTypeAuto, info.StartType)
	assert.Equal(t, 4242, info.MainPID)
	assert.Equal(t, "Fri 2026-08-21 09:15:04 UTC", info.Since)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{"systemctl", "show", "adsbcot.service", "--property=" + showProperties}, fake.calls[0])
}

func TestSystemdManager_GetStates(t *testing.T) {
	tests := []struct {
		activeState   string
		unitFileState string
		wantStatus    string
		wantStartType string
	}{
		{"active", "enabled", StatusRunning, StartTypeAuto},
		{"inactive", "disabled", StatusStopped, StartTypeDisabled},
		{"failed", "static", StatusFailed, StartTypeManual},
		{"activating", "linked", StatusUnknown, StartTypeManual},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.activeState+"/"+tt.unitFileState, func(t *testing.T) {
			out := fmt.Sprintf("ActiveState=%s\nUnitFileState=%s\nMainPID=0\n", tt.activeState, tt.unitFileState)
			fake := &fakeRunner{output: map[string]string{"show": out}}
			m := newFakeManager(fake)

			info, err := m.Get(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, info.Status)
			assert.Equal(t, tt.wantStartType, info.StartType)
			assert.Zero(t, info.MainPID, "MainPID=0 means no main process")
		})
	}
}

func TestSystemdManager_Actions(t *testing.T) {
	fake := &fakeRunner{}
	m := newFakeManager(fake)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Stop(ctx))
	require.NoError(t, m.Restart(ctx))
	require.NoError(t, m.Enable(ctx))
	require.NoError(t, m.Disable(ctx))

	var verbs []string
	for _, call := range fake.calls {
		require.Equal(t, "systemctl", call[0])
		require.Equal(t, "adsbcot.service", call[2])
		verbs = append(verbs, call[1])
	}
	assert.Equal(t, []string{"start", "stop", "restart", "enable", "disable"}, verbs)
}

func TestSystemdManager_ActionFailure(t *testing.T) {
	fake := &fakeRunner{err: errors.New("systemctl: Access denied")}
	m := newFakeManager(fake)

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to start adsbcot.service"))
	assert.True(t, strings.Contains(err.Error(), "Access denied"))
}

func TestSystemdManager_IsActive(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"active\n", StatusRunning},
		{"inactive\n", StatusStopped},
		{"failed\n", StatusFailed},
		{"activating\n", StatusUnknown},
	}
	for _, tt := range tests {
		fake := &fakeRunner{output: map[string]string{"is-active": tt.output}}
		m := newFakeManager(fake)

		got, err := m.IsActive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestStats_NoProcess(t *testing.T) {
	stats, err := Stats(0)
	require.NoError(t, err)
	assert.Nil(t, stats)
}
