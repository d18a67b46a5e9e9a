package auth

import (
	"os"
	"os/user"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerEnabled(t *testing.T) {
	c := NewChecker(true, "admin", "s3cret")

	assert.True(t, c.Enabled())
	assert.True(t, c.Check("admin", "s3cret"))
	assert.False(t, c.Check("admin", "wrong"))
	assert.False(t, c.Check("wrong", "s3cret"))
	assert.False(t, c.Check("", ""))
}

func TestCheckerDisabledAcceptsAnything(t *testing.T) {
	c := NewChecker(false, "admin", "s3cret")

	assert.False(t, c.Enabled())
	assert.True(t, c.Check("", ""))
	assert.True(t, c.Check("nobody", "nothing"))
}

func TestIsRunningAsRoot(t *testing.T) {
	assert.Equal(t, os.Getuid() == 0, IsRunningAsRoot())
}

func TestRequireRootEscapeHatch(t *testing.T) {
	t.Setenv(noRootEnv, "1")
	assert.NoError(t, RequireRoot())
}

func TestRequireRootWithoutEscape(t *testing.T) {
	t.Setenv(noRootEnv, "")

	err := RequireRoot()
	if os.Getuid() == 0 {
		require.NoError(t, err)
	} else {
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root")
	}
}

func TestInGroup(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)
	ids, err := current.GroupIds()
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	grp, err := user.LookupGroupId(ids[0])
	if err != nil {
		t.Skipf("group %s has no name entry: %v", ids[0], err)
	}

	ok, err := InGroup(grp.Name)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = InGroup("cotpanel-no-such-group")
	assert.Error(t, err)
}
