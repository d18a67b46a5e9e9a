// Package auth covers process privileges and the optional HTTP basic auth
// gate in front of the API.
package auth

import (
	"fmt"
	"os"
	"os/user"
)

// noRootEnv skips the root requirement for development runs.
const noRootEnv = "COTPANEL_NO_ROOT"

// IsRunningAsRoot reports whether the process runs with uid 0.
func IsRunningAsRoot() bool {
	return os.Getuid() == 0
}

// RequireRoot returns an error when not running as root. Controlling the
// unit and writing its environment file both need it. Set COTPANEL_NO_ROOT=1
// to skip the check during development.
func RequireRoot() error {
	if os.Getenv(noRootEnv) == "1" {
		return nil
	}
	if !IsRunningAsRoot() {
		return fmt.Errorf("cotpanel needs root to control the service and write its configuration; run with sudo")
	}
	return nil
}

// GetCurrentUser returns the current user info
func GetCurrentUser() (*user.User, error) {
	return user.Current()
}

// InGroup reports whether the current user belongs to the named group.
// Deployments that grant panel access to an administrative group instead
// of root can check membership with it.
func InGroup(name string) (bool, error) {
	grp, err := user.LookupGroup(name)
	if err != nil {
		return false, fmt.Errorf("failed to look up group %s: %w", name, err)
	}

	current, err := user.Current()
	if err != nil {
		return false, err
	}

	ids, err := current.GroupIds()
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == grp.Gid {
			return true, nil
		}
	}
	return false, nil
}
