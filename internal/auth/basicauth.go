package auth

import "crypto/subtle"

// Checker validates HTTP basic auth credentials against the configured pair.
type Checker struct {
	enabled  bool
	username string
	password string
}

// NewChecker creates a checker. When enabled is false Check always passes.
func NewChecker(enabled bool, username, password string) *Checker {
	return &Checker{enabled: enabled, username: username, password: password}
}

// Enabled reports whether the auth gate is on.
func (c *Checker) Enabled() bool {
	return c.enabled
}

// Check compares the supplied credentials in constant time.
func (c *Checker) Check(username, password string) bool {
	if !c.enabled {
		return true
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(c.password)) == 1
	return userOK && passOK
}
