// Package pkginfo reports how the gateway package is installed and at
// what version.
package pkginfo

import (
	"bufio"
	"os/exec"
	"strings"
)

// Info describes the installed gateway package.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Source    string `json:"source"`
	Installed bool   `json:"installed"`
}

// Runner executes a query command and returns its stdout.
type Runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Resolver probes the known package sources for the gateway.
type Resolver struct {
	run Runner
}

// NewResolver creates a resolver using the system package tools.
func NewResolver() *Resolver {
	return &Resolver{run: execRunner}
}

// NewResolverWith creates a resolver backed by a custom command runner.
func NewResolverWith(run Runner) *Resolver {
	return &Resolver{run: run}
}

// Query checks dpkg, rpm and pip in that order and returns the first
// source that knows the package. A package no source knows comes back
// with Installed false and Source "none".
func (r *Resolver) Query(name string) Info {
	if version, ok := r.queryDpkg(name); ok {
		return Info{Name: name, Version: version, Source: "dpkg", Installed: true}
	}
	if version, ok := r.queryRpm(name); ok {
		return Info{Name: name, Version: version, Source: "rpm", Installed: true}
	}
	if version, ok := r.queryPip(name); ok {
		return Info{Name: name, Version: version, Source: "pip", Installed: true}
	}
	return Info{Name: name, Source: "none"}
}

// queryDpkg asks dpkg-query for the package version. A missing tool or an
// unknown package both come back as a plain miss.
func (r *Resolver) queryDpkg(name string) (string, bool) {
	output, err := r.run("dpkg-query", "-W", "-f", "${Version}\t${Status}", name)
	if err != nil {
		return "", false
	}

	parts := strings.SplitN(strings.TrimSpace(string(output)), "\t", 2)
	if len(parts) < 2 || !strings.Contains(parts[1], "installed") {
		return "", false
	}
	return parts[0], parts[0] != ""
}

func (r *Resolver) queryRpm(name string) (string, bool) {
	output, err := r.run("rpm", "-q", "--queryformat", "%{VERSION}-%{RELEASE}", name)
	if err != nil {
		return "", false
	}

	version := strings.TrimSpace(string(output))
	return version, version != ""
}

func (r *Resolver) queryPip(name string) (string, bool) {
	output, err := r.run("pip3", "show", name)
	if err != nil {
		return "", false
	}

	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := scanner.Text()
		if version, found := strings.CutPrefix(line, "Version: "); found {
			version = strings.TrimSpace(version)
			return version, version != ""
		}
	}
	return "", false
}
