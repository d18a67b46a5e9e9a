// Package updater checks GitHub releases for a newer panel binary and
// swaps the running executable in place.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/selfupdate"
	"github.com/rs/zerolog"
)

// Version is set at build time
var Version = "dev"

// ReleaseInfo contains release information
type ReleaseInfo struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset represents a release asset
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// UpdateInfo contains update information
type UpdateInfo struct {
	Available   bool      `json:"available"`
	CurrentVer  string    `json:"current_version"`
	LatestVer   string    `json:"latest_version"`
	ReleaseDate time.Time `json:"release_date"`
	ReleaseURL  string    `json:"release_url"`
	Changelog   string    `json:"changelog"`
}

// Updater handles self-updates
type Updater struct {
	githubRepo    string
	currentVer    string
	enabled       bool
	checkInterval time.Duration
	apiBase       string

	mu            sync.Mutex
	lastCheck     time.Time
	latestRelease *ReleaseInfo
}

// NewUpdater creates a new updater
func NewUpdater(githubRepo string, enabled bool, checkInterval time.Duration) *Updater {
	return &Updater{
		githubRepo:    githubRepo,
		currentVer:    Version,
		enabled:       enabled,
		checkInterval: checkInterval,
		apiBase:       "https://api.github.com",
	}
}

// CheckForUpdate checks for a new version. Within checkInterval of the
// last check the cached release answers, so the API endpoint can be hit
// freely without exhausting GitHub's rate limit.
func (u *Updater) CheckForUpdate() (UpdateInfo, error) {
	info := UpdateInfo{
		CurrentVer: u.currentVer,
		Available:  false,
	}

	if !u.enabled {
		return info, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	release := u.latestRelease
	if release == nil || time.Since(u.lastCheck) >= u.checkInterval {
		fetched, err := u.getLatestRelease()
		if err != nil {
			return info, err
		}
		u.latestRelease = fetched
		u.lastCheck = time.Now()
		release = fetched
	}

	info.LatestVer = release.TagName
	info.ReleaseDate = release.PublishedAt
	info.Changelog = release.Body
	info.ReleaseURL = fmt.Sprintf("https://github.com/%s/releases/tag/%s", u.githubRepo, release.TagName)
	info.Available = isNewerVersion(release.TagName, u.currentVer)

	return info, nil
}

// Apply downloads the release binary for this platform and replaces the
// running executable.
func (u *Updater) Apply() error {
	if !u.enabled {
		return fmt.Errorf("updater is disabled")
	}

	if _, err := u.CheckForUpdate(); err != nil {
		return err
	}

	u.mu.Lock()
	release := u.latestRelease
	u.mu.Unlock()

	if release == nil {
		return fmt.Errorf("no release information available")
	}

	asset := findAsset(release)
	if asset == nil {
		return fmt.Errorf("no suitable binary found for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	resp, err := http.Get(asset.BrowserDownloadURL)
	if err != nil {
		return fmt.Errorf("failed to download update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download update: status %d", resp.StatusCode)
	}

	err = selfupdate.Apply(resp.Body, selfupdate.Options{})
	if err != nil {
		if rerr := selfupdate.RollbackError(err); rerr != nil {
			return fmt.Errorf("failed to rollback after failed update: %w", rerr)
		}
		return fmt.Errorf("failed to apply update: %w", err)
	}

	return nil
}

// Run checks periodically and logs when a newer release appears. It
// returns when ctx is cancelled.
func (u *Updater) Run(ctx context.Context, log zerolog.Logger) {
	if !u.enabled || u.checkInterval <= 0 {
		return
	}

	ticker := time.NewTicker(u.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := u.CheckForUpdate()
			if err != nil {
				log.Warn().Err(err).Msg("update check failed")
				continue
			}
			if info.Available {
				log.Info().
					Str("current", info.CurrentVer).
					Str("latest", info.LatestVer).
					Msg("panel update available")
			}
		}
	}
}

// getLatestRelease fetches the latest release from GitHub
func (u *Updater) getLatestRelease() (*ReleaseInfo, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", u.apiBase, u.githubRepo)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub API error: %s", string(body))
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release: %w", err)
	}

	return &release, nil
}

// findAsset finds the release asset for this platform
func findAsset(release *ReleaseInfo) *Asset {
	osName := runtime.GOOS
	arch := runtime.GOARCH

	for i := range release.Assets {
		asset := &release.Assets[i]
		name := strings.ToLower(asset.Name)

		// Skip checksums and signatures
		if strings.HasSuffix(name, ".sha256") || strings.HasSuffix(name, ".sig") {
			continue
		}

		hasOS := strings.Contains(name, osName)
		hasArch := strings.Contains(name, arch) ||
			(arch == "amd64" && strings.Contains(name, "x86_64")) ||
			(arch == "arm64" && strings.Contains(name, "aarch64"))

		if hasOS && hasArch {
			return asset
		}
	}

	return nil
}

// isNewerVersion compares dotted version strings numerically per part.
func isNewerVersion(latest, current string) bool {
	latest = strings.TrimPrefix(latest, "v")
	current = strings.TrimPrefix(current, "v")

	// A dev build always takes the published release.
	if current == "dev" || current == "" {
		return true
	}

	latestParts := strings.Split(latest, ".")
	currentParts := strings.Split(current, ".")

	for i := 0; i < len(latestParts) && i < len(currentParts); i++ {
		ln, lerr := strconv.Atoi(latestParts[i])
		cn, cerr := strconv.Atoi(currentParts[i])
		if lerr != nil || cerr != nil {
			if latestParts[i] != currentParts[i] {
				return latestParts[i] > currentParts[i]
			}
			continue
		}
		if ln != cn {
			return ln > cn
		}
	}

	return len(latestParts) > len(currentParts)
}

// GetVersion returns the current version
func (u *Updater) GetVersion() string {
	return u.currentVer
}
