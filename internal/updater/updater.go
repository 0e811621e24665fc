// Package updater checks GitHub for a newer gitmcp release.
//
// The check is best effort: any network, API or decoding failure yields a
// result with UpdateAvailable false. It never replaces the binary.
package updater

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	github "github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
)

const (
	repoOwner = "HendryAvila"
	repoName  = "gitmcp"

	// checkTimeout bounds the whole release lookup.
	checkTimeout = 10 * time.Second
)

// Result describes the outcome of a version check.
type Result struct {
	// CurrentVersion is the running version without a leading "v".
	CurrentVersion string `json:"current_version"`
	// LatestVersion is the newest release, empty when the check failed.
	LatestVersion   string `json:"latest_version,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url,omitempty"`
}

// Checker looks up the latest release of the gitmcp repository.
type Checker struct {
	client  *github.Client
	owner   string
	repo    string
	timeout time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithBaseURL points the checker at another API root (GitHub Enterprise or
// a test server).
func WithBaseURL(raw string) Option {
	return func(c *Checker) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
			c.client.BaseURL = u
		}
	}
}

// WithRepository overrides the owner/name of the release repository.
func WithRepository(owner, repo string) Option {
	return func(c *Checker) {
		if owner != "" && repo != "" {
			c.owner, c.repo = owner, repo
		}
	}
}

// WithTimeout overrides the lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChecker creates a Checker. A non-empty token authenticates requests,
// which raises the API rate limit.
func NewChecker(ctx context.Context, token, version string, opts ...Option) *Checker {
	var hc *http.Client
	if token = strings.TrimSpace(token); token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	client := github.NewClient(hc)
	client.UserAgent = "gitmcp/" + normalizeVersion(version)

	c := &Checker{
		client:  client,
		owner:   repoOwner,
		repo:    repoName,
		timeout: checkTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check compares currentVersion against the latest published release.
func (c *Checker) Check(ctx context.Context, currentVersion string) *Result {
	res := &Result{CurrentVersion: normalizeVersion(currentVersion)}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	release, _, err := c.client.Repositories.GetLatestRelease(ctx, c.owner, c.repo)
	if err != nil || release == nil {
		return res
	}

	res.LatestVersion = normalizeVersion(release.GetTagName())
	res.ReleaseURL = release.GetHTMLURL()
	res.UpdateAvailable = isNewer(res.CurrentVersion, res.LatestVersion)
	return res
}

// normalizeVersion strips surrounding space and one leading "v".
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewer reports whether latest is a higher major.minor.patch than
// current. Development builds never report an update.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	cur, lat := versionParts(current), versionParts(latest)
	for i := range cur {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

// versionParts parses up to three numeric components. Missing components
// are zero; a pre-release or build suffix ends a component.
func versionParts(v string) [3]int {
	var parts [3]int
	for i, field := range strings.SplitN(v, ".", 3) {
		end := strings.IndexFunc(field, func(r rune) bool { return r < '0' || r > '9' })
		if end >= 0 {
			field = field[:end]
		}
		parts[i], _ = strconv.Atoi(field)
	}
	return parts
}
