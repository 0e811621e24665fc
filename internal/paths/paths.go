// Package paths normalizes user-supplied filesystem paths and recognizes
// git working copies.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// RepositoryMarker is the directory that marks a git working copy.
const RepositoryMarker = ".git"

// Normalize turns a user-supplied path into a clean absolute path.
// It trims whitespace and surrounding quotes, expands a leading ~, resolves
// the result against the working directory and drops trailing separators.
// It never touches the filesystem beyond looking up the home and working
// directories, so nonexistent paths normalize fine. Empty input yields "".
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `"'`)
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}

	p = ExpandHome(p)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}

	trimmed := strings.TrimRight(p, `/\`)
	if trimmed == "" || strings.HasSuffix(trimmed, ":") {
		// Keep the root ("/" or "C:\") intact.
		return p
	}
	return trimmed
}

// ExpandHome replaces a leading ~ in path with the user's home directory.
// If the home directory cannot be determined, the path is returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// IsDirEmpty reports whether path can receive a fresh clone: true when it
// does not exist or is a directory without entries. A path that exists but
// is not a directory is never empty.
func IsDirEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}
	if !info.IsDir() {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	names, _ := f.Readdirnames(1)
	return len(names) == 0
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Exists reports whether anything exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsRepository reports whether the repository marker directory exists
// directly under absPath.
func IsRepository(absPath string) bool {
	return IsDir(filepath.Join(absPath, RepositoryMarker))
}

// ValidateRepoDir normalizes path and reports whether it is an existing
// directory that is also a git working copy. The normalized path is returned
// in both cases so callers can report it.
func ValidateRepoDir(path string) (bool, string) {
	abs := Normalize(path)
	if abs == "" || !IsDir(abs) {
		return false, abs
	}
	return IsRepository(abs), abs
}
