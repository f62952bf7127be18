package server

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sanitizeFilename applies the server-side path traversal defense (spec §6):
// strip a single leading "/", then delete every literal "../" substring. The
// result may still be empty or a bare filename — validation of the
// remainder is left to the filesystem layer.
func sanitizeFilename(name string, allowDangerous bool) string {
	if allowDangerous {
		return name
	}
	name = strings.TrimPrefix(name, "/")
	return strings.ReplaceAll(name, "../", "")
}

// resolveCollision returns path unchanged if it doesn't exist; otherwise it
// tries path.1, path.2, … until it finds one that doesn't, and returns that.
// Atomicity is best-effort: the check and the eventual open are not atomic,
// and a concurrent writer could still win the race (spec §4.5 accepts this).
func resolveCollision(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	for i := 1; ; i++ {
		candidate := path + "." + strconv.Itoa(i)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// destPath joins baseDir and the sanitized filename using OS-native
// separators, matching filepath.Join's cleaning of "." and ".." segments
// that survive sanitization.
func destPath(baseDir, name string) string {
	return filepath.Join(baseDir, name)
}
