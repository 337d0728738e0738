package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultSettleDelay is how long a file must stay unchanged before an event fires.
const DefaultSettleDelay = 250 * time.Millisecond

// Options configures the file watcher behavior.
type Options struct {
	IgnorePatterns []string
	SettleDelay    time.Duration
	IgnoreHidden   bool
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = DefaultSettleDelay
	}

	// Editor swap and backup files. Nil means defaults; an empty slice disables them.
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".DS_Store",
			"*.tmp",
			"*.swp",
			"*~",
		}
		o.IgnoreHidden = true
	}
}

// shouldIgnore checks the base name of path against ignore patterns. Only files
// seen through a directory watch are filtered; explicitly watched files never are.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if o.IgnoreHidden && strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}

	for _, pattern := range o.IgnorePatterns {
		matched, err := filepath.Match(pattern, base)
		if err == nil && matched {
			return true
		}
	}

	return false
}
