package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	assert.True(t, opts.IgnoreHidden, "Should ignore hidden files by default")
	assert.Equal(t, DefaultSettleDelay, opts.SettleDelay)
	assert.Contains(t, opts.IgnorePatterns, "*.swp", "Should ignore editor swap files by default")
	assert.Contains(t, opts.IgnorePatterns, "*.tmp", "Should ignore *.tmp by default")
}

func TestOptions_CustomValues(t *testing.T) {
	opts := Options{
		IgnoreHidden:   false,
		SettleDelay:    200 * time.Millisecond,
		IgnorePatterns: []string{"*.bak"},
	}
	opts.setDefaults()

	assert.False(t, opts.IgnoreHidden, "Custom ignore hidden should be preserved")
	assert.Equal(t, 200*time.Millisecond, opts.SettleDelay, "Custom settle delay should be preserved")
	assert.Equal(t, []string{"*.bak"}, opts.IgnorePatterns, "Custom patterns should be preserved")
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{
		IgnoreHidden:   true,
		IgnorePatterns: []string{"*.tmp", "*~", "*.bak"},
	}
	opts.setDefaults()

	tests := []struct {
		name   string
		path   string
		expect bool
	}{
		{"hidden file", "/catalogs/.catalog.json.swp", true},
		{"tmp file", "/catalogs/exercises.tmp", true},
		{"backup file", "/catalogs/exercises.json~", true},
		{"bak file", "/catalogs/exercises.bak", true},
		{"catalog", "/catalogs/exercises.json", false},
		{"hidden parent is fine", "/home/me/.config/exercises.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := opts.shouldIgnore(tt.path)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestOptions_ShouldIgnore_NoIgnoreHidden(t *testing.T) {
	opts := Options{
		IgnoreHidden:   false,
		IgnorePatterns: []string{},
	}
	opts.setDefaults()

	assert.False(t, opts.shouldIgnore("/path/.hidden"), "Should not ignore hidden when disabled")
	assert.False(t, opts.shouldIgnore("/path/exercises.json"), "Should not ignore normal files")
}
