// Package id generates short identifiers for catalog snapshots and batch jobs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// versionAlphabet avoids look-alike characters so versions are easy to read back from logs.
const versionAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// versionLength keeps catalog versions short enough to embed in cache keys.
const versionLength = 12

// Generate creates a prefixed NanoID, e.g. "cat-9x2kqhm4t7vb".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(versionAlphabet, versionLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if the system has no entropy.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
