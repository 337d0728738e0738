package search

import (
	"os"
	"path/filepath"
	"strings"
)

const stampFile = "catalog.version"

// stamp is the on-disk record of what an index directory holds.
type stamp struct {
	mapping     string
	fingerprint string
}

// readStamp reads "<mapping>:<fingerprint>". A missing file yields a zero stamp.
func readStamp(dir string) (stamp, error) {
	data, err := os.ReadFile(filepath.Join(dir, stampFile))
	if err != nil {
		return stamp{}, err
	}
	mapping, fp, _ := strings.Cut(strings.TrimSpace(string(data)), ":")
	return stamp{mapping: mapping, fingerprint: fp}, nil
}

func writeStamp(dir string, st stamp) error {
	return os.WriteFile(filepath.Join(dir, stampFile), []byte(st.mapping+":"+st.fingerprint), 0o644)
}
