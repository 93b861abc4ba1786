package cli

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/statspub/internal/versioning"
)

// decodeFile reads YAML or JSON from path into v. A path of "-" reads
// stdin.
func decodeFile(stdin io.Reader, path string, v any) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := yaml.NewDecoder(r).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// versionEntry is one element of a versions file:
//
//   - id: 3f0c...
//     version: 1.2.0
//     status: published
type versionEntry struct {
	ID      string `json:"id" yaml:"id"`
	Version string `json:"version" yaml:"version"`
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`

	number versioning.Number
}

func (e versionEntry) VersionNumber() versioning.Number { return e.number }

// readVersions loads a versions file and parses every version number.
func readVersions(stdin io.Reader, path string) ([]versionEntry, error) {
	var entries []versionEntry
	if err := decodeFile(stdin, path, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		n, err := versioning.ParseNumber(entries[i].Version)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, entries[i].ID, err)
		}
		entries[i].number = n
	}
	return entries, nil
}
