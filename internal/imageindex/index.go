// Package imageindex regenerates the static lookup table the gallery renderer
// uses to resolve a commission file name to its delivery derivative.
package imageindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/image/webp"

	"commissions/internal/apperr"
	"commissions/internal/fileutil"
)

// Entry describes one derivative.
type Entry struct {
	Name     string    `json:"name"`
	File     string    `json:"file"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	// Width and Height are zero when the header cannot be parsed.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Index is the document written to disk.
type Index struct {
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id,omitempty"`
	Entries     []Entry   `json:"entries"`
}

// Lookup returns the entry for basename, if present.
func (idx Index) Lookup(name string) (Entry, bool) {
	i := sort.Search(len(idx.Entries), func(i int) bool { return idx.Entries[i].Name >= name })
	if i < len(idx.Entries) && idx.Entries[i].Name == name {
		return idx.Entries[i], true
	}
	return Entry{}, false
}

// Build lists the .webp files in dir, sorted by basename.
func Build(dir string) (Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Index{}, apperr.Wrap(apperr.ErrIO, "list derivatives", "", err)
	}
	idx := Index{GeneratedAt: time.Now().UTC(), Entries: []Entry{}}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".webp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		e := Entry{
			Name:     strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			File:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		}
		e.Width, e.Height = dimensions(filepath.Join(dir, entry.Name()))
		idx.Entries = append(idx.Entries, e)
	}
	sort.Slice(idx.Entries, func(i, j int) bool {
		return idx.Entries[i].Name < idx.Entries[j].Name
	})
	return idx, nil
}

// dimensions reads only the WEBP header.
func dimensions(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, err := webp.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// Write builds the index for dir and atomically stores it at dir/fileName.
func Write(dir, fileName, runID string) (Index, error) {
	idx, err := Build(dir)
	if err != nil {
		return Index{}, err
	}
	idx.RunID = runID
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return Index{}, fmt.Errorf("marshal index: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, fileName), data, 0o644); err != nil {
		return Index{}, apperr.Wrap(apperr.ErrIO, "write derivative index", "", err)
	}
	return idx, nil
}

// Read loads a previously written index.
func Read(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Index{}, apperr.Wrap(apperr.ErrIO, "read derivative index", "", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, fmt.Errorf("decode index: %w", err)
	}
	return idx, nil
}
