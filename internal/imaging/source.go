package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"commissions/internal/apperr"
	"commissions/internal/fileutil"
)

// Recognized source extensions, lower-cased.
const (
	ExtJPEG = ".jpg"
	ExtPNG  = ".png"
	ExtWebP = ".webp"
)

// Source is one candidate file in the source directory.
type Source struct {
	Dir      string
	FileName string // name as listed, original case
	Name     string // basename without extension
	Ext      string // lower-cased extension, ExtJPEG or ExtPNG

	// PendingPNG is set on a JPEG when the same listing also held a PNG with
	// the same basename.
	PendingPNG bool

	// MasterName is set on a PNG when the listing held a JPEG with the same
	// basename, in whatever case it was listed.
	MasterName string
}

// Path returns the absolute location of the source file.
func (s Source) Path() string {
	return filepath.Join(s.Dir, s.FileName)
}

// Sibling returns the path of the file sharing s's basename with extension
// ext, matched in lower or upper case, and whether it exists. A missing
// sibling resolves to the lower-case spelling.
func (s Source) Sibling(ext string) (string, bool) {
	candidates := []string{s.Name + ext, s.Name + strings.ToUpper(ext)}
	if ext == ExtJPEG && s.MasterName != "" {
		candidates = append([]string{s.MasterName}, candidates...)
	}
	for _, name := range candidates {
		path := filepath.Join(s.Dir, name)
		if fileutil.Exists(path) {
			return path, true
		}
	}
	return filepath.Join(s.Dir, s.Name+ext), false
}

// Scan lists dir and returns the .jpg and .png files it contains, sorted by
// file name. Extension matching is case-insensitive; subdirectories are
// ignored.
func Scan(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIO, "scan source directory", "", fmt.Errorf("read %s: %w", dir, err))
	}

	sources := make([]Source, 0, len(entries))
	pngNames := make(map[string]struct{})
	jpegNames := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ExtJPEG && ext != ExtPNG {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if base == "" {
			continue
		}
		if ext == ExtPNG {
			pngNames[base] = struct{}{}
		} else {
			jpegNames[base] = name
		}
		sources = append(sources, Source{Dir: dir, FileName: name, Name: base, Ext: ext})
	}

	for i := range sources {
		if sources[i].Ext == ExtPNG {
			sources[i].MasterName = jpegNames[sources[i].Name]
			continue
		}
		if _, ok := pngNames[sources[i].Name]; ok {
			sources[i].PendingPNG = true
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].FileName < sources[j].FileName
	})
	return sources, nil
}
