package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ehr/edi/internal/hl7etl"
)

// Source is one input. Data is read from Path when nil. Kind and System
// may be left empty to be sniffed and inferred.
type Source struct {
	Name   string
	Path   string
	Data   []byte
	Kind   Kind
	System string
}

// name is the label used in diagnostics and records.
func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Path
}

func (s Source) read() ([]byte, error) {
	if s.Data != nil {
		return s.Data, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read %s: %w", s.Path, err)
	}
	return data, nil
}

// SystemForPath infers the HL7 source system from the directory a file
// sits in, e.g. input/system_b/adt.hl7. It returns "" when the parent is
// not a known system.
func SystemForPath(path string) string {
	parent := strings.ToLower(filepath.Base(filepath.Dir(path)))
	if _, ok := hl7etl.LookupDialect(parent); ok {
		return parent
	}
	return ""
}

// Discover lists the regular files under root in lexical order. Hidden
// files and directories are skipped.
func Discover(root string) ([]Source, error) {
	var out []Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		out = append(out, Source{Path: path, System: SystemForPath(path)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: discover %s: %w", root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Expand turns command-line paths into sources, walking directories.
func Expand(paths []string) ([]Source, error) {
	var out []Source
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		if !info.IsDir() {
			out = append(out, Source{Path: p, System: SystemForPath(p)})
			continue
		}
		found, err := Discover(p)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}
