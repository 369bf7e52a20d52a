// Package fileset manages the generated source files under validation: it
// loads (path, text, role) tuples from a project directory, serves
// consistent snapshots to the read-only stages, and serializes mutations
// with a per-file lock so concurrent fixes never lose updates.
package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/concordlabs/concord/internal/contract"
)

// File is one generated file plus its mutation lock. All text access goes
// through methods so the single-writer-per-file discipline holds.
type File struct {
	mu    sync.Mutex
	path  string
	role  contract.FileRole
	text  string
	dirty bool
}

// Path returns the file's project-relative path.
func (f *File) Path() string { return f.path }

// Role returns the file's contract role.
func (f *File) Role() contract.FileRole { return f.role }

// Text returns the current content.
func (f *File) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// Replace performs one read-modify-write pass replacing the first exact
// occurrence of search. It reports false, without writing, when search is
// absent: content has diverged since the caller last looked.
func (f *File) Replace(search, replace string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := strings.Index(f.text, search)
	if i == -1 {
		return false
	}
	f.text = f.text[:i] + replace + f.text[i+len(search):]
	f.dirty = true
	return true
}

// ReplaceAllBounded rewrites every word-boundary-safe occurrence of search
// and returns the count. Characters that can extend an identifier or
// endpoint literal (letters, digits, '_', '$', '-') on either side of a
// match disqualify it, so "save-note" never rewrites inside "save-notes".
func (f *File) ReplaceAllBounded(search, replace string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if search == "" || search == replace {
		return 0
	}
	var b strings.Builder
	n := 0
	rest := f.text
	abs := 0
	for {
		i := strings.Index(rest, search)
		if i == -1 {
			b.WriteString(rest)
			break
		}
		before := abs + i - 1
		after := abs + i + len(search)
		if (before >= 0 && isLiteralChar(f.text[before])) ||
			(after < len(f.text) && isLiteralChar(f.text[after])) {
			b.WriteString(rest[:i+len(search)])
		} else {
			b.WriteString(rest[:i])
			b.WriteString(replace)
			n++
		}
		rest = rest[i+len(search):]
		abs += i + len(search)
	}
	if n > 0 {
		f.text = b.String()
		f.dirty = true
	}
	return n
}

// Append adds text at the end of the file.
func (f *File) Append(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.HasSuffix(f.text, "\n") && f.text != "" {
		f.text += "\n"
	}
	f.text += text
	f.dirty = true
}

// Contains reports whether search occurs verbatim in the current content.
func (f *File) Contains(search string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Contains(f.text, search)
}

func isLiteralChar(c byte) bool {
	return c == '_' || c == '$' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Set is one session's file set. Sets are independent per run; no state is
// shared across sessions.
type Set struct {
	root  string
	files map[string]*File
	order []string
}

// FromFiles builds an in-memory set, used by tests and embedded callers.
func FromFiles(files ...contract.SourceFile) *Set {
	s := &Set{files: make(map[string]*File)}
	for _, f := range files {
		s.files[f.Path] = &File{path: f.Path, role: f.Role, text: f.Text}
		s.order = append(s.order, f.Path)
	}
	return s
}

// skipDir reports whether a directory is excluded from loading and
// watching: dependency trees and hidden directories.
func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}

// Load reads a project directory into a set. Roles come from the manifest
// when present, else filename heuristics. Unreadable files are skipped:
// extraction treats them as contributing no contracts.
func Load(root string) (*Set, error) {
	manifest, err := loadManifest(root)
	if err != nil {
		return nil, err
	}

	var files []contract.SourceFile
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		role, ok := roleFor(rel, manifest)
		if !ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		files = append(files, contract.SourceFile{Path: rel, Text: string(data), Role: role})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	s := FromFiles(files...)
	s.root = root
	return s, nil
}

// Get returns the file at path, or nil.
func (s *Set) Get(path string) *File {
	return s.files[path]
}

// ByRole returns the files with the given role, in load order.
func (s *Set) ByRole(role contract.FileRole) []*File {
	var out []*File
	for _, p := range s.order {
		if s.files[p].role == role {
			out = append(out, s.files[p])
		}
	}
	return out
}

// Paths returns every path in load order.
func (s *Set) Paths() []string {
	return append([]string(nil), s.order...)
}

// Snapshot returns an immutable copy of the current file contents. Each
// pipeline stage derives its view fresh from a snapshot; contract sets are
// never persisted as mutable state.
func (s *Set) Snapshot() []contract.SourceFile {
	out := make([]contract.SourceFile, 0, len(s.order))
	for _, p := range s.order {
		f := s.files[p]
		out = append(out, contract.SourceFile{Path: f.path, Text: f.Text(), Role: f.role})
	}
	return out
}

// Flush writes every mutated file back to disk. In-memory sets (no root)
// flush nowhere and return nil.
func (s *Set) Flush() error {
	if s.root == "" {
		return nil
	}
	for _, p := range s.order {
		f := s.files[p]
		f.mu.Lock()
		dirty, text := f.dirty, f.text
		f.dirty = false
		f.mu.Unlock()
		if !dirty {
			continue
		}
		if err := os.WriteFile(filepath.Join(s.root, p), []byte(text), 0644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
	}
	return nil
}
