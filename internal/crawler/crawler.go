package crawler

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"aliasdoc/internal/source"
)

// Crawler resolves path arguments into source files.
type Crawler struct {
	fs      afero.Fs
	ignored []string
}

// NewCrawler creates a crawler over fs. A nil fs means the OS filesystem.
func NewCrawler(fsys afero.Fs) *Crawler {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Crawler{
		fs:      fsys,
		ignored: []string{".git", "target", "vendor", "node_modules"},
	}
}

// Fs returns the filesystem the crawler reads from.
func (c *Crawler) Fs() afero.Fs {
	return c.fs
}

// Collect expands patterns into a sorted, duplicate-free list of files.
// A pattern may name a file (taken as is), a directory (walked recursively
// for files with one of exts) or a glob. A "**" segment matches any number
// of directories, e.g. "src/**/*.rs".
func (c *Crawler) Collect(patterns []string, exts []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		if strings.Contains(pattern, "**") {
			matched, err := c.walkRecursiveGlob(pattern)
			if err != nil {
				return nil, err
			}
			if len(matched) == 0 {
				return nil, fmt.Errorf("no files match %q", pattern)
			}
			for _, m := range matched {
				add(m)
			}
			continue
		}

		matches, err := afero.Glob(c.fs, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			isDir, err := afero.IsDir(c.fs, m)
			if err != nil {
				return nil, err
			}
			if !isDir {
				add(m)
				continue
			}
			found, err := c.walk(m, func(name string) bool { return hasExt(name, exts) })
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func (c *Crawler) walkRecursiveGlob(pattern string) ([]string, error) {
	i := strings.Index(pattern, "**")
	root := strings.TrimRight(pattern[:i], `/\`)
	if root == "" {
		root = "."
	}
	rest := strings.TrimLeft(pattern[i+2:], `/\`)
	if rest == "" {
		rest = "*"
	}
	if _, err := filepath.Match(rest, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	return c.walk(root, func(name string) bool {
		ok, _ := filepath.Match(rest, name)
		return ok
	})
}

func (c *Crawler) walk(root string, keep func(name string) bool) ([]string, error) {
	var files []string
	err := afero.Walk(c.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && c.isIgnored(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if keep(info.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func (c *Crawler) isIgnored(name string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Load reads paths. Unreadable files are returned as errors and left out of
// the result; the remaining files are still loaded.
func (c *Crawler) Load(paths []string) ([]source.File, []error) {
	files := make([]source.File, 0, len(paths))
	var errs []error
	for _, p := range paths {
		data, err := afero.ReadFile(c.fs, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", p, err))
			continue
		}
		files = append(files, source.File{ID: p, Text: string(data)})
	}
	return files, errs
}
