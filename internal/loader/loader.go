// Package loader walks a source directory of Markdown entities, parses
// YAML front-matter plus body, and emits entity.Entity records.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kevinmichaelchen/ixchel/internal/entity"
	"github.com/kevinmichaelchen/ixchel/internal/gitignore"
	"github.com/kevinmichaelchen/ixchel/internal/hash"
)

// gitignoreCacheSize bounds the number of parsed .gitignore matchers kept
// per Loader, mirroring the scan-cache sizing used elsewhere in the stack.
const gitignoreCacheSize = 256

// loadParallelism bounds concurrent per-file parses so a directory with
// thousands of entities doesn't open that many files at once.
const loadParallelism = 8

// Options configures a Load call.
type Options struct {
	// Recursive walks nested kind directories (decisions/, issues/, ...)
	// consulting .gitignore and .ixchelignore files along the way. The
	// default (false) only globs *.md directly in the source directory,
	// matching the external non-recursive default.
	Recursive bool
}

// Warning records a per-file recovery event: the file was skipped, the walk
// continued. A missing or unreadable root directory is not a Warning — it
// aborts Load. In recursive mode a subdirectory that cannot be read is
// skipped without a Warning.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Loader discovers and parses entity files under a source directory.
type Loader struct {
	hasher         hash.Hasher
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
}

// New constructs a Loader using the default SHA-256 hasher.
func New() (*Loader, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Loader{hasher: hash.SHA256{}, gitignoreCache: cache}, nil
}

// frontMatter is the union of recognized YAML front-matter fields across
// entity kinds; fields not meaningful for a given kind are left zero.
type frontMatter struct {
	ID           string   `yaml:"id"`
	Kind         string   `yaml:"kind"`
	Title        string   `yaml:"title"`
	Status       string   `yaml:"status"`
	Date         string   `yaml:"date"`
	Deciders     []string `yaml:"deciders"`
	Tags         []string `yaml:"tags"`
	Supersedes   string   `yaml:"supersedes"`
	SupersededBy string   `yaml:"superseded_by"`
}

// Load walks dir (per opts) and returns every successfully parsed entity
// plus any per-file warnings. A missing root directory is a fatal error; a
// malformed individual file is recovered as a Warning and excluded from the
// returned entities.
func Load(dir string, opts Options) ([]entity.Entity, []Warning, error) {
	l, err := New()
	if err != nil {
		return nil, nil, err
	}
	return l.Load(dir, opts)
}

// Load is the method form of the package-level Load, reusing the Loader's
// gitignore cache across repeated calls.
func (l *Loader) Load(dir string, opts Options) ([]entity.Entity, []Warning, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("source directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("source path %s is not a directory", dir)
	}

	var paths []string
	if opts.Recursive {
		paths, err = l.walkRecursive(dir)
	} else {
		paths, err = l.globFlat(dir)
	}
	if err != nil {
		return nil, nil, err
	}

	type result struct {
		entity entity.Entity
		warn   *Warning
	}
	results := make([]result, len(paths))

	g, _ := errgroup.WithContext(context.Background())
	sem := make(chan struct{}, loadParallelism)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			e, err := l.loadFile(dir, path)
			if err != nil {
				results[i] = result{warn: &Warning{Path: path, Err: err}}
				return nil
			}
			results[i] = result{entity: e}
			return nil
		})
	}
	// loadFile never returns a non-nil error from g.Go itself (parse
	// failures are captured as warnings), so this can only fail if a
	// future goroutine body starts propagating fatal errors.
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var entities []entity.Entity
	var warnings []Warning
	for _, r := range results {
		if r.warn != nil {
			warnings = append(warnings, *r.warn)
			continue
		}
		entities = append(entities, r.entity)
	}

	return entities, warnings, nil
}

// globFlat returns every *.md file directly inside dir, non-recursively.
func (l *Loader) globFlat(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// walkRecursive walks dir, honoring nested .gitignore files and a
// tool-level .ixchelignore, collecting every *.md file along the way.
func (l *Loader) walkRecursive(dir string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == ".ixchel" {
				return filepath.SkipDir
			}
			if l.isIgnored(dir, relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		if l.isIgnored(dir, relPath, false) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// isIgnored consults the .gitignore and .ixchelignore matchers of relPath's
// own directory and of the root, and reports true as soon as any of them
// matches. Ignore files in intermediate directories are not read, and a
// negation in one file does not undo a match from another.
func (l *Loader) isIgnored(root, relPath string, isDir bool) bool {
	dirParts := strings.Split(filepath.Dir(relPath), string(filepath.Separator))
	currentDir := root
	currentBase := ""

	for _, part := range dirParts {
		if part == "." || part == "" {
			continue
		}
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = filepath.Join(currentBase, part)
		}
	}

	for _, name := range []string{".gitignore", ".ixchelignore"} {
		matcher := l.matcherFor(filepath.Join(root, filepath.Dir(relPath)), name)
		if matcher != nil && matcher.Match(relPath, isDir) {
			return true
		}
		matcher = l.matcherFor(root, name)
		if matcher != nil && matcher.Match(relPath, isDir) {
			return true
		}
	}
	return false
}

func (l *Loader) matcherFor(dir, filename string) *gitignore.Matcher {
	cacheKey := filepath.Join(dir, filename)
	if cached, ok := l.gitignoreCache.Get(cacheKey); ok {
		return cached
	}

	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	matcher := gitignore.New()
	if err := matcher.AddFromFile(path, ""); err != nil {
		return nil
	}
	l.gitignoreCache.Add(cacheKey, matcher)
	return matcher
}

// loadFile reads, hashes, and parses a single entity file.
func (l *Loader) loadFile(root, path string) (entity.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Entity{}, fmt.Errorf("read: %w", err)
	}

	fmData, body, err := splitFrontMatter(data)
	if err != nil {
		return entity.Entity{}, err
	}

	var fm frontMatter
	if err := yaml.Unmarshal(fmData, &fm); err != nil {
		return entity.Entity{}, fmt.Errorf("parse front matter: %w", err)
	}
	if fm.ID == "" {
		return entity.Entity{}, fmt.Errorf("missing required field: id")
	}

	declaredKind, kindErr := entity.ParseKind(fm.Kind)
	impliedKind, impliedOK := entity.KindFromID(fm.ID)

	var kind entity.Kind
	switch {
	case kindErr == nil && impliedOK && declaredKind != impliedKind:
		return entity.Entity{}, fmt.Errorf("declared kind %q disagrees with id-implied kind %q", declaredKind, impliedKind)
	case kindErr == nil:
		kind = declaredKind
	case impliedOK:
		kind = impliedKind
	default:
		return entity.Entity{}, fmt.Errorf("cannot determine entity kind for id %q: %w", fm.ID, kindErr)
	}

	if err := entity.ValidateStatus(kind, fm.Status); err != nil {
		return entity.Entity{}, err
	}

	var date time.Time
	if fm.Date != "" {
		date, err = time.Parse("2006-01-02", fm.Date)
		if err != nil {
			return entity.Entity{}, fmt.Errorf("invalid date %q: %w", fm.Date, err)
		}
	}

	absPath := path
	if !filepath.IsAbs(absPath) {
		if abs, err := filepath.Abs(path); err == nil {
			absPath = abs
		}
	}

	return entity.Entity{
		ID:           fm.ID,
		Kind:         kind,
		Title:        fm.Title,
		Status:       fm.Status,
		Date:         date,
		Tags:         fm.Tags,
		Deciders:     fm.Deciders,
		Supersedes:   fm.Supersedes,
		SupersededBy: fm.SupersededBy,
		Body:         strings.TrimSpace(body),
		Path:         absPath,
		ContentHash:  l.hasher.Hash(data),
	}, nil
}

// splitFrontMatter splits a "---\n...\n---\nbody" document into its YAML
// front-matter bytes and Markdown body.
func splitFrontMatter(data []byte) (fm []byte, body string, err error) {
	const delim = "---"
	text := string(data)
	text = strings.TrimPrefix(text, "﻿") // BOM

	if !strings.HasPrefix(strings.TrimLeft(text, "\r\n"), delim) {
		return nil, "", fmt.Errorf("missing YAML front matter")
	}

	text = strings.TrimLeft(text, "\r\n")
	rest := strings.TrimPrefix(text, delim)
	rest = strings.TrimPrefix(rest, "\n")

	idx := strings.Index(rest, "\n"+delim)
	if idx == -1 {
		return nil, "", fmt.Errorf("unterminated YAML front matter")
	}

	fmText := rest[:idx]
	after := rest[idx+len("\n"+delim):]
	after = strings.TrimPrefix(after, "\r\n")
	after = strings.TrimPrefix(after, "\n")

	return []byte(fmText), after, nil
}
