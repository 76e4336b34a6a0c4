package crawler

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"codegraph/internal/extractor"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExclude skips directories that never hold first-party sources.
var DefaultExclude = []string{"**/.git/**", "**/vendor/**", "**/node_modules/**", "**/testdata/**"}

// Crawler scans a directory for source files.
type Crawler struct {
	extractor *extractor.Extractor
	exclude   []string
	logger    *slog.Logger
}

// NewCrawler creates a crawler. exclude holds doublestar patterns matched
// against slash paths relative to the scanned root; nil selects DefaultExclude.
func NewCrawler(ext *extractor.Extractor, exclude []string, logger *slog.Logger) *Crawler {
	if exclude == nil {
		exclude = DefaultExclude
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{extractor: ext, exclude: exclude, logger: logger}
}

func (c *Crawler) excluded(rel string, isDir bool) bool {
	for _, pattern := range c.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// A directory pattern "x/**" also matches the directory itself.
		if isDir {
			if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
				return true
			}
		}
	}
	return false
}

// ScanProject walks root and streams the facts of every non-test Go file to
// onFile. Files that fail to parse are logged and skipped.
func (c *Crawler) ScanProject(root string, onFile func(*extractor.FileFacts) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if c.excluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".go") || strings.HasSuffix(d.Name(), "_test.go") || c.excluded(rel, false) {
			return nil
		}

		facts, err := c.extractor.ExtractFromFile(path, rel)
		if err != nil {
			c.logger.Warn("skipping unparsable file", "path", rel, "error", err)
			return nil
		}
		return onFile(facts)
	})
}
