package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"codegraph/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCrawler_ScanProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "pkg/util/util.go", "package util\n\nfunc Format() string { return \"\" }\n")
	writeFile(t, root, "pkg/util/util_test.go", "package util\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")
	writeFile(t, root, "gen/api.pb.go", "package gen\n")
	writeFile(t, root, "README.md", "# readme\n")

	ext, err := extractor.NewExtractor("go")
	require.NoError(t, err)

	c := NewCrawler(ext, append([]string{"**/*.pb.go"}, DefaultExclude...), nil)

	var paths []string
	err = c.ScanProject(root, func(f *extractor.FileFacts) error {
		paths = append(paths, f.Path)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go", "pkg/util/util.go"}, paths)
}

func TestCrawler_ScanSelf(t *testing.T) {
	ext, err := extractor.NewExtractor("go")
	require.NoError(t, err)

	root, err := filepath.Abs("../../")
	require.NoError(t, err)

	c := NewCrawler(ext, append([]string{"_examples/**"}, DefaultExclude...), nil)

	var crawlerFile *extractor.FileFacts
	files := 0
	err = c.ScanProject(root, func(f *extractor.FileFacts) error {
		files++
		if f.Path == "internal/crawler/crawler.go" {
			crawlerFile = f
		}
		return nil
	})
	require.NoError(t, err)

	assert.Greater(t, files, 10)
	require.NotNil(t, crawlerFile)
	assert.Equal(t, "crawler", crawlerFile.PackageName)

	var names []string
	for _, u := range crawlerFile.Units {
		names = append(names, u.Name)
	}
	assert.Contains(t, names, "Crawler")
	assert.Contains(t, names, "ScanProject")
}
