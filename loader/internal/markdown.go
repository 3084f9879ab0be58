package internal

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MarkdownFile is a document candidate found under the docs directory.
// Name is the path relative to the docs root and doubles as the stored
// document name, so the same file is recognized across runs.
type MarkdownFile struct {
	Name string
	Path string
}

// FindMarkdownFiles walks dir recursively and returns every .md file, with
// names relative to baseDir.
func FindMarkdownFiles(dir, baseDir string) ([]MarkdownFile, error) {
	var files []MarkdownFile

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		files = append(files, MarkdownFile{Name: filepath.ToSlash(rel), Path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadMarkdown loads a single markdown file's content.
func ReadMarkdown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
