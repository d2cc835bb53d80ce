// Package scanner walks a statement directory tree for the CLI import
// mode, routing each file through the parser registry.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rumor-ml/expensetrack/internal/registry"
)

// Scanner walks a directory tree and finds importable statement files.
type Scanner struct {
	rootDir  string
	registry *registry.Registry
}

// New creates a scanner rooted at rootDir, matching files against reg.
func New(rootDir string, reg *registry.Registry) *Scanner {
	return &Scanner{rootDir: rootDir, registry: reg}
}

// ScanResult is one importable file and the parser that claims it.
type ScanResult struct {
	Path   string
	Parser string
}

// Scan walks the tree and returns every file a registered parser can
// handle. Unrecognized files are skipped silently; the import command
// reports them from the count difference.
func (s *Scanner) Scan() ([]ScanResult, error) {
	var results []ScanResult

	rootDir := s.expandHome(s.rootDir)
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		parser, err := s.registry.FindParser(filepath.Base(path))
		if err != nil {
			if errors.Is(err, registry.ErrUnknownFileType) {
				return nil
			}
			return err
		}

		results = append(results, ScanResult{
			Path:   path,
			Parser: parser.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return results, nil
}

// expandHome expands ~ to home directory
func (s *Scanner) expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
