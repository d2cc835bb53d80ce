// Package registry routes uploaded statement files to the parser that
// recognizes them.
package registry

import (
	"errors"
	"fmt"

	"github.com/rumor-ml/expensetrack/internal/statement"
	"github.com/rumor-ml/expensetrack/internal/statement/csvbank"
	"github.com/rumor-ml/expensetrack/internal/statement/ofx"
	"github.com/rumor-ml/expensetrack/internal/statement/wallet"
)

// ErrUnknownFileType is returned when no registered parser recognizes
// the uploaded file name.
var ErrUnknownFileType = errors.New("unrecognized statement file type")

// Registry holds all registered parsers
type Registry struct {
	parsers []statement.Parser
}

// New creates a registry with all built-in parsers.
func New() *Registry {
	return &Registry{
		parsers: []statement.Parser{
			csvbank.NewHDFC(),
			csvbank.NewICICI(),
			wallet.New(),
			ofx.NewParser(),
		},
	}
}

// Register adds a custom parser (for extensibility)
func (r *Registry) Register(p statement.Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser returns the first parser whose CanParse accepts the file
// name. Parsers are tried in registration order, so more specific
// shapes must be registered before generic ones.
func (r *Registry) FindParser(filename string) (statement.Parser, error) {
	for _, p := range r.parsers {
		if p.CanParse(filename) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", filename, ErrUnknownFileType)
}

// ListParsers returns all registered parser names
func (r *Registry) ListParsers() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}
