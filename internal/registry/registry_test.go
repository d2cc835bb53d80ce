package registry

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/statement"
)

type mockParser struct {
	name string
	hint string
}

func (m *mockParser) Name() string { return m.name }

func (m *mockParser) CanParse(filename string) bool {
	return strings.Contains(strings.ToLower(filename), m.hint)
}

func (m *mockParser) Parse(ctx context.Context, r io.Reader, accounts statement.AccountMap) ([]domain.DraftTransaction, error) {
	return nil, nil
}

func TestNew_BuiltinParsers(t *testing.T) {
	reg := New()
	names := reg.ListParsers()
	want := []string{"csv-hdfc", "csv-icici", "wallet-paytm", "ofx"}
	if len(names) != len(want) {
		t.Fatalf("ListParsers() = %v, want %v", names, want)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("ListParsers()[%d] = %q, want %q", i, names[i], n)
		}
	}
}

func TestFindParser(t *testing.T) {
	reg := New()

	tests := []struct {
		filename string
		parser   string
	}{
		{"hdfc_statement_march.csv", "csv-hdfc"},
		{"icici-2024-03.csv", "csv-icici"},
		{"Paytm_UPI_Statement.csv", "wallet-paytm"},
		{"download.qfx", "ofx"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			p, err := reg.FindParser(tt.filename)
			if err != nil {
				t.Fatalf("FindParser(%q) error = %v", tt.filename, err)
			}
			if p.Name() != tt.parser {
				t.Errorf("FindParser(%q) = %s, want %s", tt.filename, p.Name(), tt.parser)
			}
		})
	}
}

func TestFindParser_Unknown(t *testing.T) {
	reg := New()
	_, err := reg.FindParser("statement.xlsx")
	if !errors.Is(err, ErrUnknownFileType) {
		t.Fatalf("FindParser() error = %v, want ErrUnknownFileType", err)
	}
}

func TestRegister(t *testing.T) {
	reg := New()
	reg.Register(&mockParser{name: "custom", hint: "mybank"})

	p, err := reg.FindParser("mybank_export.csv")
	if err != nil {
		t.Fatalf("FindParser() error = %v", err)
	}
	if p.Name() != "custom" {
		t.Errorf("FindParser() = %s, want custom", p.Name())
	}
}

func TestFindParser_RegistrationOrder(t *testing.T) {
	// A file matching two parsers resolves to the first registered one.
	reg := New()
	reg.Register(&mockParser{name: "custom-hdfc", hint: "hdfc"})

	p, err := reg.FindParser("hdfc.csv")
	if err != nil {
		t.Fatalf("FindParser() error = %v", err)
	}
	if p.Name() != "csv-hdfc" {
		t.Errorf("FindParser() = %s, want built-in csv-hdfc first", p.Name())
	}
}
