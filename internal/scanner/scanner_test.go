package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/expensetrack/internal/registry"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
	return path
}

func TestScanner_Scan(t *testing.T) {
	tmpDir := t.TempDir()

	// Nested statement files of every recognized shape.
	hdfc := writeFile(t, filepath.Join(tmpDir, "hdfc", "2024-03"), "hdfc_statement.csv")
	paytm := writeFile(t, filepath.Join(tmpDir, "wallets"), "paytm_upi_statement.csv")
	ofx := writeFile(t, tmpDir, "chase.ofx")

	// Files no parser claims.
	writeFile(t, filepath.Join(tmpDir, "misc"), "notes.txt")
	writeFile(t, filepath.Join(tmpDir, "misc"), "scan.pdf")
	// CSV without a provider hint in the name.
	writeFile(t, filepath.Join(tmpDir, "misc"), "random.csv")

	s := New(tmpDir, registry.New())
	results, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, results, 3)

	parsers := make(map[string]string)
	for _, r := range results {
		parsers[r.Path] = r.Parser
	}
	assert.Equal(t, "csv-hdfc", parsers[hdfc])
	assert.Equal(t, "wallet-paytm", parsers[paytm])
	assert.Equal(t, "ofx", parsers[ofx])
}

func TestScanner_EmptyTree(t *testing.T) {
	s := New(t.TempDir(), registry.New())
	results, err := s.Scan()
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScanner_MissingRoot(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope"), registry.New())
	_, err := s.Scan()
	assert.Error(t, err)
}
