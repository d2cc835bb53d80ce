package validate

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/expensetrack/internal/domain"
)

func TestMonth(t *testing.T) {
	m, err := Month(" 2024-03 ")
	require.NoError(t, err)
	assert.Equal(t, domain.Month("2024-03"), m)

	for _, bad := range []string{"2024-3", "2024-13", "202403", "march"} {
		_, err := Month(bad)
		assert.Error(t, err, bad)
	}
}

func TestThreshold(t *testing.T) {
	for _, ok := range []int{75, 90, 100} {
		assert.NoError(t, Threshold(ok))
	}
	assert.Error(t, Threshold(50))
}

func TestDirection(t *testing.T) {
	d, err := Direction("Debit")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionDebit, d)

	_, err = Direction("transfer")
	assert.Error(t, err)
}

func TestAmount(t *testing.T) {
	d, err := Amount("150.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("150.50")))

	for _, bad := range []string{"", "abc", "0", "-5"} {
		_, err := Amount(bad)
		assert.Error(t, err, bad)
	}
}

func TestName(t *testing.T) {
	assert.NoError(t, Name("tag name", "Food"))
	assert.Error(t, Name("tag name", "  "))
	assert.Error(t, Name("tag name", strings.Repeat("x", 121)))
}

func TestPagination(t *testing.T) {
	limit, offset, err := Pagination("", "")
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	limit, offset, err = Pagination("25", "100")
	require.NoError(t, err)
	assert.Equal(t, 25, limit)
	assert.Equal(t, 100, offset)

	for _, bad := range [][2]string{{"0", ""}, {"201", ""}, {"abc", ""}, {"", "-1"}} {
		_, _, err := Pagination(bad[0], bad[1])
		assert.Error(t, err, "%v", bad)
	}
}

func TestPatch(t *testing.T) {
	desc := "coffee"
	amount := decimal.NewFromInt(10)
	direction := domain.DirectionDebit
	assert.NoError(t, Patch(&domain.TransactionPatch{
		Description: &desc,
		Amount:      &amount,
		Direction:   &direction,
	}))

	empty := ""
	assert.Error(t, Patch(&domain.TransactionPatch{Description: &empty}))

	negative := decimal.NewFromInt(-1)
	assert.Error(t, Patch(&domain.TransactionPatch{Amount: &negative}))

	bad := domain.Direction("sideways")
	assert.Error(t, Patch(&domain.TransactionPatch{Direction: &bad}))

	assert.Error(t, Patch(nil))
}
