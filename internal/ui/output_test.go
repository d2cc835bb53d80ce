package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenterPadsShortText(t *testing.T) {
	got := center("Hello", 15)
	assert.Equal(t, "     Hello", got)
	assert.True(t, strings.HasSuffix(got, "Hello"))
}

func TestCenterOddRemainderFloorsPadding(t *testing.T) {
	// width-len = 5, so padding is 2 (integer division).
	assert.Equal(t, "  abc", center("abc", 8))
}

func TestCenterLeavesWideTextAlone(t *testing.T) {
	long := strings.Repeat("x", headerWidth+5)
	assert.Equal(t, long, center(long, headerWidth))
	assert.Equal(t, "exact", center("exact", 5))
	assert.Equal(t, "", center("", 0))
}

func TestInlineColorsPreserveText(t *testing.T) {
	require.Contains(t, BlueText("import summary"), "import summary")
	require.Contains(t, YellowText("3 skipped"), "3 skipped")
}

func TestPrintersDoNotPanic(t *testing.T) {
	// Output goes to stdout; we only care that every printer handles
	// ordinary and empty input.
	for _, text := range []string{"Importing Statements", ""} {
		Header(text)
		Step(1, 2, text)
		Success(text)
		Info(text)
		Warning(text)
		Error(text)
	}
}
