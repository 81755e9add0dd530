package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextIdentifierIncrementsWithinYear(t *testing.T) {
	existing := []string{"EXP-2024-001", "EXP-2024-002"}
	require.Equal(t, "EXP-2024-003", NextIdentifier("EXP", 2024, existing))
}

func TestNextIdentifierStartsFreshYear(t *testing.T) {
	existing := []string{"EXP-2024-001", "EXP-2024-002"}
	require.Equal(t, "EXP-2025-001", NextIdentifier("EXP", 2025, existing))
}

func TestNextIdentifierIgnoresOtherPrefixes(t *testing.T) {
	existing := []string{"LV-2024-009", "EXP-2024-004", "not-a-code", ""}
	require.Equal(t, "EXP-2024-005", NextIdentifier("EXP", 2024, existing))
	require.Equal(t, "LV-2024-010", NextIdentifier("LV", 2024, existing))
}

func TestNextIdentifierSurvivesGaps(t *testing.T) {
	// Deleting the highest record must not cause reuse of lower numbers.
	existing := []string{"REQ-2024-001", "REQ-2024-007"}
	require.Equal(t, "REQ-2024-008", NextIdentifier("REQ", 2024, existing))
}

func TestNextIdentifierPadsBeyondThreeDigits(t *testing.T) {
	existing := []string{"INV-2024-999"}
	require.Equal(t, "INV-2024-1000", NextIdentifier("INV", 2024, existing))
}

func TestParseIdentifier(t *testing.T) {
	prefix, year, n, ok := ParseIdentifier("EXP-2024-042")
	require.True(t, ok)
	require.Equal(t, "EXP", prefix)
	require.Equal(t, 2024, year)
	require.Equal(t, 42, n)

	_, _, _, ok = ParseIdentifier("2024-EXP-042")
	require.False(t, ok)
}
