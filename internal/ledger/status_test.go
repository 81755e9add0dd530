package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name  string
		total float64
		paid  float64
		want  Status
	}{
		{"nothing paid", 100, 0, StatusPending},
		{"partially paid", 100, 40, StatusPartial},
		{"exactly paid", 100, 100, StatusPaid},
		{"overpaid clamps to paid", 100, 120, StatusPaid},
		{"zero total never paid", 0, 0, StatusPending},
		{"zero total with amount", 0, 10, StatusPending},
		{"cent remainder is partial", 100, 99.99, StatusPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveStatus(tc.total, tc.paid))
		})
	}
}

func TestRemaining(t *testing.T) {
	require.InDelta(t, 50.0, Remaining(100, 50), 0.0001)
	require.InDelta(t, 0.0, Remaining(100, 100), 0.0001)
	require.InDelta(t, 0.0, Remaining(100, 150), 0.0001)
	require.InDelta(t, 33.33, Remaining(100, 66.67), 0.0001)
}

func TestEffectiveStatus(t *testing.T) {
	// Explicit approval wins only while nothing is paid.
	require.Equal(t, StatusApproved, EffectiveStatus(100, 0, StatusApproved))
	require.Equal(t, StatusRejected, EffectiveStatus(100, 0, StatusRejected))
	require.Equal(t, StatusPartial, EffectiveStatus(100, 10, StatusApproved))
	require.Equal(t, StatusPaid, EffectiveStatus(100, 100, StatusRejected))
	require.Equal(t, StatusPending, EffectiveStatus(100, 0, ""))
}

func TestNormalizeStatus(t *testing.T) {
	require.Equal(t, StatusPaid, NormalizeStatus("PAID"))
	require.Equal(t, StatusPending, NormalizeStatus(""))
	require.Equal(t, StatusPending, NormalizeStatus("garbage"))
}
