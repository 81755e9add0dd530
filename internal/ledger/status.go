package ledger

// Status enumerates ledger parent states. Pending, Partial and Paid are pure
// functions of (total, paid); Approved and Rejected come from an explicit
// approval action.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusPartial  Status = "PARTIAL"
	StatusPaid     Status = "PAID"
)

// DeriveStatus maps payment progress to a status.
func DeriveStatus(total, paid float64) Status {
	switch {
	case total > 0 && paid >= total:
		return StatusPaid
	case paid > 0 && paid < total:
		return StatusPartial
	default:
		return StatusPending
	}
}

// Remaining returns max(0, total-paid) rounded to 2 decimals.
func Remaining(total, paid float64) float64 {
	rem := total - paid
	if rem < 0 {
		rem = 0
	}
	return Round2(rem)
}

// EffectiveStatus resolves the stored-versus-derived ambiguity: an explicit
// approve/reject overrides only while no money has moved. Once paid > 0 the
// amounts are authoritative.
func EffectiveStatus(total, paid float64, override Status) Status {
	derived := DeriveStatus(total, paid)
	if derived == StatusPending && (override == StatusApproved || override == StatusRejected) {
		return override
	}
	return derived
}

// NormalizeStatus coerces a raw stored value to a known status, defaulting
// unknown or empty input to Pending.
func NormalizeStatus(raw string) Status {
	switch Status(raw) {
	case StatusApproved, StatusRejected, StatusPartial, StatusPaid:
		return Status(raw)
	default:
		return StatusPending
	}
}
