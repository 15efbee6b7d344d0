package domain

// Verdict is the terminal outcome of one frame event.
type Verdict uint8

const (
	VerdictForwarded Verdict = iota
	VerdictMalformed
	VerdictRateBlocked
	VerdictSpoofBlocked
	VerdictReplayDropped
	VerdictContractDropped
	VerdictAuditFailed
)

func (v Verdict) String() string {
	switch v {
	case VerdictForwarded:
		return "forwarded"
	case VerdictMalformed:
		return "malformed"
	case VerdictRateBlocked:
		return "rate_blocked"
	case VerdictSpoofBlocked:
		return "spoof_blocked"
	case VerdictReplayDropped:
		return "replay_dropped"
	case VerdictContractDropped:
		return "contract_dropped"
	case VerdictAuditFailed:
		return "audit_failed"
	default:
		return "unknown"
	}
}

// Verdicts lists every verdict, used to pre-register metric label values.
var Verdicts = []Verdict{
	VerdictForwarded,
	VerdictMalformed,
	VerdictRateBlocked,
	VerdictSpoofBlocked,
	VerdictReplayDropped,
	VerdictContractDropped,
	VerdictAuditFailed,
}
