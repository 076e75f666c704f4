package einvoice

// SubmissionStatus is the local lifecycle of a filed document.
//
// Lifecycle: Pending → Processing → Submitted → {Valid|Invalid|PartiallyValid}
// → Completed, with Cancelled/Rejected/Failed reachable from most states.
// Valid records are promoted to Completed by a scheduled job once the
// authority has taken no further action for 72 hours.
type SubmissionStatus string

const (
	StatusPending        SubmissionStatus = "Pending"
	StatusProcessing     SubmissionStatus = "Processing"
	StatusSubmitted      SubmissionStatus = "Submitted"
	StatusValid          SubmissionStatus = "Valid"
	StatusInvalid        SubmissionStatus = "Invalid"
	StatusPartiallyValid SubmissionStatus = "PartiallyValid"
	StatusCancelled      SubmissionStatus = "Cancelled"
	StatusRejected       SubmissionStatus = "Rejected"
	StatusFailed         SubmissionStatus = "Failed"
	StatusCompleted      SubmissionStatus = "Completed"
)

// IsTerminal reports whether the poller must stop re-querying this status.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case StatusValid, StatusInvalid, StatusPartiallyValid, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// NormalizeRemoteStatus maps the authority's free-text status wording onto
// the local enum. Unknown wording keeps the record in Submitted so the
// poller re-queries later.
func NormalizeRemoteStatus(remote string) SubmissionStatus {
	switch normalizeToken(remote) {
	case "valid", "completed", "success":
		return StatusValid
	case "invalid", "failed":
		return StatusInvalid
	case "partiallyvalid", "partialvalid", "partial":
		return StatusPartiallyValid
	case "cancelled", "canceled":
		return StatusCancelled
	case "rejected":
		return StatusRejected
	case "inprogress", "pending", "submitted":
		return StatusSubmitted
	}
	return StatusSubmitted
}

func normalizeToken(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z':
			out = append(out, r)
		}
	}
	return string(out)
}
