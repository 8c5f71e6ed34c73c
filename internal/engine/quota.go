package engine

// DefaultMaxCues is the default cap on cues per timeline.
// It bounds the quadratic worst case of a single reorder.
const DefaultMaxCues = 10000

// QuotaEnforcer caps the number of cues a timeline may hold.
//
// It is checked before import and insert; move and remove never grow a
// timeline. A limit of 0 or less disables the check.
type QuotaEnforcer struct {
	maxCues int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxCues int) *QuotaEnforcer {
	return &QuotaEnforcer{maxCues: maxCues}
}

// Check returns a QUOTA_EXCEEDED RuntimeError if cues exceeds the limit.
func (q *QuotaEnforcer) Check(timelineID string, cues int) error {
	if q.maxCues > 0 && cues > q.maxCues {
		return NewQuotaError(timelineID, cues, q.maxCues)
	}
	return nil
}

// MaxCues returns the configured limit.
func (q *QuotaEnforcer) MaxCues() int {
	return q.maxCues
}
