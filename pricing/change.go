// Package pricing holds the pure price math: change computation, trend
// classification and the bounded history ledger. Nothing here touches
// the database, so the same logic runs identically against any backend.
package pricing

// Change quantifies one price movement. Sign convention throughout the
// codebase: positive means drop, negative means increase.
type Change struct {
	AbsoluteRON float64
	AbsoluteEUR *float64
	// Percentage is (old-new)/old*100. Nil when the old price is zero,
	// where the percentage is undefined.
	Percentage *float64
}

// Compute returns the movement from oldRON to newRON, with the EUR delta
// when both EUR prices are known. A zero old price yields a nil
// percentage; the absolute change is still recorded.
func Compute(oldRON, newRON float64, oldEUR, newEUR *float64) Change {
	c := Change{AbsoluteRON: oldRON - newRON}
	if oldEUR != nil && newEUR != nil {
		d := *oldEUR - *newEUR
		c.AbsoluteEUR = &d
	}
	if oldRON != 0 {
		pct := (oldRON - newRON) / oldRON * 100
		c.Percentage = &pct
	}
	return c
}

// Equal reports whether two prices match within epsilon. The default
// epsilon is zero, i.e. exact equality.
func Equal(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= epsilon
}
