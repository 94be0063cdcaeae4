package models

// ReconcileOutcome says what a single observation did to the store.
type ReconcileOutcome string

const (
	// OutcomeCreated: first observation of a fingerprint.
	OutcomeCreated ReconcileOutcome = "created"
	// OutcomeUnchanged: price identical within epsilon; only descriptive
	// fields and updated_at moved.
	OutcomeUnchanged ReconcileOutcome = "unchanged"
	// OutcomePriceChanged: a new price was recorded and the ledger grew.
	OutcomePriceChanged ReconcileOutcome = "price_changed"
	// OutcomePriceInitialized: the record existed without a price and now
	// has one. No percentage, no alert, no change-count increment.
	OutcomePriceInitialized ReconcileOutcome = "price_initialized"
)

// ReconcilePlan is the next persisted state computed for one
// observation. The storage layer applies it atomically: record upsert,
// history append and change log in one transaction.
type ReconcilePlan struct {
	Record       *PropertyRecord
	HistoryEntry *PriceHistoryEntry
	ChangeLog    *ChangeLogEntry
	Outcome      ReconcileOutcome
}

// PlanFunc computes the plan from the currently persisted record (nil
// when the fingerprint is unknown). It runs under the row lock, so it
// must stay pure and fast.
type PlanFunc func(existing *PropertyRecord) (*ReconcilePlan, error)
