package alerting

import (
	"github.com/shopspring/decimal"

	"stockwatch_backend/models"
)

// CycleStatus classifies how an evaluation cycle ended
type CycleStatus string

const (
	// CycleCompleted means the cycle ran to commit, possibly triggering nothing
	CycleCompleted CycleStatus = "completed"
	// CycleDegraded means required input data was unavailable and the cycle
	// ended as a no-op; the next scheduled run re-evaluates from scratch
	CycleDegraded CycleStatus = "degraded"
	// CycleAborted means the cycle hit an unrecoverable error and all of its
	// writes were rolled back
	CycleAborted CycleStatus = "aborted"
)

// CycleSummary counts the work performed by one evaluation cycle
type CycleSummary struct {
	AlertsChecked   int `json:"alerts_checked"`
	SymbolsResolved int `json:"symbols_resolved"`
	AlertsTriggered int `json:"alerts_triggered"`
}

// TriggeredAlert pairs a committed transition with the price that caused it
type TriggeredAlert struct {
	Alert models.Alert
	Price decimal.Decimal
}

// CycleOutcome is the result of one evaluation cycle. A clean empty cycle is
// Completed with a zero summary, distinguishable from Degraded and Aborted.
type CycleOutcome struct {
	Status    CycleStatus
	Summary   CycleSummary
	Reason    string // set when degraded
	Err       error  // set when aborted
	Triggered []TriggeredAlert
}

// Completed builds a successful outcome
func Completed(summary CycleSummary) CycleOutcome {
	return CycleOutcome{Status: CycleCompleted, Summary: summary}
}

// Degraded builds a no-op outcome caused by missing input data
func Degraded(reason string, summary CycleSummary) CycleOutcome {
	return CycleOutcome{Status: CycleDegraded, Summary: summary, Reason: reason}
}

// Aborted builds a failed outcome whose writes were rolled back
func Aborted(err error) CycleOutcome {
	return CycleOutcome{Status: CycleAborted, Err: err}
}
