package scheduler

// Package scheduler provides scheduled job management for the StockWatch
// backend. It handles:
// - Periodic alert evaluation cycles during ASX trading hours
// - Daily price ingestion after market close
// - Daily indicator snapshot computation
// - Periodic data cleanup
//
// The jobs are implemented in jobs.go. The scheduler owns cadence, market
// hours and non-overlap; the alert engine itself is a plain synchronous call.
