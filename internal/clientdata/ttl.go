package clientdata

import "time"

// TTL constants for the in-process caches and the persisted client data.
const (
	// Resolved prices for one session. Historical closes do not change, the TTL
	// only bounds how long a stale forward-filled value survives a store refresh.
	TTLPriceCache = 30 * time.Minute
	// Completed valuation series keyed by ledger version and range
	TTLSeriesCache = 10 * time.Minute

	// A failed discovery is not retried for a day
	TTLDiscoveryFailure = 24 * time.Hour
	// A successful discovery is remembered for a week; the refresh job keeps bars current
	TTLDiscoverySuccess = 7 * 24 * time.Hour
)
