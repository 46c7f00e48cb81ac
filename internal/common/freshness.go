// Package common provides shared utilities for Folio
package common

import "time"

// Freshness TTLs for data components
const (
	FreshnessObservedNAV = 7 * 24 * time.Hour  // PrivateVehicle NAV disclosures are periodic
	FreshnessFactsheet   = 30 * 24 * time.Hour // factsheets update monthly/quarterly
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
