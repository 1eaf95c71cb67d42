// Package common provides shared utilities across the application.
package common

import (
	"time"
)

// StaleCutoff returns the LastFetchedAt cutoff for a sweep at the given
// time: entities fetched before it (or never) are due for refresh.
func StaleCutoff(now time.Time, threshold time.Duration) time.Time {
	return now.Add(-threshold)
}
