package core

import (
	"time"
)

// StoredPrecision is the finest resolution run timestamps survive a database
// round trip with.
const StoredPrecision = time.Microsecond

// Now returns the current UTC time at StoredPrecision.
func Now() time.Time {
	return Stamp(time.Now())
}

// Stamp normalises t to UTC at StoredPrecision, so a timestamp read back from
// storage equals the one that was written.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(StoredPrecision)
}
