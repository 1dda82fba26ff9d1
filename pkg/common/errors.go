package common

import "errors"

var (
	// ErrInvalidReading marks a reading that was dropped without touching any state.
	ErrInvalidReading = errors.New("invalid reading")
	// ErrSensorStale marks a sensor that stayed silent past its staleness timeout.
	ErrSensorStale = errors.New("sensor stale")
	// ErrCoverageGap marks a light integration interval excluded from the DLI.
	ErrCoverageGap = errors.New("coverage gap")
	// ErrMisconfigured marks a zone whose actuation is suppressed.
	ErrMisconfigured = errors.New("zone misconfigured")
	// ErrLookupUnavailable marks a species profile that could not be fetched.
	ErrLookupUnavailable = errors.New("species lookup unavailable")
	// ErrCorruptConfig is returned to the configuration caller; the previous snapshot stays active.
	ErrCorruptConfig = errors.New("corrupt configuration snapshot")
	// ErrNotFound is returned by queries for unknown entities or zones.
	ErrNotFound = errors.New("not found")
)
