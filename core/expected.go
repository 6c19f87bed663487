package core

import "fmt"

// Expected is the version guard passed to Append. The zero value is not
// valid; use Exact or Any. Any skips the version comparison entirely,
// which is a legitimate but dangerous mode: an unchecked append can
// never conflict, so stale writers win silently.
type Expected struct {
	version Version
	any     bool
}

// Exact returns a guard that requires the stream to be at exactly
// version v before the append. Exact(0) requires an empty stream.
func Exact(v Version) Expected {
	return Expected{version: v}
}

// Any returns a guard that skips the version check.
func Any() Expected {
	return Expected{any: true}
}

// IsAny reports whether the version check is skipped.
func (e Expected) IsAny() bool {
	return e.any
}

// Version returns the exact version the guard requires. Only meaningful
// when IsAny is false.
func (e Expected) Version() Version {
	return e.version
}

func (e Expected) String() string {
	if e.any {
		return "any"
	}
	return fmt.Sprintf("exact(%d)", e.version)
}
