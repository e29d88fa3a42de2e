package harvest

import "errors"

var (
	// ErrCPUUsage indicates the aggregate CPU counters could not be read.
	// The tick is abandoned and no state is changed.
	ErrCPUUsage = errors.New("harvest: could not compute CPU usage")

	// ErrEnumerate indicates the process list itself could not be obtained.
	ErrEnumerate = errors.New("harvest: could not enumerate processes")
)
