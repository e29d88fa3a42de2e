//go:build linux

package platform

import (
	"fmt"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

// NewProvider returns the process provider selected by opts.Backend.
// BackendAuto uses procfs.
func NewProvider(opts Options) (harvest.Provider, error) {
	switch opts.Backend {
	case "", BackendAuto, BackendProcfs:
		return NewProcfs(opts), nil
	case BackendGopsutil:
		return NewGopsutil(opts), nil
	default:
		return nil, fmt.Errorf("unknown process backend %q", opts.Backend)
	}
}

// Name returns the platform identifier.
func Name() string { return "linux" }
