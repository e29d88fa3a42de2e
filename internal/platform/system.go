package platform

import (
	"context"
	"os/user"
	"runtime"
	"strconv"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/tklauser/numcpus"
)

// System reports machine-wide scalars for the sampler.
type System struct{}

// NewSystem creates a System.
func NewSystem() *System {
	return &System{}
}

// ActiveCores returns the number of online CPUs, falling back to the number
// the Go runtime sees.
func (s *System) ActiveCores() int {
	if n, err := numcpus.GetOnline(); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// TotalMemoryBytes returns physical memory, or 0 when it cannot be read.
func (s *System) TotalMemoryBytes(ctx context.Context) uint64 {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0
	}
	return vm.Total
}

// LookupUser resolves a numeric user id through the system user database.
func LookupUser(uid uint32) (string, error) {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return "", err
	}
	return u.Username, nil
}
