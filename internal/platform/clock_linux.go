//go:build linux

package platform

import "github.com/tklauser/go-sysconf"

// ClockTicks returns sysconf(_SC_CLK_TCK), or 100 if it cannot be queried.
func ClockTicks() uint64 {
	clk, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || clk <= 0 {
		return defaultClockTicks
	}
	return uint64(clk)
}
