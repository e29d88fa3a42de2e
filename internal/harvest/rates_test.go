package harvest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaturatingSub(t *testing.T) {
	tests := []struct {
		name      string
		cur, prev uint64
		want      uint64
	}{
		{"increase", 110, 100, 10},
		{"no_change", 100, 100, 0},
		{"reset", 99, 100, 0},
		{"near_max", ^uint64(0), ^uint64(0) - 5, 5},
		{"from_zero", 500, 0, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SaturatingSub(tt.cur, tt.prev))
		})
	}
}

func TestPerSecond(t *testing.T) {
	assert.Equal(t, uint64(100), PerSecond(500, 5*time.Second))
	assert.Equal(t, uint64(2000), PerSecond(1000, 500*time.Millisecond))
	assert.Equal(t, uint64(0), PerSecond(1000, 0))
	assert.Equal(t, uint64(0), PerSecond(1000, -time.Second))
}

func TestProcessCPUPercent(t *testing.T) {
	usage := CPUUsage{Usage: 30, Fraction: 0.6}

	assert.InDelta(t, 500.0/30.0*100, ProcessCPUPercent(500, usage, true), 1e-9)
	assert.InDelta(t, 15.0/30.0*100*0.6, ProcessCPUPercent(15, usage, false), 1e-9)
	assert.Equal(t, 0.0, ProcessCPUPercent(15, CPUUsage{}, true))
	assert.Equal(t, 0.0, ProcessCPUPercent(0, usage, false))
}

func TestMemPercent(t *testing.T) {
	assert.InDelta(t, 25.0, MemPercent(256, 1024), 1e-12)
	assert.Equal(t, 0.0, MemPercent(256, 0))
}

func TestComputeEntityRates(t *testing.T) {
	usage := CPUUsage{Usage: 30, Fraction: 0.6}

	t.Run("first_sighting_uses_zero_baseline", func(t *testing.T) {
		raw := &RawProcess{CPUTicks: 500, IO: IOCounters{ReadBytes: 700, WriteBytes: 300}}
		r := ComputeEntityRates(raw, EntityCounters{}, usage, time.Second, true)
		assert.InDelta(t, 500.0/30.0*100, r.CPUPercent, 1e-9)
		assert.Equal(t, uint64(700), r.ReadBytesPerSec)
		assert.Equal(t, EntityCounters{CPUTicks: 500, ReadBytes: 700, WriteBytes: 300}, r.Next)
	})

	t.Run("read_rate_over_interval", func(t *testing.T) {
		raw := &RawProcess{CPUTicks: 10, IO: IOCounters{ReadBytes: 1500, WriteBytes: 2000}}
		prev := EntityCounters{CPUTicks: 10, ReadBytes: 1000, WriteBytes: 2000}
		r := ComputeEntityRates(raw, prev, usage, 5*time.Second, false)
		assert.Equal(t, uint64(100), r.ReadBytesPerSec)
		assert.Equal(t, uint64(0), r.WriteBytesPerSec)
		assert.Equal(t, uint64(1500), r.TotalReadBytes)
		assert.Equal(t, uint64(2000), r.TotalWriteBytes)
		assert.Equal(t, 0.0, r.CPUPercent)
	})

	t.Run("io_permission_denied", func(t *testing.T) {
		raw := &RawProcess{CPUTicks: 40, IO: IOCounters{ReadBytes: 9999}, IOErr: errors.New("permission denied")}
		prev := EntityCounters{CPUTicks: 10, ReadBytes: 1000, WriteBytes: 50}
		r := ComputeEntityRates(raw, prev, usage, time.Second, true)
		assert.Zero(t, r.ReadBytesPerSec)
		assert.Zero(t, r.WriteBytesPerSec)
		assert.Zero(t, r.TotalReadBytes)
		assert.Zero(t, r.TotalWriteBytes)
		assert.InDelta(t, 100.0, r.CPUPercent, 1e-9)
		assert.Equal(t, EntityCounters{CPUTicks: 40, ReadBytes: 1000, WriteBytes: 50}, r.Next)
	})

	t.Run("counter_reset_clamps", func(t *testing.T) {
		raw := &RawProcess{CPUTicks: 5, IO: IOCounters{ReadBytes: 10, WriteBytes: 10}}
		prev := EntityCounters{CPUTicks: 50, ReadBytes: 1000, WriteBytes: 1000}
		r := ComputeEntityRates(raw, prev, usage, time.Second, true)
		assert.Zero(t, r.CPUPercent)
		assert.Zero(t, r.ReadBytesPerSec)
		assert.Zero(t, r.WriteBytesPerSec)
	})

	t.Run("zero_elapsed", func(t *testing.T) {
		raw := &RawProcess{IO: IOCounters{ReadBytes: 1 << 40, WriteBytes: 1 << 30}}
		r := ComputeEntityRates(raw, EntityCounters{}, usage, 0, true)
		require.Zero(t, r.ReadBytesPerSec)
		require.Zero(t, r.WriteBytesPerSec)
		assert.Equal(t, uint64(1<<40), r.TotalReadBytes)
	})
}

func TestCPUTime(t *testing.T) {
	assert.Equal(t, 5*time.Second, CPUTime(500, 100))
	assert.Equal(t, 2*time.Second+500*time.Millisecond, CPUTime(250, 100))
	assert.Equal(t, time.Duration(0), CPUTime(250, 0))
}
