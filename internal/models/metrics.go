// Package models defines the data structures produced by the harvester.
// These structures are serialized to JSON when snapshots are recorded.
package models

import "time"

// Snapshot represents one tick's worth of harvested data.
// Sections are nil when the corresponding collector failed or is disabled.
type Snapshot struct {
	HarvesterID  string          `json:"harvester_id"`
	Timestamp    time.Time       `json:"timestamp"`
	CPU          *CPUInfo        `json:"cpu,omitempty"`
	Memory       *MemoryInfo     `json:"memory,omitempty"`
	Network      *NetworkRates   `json:"network,omitempty"`
	Disks        []DiskIO        `json:"disks,omitempty"`
	ZFS          []DatasetIO     `json:"zfs,omitempty"`
	GPUs         []GPUInfo       `json:"gpus,omitempty"`
	Temperatures []TempReading   `json:"temperatures,omitempty"`
	Host         *HostInfo       `json:"host,omitempty"`
	Processes    []ProcessSample `json:"processes,omitempty"`
	ProcessCount int             `json:"process_count"`
}

// CPUInfo holds whole-machine and per-core busy percentages for the interval.
type CPUInfo struct {
	Overall float64   `json:"overall"`
	Cores   []float64 `json:"cores"`
}

// MemHarvest is a used/total pair for one memory pool.
// UsePercent is nil when the pool reports a total of zero.
type MemHarvest struct {
	TotalBytes uint64   `json:"total_bytes"`
	UsedBytes  uint64   `json:"used_bytes"`
	UsePercent *float64 `json:"use_percent"`
}

// NewMemHarvest builds a MemHarvest, leaving UsePercent nil when total is 0.
func NewMemHarvest(total, used uint64) MemHarvest {
	m := MemHarvest{TotalBytes: total, UsedBytes: used}
	if total > 0 {
		pct := float64(used) / float64(total) * 100
		m.UsePercent = &pct
	}
	return m
}

// MemoryInfo groups RAM, swap and the ZFS ARC.
type MemoryInfo struct {
	RAM  MemHarvest  `json:"ram"`
	Swap MemHarvest  `json:"swap"`
	ARC  *MemHarvest `json:"arc,omitempty"`
}

// NetworkRates holds aggregate receive/transmit rates in bytes per second.
type NetworkRates struct {
	RxPerSec uint64 `json:"rx_per_sec"`
	TxPerSec uint64 `json:"tx_per_sec"`
	TotalRx  uint64 `json:"total_rx"`
	TotalTx  uint64 `json:"total_tx"`
}

// DiskIO holds the read/write rates of a single block device.
type DiskIO struct {
	Device      string `json:"device"`
	ReadPerSec  uint64 `json:"read_per_sec"`
	WritePerSec uint64 `json:"write_per_sec"`
	TotalRead   uint64 `json:"total_read"`
	TotalWrite  uint64 `json:"total_write"`
}

// DatasetIO holds the read/write rates of a single ZFS dataset.
type DatasetIO struct {
	Pool        string `json:"pool"`
	Dataset     string `json:"dataset"`
	ReadPerSec  uint64 `json:"read_per_sec"`
	WritePerSec uint64 `json:"write_per_sec"`
	TotalRead   uint64 `json:"total_read"`
	TotalWrite  uint64 `json:"total_write"`
}

// GPUInfo holds the point-in-time state of one GPU.
type GPUInfo struct {
	Index        int        `json:"index"`
	Name         string     `json:"name"`
	Utilization  *float64   `json:"utilization"`
	Memory       MemHarvest `json:"memory"`
	TemperatureC *float64   `json:"temperature_c"`
	PowerMilliW  *uint32    `json:"power_mw"`
}

// TempReading is one thermal sensor reading in degrees Celsius.
type TempReading struct {
	Sensor  string  `json:"sensor"`
	Celsius float64 `json:"celsius"`
}

// HostInfo holds host identity and uptime.
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	UptimeSeconds   uint64 `json:"uptime_seconds"`
	BootTime        uint64 `json:"boot_time"`
}

// ProcessSample is the per-process output of one tick.
// It has no identity beyond the tick that produced it.
type ProcessSample struct {
	PID              int32         `json:"pid"`
	ParentPID        int32         `json:"parent_pid"`
	Name             string        `json:"name"`
	Command          string        `json:"command"`
	CPUPercent       float64       `json:"cpu_percent"`
	MemPercent       float64       `json:"mem_percent"`
	MemBytes         uint64        `json:"mem_bytes"`
	ReadBytesPerSec  uint64        `json:"read_bytes_per_sec"`
	WriteBytesPerSec uint64        `json:"write_bytes_per_sec"`
	TotalReadBytes   uint64        `json:"total_read_bytes"`
	TotalWriteBytes  uint64        `json:"total_write_bytes"`
	UID              *uint32       `json:"uid,omitempty"`
	User             string        `json:"user"`
	State            string        `json:"state"`
	StateCode        string        `json:"state_code"`
	CPUTime          time.Duration `json:"cpu_time"`
	GPUMemBytes      uint64        `json:"gpu_mem_bytes,omitempty"`
	GPUUtilPercent   uint32        `json:"gpu_util_percent,omitempty"`
}
