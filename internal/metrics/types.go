// Package metrics defines the data the dashboard renders and the live feed
// that delivers it from the agent.
package metrics

import "time"

// Process is one row of the process list.
type Process struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	User          string  `json:"user,omitempty"`
	Status        string  `json:"status,omitempty"`
	CPUPercent    float64 `json:"cpu"`
	MemoryPercent float64 `json:"memory"`
	RSSBytes      uint64  `json:"rss"`
	Command       string  `json:"command,omitempty"`
}

// Killable reports whether the row carries a pid a kill action can target.
func (p Process) Killable() bool {
	return p.PID > 0
}

// Snapshot is a point-in-time view of host utilization.
type Snapshot struct {
	Timestamp time.Time    `json:"timestamp"`
	CPU       CPUStats     `json:"cpu"`
	Memory    MemoryStats  `json:"memory"`
	Host      HostInfo     `json:"host"`
	Network   NetworkStats `json:"network"`
}

// CPUStats contains CPU usage information.
type CPUStats struct {
	Percent float64    `json:"percent"`
	PerCore []float64  `json:"per_core,omitempty"`
	Cores   int        `json:"cores"`
	LoadAvg [3]float64 `json:"load_avg"`
}

// MemoryStats contains memory and swap usage.
type MemoryStats struct {
	UsedBytes      uint64  `json:"used"`
	TotalBytes     uint64  `json:"total"`
	AvailableBytes uint64  `json:"available"`
	Percent        float64 `json:"percent"`
	SwapUsedBytes  uint64  `json:"swap_used"`
	SwapTotalBytes uint64  `json:"swap_total"`
}

// HostInfo contains general system information.
type HostInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	Kernel        string `json:"kernel"`
	UptimeSeconds uint64 `json:"uptime"`
}

// Uptime returns the host uptime as a duration.
func (h HostInfo) Uptime() time.Duration {
	return time.Duration(h.UptimeSeconds) * time.Second
}

// NetworkStats contains byte counters summed over all interfaces.
type NetworkStats struct {
	BytesSent uint64 `json:"bytes_sent"`
	BytesRecv uint64 `json:"bytes_recv"`
}

// DiskUsage describes one mounted partition.
type DiskUsage struct {
	Mountpoint  string  `json:"mountpoint"`
	Device      string  `json:"device"`
	Fstype      string  `json:"fstype"`
	TotalBytes  uint64  `json:"total"`
	UsedBytes   uint64  `json:"used"`
	FreeBytes   uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}
