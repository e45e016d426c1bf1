package agent

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// ErrProcessNotFound is returned by Terminate when no process has the pid.
var ErrProcessNotFound = stderrors.New("process not found")

// Collector gathers host data and terminates processes.
type Collector interface {
	Snapshot(ctx context.Context) (metrics.Snapshot, error)
	Processes(ctx context.Context, limit int) ([]metrics.Process, error)
	Disks(ctx context.Context) ([]metrics.DiskUsage, error)
	Terminate(ctx context.Context, pid int32) error
}

// HostCollector reads the local host through gopsutil.
type HostCollector struct{}

// NewHostCollector returns a collector for the machine the agent runs on.
func NewHostCollector() *HostCollector {
	return &HostCollector{}
}

// Snapshot gathers CPU, memory, host and network totals. Only the total CPU
// and virtual memory reads are fatal; the rest degrade to zero values.
func (c *HostCollector) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	snap := metrics.Snapshot{Timestamp: time.Now()}

	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return snap, err
	}
	if len(total) > 0 {
		snap.CPU.Percent = total[0]
	}
	if perCore, err := cpu.PercentWithContext(ctx, 0, true); err == nil {
		snap.CPU.PerCore = perCore
	}
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPU.Cores = cores
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		snap.CPU.LoadAvg = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snap, err
	}
	snap.Memory = metrics.MemoryStats{
		UsedBytes:      vm.Used,
		TotalBytes:     vm.Total,
		AvailableBytes: vm.Available,
		Percent:        vm.UsedPercent,
	}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		snap.Memory.SwapUsedBytes = swap.Used
		snap.Memory.SwapTotalBytes = swap.Total
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.Host = metrics.HostInfo{
			Hostname:      info.Hostname,
			OS:            info.OS,
			Platform:      info.Platform,
			Kernel:        info.KernelVersion,
			UptimeSeconds: info.Uptime,
		}
	}

	if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		snap.Network = metrics.NetworkStats{
			BytesSent: counters[0].BytesSent,
			BytesRecv: counters[0].BytesRecv,
		}
	}

	return snap, nil
}

// Processes lists running processes, highest CPU first. Processes that exit
// while being read are skipped. A limit of 0 returns all of them.
func (c *HostCollector) Processes(ctx context.Context, limit int) ([]metrics.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]metrics.Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		row := metrics.Process{PID: p.Pid, Name: name}

		if user, err := p.UsernameWithContext(ctx); err == nil {
			row.User = user
		}
		if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
			row.Status = status[0]
		}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			row.CPUPercent = pct
		}
		if pct, err := p.MemoryPercentWithContext(ctx); err == nil {
			row.MemoryPercent = float64(pct)
		}
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			row.RSSBytes = info.RSS
		}
		if cmd, err := p.CmdlineWithContext(ctx); err == nil {
			row.Command = strings.TrimSpace(cmd)
		}
		out = append(out, row)
	}

	SortProcesses(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SortProcesses orders by CPU descending, then memory descending, then pid.
func SortProcesses(procs []metrics.Process) {
	sort.SliceStable(procs, func(i, j int) bool {
		if procs[i].CPUPercent != procs[j].CPUPercent {
			return procs[i].CPUPercent > procs[j].CPUPercent
		}
		if procs[i].MemoryPercent != procs[j].MemoryPercent {
			return procs[i].MemoryPercent > procs[j].MemoryPercent
		}
		return procs[i].PID < procs[j].PID
	})
}

// Disks reports usage for physical partitions. Partitions whose usage
// cannot be read (e.g. permission denied) are skipped.
func (c *HostCollector) Disks(ctx context.Context) ([]metrics.DiskUsage, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	out := make([]metrics.DiskUsage, 0, len(parts))
	seen := make(map[string]bool)
	for _, part := range parts {
		if seen[part.Mountpoint] {
			continue
		}
		seen[part.Mountpoint] = true

		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		out = append(out, metrics.DiskUsage{
			Mountpoint:  part.Mountpoint,
			Device:      part.Device,
			Fstype:      part.Fstype,
			TotalBytes:  usage.Total,
			UsedBytes:   usage.Used,
			FreeBytes:   usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Mountpoint < out[j].Mountpoint })
	return out, nil
}

// Terminate sends SIGTERM (or the platform equivalent) to pid.
func (c *HostCollector) Terminate(ctx context.Context, pid int32) error {
	exists, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		return err
	}
	if !exists {
		return ErrProcessNotFound
	}

	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		if stderrors.Is(err, process.ErrorProcessNotRunning) {
			return ErrProcessNotFound
		}
		return err
	}
	return p.TerminateWithContext(ctx)
}
