// Package testing provides test doubles for the agent package.
package testing

import (
	"context"
	"sync"

	"github.com/perfdash/perfdash/internal/agent"
	"github.com/perfdash/perfdash/internal/metrics"
)

// FakeCollector is an in-memory agent.Collector. Terminate removes the pid
// from the process list unless TerminateErr is set.
type FakeCollector struct {
	mu        sync.Mutex
	snapshot  metrics.Snapshot
	processes []metrics.Process
	disks     []metrics.DiskUsage

	// Errors returned by the matching method when set.
	SnapshotErr  error
	ProcessesErr error
	DisksErr     error
	TerminateErr error

	terminated []int32
}

// NewFakeCollector returns a collector reporting procs.
func NewFakeCollector(procs ...metrics.Process) *FakeCollector {
	return &FakeCollector{processes: procs}
}

// SetSnapshot replaces the reported snapshot.
func (f *FakeCollector) SetSnapshot(s metrics.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = s
}

// SetDisks replaces the reported disk list.
func (f *FakeCollector) SetDisks(d []metrics.DiskUsage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disks = d
}

func (f *FakeCollector) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SnapshotErr != nil {
		return metrics.Snapshot{}, f.SnapshotErr
	}
	return f.snapshot, nil
}

func (f *FakeCollector) Processes(ctx context.Context, limit int) ([]metrics.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ProcessesErr != nil {
		return nil, f.ProcessesErr
	}
	out := make([]metrics.Process, len(f.processes))
	copy(out, f.processes)
	agent.SortProcesses(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeCollector) Disks(ctx context.Context) ([]metrics.DiskUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DisksErr != nil {
		return nil, f.DisksErr
	}
	out := make([]metrics.DiskUsage, len(f.disks))
	copy(out, f.disks)
	return out, nil
}

func (f *FakeCollector) Terminate(ctx context.Context, pid int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TerminateErr != nil {
		return f.TerminateErr
	}
	for i, p := range f.processes {
		if p.PID == pid {
			f.processes = append(f.processes[:i:i], f.processes[i+1:]...)
			f.terminated = append(f.terminated, pid)
			return nil
		}
	}
	return agent.ErrProcessNotFound
}

// Terminated returns the pids terminated so far, in order.
func (f *FakeCollector) Terminated() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int32, len(f.terminated))
	copy(out, f.terminated)
	return out
}

var _ agent.Collector = (*FakeCollector)(nil)
