// Package testing provides test doubles for the metrics package.
package testing

import (
	"sync"

	"github.com/perfdash/perfdash/internal/metrics"
)

// FakeSource is an in-memory metrics.Source that records calls.
type FakeSource struct {
	mu        sync.Mutex
	connected bool
	processes []metrics.Process
	snapshot  *metrics.Snapshot
	disks     []metrics.DiskUsage
	updates   chan metrics.Event

	// Tracking for assertions
	RequestCalls int
	DiskRequests int
	KilledPIDs   []int32
}

// NewFakeSource returns a connected source holding procs.
func NewFakeSource(procs ...metrics.Process) *FakeSource {
	return &FakeSource{connected: true, processes: procs, updates: make(chan metrics.Event, 16)}
}

// Updates delivers events sent with Emit.
func (f *FakeSource) Updates() <-chan metrics.Event {
	return f.updates
}

// Emit queues an event for Updates readers. It drops the event when the
// buffer is full.
func (f *FakeSource) Emit(ev metrics.Event) {
	select {
	case f.updates <- ev:
	default:
	}
}

// SetSnapshot sets the snapshot returned by Snapshot.
func (f *FakeSource) SetSnapshot(s metrics.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = &s
}

// Snapshot returns the snapshot set with SetSnapshot.
func (f *FakeSource) Snapshot() (metrics.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return metrics.Snapshot{}, false
	}
	return *f.snapshot, true
}

// SetDisks replaces the disk list.
func (f *FakeSource) SetDisks(d []metrics.DiskUsage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disks = d
}

// Disks returns a copy of the disk list.
func (f *FakeSource) Disks() []metrics.DiskUsage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]metrics.DiskUsage, len(f.disks))
	copy(out, f.disks)
	return out
}

// SetConnected changes the reported connection state.
func (f *FakeSource) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

// SetProcesses replaces the process list.
func (f *FakeSource) SetProcesses(procs []metrics.Process) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processes = procs
}

func (f *FakeSource) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeSource) Processes() []metrics.Process {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]metrics.Process, len(f.processes))
	copy(out, f.processes)
	return out
}

func (f *FakeSource) RequestProcesses() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RequestCalls++
}

// RequestDisks records a disk refresh request.
func (f *FakeSource) RequestDisks() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DiskRequests++
}

func (f *FakeSource) NotifyProcessKilled(pid int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KilledPIDs = append(f.KilledPIDs, pid)
	for i, p := range f.processes {
		if p.PID == pid {
			f.processes = append(f.processes[:i:i], f.processes[i+1:]...)
			break
		}
	}
}

// Requests returns how many process refreshes were requested.
func (f *FakeSource) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RequestCalls
}

// Killed returns the pids passed to NotifyProcessKilled, in order.
func (f *FakeSource) Killed() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int32, len(f.KilledPIDs))
	copy(out, f.KilledPIDs)
	return out
}

var _ metrics.Source = (*FakeSource)(nil)
