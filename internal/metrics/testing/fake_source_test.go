package testing

import (
	"testing"

	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestFakeSource_RecordsCalls(t *testing.T) {
	src := NewFakeSource(metrics.Process{PID: 1, Name: "a"}, metrics.Process{PID: 2, Name: "b"})

	assert.True(t, src.IsConnected())
	src.SetConnected(false)
	assert.False(t, src.IsConnected())

	src.RequestProcesses()
	src.RequestProcesses()
	src.RequestDisks()
	assert.Equal(t, 2, src.Requests())
	assert.Equal(t, 1, src.DiskRequests)

	src.NotifyProcessKilled(1)
	assert.Equal(t, []int32{1}, src.Killed())
	assert.Equal(t, []metrics.Process{{PID: 2, Name: "b"}}, src.Processes())
}

func TestFakeSource_SetProcesses(t *testing.T) {
	src := NewFakeSource()
	assert.Empty(t, src.Processes())

	src.SetProcesses([]metrics.Process{{PID: 9}})
	assert.Len(t, src.Processes(), 1)
}
