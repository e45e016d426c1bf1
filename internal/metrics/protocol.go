package metrics

import "encoding/json"

// FrameType names a message on the live feed.
type FrameType string

// Agent to dashboard.
const (
	FrameMetrics       FrameType = "metrics"
	FrameProcesses     FrameType = "processes"
	FrameDisks         FrameType = "disks"
	FrameProcessKilled FrameType = "process_killed"
)

// Dashboard to agent.
const (
	FrameRequestProcesses FrameType = "request_processes"
	FrameRequestDisks     FrameType = "request_disks"
)

// Frame is the JSON envelope for every feed message.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// KilledPayload is the data of a process_killed frame.
type KilledPayload struct {
	PID int32 `json:"pid"`
}

// NewFrame encodes data into a frame of the given type. A nil data yields a
// frame without payload.
func NewFrame(t FrameType, data any) (Frame, error) {
	f := Frame{Type: t}
	if data == nil {
		return f, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	f.Data = raw
	return f, nil
}
