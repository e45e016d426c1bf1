package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/logger"
)

// FeedPath is the agent's WebSocket endpoint.
const FeedPath = "/ws"

// Reconnect backoff bounds.
const (
	DefaultBackoffMin = 500 * time.Millisecond
	DefaultBackoffMax = 10 * time.Second
)

const (
	writeWait     = 5 * time.Second
	updatesBuffer = 64
)

// EventKind says what changed in the feed.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMetrics
	EventProcesses
	EventDisks
	EventProcessKilled
)

// String returns a human-readable event name.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMetrics:
		return "metrics"
	case EventProcesses:
		return "processes"
	case EventDisks:
		return "disks"
	case EventProcessKilled:
		return "process-killed"
	default:
		return "unknown"
	}
}

// Event signals a state change. Readers fetch the new state from the Feed.
type Event struct {
	Kind EventKind
	PID  int32 // set for EventProcessKilled
}

// Feed is a Source backed by the agent's WebSocket feed. It keeps the last
// snapshot, process list and disk list, and reconnects until its context ends.
type Feed struct {
	url        string
	dialer     *websocket.Dialer
	log        logger.Logger
	backoffMin time.Duration
	backoffMax time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	snapshot  *Snapshot
	processes []Process
	disks     []DiskUsage
	pending   map[FrameType]bool

	writeMu sync.Mutex
	updates chan Event
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithBackoff sets the reconnect backoff bounds.
func WithBackoff(minDelay, maxDelay time.Duration) FeedOption {
	return func(f *Feed) {
		f.backoffMin = minDelay
		f.backoffMax = maxDelay
	}
}

// WithLogger sets the feed's logger.
func WithLogger(l logger.Logger) FeedOption {
	return func(f *Feed) {
		f.log = l
	}
}

// NewFeed creates a feed for the agent at apiURL (http or https).
func NewFeed(apiURL string, opts ...FeedOption) (*Feed, error) {
	wsURL, err := FeedURL(apiURL)
	if err != nil {
		return nil, err
	}

	f := &Feed{
		url:        wsURL,
		dialer:     websocket.DefaultDialer,
		log:        logger.NewEnvLogger("[feed]"),
		backoffMin: DefaultBackoffMin,
		backoffMax: DefaultBackoffMax,
		pending:    make(map[FrameType]bool),
		updates:    make(chan Event, updatesBuffer),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// FeedURL converts an agent base URL into its WebSocket feed URL.
func FeedURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrFeed,
			"Invalid agent URL: "+apiURL,
			"Use something like http://localhost:3000")
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.New(errors.ErrFeed,
			fmt.Sprintf("Unsupported agent URL scheme %q", u.Scheme),
			"Use an http:// or https:// URL")
	}

	u.Path = FeedPath
	u.RawQuery = ""
	return u.String(), nil
}

// URL returns the WebSocket URL the feed dials.
func (f *Feed) URL() string {
	return f.url
}

// Updates delivers change notifications. Events are dropped when the buffer
// is full; the feed's getters always return the latest state.
func (f *Feed) Updates() <-chan Event {
	return f.updates
}

// IsConnected reports whether the feed currently has a live connection.
func (f *Feed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Processes returns a copy of the last known process list.
func (f *Feed) Processes() []Process {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Process, len(f.processes))
	copy(out, f.processes)
	return out
}

// Snapshot returns the last metrics snapshot, if one arrived.
func (f *Feed) Snapshot() (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return Snapshot{}, false
	}
	return *f.snapshot, true
}

// Disks returns a copy of the last known disk list.
func (f *Feed) Disks() []DiskUsage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DiskUsage, len(f.disks))
	copy(out, f.disks)
	return out
}

// RequestProcesses asks the agent for a fresh process list. While
// disconnected the request is queued and sent on reconnect.
func (f *Feed) RequestProcesses() {
	f.request(FrameRequestProcesses)
}

// RequestDisks asks the agent for fresh disk usage.
func (f *Feed) RequestDisks() {
	f.request(FrameRequestDisks)
}

// NotifyProcessKilled drops pid from the local process list.
func (f *Feed) NotifyProcessKilled(pid int32) {
	if f.removeProcess(pid) {
		f.emit(Event{Kind: EventProcessKilled, PID: pid})
	}
}

func (f *Feed) removeProcess(pid int32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.processes {
		if p.PID == pid {
			f.processes = append(f.processes[:i:i], f.processes[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Feed) request(t FrameType) {
	f.mu.Lock()
	conn := f.conn
	if conn == nil {
		f.pending[t] = true
		f.mu.Unlock()
		f.log.Debug("queued %s until the feed reconnects", t)
		return
	}
	f.mu.Unlock()

	if err := f.send(conn, Frame{Type: t}); err != nil {
		f.log.Warn("sending %s: %v", t, err)
		f.mu.Lock()
		f.pending[t] = true
		f.mu.Unlock()
	}
}

func (f *Feed) send(conn *websocket.Conn, frame Frame) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

// Run connects to the agent and processes frames until ctx is done,
// reconnecting with capped exponential backoff. It returns ctx.Err().
func (f *Feed) Run(ctx context.Context) error {
	delay := f.backoffMin
	for {
		conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Debug("dial %s: %v (retry in %s)", f.url, err, delay)
		} else {
			delay = f.backoffMin
			f.serve(ctx, conn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > f.backoffMax {
			delay = f.backoffMax
		}
	}
}

// serve owns one connection until it fails or ctx ends.
func (f *Feed) serve(ctx context.Context, conn *websocket.Conn) {
	f.mu.Lock()
	f.conn = conn
	f.connected = true
	pending := make([]FrameType, 0, len(f.pending))
	for t := range f.pending {
		pending = append(pending, t)
	}
	f.pending = make(map[FrameType]bool)
	f.mu.Unlock()

	f.log.Info("connected to %s", f.url)
	f.emit(Event{Kind: EventConnected})

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	for _, t := range pending {
		if err := f.send(conn, Frame{Type: t}); err != nil {
			f.log.Warn("sending queued %s: %v", t, err)
		}
	}

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() == nil {
				f.log.Warn("feed connection lost: %v", err)
			}
			break
		}
		if err := f.handle(frame); err != nil {
			f.log.Warn("dropping %s frame: %v", frame.Type, err)
		}
	}

	close(done)
	conn.Close()

	f.mu.Lock()
	f.conn = nil
	f.connected = false
	f.mu.Unlock()
	f.emit(Event{Kind: EventDisconnected})
}

// handle applies one frame from the agent.
func (f *Feed) handle(frame Frame) error {
	switch frame.Type {
	case FrameMetrics:
		var s Snapshot
		if err := json.Unmarshal(frame.Data, &s); err != nil {
			return err
		}
		f.mu.Lock()
		f.snapshot = &s
		f.mu.Unlock()
		f.emit(Event{Kind: EventMetrics})

	case FrameProcesses:
		var procs []Process
		if err := json.Unmarshal(frame.Data, &procs); err != nil {
			return err
		}
		f.mu.Lock()
		f.processes = procs
		f.mu.Unlock()
		f.emit(Event{Kind: EventProcesses})

	case FrameDisks:
		var disks []DiskUsage
		if err := json.Unmarshal(frame.Data, &disks); err != nil {
			return err
		}
		f.mu.Lock()
		f.disks = disks
		f.mu.Unlock()
		f.emit(Event{Kind: EventDisks})

	case FrameProcessKilled:
		var payload KilledPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return err
		}
		f.NotifyProcessKilled(payload.PID)

	default:
		f.log.Debug("ignoring unknown frame type %q", frame.Type)
	}
	return nil
}

func (f *Feed) emit(e Event) {
	select {
	case f.updates <- e:
	default:
	}
}
