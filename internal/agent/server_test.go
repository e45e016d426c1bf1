package agent_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/perfdash/perfdash/internal/agent"
	agenttesting "github.com/perfdash/perfdash/internal/agent/testing"
	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/logger"
	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, c agent.Collector, opts ...agent.Option) (*agent.Server, *httptest.Server) {
	t.Helper()
	opts = append([]agent.Option{agent.WithLogger(logger.Noop())}, opts...)
	s := agent.NewServer(c, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func doRequest(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestKill_Success(t *testing.T) {
	fake := agenttesting.NewFakeCollector(metrics.Process{PID: 42, Name: "sleep"})
	_, ts := newTestServer(t, fake)

	resp, body := doRequest(t, http.MethodDelete, ts.URL+"/process/42")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		PID    int32  `json:"pid"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, int32(42), got.PID)
	assert.Equal(t, "terminated", got.Status)
	assert.Equal(t, []int32{42}, fake.Terminated())
}

func TestKill_StatusCodes(t *testing.T) {
	tests := []struct {
		name         string
		pid          string
		terminateErr error
		want         int
	}{
		{name: "non-numeric", pid: "abc", want: http.StatusBadRequest},
		{name: "zero", pid: "0", want: http.StatusBadRequest},
		{name: "negative", pid: "-3", want: http.StatusBadRequest},
		{name: "overflow", pid: "99999999999", want: http.StatusBadRequest},
		{name: "unknown", pid: "999", want: http.StatusNotFound},
		{name: "terminate fails", pid: "42", terminateErr: stderrors.New("operation not permitted"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := agenttesting.NewFakeCollector(metrics.Process{PID: 42})
			fake.TerminateErr = tt.terminateErr
			_, ts := newTestServer(t, fake)

			resp, _ := doRequest(t, http.MethodDelete, ts.URL+"/process/"+tt.pid)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Empty(t, fake.Terminated())
		})
	}
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t, agenttesting.NewFakeCollector())

	resp, _ := doRequest(t, http.MethodOptions, ts.URL+"/process/42")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Content-Type")

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/healthz")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, agenttesting.NewFakeCollector())

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestAPI_Processes(t *testing.T) {
	fake := agenttesting.NewFakeCollector(
		metrics.Process{PID: 1, Name: "idle", CPUPercent: 0.1},
		metrics.Process{PID: 2, Name: "busy", CPUPercent: 95},
		metrics.Process{PID: 3, Name: "mid", CPUPercent: 40},
	)
	_, ts := newTestServer(t, fake, agent.WithProcessLimit(2))

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/processes")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var procs []metrics.Process
	require.NoError(t, json.Unmarshal(body, &procs))
	require.Len(t, procs, 2)
	assert.Equal(t, "busy", procs[0].Name)
	assert.Equal(t, "mid", procs[1].Name)
}

func TestAPI_MetricsAndDisks(t *testing.T) {
	fake := agenttesting.NewFakeCollector()
	fake.SetSnapshot(metrics.Snapshot{CPU: metrics.CPUStats{Percent: 12.5, Cores: 4}})
	fake.SetDisks([]metrics.DiskUsage{{Mountpoint: "/", UsedPercent: 71}})
	_, ts := newTestServer(t, fake)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 12.5, snap.CPU.Percent)
	assert.Equal(t, 4, snap.CPU.Cores)

	resp, body = doRequest(t, http.MethodGet, ts.URL+"/api/disks")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var disks []metrics.DiskUsage
	require.NoError(t, json.Unmarshal(body, &disks))
	require.Len(t, disks, 1)
	assert.Equal(t, 71.0, disks[0].UsedPercent)
}

func TestAPI_CollectorErrors(t *testing.T) {
	fake := agenttesting.NewFakeCollector()
	fake.SnapshotErr = stderrors.New("no /proc")
	fake.ProcessesErr = stderrors.New("no /proc")
	fake.DisksErr = stderrors.New("no mounts")
	_, ts := newTestServer(t, fake)

	for _, path := range []string{"/api/metrics", "/api/processes", "/api/disks"} {
		resp, body := doRequest(t, http.MethodGet, ts.URL+path)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
		assert.Contains(t, string(body), "error", path)
	}
}

func TestPrometheusExposition(t *testing.T) {
	fake := agenttesting.NewFakeCollector(metrics.Process{PID: 42})
	fake.SetSnapshot(metrics.Snapshot{CPU: metrics.CPUStats{Percent: 33}})
	fake.SetDisks([]metrics.DiskUsage{{Mountpoint: "/data", UsedPercent: 50}})
	_, ts := newTestServer(t, fake)

	doRequest(t, http.MethodDelete, ts.URL+"/process/42")
	doRequest(t, http.MethodDelete, ts.URL+"/process/42")
	doRequest(t, http.MethodDelete, ts.URL+"/process/nope")
	doRequest(t, http.MethodGet, ts.URL+"/api/metrics")
	doRequest(t, http.MethodGet, ts.URL+"/api/disks")

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)

	assert.Contains(t, text, `perfdash_kills_total{outcome="ok"} 1`)
	assert.Contains(t, text, `perfdash_kills_total{outcome="not_found"} 1`)
	assert.Contains(t, text, `perfdash_kills_total{outcome="invalid"} 1`)
	assert.Contains(t, text, `perfdash_cpu_usage_percent 33`)
	assert.Contains(t, text, `perfdash_disk_used_percent{mountpoint="/data"} 50`)
}

func dialFeed(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + metrics.FeedPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) metrics.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f metrics.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestFeed_InitialSnapshotAndRequests(t *testing.T) {
	fake := agenttesting.NewFakeCollector(
		metrics.Process{PID: 10, Name: "a", CPUPercent: 1},
		metrics.Process{PID: 20, Name: "b", CPUPercent: 9},
	)
	fake.SetSnapshot(metrics.Snapshot{Memory: metrics.MemoryStats{Percent: 64}})
	fake.SetDisks([]metrics.DiskUsage{{Mountpoint: "/"}})
	_, ts := newTestServer(t, fake)

	conn := dialFeed(t, ts)

	first := readFrame(t, conn)
	require.Equal(t, metrics.FrameMetrics, first.Type)
	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(first.Data, &snap))
	assert.Equal(t, 64.0, snap.Memory.Percent)

	require.NoError(t, conn.WriteJSON(metrics.Frame{Type: metrics.FrameRequestProcesses}))
	procFrame := readFrame(t, conn)
	require.Equal(t, metrics.FrameProcesses, procFrame.Type)
	var procs []metrics.Process
	require.NoError(t, json.Unmarshal(procFrame.Data, &procs))
	require.Len(t, procs, 2)
	assert.Equal(t, int32(20), procs[0].PID)

	require.NoError(t, conn.WriteJSON(metrics.Frame{Type: metrics.FrameRequestDisks}))
	assert.Equal(t, metrics.FrameDisks, readFrame(t, conn).Type)
}

func TestFeed_KillIsBroadcast(t *testing.T) {
	fake := agenttesting.NewFakeCollector(metrics.Process{PID: 42})
	s, ts := newTestServer(t, fake)

	first := dialFeed(t, ts)
	second := dialFeed(t, ts)
	readFrame(t, first)
	readFrame(t, second)
	require.Eventually(t, func() bool { return s.Hub().Count() == 2 }, time.Second, 10*time.Millisecond)

	resp, _ := doRequest(t, http.MethodDelete, ts.URL+"/process/42")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, conn := range []*websocket.Conn{first, second} {
		f := readFrame(t, conn)
		require.Equal(t, metrics.FrameProcessKilled, f.Type)
		var payload metrics.KilledPayload
		require.NoError(t, json.Unmarshal(f.Data, &payload))
		assert.Equal(t, int32(42), payload.PID)
	}
}

func TestFeed_BroadcastMetrics(t *testing.T) {
	fake := agenttesting.NewFakeCollector()
	s, ts := newTestServer(t, fake)

	// No clients: nothing to do, nothing to break.
	s.BroadcastMetrics(context.Background())

	conn := dialFeed(t, ts)
	readFrame(t, conn)

	fake.SetSnapshot(metrics.Snapshot{CPU: metrics.CPUStats{Percent: 77}})
	s.BroadcastMetrics(context.Background())

	f := readFrame(t, conn)
	require.Equal(t, metrics.FrameMetrics, f.Type)
	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(f.Data, &snap))
	assert.Equal(t, 77.0, snap.CPU.Percent)
}

func TestFeed_ClientRemovedOnDisconnect(t *testing.T) {
	s, ts := newTestServer(t, agenttesting.NewFakeCollector())

	conn := dialFeed(t, ts)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return s.Hub().Count() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return s.Hub().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := agent.NewServer(agenttesting.NewFakeCollector(),
		agent.WithLogger(logger.Noop()),
		agent.WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_BadAddress(t *testing.T) {
	s := agent.NewServer(agenttesting.NewFakeCollector(), agent.WithLogger(logger.Noop()))

	err := s.Run(context.Background(), "127.0.0.1:-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAgent))
}
