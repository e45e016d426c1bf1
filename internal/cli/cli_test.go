package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/perfdash/perfdash/internal/agent"
	agenttesting "github.com/perfdash/perfdash/internal/agent/testing"
	"github.com/perfdash/perfdash/internal/config"
	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/logger"
	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/perfdash/perfdash/internal/prefs"
	"github.com/perfdash/perfdash/internal/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useConfig points the global --config flag at a fresh config file using
// apiURL and a temporary state dir, which it returns.
func useConfig(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "api_url: " + apiURL + "\nstate_dir: " + dir + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	oldCfg, oldAPI := cfgFile, apiFlag
	cfgFile, apiFlag = path, ""
	t.Cleanup(func() {
		cfgFile, apiFlag = oldCfg, oldAPI
	})
	return dir
}

// startAgent serves a fake-backed agent and returns its URL.
func startAgent(t *testing.T, c agent.Collector) string {
	t.Helper()
	srv := agent.NewServer(c, agent.WithLogger(logger.Noop()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestParsePID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int32
		wantErr bool
	}{
		{arg: "1", want: 1},
		{arg: "4242", want: 4242},
		{arg: "0", wantErr: true},
		{arg: "-5", wantErr: true},
		{arg: "abc", wantErr: true},
		{arg: "12.5", wantErr: true},
		{arg: "99999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parsePID(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrKill))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		in   string
		want routes.Path
	}{
		{"", routes.Root},
		{"/", routes.Root},
		{"processes", routes.Processes},
		{" /Disk ", routes.Disk},
		{"/settings", routes.Settings},
	}
	for _, tt := range tests {
		got, err := parseRoute(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseRoute("/network")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "/, /processes, /disk, /settings")
}

func TestRenderError(t *testing.T) {
	plain := renderError(stderrors.New("unknown flag: --nope"))
	assert.True(t, strings.HasPrefix(plain, "✗ unknown flag: --nope"))
	assert.True(t, strings.HasSuffix(plain, "\n"))

	structured := renderError(errors.New(errors.ErrConfig, "Bad config", "Fix it"))
	assert.Equal(t, 1, strings.Count(structured, "✗"))
	assert.Contains(t, structured, "Bad config")
	assert.Contains(t, structured, "Fix it")
}

func TestLoadConfig_APIOverride(t *testing.T) {
	useConfig(t, "http://from-file:3000")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:3000", cfg.APIURL)

	apiFlag = "http://from-flag:4000/"
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:4000", cfg.APIURL)

	apiFlag = "ftp://nope"
	_, err = loadConfig()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestKillCommand_Success(t *testing.T) {
	var gotMethod, gotPath, gotType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	useConfig(t, ts.URL)

	var out bytes.Buffer
	require.NoError(t, killCommand(context.Background(), &out, "42", true))

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/process/42", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Contains(t, out.String(), "Terminated pid 42")
}

func TestKillCommand_AgentFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()
	useConfig(t, ts.URL)

	var out bytes.Buffer
	err := killCommand(context.Background(), &out, "42", true)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKill))
	assert.Empty(t, out.String())
}

func TestKillCommand_InvalidPIDSendsNothing(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()
	useConfig(t, ts.URL)

	err := killCommand(context.Background(), &bytes.Buffer{}, "zero", true)
	require.Error(t, err)
	assert.False(t, called)
}

func TestKillCommand_AgainstAgent(t *testing.T) {
	fake := agenttesting.NewFakeCollector(metrics.Process{PID: 77, Name: "sleep"})
	useConfig(t, startAgent(t, fake))

	require.NoError(t, killCommand(context.Background(), &bytes.Buffer{}, "77", true))
	assert.Equal(t, []int32{77}, fake.Terminated())

	err := killCommand(context.Background(), &bytes.Buffer{}, "77", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLookupProcessName(t *testing.T) {
	url := startAgent(t, agenttesting.NewFakeCollector(metrics.Process{PID: 5, Name: "nginx"}))

	assert.Equal(t, "nginx", lookupProcessName(context.Background(), url, 5))
	assert.Equal(t, "", lookupProcessName(context.Background(), url, 6))
}

func TestPsCommand(t *testing.T) {
	fake := agenttesting.NewFakeCollector(
		metrics.Process{PID: 1, Name: "init", CPUPercent: 0.1},
		metrics.Process{PID: 2, Name: "compiler", CPUPercent: 95},
		metrics.Process{PID: 3, Name: "editor", CPUPercent: 5},
	)
	useConfig(t, startAgent(t, fake))

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, psCommand(context.Background(), &out, 0, false))
		assert.Contains(t, out.String(), "compiler")
		assert.Contains(t, out.String(), "95.0!")
		assert.Contains(t, out.String(), "init")
	})

	t.Run("json with limit", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, psCommand(context.Background(), &out, 2, true))

		var procs []metrics.Process
		require.NoError(t, json.Unmarshal(out.Bytes(), &procs))
		require.Len(t, procs, 2)
		assert.Equal(t, "compiler", procs[0].Name)
		assert.Equal(t, "editor", procs[1].Name)
	})
}

func TestPsCommand_AgentDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	useConfig(t, url)

	err := psCommand(context.Background(), &bytes.Buffer{}, 0, false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAgent))
}

func TestThemeCommands(t *testing.T) {
	dir := useConfig(t, "http://localhost:3000")

	var out bytes.Buffer
	require.NoError(t, themeShowCommand(&out))
	assert.Contains(t, out.String(), "Dark mode: on")

	out.Reset()
	require.NoError(t, themeToggleCommand(&out))
	assert.Contains(t, out.String(), "Dark mode: off")

	raw, ok, err := prefs.NewFileStorage(filepath.Join(dir, prefs.DefaultFileName)).GetItem(prefs.DarkModeKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "false", raw)

	out.Reset()
	require.NoError(t, themeShowCommand(&out))
	assert.Contains(t, out.String(), "Dark mode: off")
}

func TestConfigShowCommand(t *testing.T) {
	useConfig(t, "http://metrics.local:3000")

	var out bytes.Buffer
	require.NoError(t, configShowCommand(&out))

	s := out.String()
	assert.Contains(t, s, "api_url: http://metrics.local:3000")
	assert.Contains(t, s, "cpu: 80")
	assert.Contains(t, s, "memory: 90")
	assert.Contains(t, s, "listen:")
	assert.Contains(t, s, ":3000")
	assert.Contains(t, s, "interval: 2s")
}

func TestDoctorCommand_AgentUp(t *testing.T) {
	fake := agenttesting.NewFakeCollector()
	fake.SetSnapshot(metrics.Snapshot{
		CPU:    metrics.CPUStats{Percent: 12.5},
		Memory: metrics.MemoryStats{Percent: 40},
		Host:   metrics.HostInfo{Hostname: "buildbox"},
	})
	url := startAgent(t, fake)
	useConfig(t, url)

	var out bytes.Buffer
	require.NoError(t, doctorCommand(context.Background(), &out, false, false))

	s := out.String()
	assert.Contains(t, s, "perfdash dev")
	assert.Contains(t, s, "Config file: ")
	assert.Contains(t, s, "No saved theme")
	assert.Contains(t, s, "Agent reachable at "+url)
	assert.Contains(t, s, "Live feed OK")
	assert.Contains(t, s, "buildbox: CPU 12.5%, memory 40.0%")
	assert.Contains(t, s, "Everything looks good")
}

func TestDoctorCommand_AgentDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	useConfig(t, url)

	var out bytes.Buffer
	require.NoError(t, doctorCommand(context.Background(), &out, false, false))
	assert.Contains(t, out.String(), "No agent at "+url)
	assert.Contains(t, out.String(), "perfdash agent")
	assert.Contains(t, out.String(), "issues found")
}

func TestDoctorCommand_MissingConfigFile(t *testing.T) {
	old := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { cfgFile = old }()

	var out bytes.Buffer
	require.NoError(t, doctorCommand(context.Background(), &out, false, false))
	assert.Contains(t, out.String(), "Error finding config")
	assert.NotContains(t, out.String(), "AGENT")
}

func TestDoctorCommand_FixClearsBadPreference(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	dir := useConfig(t, url)
	store := prefs.NewFileStorage(filepath.Join(dir, prefs.DefaultFileName))
	require.NoError(t, store.SetItem(prefs.DarkModeKey, "maybe"))

	var out bytes.Buffer
	require.NoError(t, doctorCommand(context.Background(), &out, false, true))

	var before DoctorOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &before))
	assert.Equal(t, 1, before.Summary.Warn)
	assert.Equal(t, 1, before.Summary.Fixable)
	assert.False(t, before.Summary.AllClear)
	require.Len(t, before.Categories, 3)
	assert.Equal(t, "CONFIG", before.Categories[0].Name)
	assert.Equal(t, "STATE", before.Categories[1].Name)
	assert.Equal(t, "AGENT", before.Categories[2].Name)

	out.Reset()
	require.NoError(t, doctorCommand(context.Background(), &out, true, true))

	var after DoctorOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &after))
	assert.Equal(t, 1, after.Summary.Fixed)
	assert.Equal(t, 0, after.Summary.Warn)

	_, ok, err := store.GetItem(prefs.DarkModeKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyAgentFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	applyAgentFlags(cfg, "", 0, -1)
	assert.Equal(t, ":3000", cfg.Agent.Listen)
	assert.Equal(t, 2*time.Second, cfg.Agent.Interval)
	assert.Equal(t, 200, cfg.Agent.ProcessLimit)

	applyAgentFlags(cfg, "127.0.0.1:9000", time.Second, 0)
	assert.Equal(t, "127.0.0.1:9000", cfg.Agent.Listen)
	assert.Equal(t, time.Second, cfg.Agent.Interval)
	assert.Equal(t, 0, cfg.Agent.ProcessLimit)
}

func TestAgentCommand_RejectsShortInterval(t *testing.T) {
	useConfig(t, "http://localhost:3000")

	err := agentCommand(context.Background(), "127.0.0.1:0", 100*time.Millisecond, -1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestAgentCommand_StopsOnCancel(t *testing.T) {
	useConfig(t, "http://localhost:3000")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- agentCommand(ctx, "127.0.0.1:0", time.Second, -1)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestBuildDashboard(t *testing.T) {
	useConfig(t, "http://localhost:3000")
	cfg, err := loadConfig()
	require.NoError(t, err)

	model, feed, err := buildDashboard(context.Background(), cfg, prefs.NewMemoryStorage(), routes.Processes)
	require.NoError(t, err)
	assert.Equal(t, routes.Processes, model.Route().Path)
	assert.Equal(t, "ws://localhost:3000/ws", feed.URL())
	assert.False(t, feed.IsConnected())
}

func TestBuildDashboard_BadURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.APIURL = "gopher://old"

	_, _, err := buildDashboard(context.Background(), cfg, prefs.NewMemoryStorage(), routes.Root)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFeed))
}
