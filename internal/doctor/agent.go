package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/perfdash/perfdash/internal/agent"
	"github.com/perfdash/perfdash/internal/config"
	"github.com/perfdash/perfdash/internal/metrics"
)

// DefaultAgentTimeout bounds each agent check.
const DefaultAgentTimeout = 5 * time.Second

// NewAgentChecks returns the checks against the agent cfg points at.
func NewAgentChecks(cfg *config.Config) []Check {
	return []Check{
		&AgentHealthCheck{APIURL: cfg.APIURL},
		&AgentFeedCheck{APIURL: cfg.APIURL},
		&AgentLoadCheck{APIURL: cfg.APIURL, CPU: cfg.Thresholds.CPU, Memory: cfg.Thresholds.Memory},
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultAgentTimeout
	}
	return context.WithTimeout(ctx, d)
}

// AgentHealthCheck verifies the agent answers /healthz.
type AgentHealthCheck struct {
	APIURL  string
	Timeout time.Duration
}

func (c *AgentHealthCheck) Name() string     { return "agent_health" }
func (c *AgentHealthCheck) Category() string { return CategoryAgent }

func (c *AgentHealthCheck) Run(ctx context.Context) CheckResult {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	if err := agent.NewClient(c.APIURL, nil).Health(ctx); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "No agent at " + c.APIURL,
			Suggestion: "Start one with 'perfdash agent' or pass --api",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Agent reachable at " + c.APIURL,
	}
}

func (c *AgentHealthCheck) Fix() error {
	return nil
}

// AgentFeedCheck opens the live feed and waits for the first metrics frame.
type AgentFeedCheck struct {
	APIURL  string
	Timeout time.Duration
}

func (c *AgentFeedCheck) Name() string     { return "agent_feed" }
func (c *AgentFeedCheck) Category() string { return CategoryAgent }

func (c *AgentFeedCheck) Run(ctx context.Context) CheckResult {
	fail := func(msg string) CheckResult {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    msg,
			Suggestion: "The dashboard needs the WebSocket feed; check proxies between you and the agent",
		}
	}

	url, err := metrics.FeedURL(c.APIURL)
	if err != nil {
		return fail(headline(err))
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fail(fmt.Sprintf("Can't open the feed at %s: %v", url, err))
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var frame metrics.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		return fail(fmt.Sprintf("Feed at %s sent nothing: %v", url, err))
	}
	if frame.Type != metrics.FrameMetrics {
		return fail(fmt.Sprintf("Feed opened with a %q frame, expected %q", frame.Type, metrics.FrameMetrics))
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Live feed OK (first frame in %s)", time.Since(start).Round(time.Millisecond)),
	}
}

func (c *AgentFeedCheck) Fix() error {
	return nil
}

// AgentLoadCheck warns when the agent's host is over a threshold.
type AgentLoadCheck struct {
	APIURL  string
	CPU     float64
	Memory  float64
	Timeout time.Duration
}

func (c *AgentLoadCheck) Name() string     { return "agent_load" }
func (c *AgentLoadCheck) Category() string { return CategoryAgent }

func (c *AgentLoadCheck) Run(ctx context.Context) CheckResult {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	snap, err := agent.NewClient(c.APIURL, nil).Snapshot(ctx)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: "Couldn't read host metrics: " + headline(err),
		}
	}

	host := snap.Host.Hostname
	if host == "" {
		host = "host"
	}
	msg := fmt.Sprintf("%s: CPU %.1f%%, memory %.1f%%", host, snap.CPU.Percent, snap.Memory.Percent)

	var over []string
	if c.CPU > 0 && snap.CPU.Percent >= c.CPU {
		over = append(over, fmt.Sprintf("CPU is at or above %g%%", c.CPU))
	}
	if c.Memory > 0 && snap.Memory.Percent >= c.Memory {
		over = append(over, fmt.Sprintf("memory is at or above %g%%", c.Memory))
	}
	if len(over) > 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    msg,
			Suggestion: strings.Join(over, ", ") + ". 'perfdash ps' shows the top processes",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: msg,
	}
}

func (c *AgentLoadCheck) Fix() error {
	return nil
}

// headline is the first line of a structured error without its marker.
func headline(err error) string {
	line, _, _ := strings.Cut(err.Error(), "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "✗"))
}
