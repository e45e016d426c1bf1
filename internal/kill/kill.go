// Package kill issues process termination requests to the agent.
package kill

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/logger"
	"github.com/perfdash/perfdash/internal/metrics"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 512

// Action terminates processes through DELETE {baseURL}/process/{pid}.
// Requests are sent at most once and never retried.
type Action struct {
	baseURL  string
	client   *http.Client
	notifier metrics.Notifier
	log      logger.Logger
}

// Option configures an Action.
type Option func(*Action)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Action) {
		a.client = c
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(a *Action) {
		if d > 0 {
			c := *a.client
			c.Timeout = d
			a.client = &c
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Action) {
		a.log = l
	}
}

// New returns an Action against the agent at baseURL. On success the
// notifier is told about the killed pid; notifier may be nil.
func New(baseURL string, notifier metrics.Notifier, opts ...Option) *Action {
	a := &Action{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{},
		notifier: notifier,
		log:      logger.NewEnvLogger("[kill]"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// URL returns the endpoint for pid.
func (a *Action) URL(pid int32) string {
	return fmt.Sprintf("%s/process/%d", a.baseURL, pid)
}

// Kill sends the termination request for pid. Any 2xx status is success,
// after which the notifier is called exactly once.
func (a *Action) Kill(ctx context.Context, pid int32) error {
	if pid <= 0 {
		return errors.New(errors.ErrKill,
			fmt.Sprintf("Invalid pid %d", pid),
			"Select a process with a valid pid")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.URL(pid), nil)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKill, "Failed to terminate process", "")
	}
	req.Header.Set("Content-Type", "application/json")

	a.log.Debug("DELETE %s", req.URL)
	resp, err := a.client.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrKill,
			"Failed to terminate process",
			"Is 'perfdash agent' running at "+a.baseURL+"?")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := fmt.Errorf("agent returned %s", resp.Status)
		if msg := strings.TrimSpace(string(body)); msg != "" {
			cause = fmt.Errorf("agent returned %s: %s", resp.Status, msg)
		}
		return errors.WrapWithCode(cause, errors.ErrKill, "Failed to terminate process", "")
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	if a.notifier != nil {
		a.notifier.NotifyProcessKilled(pid)
	}
	return nil
}

// Handle runs Kill and logs a failure. The error is returned so callers can
// show it, but nothing beyond the log is required of them.
func (a *Action) Handle(ctx context.Context, pid int32) error {
	err := a.Kill(ctx, pid)
	if err != nil {
		a.log.Error("terminating process %d: %v", pid, flatten(err))
	}
	return err
}

// flatten renders a structured error on one line for log output.
func flatten(err error) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(err.Error(), "✗", "")), " ")
}
