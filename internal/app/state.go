// Package app holds the dashboard's application state: the theme
// preference, the metrics source, thresholds and the route policy. It is
// built once and passed to the shell instead of living in globals.
package app

import (
	"context"
	"fmt"

	"github.com/perfdash/perfdash/internal/config"
	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/logger"
	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/perfdash/perfdash/internal/prefs"
	"github.com/perfdash/perfdash/internal/routes"
)

// Thresholds are the per-process highlight limits, in percent.
type Thresholds struct {
	CPU    float64
	Memory float64
}

// DefaultThresholds returns CPU 80 and memory 90.
func DefaultThresholds() Thresholds {
	return Thresholds{CPU: config.DefaultCPUThreshold, Memory: config.DefaultMemoryThreshold}
}

// Killer terminates a process and logs its own failures.
type Killer interface {
	Handle(ctx context.Context, pid int32) error
}

// DiskRequester is implemented by sources that can refresh disk usage.
type DiskRequester interface {
	RequestDisks()
}

// State is the dashboard's explicit application state.
type State struct {
	Theme      *prefs.DarkMode
	Source     metrics.Source
	Routes     *routes.Table
	Thresholds Thresholds

	killer Killer
	log    logger.Logger
}

// Option configures a State.
type Option func(*State)

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(s *State) {
		s.Thresholds = t
	}
}

// WithRoutes overrides the default route table.
func WithRoutes(t *routes.Table) Option {
	return func(s *State) {
		s.Routes = t
	}
}

// WithLogger sets the state's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *State) {
		s.log = l
	}
}

// New assembles the application state.
func New(theme *prefs.DarkMode, source metrics.Source, killer Killer, opts ...Option) *State {
	s := &State{
		Theme:      theme,
		Source:     source,
		Routes:     routes.DefaultTable(),
		Thresholds: DefaultThresholds(),
		killer:     killer,
		log:        logger.NewEnvLogger("[app]"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleRouteChange runs the on-enter policy for path.
func (s *State) HandleRouteChange(path routes.Path) {
	for _, effect := range s.Routes.Enter(path) {
		s.apply(effect)
	}
}

func (s *State) apply(effect routes.Effect) {
	switch effect {
	case routes.RequestProcesses:
		s.Source.RequestProcesses()
	case routes.RequestDisks:
		if dr, ok := s.Source.(DiskRequester); ok {
			dr.RequestDisks()
		}
	default:
		s.log.Debug("ignoring unknown route effect %d", effect)
	}
}

// RefreshProcesses is the manual refresh. It issues the same request as
// entering the process route.
func (s *State) RefreshProcesses() {
	s.apply(routes.RequestProcesses)
}

// DarkMode reports the current theme preference.
func (s *State) DarkMode() bool {
	return s.Theme.Enabled()
}

// ToggleDarkMode flips and persists the theme preference.
func (s *State) ToggleDarkMode() (bool, error) {
	return s.Theme.Toggle()
}

// IsConnected reports the metrics source's connection state.
func (s *State) IsConnected() bool {
	return s.Source.IsConnected()
}

// Processes returns the current process list.
func (s *State) Processes() []metrics.Process {
	return s.Source.Processes()
}

// KillProcess terminates pid. The pid must belong to a process the source
// currently knows about; otherwise no request is sent.
func (s *State) KillProcess(ctx context.Context, pid int32) error {
	if !s.knows(pid) {
		err := errors.New(errors.ErrKill,
			fmt.Sprintf("No known process with pid %d", pid),
			"Refresh the process list and try again")
		s.log.Error("refusing to kill pid %d: not in the process list", pid)
		return err
	}
	return s.killer.Handle(ctx, pid)
}

func (s *State) knows(pid int32) bool {
	if pid <= 0 {
		return false
	}
	for _, p := range s.Source.Processes() {
		if p.PID == pid {
			return true
		}
	}
	return false
}
