package routes

// Observer watches the current path and calls its callback once per
// navigation. Observing the path that is already current is not a navigation.
// The first observed path counts as one.
type Observer struct {
	onChange func(Path)
	current  Path
	started  bool
}

// NewObserver returns an observer that calls onChange with each new path.
func NewObserver(onChange func(Path)) *Observer {
	return &Observer{onChange: onChange}
}

// Observe records p as the current path. It reports whether this was a
// navigation, in which case the callback has run.
func (o *Observer) Observe(p Path) bool {
	if o.started && p == o.current {
		return false
	}
	o.started = true
	o.current = p
	if o.onChange != nil {
		o.onChange(p)
	}
	return true
}

// Current returns the last observed path, or Root before the first one.
func (o *Observer) Current() Path {
	if !o.started {
		return Root
	}
	return o.current
}
