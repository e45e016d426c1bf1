// Package routes holds the dashboard's static route table and the observer
// that turns navigation into on-enter effects.
//
// Data loading is attached to routes as an explicit on-enter policy rather
// than hidden inside page rendering, so the trigger conditions can be tested
// without a terminal.
package routes

// Path identifies a page, using URL-style paths.
type Path string

const (
	Root      Path = "/"
	Processes Path = "/processes"
	Disk      Path = "/disk"
	Settings  Path = "/settings"
)

// Page selects which view renders a route.
type Page int

const (
	PageOverview Page = iota
	PageProcesses
	PageDisk
	PageSettings
)

// String returns a human-readable page name.
func (p Page) String() string {
	switch p {
	case PageOverview:
		return "overview"
	case PageProcesses:
		return "processes"
	case PageDisk:
		return "disk"
	case PageSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// Effect is a side effect a route asks for when it is entered.
type Effect int

const (
	// RequestProcesses asks the metrics source for a fresh process list.
	RequestProcesses Effect = iota + 1
	// RequestDisks asks the metrics source for fresh disk usage.
	RequestDisks
)

// String returns a human-readable effect name.
func (e Effect) String() string {
	switch e {
	case RequestProcesses:
		return "request-processes"
	case RequestDisks:
		return "request-disks"
	default:
		return "none"
	}
}

// Route maps a path to a page, a navigation key and its on-enter policy.
type Route struct {
	Path    Path
	Title   string
	Key     string
	Page    Page
	OnEnter []Effect
}

// Table is an ordered, immutable set of routes. The first route is the
// fallback for unknown paths.
type Table struct {
	routes []Route
	index  map[Path]int
}

// NewTable builds a table from routes in display order.
func NewTable(routes ...Route) *Table {
	t := &Table{
		routes: make([]Route, len(routes)),
		index:  make(map[Path]int, len(routes)),
	}
	copy(t.routes, routes)
	for i, r := range t.routes {
		t.index[r.Path] = i
	}
	return t
}

// DefaultTable returns the four dashboard routes. The process manager is the
// only route that requests processes on enter; process data is not polled for
// unrelated pages. The disk page loads partitions the same way.
func DefaultTable() *Table {
	return NewTable(
		Route{Path: Root, Title: "Overview", Key: "1", Page: PageOverview},
		Route{Path: Processes, Title: "Processes", Key: "2", Page: PageProcesses, OnEnter: []Effect{RequestProcesses}},
		Route{Path: Disk, Title: "Disk", Key: "3", Page: PageDisk, OnEnter: []Effect{RequestDisks}},
		Route{Path: Settings, Title: "Settings", Key: "4", Page: PageSettings},
	)
}

// Routes returns the routes in display order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Lookup returns the route for p, or the first route if p is unknown.
func (t *Table) Lookup(p Path) Route {
	if i, ok := t.index[p]; ok {
		return t.routes[i]
	}
	if len(t.routes) == 0 {
		return Route{Path: Root}
	}
	return t.routes[0]
}

// Has reports whether p is a known route.
func (t *Table) Has(p Path) bool {
	_, ok := t.index[p]
	return ok
}

// Enter returns the effects to run when p is entered.
func (t *Table) Enter(p Path) []Effect {
	r := t.Lookup(p)
	if len(r.OnEnter) == 0 {
		return nil
	}
	out := make([]Effect, len(r.OnEnter))
	copy(out, r.OnEnter)
	return out
}

// ByKey finds the route bound to a navigation key.
func (t *Table) ByKey(key string) (Route, bool) {
	for _, r := range t.routes {
		if r.Key == key {
			return r, true
		}
	}
	return Route{}, false
}

// Next returns the path after p, wrapping around.
func (t *Table) Next(p Path) Path {
	return t.step(p, 1)
}

// Prev returns the path before p, wrapping around.
func (t *Table) Prev(p Path) Path {
	return t.step(p, -1)
}

func (t *Table) step(p Path, delta int) Path {
	n := len(t.routes)
	if n == 0 {
		return Root
	}
	i, ok := t.index[p]
	if !ok {
		return t.routes[0].Path
	}
	return t.routes[((i+delta)%n+n)%n].Path
}
