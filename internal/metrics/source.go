package metrics

// Notifier is told about processes killed outside the feed so it can drop
// them without waiting for the next refresh.
type Notifier interface {
	NotifyProcessKilled(pid int32)
}

// Source is what the dashboard consumes from a metrics provider.
type Source interface {
	Notifier
	IsConnected() bool
	Processes() []Process
	RequestProcesses()
}
