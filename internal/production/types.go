// Package production provides the optional production-facing collaborators a
// Machine may be wired with: snapshot persistence, transition-event
// publishing, chart visualization, and versioned snapshot storage. Grounded on
// teacher internal/production and internal/core's Persister/EventPublisher/
// Visualizer/Registry interfaces, generalized from primitives.MachineConfig/
// core.MachineSnapshot to the chart/statectx/runtime types.
package production

import "context"

// Snapshot is the serializable runtime state of one machine: its full active
// configuration and context, enough to restore it exactly (spec §3, "a
// persister may serialize the whole context").
type Snapshot struct {
	MachineID   string         `json:"machineId" yaml:"machineId"`
	ActivePaths []string       `json:"activePaths" yaml:"activePaths"`
	Context     map[string]any `json:"context" yaml:"context"`
}

// Persister saves and loads Snapshots, keyed by machine ID.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, machineID string) (Snapshot, error)
}

// PublishedEvent bundles a fired transition with its machine ID for
// publishing to an external sink (logging pipeline, message bus, UI).
type PublishedEvent struct {
	MachineID string
	FromPath  string
	ToPath    string
	Event     string
}

// EventPublisher forwards fired transitions to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, ev PublishedEvent) error
	Close() error
}

// Visualizer renders a chart (optionally annotated with its currently active
// paths) to a human- or tool-consumable form.
type Visualizer interface {
	ExportDOT(activePaths []string) string
	ExportJSON() ([]byte, error)
}

// Registry stores versioned Snapshots, for tooling that wants history rather
// than just the latest state (spec §9, "a versioned snapshot registry").
// Grounded on teacher internal/core.Registry, generalized from
// core.MachineSnapshot to production.Snapshot.
type Registry interface {
	// Register saves snapshot under machineID with a computed version.
	Register(ctx context.Context, machineID string, snapshot Snapshot) (version string, err error)
	// Latest returns the most recently registered snapshot for machineID.
	Latest(ctx context.Context, machineID string) (Snapshot, error)
	// Version returns the snapshot registered under machineID/version.
	Version(ctx context.Context, machineID, version string) (Snapshot, error)
	// ListVersions returns versions for machineID, newest first.
	ListVersions(ctx context.Context, machineID string) ([]string, error)
	// ListMachines returns all known machine IDs.
	ListMachines(ctx context.Context) ([]string, error)
}
