package runtime

import (
	"strings"

	"github.com/harelstate/statecraft/internal/chart"
)

// Configuration is the Active Configuration (spec component C3): the set of
// currently active state nodes, plus a per-node activation-generation counter
// used to discard late timer/service deliveries (spec §3, §5). Grounded on
// teacher `statechart.go`'s `current map[*State]struct{}` (generalized from a
// single active leaf per machine to full parallel-region support) and
// `machine_helper.go`'s ancestor bookkeeping.
type Configuration struct {
	chart      *chart.Chart
	active     map[string]bool
	generation map[string]uint64
}

// NewConfiguration creates an empty configuration over c. Nothing is active
// until Enter is called (by the Executor, starting with Start()).
func NewConfiguration(c *chart.Chart) *Configuration {
	return &Configuration{
		chart:      c,
		active:     make(map[string]bool),
		generation: make(map[string]uint64),
	}
}

// Reset clears every active node (spec §3, "Configuration: ... cleared by
// Stop, replaced by RESET"). Generation counters are kept, so the next Enter
// of a node still advances past any generation stamped before the reset.
func (cfg *Configuration) Reset() {
	cfg.active = make(map[string]bool)
}

// Enter marks path active and bumps its activation-generation, returning the
// new generation — the value that must be stamped onto any timer/service
// armed during this activation.
func (cfg *Configuration) Enter(path string) uint64 {
	cfg.active[path] = true
	cfg.generation[path]++
	return cfg.generation[path]
}

// Exit marks path inactive. The generation counter is left untouched; it only
// advances on the next Enter, so a synthetic event's captured generation can
// never match a reactivation that hasn't happened yet.
func (cfg *Configuration) Exit(path string) {
	delete(cfg.active, path)
}

// IsActive reports whether path is currently active.
func (cfg *Configuration) IsActive(path string) bool {
	return cfg.active[path]
}

// Generation returns the current activation-generation for path (0 if the
// node has never been entered).
func (cfg *Configuration) Generation(path string) uint64 {
	return cfg.generation[path]
}

// ValidSynthetic reports whether a synthetic (timer/service) event scoped to
// sourcePath/generation still corresponds to a live activation (spec §3,
// Timer/Service Handle identification by activation-generation).
func (cfg *Configuration) ValidSynthetic(sourcePath string, generation uint64) bool {
	return cfg.IsActive(sourcePath) && cfg.Generation(sourcePath) == generation
}

// ActiveLeaves returns the deepest active descendant of each active region, in
// document order (spec §4.3, "Leaves-only" rendering).
func (cfg *Configuration) ActiveLeaves() []*chart.Node {
	var out []*chart.Node
	for _, n := range cfg.chart.Order {
		if cfg.active[n.Path] && n.Kind.IsAtomicOrFinal() {
			out = append(out, n)
		}
	}
	return out
}

// ActiveFull returns every active node, parent-before-child, in document order
// (spec §4.3, "Full" rendering).
func (cfg *Configuration) ActiveFull() []*chart.Node {
	var out []*chart.Node
	for _, n := range cfg.chart.Order {
		if cfg.active[n.Path] {
			out = append(out, n)
		}
	}
	return out
}

// ActiveLeavesString renders ActiveLeaves as a semicolon-joined path list.
func (cfg *Configuration) ActiveLeavesString() string {
	return joinPaths(cfg.ActiveLeaves())
}

// ActiveFullString renders ActiveFull as a semicolon-joined path list.
func (cfg *Configuration) ActiveFullString() string {
	return joinPaths(cfg.ActiveFull())
}

func joinPaths(nodes []*chart.Node) string {
	paths := make([]string, len(nodes))
	for i, n := range nodes {
		paths[i] = n.Path
	}
	return strings.Join(paths, ";")
}

// ContainsPath reports whether query matches an active node exactly, or is a
// node-boundary prefix of one (spec §4.3, `contains_path`/`IsInState` semantics).
func (cfg *Configuration) ContainsPath(query string) bool {
	for path := range cfg.active {
		if path == query || strings.HasPrefix(path, query+".") {
			return true
		}
	}
	return false
}

// ActiveAncestorsOf returns the currently-active ancestor chain of node,
// root-first, including node itself if active.
func (cfg *Configuration) ActiveAncestorsOf(node *chart.Node) []*chart.Node {
	var out []*chart.Node
	for _, anc := range node.Ancestors() {
		if cfg.active[anc.Path] {
			out = append(out, anc)
		}
	}
	return out
}
