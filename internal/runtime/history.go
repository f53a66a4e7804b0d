package runtime

import (
	"strings"
	"sync"

	"github.com/harelstate/statecraft/internal/chart"
)

// History is the per-machine History Record store (spec §3). Grounded on
// teacher `internal/core/historymanager.go`'s shallow/deep split, but the
// teacher's deep-history recording is an admitted stub ("Simplified: treat
// activeChild as single leaf") — this completes it to record the full active
// leaf set under the parent's subtree, not just one path.
type History struct {
	mu      sync.RWMutex
	shallow map[string]string   // history node path -> recorded direct child path of its parent
	deep    map[string][]string // history node path -> recorded active leaf paths under the parent subtree
}

// NewHistory creates an empty History store.
func NewHistory() *History {
	return &History{
		shallow: make(map[string]string),
		deep:    make(map[string][]string),
	}
}

// Record stores the active descendants of parent at the moment it is exited,
// for every history child of parent. activeLeafPaths is the set of active
// atomic/final leaf paths under parent immediately before exit.
func (h *History) Record(parent *chart.Node, activeLeafPaths []string) {
	if len(activeLeafPaths) == 0 {
		return
	}
	for _, child := range parent.Children {
		if child.Kind != chart.History {
			continue
		}
		h.mu.Lock()
		switch child.HistoryKind {
		case chart.Deep:
			cp := make([]string, len(activeLeafPaths))
			copy(cp, activeLeafPaths)
			h.deep[child.Path] = cp
		default: // Shallow
			h.shallow[child.Path] = directChild(parent, activeLeafPaths)
		}
		h.mu.Unlock()
	}
}

// directChild returns the path of parent's immediate child that is an
// ancestor of (or equal to) one of the given active leaf paths.
func directChild(parent *chart.Node, activeLeafPaths []string) string {
	for _, c := range parent.Children {
		for _, leaf := range activeLeafPaths {
			if leaf == c.Path || strings.HasPrefix(leaf, c.Path+".") {
				return c.Path
			}
		}
	}
	return ""
}

// Restore returns the recorded entry path(s) for a history node, if any were
// ever recorded. Shallow returns the single remembered child path; deep
// returns the full remembered leaf set. The caller resolves each returned path
// down to a leaf via the normal initial-state descent when the path names a
// compound/parallel node (shallow history never descended further at record
// time, so the remembered child is not itself a leaf).
func (h *History) Restore(historyNodePath string, kind chart.HistoryKind) ([]string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if kind == chart.Deep {
		paths, ok := h.deep[historyNodePath]
		if !ok || len(paths) == 0 {
			return nil, false
		}
		out := make([]string, len(paths))
		copy(out, paths)
		return out, true
	}
	path, ok := h.shallow[historyNodePath]
	if !ok || path == "" {
		return nil, false
	}
	return []string{path}, true
}

// Clear removes every recorded history entry (spec §8, RESET invariant:
// "history records are empty").
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shallow = make(map[string]string)
	h.deep = make(map[string][]string)
}
