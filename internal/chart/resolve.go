package chart

import (
	"fmt"
	"strings"
)

// ResolveTarget resolves a raw target-path string (spec §6, "Target path syntax")
// relative to the node it is declared on, returning the absolute path.
//
//   - "."            -> internal self-target (caller should mark the transition Internal)
//   - ".child.grand"  -> relative to `from` (leading dot)
//   - "#<rootID>.a.b" -> absolute, rootID must match the chart root's ID
//   - "child"         -> sibling of `from` (bare name)
//   - "a.b"           -> descendant of `from`
func ResolveTarget(c *Chart, from *Node, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty target path", ErrResolution)
	}
	if raw == "." {
		return from.Path, nil
	}
	if strings.HasPrefix(raw, "#") {
		rest := raw[1:]
		dot := strings.Index(rest, ".")
		var rootID, sub string
		if dot < 0 {
			rootID, sub = rest, ""
		} else {
			rootID, sub = rest[:dot], rest[dot+1:]
		}
		if rootID != c.Root.ID {
			return "", fmt.Errorf("%w: absolute target root %q does not match chart root %q", ErrResolution, rootID, c.Root.ID)
		}
		if sub == "" {
			return c.Root.Path, nil
		}
		full := c.Root.Path + "." + sub
		if _, ok := c.ByPath[full]; !ok {
			return "", fmt.Errorf("%w: absolute target %q not found", ErrResolution, full)
		}
		return full, nil
	}
	if strings.HasPrefix(raw, ".") {
		full := from.Path + raw
		if _, ok := c.ByPath[full]; !ok {
			return "", fmt.Errorf("%w: relative target %q not found", ErrResolution, full)
		}
		return full, nil
	}

	// Bare name: try sibling first (descendant of from's parent), then
	// descendant of from, matching common SCXML/XState resolution order.
	if from.Parent != nil {
		candidate := from.Parent.Path + "." + raw
		if _, ok := c.ByPath[candidate]; ok {
			return candidate, nil
		}
	}
	candidate := from.Path + "." + raw
	if _, ok := c.ByPath[candidate]; ok {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: target %q not found relative to %q", ErrResolution, raw, from.Path)
}

// LeastCommonCompoundAncestor returns the scope node of a transition: the
// deepest node that is an ancestor (or equal) of both source and every target
// (spec §4.4.6).
func LeastCommonCompoundAncestor(source *Node, targets []*Node) *Node {
	lca := source
	for _, t := range targets {
		lca = pairwiseLCA(lca, t)
	}
	return lca
}

func pairwiseLCA(a, b *Node) *Node {
	ancA := a.Ancestors()
	ancB := b.Ancestors()
	var lca *Node
	minLen := len(ancA)
	if len(ancB) < minLen {
		minLen = len(ancB)
	}
	for i := 0; i < minLen; i++ {
		if ancA[i] == ancB[i] {
			lca = ancA[i]
		} else {
			break
		}
	}
	return lca
}
