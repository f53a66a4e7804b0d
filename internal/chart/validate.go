package chart

import "fmt"

// Validate checks structural invariants of the chart: every compound/parallel
// node has a well-formed initial/children set, atomic/final nodes carry no
// children, history nodes carry no children of their own (restored at runtime,
// spec §3), and every transition target resolves to a known node.
func (c *Chart) Validate() error {
	if c.Root == nil {
		return fmt.Errorf("%w: chart has no root", ErrResolution)
	}
	for _, n := range c.Order {
		if err := validateNode(n); err != nil {
			return err
		}
		for _, t := range n.Transitions {
			for _, tgt := range t.Targets {
				if _, ok := c.ByPath[tgt]; !ok {
					return fmt.Errorf("%w: node %q transition on %q targets unknown path %q", ErrResolution, n.Path, t.Event, tgt)
				}
			}
		}
		for _, a := range n.After {
			for _, tgt := range a.Transition.Targets {
				if _, ok := c.ByPath[tgt]; !ok {
					return fmt.Errorf("%w: node %q after-transition targets unknown path %q", ErrResolution, n.Path, tgt)
				}
			}
		}
	}
	return nil
}

func validateNode(n *Node) error {
	switch n.Kind {
	case Atomic, Final:
		if len(n.Children) > 0 {
			return fmt.Errorf("%w: %s state %q cannot have children", ErrResolution, n.Kind, n.Path)
		}
	case Compound:
		if len(n.Children) == 0 {
			return fmt.Errorf("%w: compound state %q requires children", ErrResolution, n.Path)
		}
		if n.Initial == "" {
			return fmt.Errorf("%w: compound state %q requires an initial child", ErrResolution, n.Path)
		}
		found := false
		for _, ch := range n.Children {
			if ch.ID == n.Initial {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: initial child %q not found in %q", ErrResolution, n.Initial, n.Path)
		}
	case Parallel:
		if len(n.Children) < 1 {
			return fmt.Errorf("%w: parallel state %q requires at least one region", ErrResolution, n.Path)
		}
	case History:
		if len(n.Children) > 0 {
			return fmt.Errorf("%w: history state %q cannot have declared children", ErrResolution, n.Path)
		}
		if n.Parent == nil {
			return fmt.Errorf("%w: history state %q must have a parent", ErrResolution, n.Path)
		}
	default:
		return fmt.Errorf("%w: unknown state kind %q for %q", ErrResolution, n.Kind, n.Path)
	}
	return nil
}
