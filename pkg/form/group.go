package form

import (
	"errors"
	"fmt"
	"sort"
)

// Group is a composite control with named children. Its value is a
// map[string]any keyed by child name.
type Group struct {
	node
	names    []string
	controls map[string]Control
}

// NewGroup creates a group adopting controls. Children() lists them sorted by
// name, not in map order; children added later with Add follow in insertion
// order.
func NewGroup(controls map[string]Control) *Group {
	g := &Group{controls: make(map[string]Control, len(controls))}
	names := make([]string, 0, len(controls))
	for name := range controls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g.add(name, controls[name])
	}
	return g
}

func (g *Group) Kind() Kind { return KindGroup }

// Add registers control under name, replacing any existing child, and
// notifies listeners.
func (g *Group) Add(name string, control Control) {
	if control == nil {
		return
	}
	g.add(name, control)
	g.afterUpdate(g, updateConfig{})
}

func (g *Group) add(name string, control Control) {
	g.mu.Lock()
	if _, exists := g.controls[name]; !exists {
		g.names = append(g.names, name)
	}
	g.controls[name] = control
	g.mu.Unlock()
	adopt(g, control)
}

// Get returns the child registered under name, or nil.
func (g *Group) Get(name string) Control {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.controls[name]
}

func (g *Group) Children() []Child {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Child, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, Child{Name: name, Control: g.controls[name]})
	}
	return out
}

func (g *Group) Value() any {
	children := g.Children()
	out := make(map[string]any, len(children))
	for _, child := range children {
		out[child.Name] = child.Control.Value()
	}
	return out
}

// Patch updates the children named in value and ignores unknown keys. A
// child whose value has the wrong shape is skipped so its siblings still
// apply; only a non-object value for the group itself is an error.
func (g *Group) Patch(value any, opts ...UpdateOption) error {
	cfg := applyUpdateOptions(opts)
	values, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: group expects an object, got %T", ErrShape, value)
	}
	for _, child := range g.Children() {
		v, present := values[child.Name]
		if !present {
			continue
		}
		if err := child.Control.Patch(v, cfg.childOptions()...); err != nil {
			if errors.Is(err, ErrShape) {
				continue
			}
			return fmt.Errorf("form: patch %q: %w", child.Name, err)
		}
	}
	g.afterUpdate(g, cfg)
	return nil
}

// Set requires a value for every child and no values without a child.
func (g *Group) Set(value any, opts ...UpdateOption) error {
	cfg := applyUpdateOptions(opts)
	values, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: group expects an object, got %T", ErrShape, value)
	}
	children := g.Children()
	for _, child := range children {
		if _, present := values[child.Name]; !present {
			return fmt.Errorf("%w: missing value for control %q", ErrShape, child.Name)
		}
	}
	for name := range values {
		if g.Get(name) == nil {
			return fmt.Errorf("%w: no control named %q", ErrShape, name)
		}
	}
	for _, child := range children {
		if err := child.Control.Set(values[child.Name], cfg.childOptions()...); err != nil {
			return fmt.Errorf("form: set %q: %w", child.Name, err)
		}
	}
	g.afterUpdate(g, cfg)
	return nil
}

func (g *Group) childChanged(cfg updateConfig) {
	g.afterUpdate(g, cfg)
}
