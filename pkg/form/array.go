package form

import (
	"errors"
	"fmt"
	"strconv"
)

// Array is a composite control with ordered children. Its value is a []any.
type Array struct {
	node
	controls []Control
}

// NewArray creates an array adopting controls in order.
func NewArray(controls ...Control) *Array {
	a := &Array{}
	for _, control := range controls {
		if control == nil {
			continue
		}
		a.controls = append(a.controls, control)
		adopt(a, control)
	}
	return a
}

func (a *Array) Kind() Kind { return KindArray }

// Len returns the number of children.
func (a *Array) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.controls)
}

// At returns the child at index i, or nil when out of range.
func (a *Array) At(i int) Control {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.controls) {
		return nil
	}
	return a.controls[i]
}

// Push appends control and notifies listeners.
func (a *Array) Push(control Control) {
	if control == nil {
		return
	}
	a.mu.Lock()
	a.controls = append(a.controls, control)
	a.mu.Unlock()
	adopt(a, control)
	a.afterUpdate(a, updateConfig{})
}

// RemoveAt drops the child at index i and notifies listeners.
func (a *Array) RemoveAt(i int) {
	a.mu.Lock()
	if i < 0 || i >= len(a.controls) {
		a.mu.Unlock()
		return
	}
	a.controls = append(a.controls[:i:i], a.controls[i+1:]...)
	a.mu.Unlock()
	a.afterUpdate(a, updateConfig{})
}

func (a *Array) Children() []Child {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Child, len(a.controls))
	for i, control := range a.controls {
		out[i] = Child{Name: strconv.Itoa(i), Control: control}
	}
	return out
}

func (a *Array) Value() any {
	children := a.Children()
	out := make([]any, len(children))
	for i, child := range children {
		out[i] = child.Control.Value()
	}
	return out
}

// Patch updates the leading children covered by value; extra values are
// ignored and missing ones leave children untouched. Elements with the wrong
// shape are skipped.
func (a *Array) Patch(value any, opts ...UpdateOption) error {
	cfg := applyUpdateOptions(opts)
	values, ok := value.([]any)
	if !ok {
		return fmt.Errorf("%w: array expects a list, got %T", ErrShape, value)
	}
	for i, child := range a.Children() {
		if i >= len(values) {
			break
		}
		if err := child.Control.Patch(values[i], cfg.childOptions()...); err != nil {
			if errors.Is(err, ErrShape) {
				continue
			}
			return fmt.Errorf("form: patch index %d: %w", i, err)
		}
	}
	a.afterUpdate(a, cfg)
	return nil
}

// Set requires exactly one value per child.
func (a *Array) Set(value any, opts ...UpdateOption) error {
	cfg := applyUpdateOptions(opts)
	values, ok := value.([]any)
	if !ok {
		return fmt.Errorf("%w: array expects a list, got %T", ErrShape, value)
	}
	children := a.Children()
	if len(values) != len(children) {
		return fmt.Errorf("%w: array has %d controls, got %d values", ErrShape, len(children), len(values))
	}
	for i, child := range children {
		if err := child.Control.Set(values[i], cfg.childOptions()...); err != nil {
			return fmt.Errorf("form: set index %d: %w", i, err)
		}
	}
	a.afterUpdate(a, cfg)
	return nil
}

func (a *Array) childChanged(cfg updateConfig) {
	a.afterUpdate(a, cfg)
}
