// Package form provides the control tree consumed by the form saver: leaf
// fields, keyed groups and indexed arrays, each carrying a value, own-node
// dirty/touched flags and a change notification stream.
//
// A node is one of three variants identified by Kind:
//
//	KindLeaf  -> *Field  (single value)
//	KindGroup -> *Group  (named children, value is map[string]any)
//	KindArray -> *Array  (ordered children, value is []any)
//
// Changes to a child bubble up to its ancestors unless OnlySelf is requested,
// and listeners are only notified when the update is not Silent. Values are
// expected to be JSON-native (string, float64, bool, nil, map[string]any,
// []any) so they survive persistence unchanged.
package form

import (
	"errors"
	"sync"
)

// ErrShape reports a value that does not fit the structure of a control.
var ErrShape = errors.New("form: value does not match control shape")

// Kind tags the variant of a control.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindGroup
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindGroup:
		return "group"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Listener receives the new value of a control after each notifying update.
type Listener func(value any)

// Child names one direct descendant. Name is the group key for group children
// and the decimal index for array children.
type Child struct {
	Name    string
	Control Control
}

// Control is the contract the form saver needs from a form node.
type Control interface {
	Kind() Kind
	Value() any
	Dirty() bool
	Touched() bool
	// SetDirty and SetTouched change this node only; they never cascade.
	SetDirty(dirty bool)
	SetTouched(touched bool)
	// Children returns direct descendants in a stable order. Leaves return nil.
	Children() []Child
	// Patch applies whatever part of value overlaps the control structure.
	Patch(value any, opts ...UpdateOption) error
	// Set replaces the whole value and fails when the shape does not match.
	Set(value any, opts ...UpdateOption) error
	// Subscribe registers fn for value changes. The returned func cancels the
	// subscription and is safe to call more than once.
	Subscribe(fn Listener) (cancel func())
}

// UpdateOption configures how Patch and Set propagate.
type UpdateOption func(*updateConfig)

type updateConfig struct {
	silent   bool
	onlySelf bool
}

// Silent suppresses change notifications for the update.
func Silent() UpdateOption {
	return func(cfg *updateConfig) {
		cfg.silent = true
	}
}

// OnlySelf stops the update from bubbling to ancestors.
func OnlySelf() UpdateOption {
	return func(cfg *updateConfig) {
		cfg.onlySelf = true
	}
}

func applyUpdateOptions(opts []UpdateOption) updateConfig {
	cfg := updateConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// childOptions are the options a composite hands to its children: children
// never bubble on their own, the composite notifies ancestors once.
func (cfg updateConfig) childOptions() []UpdateOption {
	opts := []UpdateOption{OnlySelf()}
	if cfg.silent {
		opts = append(opts, Silent())
	}
	return opts
}

// parentNode is implemented by composites that adopt children.
type parentNode interface {
	childChanged(cfg updateConfig)
	markDirtyUp()
	markTouchedUp()
}

type adoptable interface {
	setParent(p parentNode)
}

// node holds the state shared by every control variant.
type node struct {
	mu        sync.RWMutex
	dirty     bool
	touched   bool
	parent    parentNode
	listeners map[uint64]Listener
	nextID    uint64
}

func (n *node) Dirty() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dirty
}

func (n *node) Touched() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.touched
}

func (n *node) SetDirty(dirty bool) {
	n.mu.Lock()
	n.dirty = dirty
	n.mu.Unlock()
}

func (n *node) SetTouched(touched bool) {
	n.mu.Lock()
	n.touched = touched
	n.mu.Unlock()
}

func (n *node) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	n.mu.Lock()
	if n.listeners == nil {
		n.listeners = map[uint64]Listener{}
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

func (n *node) setParent(p parentNode) {
	n.mu.Lock()
	n.parent = p
	n.mu.Unlock()
}

func (n *node) getParent() parentNode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

func (n *node) emit(value any) {
	n.mu.RLock()
	listeners := make([]Listener, 0, len(n.listeners))
	for _, fn := range n.listeners {
		listeners = append(listeners, fn)
	}
	n.mu.RUnlock()
	for _, fn := range listeners {
		fn(value)
	}
}

// afterUpdate notifies listeners of self and bubbles to the parent.
func (n *node) afterUpdate(self Control, cfg updateConfig) {
	if !cfg.silent {
		n.emit(self.Value())
	}
	if cfg.onlySelf {
		return
	}
	if p := n.getParent(); p != nil {
		p.childChanged(updateConfig{silent: cfg.silent})
	}
}

func (n *node) markDirtyUp() {
	n.SetDirty(true)
	if p := n.getParent(); p != nil {
		p.markDirtyUp()
	}
}

func (n *node) markTouchedUp() {
	n.SetTouched(true)
	if p := n.getParent(); p != nil {
		p.markTouchedUp()
	}
}

func adopt(parent parentNode, child Control) {
	if a, ok := child.(adoptable); ok {
		a.setParent(parent)
	}
}
