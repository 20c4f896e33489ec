package formsaver

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-formsaver/layering"
)

// Scope names a precedence bucket for settings (built-in, configured
// defaults, attach call). Higher priorities win.
type Scope struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Priority int    `json:"priority"`
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(s *Scope) {
		s.Label = label
	}
}

// NewScope builds a Scope. Validation happens when the stack is built.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	scope := Scope{Name: name, Priority: priority}
	for _, opt := range opts {
		if opt != nil {
			opt(&scope)
		}
	}
	return scope
}

// Layer pairs a scope with the snapshot it contributes.
type Layer[T any] struct {
	Scope    Scope
	Snapshot T
}

// NewLayer copies snapshot so later caller mutations do not leak in.
func NewLayer[T any](scope Scope, snapshot T) Layer[T] {
	return Layer[T]{Scope: scope, Snapshot: layering.Clone(snapshot)}
}

var (
	// ErrScopeNameRequired indicates a layer without a scope name.
	ErrScopeNameRequired = errors.New("formsaver: scope name must be provided")
	// ErrDuplicateScopeName indicates two layers share a scope name.
	ErrDuplicateScopeName = errors.New("formsaver: scope names must be unique")
	// ErrPriorityOrder indicates two layers share a priority.
	ErrPriorityOrder = errors.New("formsaver: scope priorities must be distinct")
	// ErrEmptyStack indicates Merge was called without layers.
	ErrEmptyStack = errors.New("formsaver: stack must include at least one layer")
)

// Stack holds layers ordered strongest first.
type Stack[T any] struct {
	layers []Layer[T]
}

// NewStack validates layers and sorts them by descending priority.
func NewStack[T any](layers ...Layer[T]) (*Stack[T], error) {
	seen := make(map[string]struct{}, len(layers))
	copied := make([]Layer[T], 0, len(layers))
	for _, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seen[layer.Scope.Name] = struct{}{}
		copied = append(copied, NewLayer(layer.Scope, layer.Snapshot))
	}

	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})
	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority == copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}
	return &Stack[T]{layers: copied}, nil
}

// Layers returns copies of the layers, strongest first.
func (s *Stack[T]) Layers() []Layer[T] {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]Layer[T], len(s.layers))
	for i, layer := range s.layers {
		out[i] = NewLayer(layer.Scope, layer.Snapshot)
	}
	return out
}

func (s *Stack[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge folds the layers into a Resolved value that remembers which layer
// supplied what.
func (s *Stack[T]) Merge() (*Resolved[T], error) {
	if s.Len() == 0 {
		return nil, ErrEmptyStack
	}
	snapshots := make([]T, len(s.layers))
	for i, layer := range s.layers {
		snapshots[i] = layering.Clone(layer.Snapshot)
	}
	return &Resolved[T]{
		Value:  layering.MergeLayers(snapshots...),
		layers: s.Layers(),
	}, nil
}

// Resolved is the effective value of a Stack plus the layers behind it.
type Resolved[T any] struct {
	Value  T
	layers []Layer[T]
}

// Layers returns the contributing layers, strongest first.
func (r *Resolved[T]) Layers() []Layer[T] {
	if r == nil {
		return nil
	}
	out := make([]Layer[T], len(r.layers))
	copy(out, r.layers)
	return out
}
