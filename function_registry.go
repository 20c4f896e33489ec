package formsaver

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from migration expressions.
type Function func(args ...any) (any, error)

var functionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FunctionRegistry holds helpers exposed to migration expressions, both by
// name and through call("name", ...). Names are case-insensitive identifiers.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name. Names must be identifiers, must not shadow the
// step variables (data, args, now, call) and must be unique.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case fn == nil:
		return fmt.Errorf("formsaver: function %q is nil", name)
	case !functionName.MatchString(key):
		return fmt.Errorf("formsaver: function name %q is not an identifier", name)
	}
	if _, reserved := reservedNames[key]; reserved {
		return fmt.Errorf("formsaver: function name %q is reserved", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("formsaver: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns an independent copy so later registrations do not reach
// compiled programs.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

func (r *FunctionRegistry) lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[strings.ToLower(name)]
	return fn, ok
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("formsaver: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// bound returns a closure calling name, for engines that bind functions
// directly.
func (r *FunctionRegistry) bound(name string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}
