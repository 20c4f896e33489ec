package formsaver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Trace records which layers define a settings path.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance details one layer's contribution to a traced path.
type Provenance struct {
	Scope Scope  `json:"scope"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Winner returns the strongest layer that defines the path.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace for logs and the CLI.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON parses a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Trace resolves path (dot separated JSON field names, e.g. "debounce")
// against every layer. Null values count as not set.
func (r *Resolved[T]) Trace(path string) (Trace, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Trace{}, fmt.Errorf("formsaver: trace path must not be empty")
	}
	trace := Trace{Path: path}
	if r == nil {
		return trace, nil
	}
	segments := strings.Split(path, ".")
	for _, layer := range r.layers {
		doc, err := jsonDocument(layer.Snapshot)
		if err != nil {
			return Trace{}, fmt.Errorf("formsaver: trace %s in %s: %w", path, layer.Scope.Name, err)
		}
		value, found := lookupPath(doc, segments)
		trace.Layers = append(trace.Layers, Provenance{
			Scope: layer.Scope,
			Path:  path,
			Value: value,
			Found: found,
		})
	}
	return trace, nil
}

func jsonDocument(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func lookupPath(doc any, segments []string) (any, bool) {
	current := doc
	for _, segment := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}
