package formsaver

import (
	"errors"
	"testing"
	"time"
)

func TestNewLayerClonesSnapshot(t *testing.T) {
	key := "original"
	snapshot := Settings{Key: &key}

	layer := NewLayer(NewScope("call", PriorityCall), snapshot)
	key = "mutated"

	if got := layer.Snapshot.KeyValue(); got != "original" {
		t.Fatalf("expected layer snapshot to stay %q, got %q", "original", got)
	}
}

func TestNewStackOrdersAndValidates(t *testing.T) {
	call := NewLayer(NewScope("call", PriorityCall), Settings{})
	defaults := NewLayer(NewScope("defaults", PriorityDefaults), Settings{})
	builtin := NewLayer(NewScope("builtin", PriorityBuiltin, WithScopeLabel("Built-in")), BuiltinSettings())

	stack, err := NewStack(builtin, call, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	layers := stack.Layers()
	for i, want := range []string{"call", "defaults", "builtin"} {
		if layers[i].Scope.Name != want {
			t.Fatalf("expected layer %d to be %q, got %q", i, want, layers[i].Scope.Name)
		}
	}
	if layers[2].Scope.Label != "Built-in" {
		t.Fatalf("expected label kept, got %q", layers[2].Scope.Label)
	}

	cases := []struct {
		name   string
		layers []Layer[Settings]
		want   error
	}{
		{"missing name", []Layer[Settings]{NewLayer(NewScope("", 1), Settings{})}, ErrScopeNameRequired},
		{"duplicate name", []Layer[Settings]{call, NewLayer(NewScope("call", 1), Settings{})}, ErrDuplicateScopeName},
		{"duplicate priority", []Layer[Settings]{call, NewLayer(NewScope("other", PriorityCall), Settings{})}, ErrPriorityOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewStack(tc.layers...); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStackMergeStrongestWins(t *testing.T) {
	stack, err := NewStack(
		NewLayer(NewScope("call", PriorityCall), Settings{Debounce: DurationOf(time.Second)}),
		NewLayer(NewScope("defaults", PriorityDefaults), Settings{Debounce: DurationOf(time.Minute), ClearOnSubmit: Bool(true)}),
		NewLayer(NewScope("builtin", PriorityBuiltin), BuiltinSettings()),
	)
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	resolved, err := stack.Merge()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got := resolved.Value.DebounceOrDefault(); got != time.Second {
		t.Fatalf("expected call debounce, got %v", got)
	}
	if !resolved.Value.clearOnSubmit() {
		t.Fatalf("expected clearOnSubmit from defaults")
	}
	if resolved.Value.autoKey() {
		t.Fatalf("expected builtin autoKey false")
	}
	if len(resolved.Layers()) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(resolved.Layers()))
	}
}

func TestStackMergeEmpty(t *testing.T) {
	stack, err := NewStack[Settings]()
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	if _, err := stack.Merge(); !errors.Is(err, ErrEmptyStack) {
		t.Fatalf("expected ErrEmptyStack, got %v", err)
	}
}
