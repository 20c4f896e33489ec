package form

import (
	"errors"
	"reflect"
	"testing"
)

func newProfile() (*Group, *Field, *Array) {
	email := NewField("")
	tags := NewArray(NewField("a"), NewField("b"))
	root := NewGroup(map[string]Control{
		"email": email,
		"tags":  tags,
	})
	return root, email, tags
}

func TestGroupValueReflectsChildren(t *testing.T) {
	root, email, _ := newProfile()
	email.Input("me@example.com")

	want := map[string]any{"email": "me@example.com", "tags": []any{"a", "b"}}
	if got := root.Value(); !reflect.DeepEqual(got, want) {
		t.Fatalf("value mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestInputAndBlurCascadeToAncestors(t *testing.T) {
	root, _, tags := newProfile()
	leaf := tags.At(1).(*Field)

	leaf.Input("z")
	leaf.Blur()

	for name, c := range map[string]Control{"root": root, "tags": tags, "leaf": leaf} {
		if !c.Dirty() || !c.Touched() {
			t.Fatalf("expected %s to be dirty and touched", name)
		}
	}
	if tags.At(0).Dirty() {
		t.Fatalf("sibling must stay pristine")
	}
}

func TestSetDirtyIsOwnNodeOnly(t *testing.T) {
	root, email, _ := newProfile()
	email.SetDirty(true)
	email.SetTouched(true)
	if root.Dirty() || root.Touched() {
		t.Fatalf("flags must not cascade")
	}
}

func TestChangesBubbleToRootListeners(t *testing.T) {
	root, email, _ := newProfile()
	var seen []any
	cancel := root.Subscribe(func(v any) { seen = append(seen, v) })

	email.Input("x")
	if len(seen) != 1 {
		t.Fatalf("expected one notification, got %d", len(seen))
	}
	cancel()
	cancel()
	email.Input("y")
	if len(seen) != 1 {
		t.Fatalf("expected no notification after cancel, got %d", len(seen))
	}
}

func TestSilentPatchDoesNotNotify(t *testing.T) {
	root, email, _ := newProfile()
	calls := 0
	root.Subscribe(func(any) { calls++ })
	email.Subscribe(func(any) { calls++ })

	if err := root.Patch(map[string]any{"email": "silent"}, Silent()); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no notifications, got %d", calls)
	}
	if email.Value() != "silent" {
		t.Fatalf("expected patched value, got %v", email.Value())
	}
}

func TestPatchIsTolerant(t *testing.T) {
	root, email, tags := newProfile()
	err := root.Patch(map[string]any{
		"email":   "p@example.com",
		"unknown": true,
		"tags":    []any{"only-first"},
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if email.Value() != "p@example.com" {
		t.Fatalf("email not patched: %v", email.Value())
	}
	if got := tags.Value(); !reflect.DeepEqual(got, []any{"only-first", "b"}) {
		t.Fatalf("tags mismatch: %#v", got)
	}
}

func TestPatchRejectsWrongContainer(t *testing.T) {
	root, _, _ := newProfile()
	if err := root.Patch("nope"); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
	if err := (NewArray(NewField(1))).Patch(map[string]any{}); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape for array, got %v", err)
	}
}

func TestPatchSkipsMismatchedChildren(t *testing.T) {
	root, email, tags := newProfile()
	address := NewGroup(map[string]Control{"city": NewField("Lisbon")})
	root.Add("address", address)
	nested := NewArray(NewGroup(map[string]Control{"n": NewField(0)}), NewGroup(map[string]Control{"n": NewField(0)}))
	root.Add("items", nested)

	err := root.Patch(map[string]any{
		"email":   "p@example.com",
		"tags":    "nope",
		"address": "oops",
		"items":   []any{"bad", map[string]any{"n": 2.0}},
	})
	if err != nil {
		t.Fatalf("expected mismatched children to be skipped, got %v", err)
	}
	if email.Value() != "p@example.com" {
		t.Fatalf("sibling not patched: %v", email.Value())
	}
	if got := tags.Value(); !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Fatalf("tags should be untouched, got %#v", got)
	}
	if got := address.Value(); !reflect.DeepEqual(got, map[string]any{"city": "Lisbon"}) {
		t.Fatalf("address should be untouched, got %#v", got)
	}
	if got := nested.Value(); !reflect.DeepEqual(got, []any{map[string]any{"n": 0}, map[string]any{"n": 2.0}}) {
		t.Fatalf("only the matching element should apply, got %#v", got)
	}
}

func TestNewGroupOrdersChildrenByName(t *testing.T) {
	root := NewGroup(map[string]Control{"b": NewField(1), "a": NewField(2)})
	root.Add("0", NewField(3))
	var names []string
	for _, child := range root.Children() {
		names = append(names, child.Name)
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "0"}) {
		t.Fatalf("unexpected child order: %v", names)
	}
}

func TestSetIsStrict(t *testing.T) {
	root, _, _ := newProfile()
	cases := []struct {
		name  string
		value any
	}{
		{name: "missing key", value: map[string]any{"email": "x"}},
		{name: "extra key", value: map[string]any{"email": "x", "tags": []any{"a", "b"}, "other": 1}},
		{name: "array length", value: map[string]any{"email": "x", "tags": []any{"a"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := root.Set(tc.value); !errors.Is(err, ErrShape) {
				t.Fatalf("expected ErrShape, got %v", err)
			}
		})
	}

	if err := root.Set(map[string]any{"email": "ok", "tags": []any{"c", "d"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestArrayPushAndRemove(t *testing.T) {
	_, _, tags := newProfile()
	notified := 0
	tags.Subscribe(func(any) { notified++ })

	tags.Push(NewField("c"))
	tags.RemoveAt(0)
	tags.RemoveAt(10)

	if got := tags.Value(); !reflect.DeepEqual(got, []any{"b", "c"}) {
		t.Fatalf("unexpected array value %#v", got)
	}
	if notified != 2 {
		t.Fatalf("expected 2 notifications, got %d", notified)
	}
	children := tags.Children()
	if children[1].Name != "1" {
		t.Fatalf("expected index names, got %q", children[1].Name)
	}
}

func TestKindString(t *testing.T) {
	if KindGroup.String() != "group" || KindArray.String() != "array" || KindLeaf.String() != "leaf" {
		t.Fatalf("unexpected kind names")
	}
}
