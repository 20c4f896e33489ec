package form

// Field is a leaf control holding a single value.
type Field struct {
	node
	value any
}

// NewField creates a pristine, untouched leaf holding initial.
func NewField(initial any) *Field {
	return &Field{value: initial}
}

func (f *Field) Kind() Kind { return KindLeaf }

func (f *Field) Value() any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

func (f *Field) Children() []Child { return nil }

// Patch on a leaf is the same as Set: any value fits.
func (f *Field) Patch(value any, opts ...UpdateOption) error {
	return f.Set(value, opts...)
}

func (f *Field) Set(value any, opts ...UpdateOption) error {
	f.mu.Lock()
	f.value = value
	f.mu.Unlock()
	f.afterUpdate(f, applyUpdateOptions(opts))
	return nil
}

// Input simulates a user edit: the value changes, the field and its ancestors
// become dirty, and listeners are notified.
func (f *Field) Input(value any) {
	f.markDirtyUp()
	_ = f.Set(value)
}

// Blur simulates focus leaving the field: it and its ancestors become touched.
func (f *Field) Blur() {
	f.markTouchedUp()
}
