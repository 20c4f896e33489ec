package formsaver

import (
	"strings"

	"github.com/goliatone/go-formsaver/pkg/form"
)

// RootPath addresses the root control in Meta.
const RootPath = "$root"

func metaPath(segments []string) string {
	if len(segments) == 0 {
		return RootPath
	}
	return strings.Join(segments, ".")
}

// CollectMeta flattens the dirty/touched flags of ctrl and every descendant
// into a path keyed mapping.
func CollectMeta(ctrl form.Control) Meta {
	out := Meta{}
	if ctrl == nil {
		return out
	}
	collectMeta(ctrl, nil, out)
	return out
}

func collectMeta(ctrl form.Control, path []string, out Meta) {
	out[metaPath(path)] = MetaEntry{Dirty: ctrl.Dirty(), Touched: ctrl.Touched()}
	switch ctrl.Kind() {
	case form.KindGroup, form.KindArray:
		for _, child := range ctrl.Children() {
			if child.Control == nil {
				continue
			}
			collectMeta(child.Control, appendSegment(path, child.Name), out)
		}
	case form.KindLeaf:
	}
}

// ApplyMeta sets the flags recorded in meta on the matching controls. Flags
// change on the addressed node only; controls without an entry keep their
// current state, and entries without a matching control are ignored.
func ApplyMeta(ctrl form.Control, meta Meta) {
	if ctrl == nil || len(meta) == 0 {
		return
	}
	applyMeta(ctrl, meta, nil)
}

func applyMeta(ctrl form.Control, meta Meta, path []string) {
	if entry, ok := meta[metaPath(path)]; ok {
		ctrl.SetDirty(entry.Dirty)
		ctrl.SetTouched(entry.Touched)
	}
	switch ctrl.Kind() {
	case form.KindGroup, form.KindArray:
		for _, child := range ctrl.Children() {
			if child.Control == nil {
				continue
			}
			applyMeta(child.Control, meta, appendSegment(path, child.Name))
		}
	case form.KindLeaf:
	}
}

func appendSegment(path []string, segment string) []string {
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return append(next, segment)
}
