package core

import (
	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// Diff returns the entries of newer that are new or changed relative to
// older. Nested nodes are compared recursively and only reported when their
// sub-diff is non-empty. A leaf replaced by a node, or the reverse, is
// reported as the whole new value. Keys present only in older are never
// reported.
func Diff(older, newer models.Node) models.Node {
	out := models.Node{}
	for key, newVal := range newer {
		oldVal, existed := older[key]
		switch nv := newVal.(type) {
		case models.Node:
			oldNode, ok := oldVal.(models.Node)
			if existed && !ok {
				out[key] = nv.Clone()
				continue
			}
			if sub := Diff(oldNode, nv); len(sub) > 0 {
				out[key] = sub
			}
		case models.Leaf:
			if ol, ok := oldVal.(models.Leaf); !existed || !ok || ol != nv {
				out[key] = nv
			}
		}
	}
	return out
}

// Change is a single changed leaf of a diff.
type Change struct {
	Path     []string
	OldValue string
	NewValue string
}

// Changes flattens a diff into its changed leaves, depth first in key order.
// older supplies the previous values; missing ones are empty.
func Changes(older, diff models.Node) []Change {
	var out []Change
	collectChanges(older, diff, nil, &out)
	return out
}

func collectChanges(older, diff models.Node, prefix []string, out *[]Change) {
	for _, key := range diff.Keys() {
		path := append(append([]string(nil), prefix...), key)
		switch v := diff[key].(type) {
		case models.Leaf:
			old, _ := older.LeafAt(key)
			*out = append(*out, Change{Path: path, OldValue: old, NewValue: string(v)})
		case models.Node:
			oldChild, _ := older.NodeAt(key)
			collectChanges(oldChild, v, path, out)
		}
	}
}
