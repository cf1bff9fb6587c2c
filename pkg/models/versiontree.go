package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Value is one position in a version snapshot. It is either a Leaf holding a
// version string or a Node holding further named values.
type Value interface {
	isValue()
}

// Leaf is a single version string.
type Leaf string

// Node maps names to nested values. A whole snapshot is a Node.
type Node map[string]Value

func (Leaf) isValue() {}
func (Node) isValue() {}

// Keys returns the node's keys in lexicographic order.
func (n Node) Keys() []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LeafAt returns the leaf stored under key, if key holds a leaf.
func (n Node) LeafAt(key string) (string, bool) {
	v, ok := n[key].(Leaf)
	return string(v), ok
}

// NodeAt returns the node stored under key, if key holds a node.
func (n Node) NodeAt(key string) (Node, bool) {
	v, ok := n[key].(Node)
	return v, ok
}

// Strings flattens a node of leaves into a plain map. Nested nodes are skipped.
func (n Node) Strings() map[string]string {
	out := make(map[string]string, len(n))
	for k, v := range n {
		if leaf, ok := v.(Leaf); ok {
			out[k] = string(leaf)
		}
	}
	return out
}

// NodeFromStrings builds a node of leaves from a plain map.
func NodeFromStrings(m map[string]string) Node {
	n := make(Node, len(m))
	for k, v := range m {
		n[k] = Leaf(v)
	}
	return n
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := make(Node, len(n))
	for k, v := range n {
		switch val := v.(type) {
		case Leaf:
			out[k] = val
		case Node:
			out[k] = val.Clone()
		}
	}
	return out
}

// EqualValues reports whether two values have the same shape and leaves.
func EqualValues(a, b Value) bool {
	switch av := a.(type) {
	case Leaf:
		bv, ok := b.(Leaf)
		return ok && av == bv
	case Node:
		bv, ok := b.(Node)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !EqualValues(v, other) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

// UnmarshalJSON decodes a JSON object whose values are strings or objects.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding version tree: %w", err)
	}
	out := make(Node, len(raw))
	for k, msg := range raw {
		v, err := decodeValue(msg)
		if err != nil {
			return fmt.Errorf("decoding version tree key %q: %w", k, err)
		}
		out[k] = v
	}
	*n = out
	return nil
}

func decodeValue(msg json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '{':
		var child Node
		if err := child.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}
		return child, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return Leaf(s), nil
	default:
		return nil, fmt.Errorf("unsupported value %s: want string or object", string(trimmed))
	}
}

// SnapshotLayout names the three top-level entries of a version snapshot.
type SnapshotLayout struct {
	BundleKey    string `yaml:"bundle_key" mapstructure:"bundle_key"`
	ComponentKey string `yaml:"component_key" mapstructure:"component_key"`
	PlatformKey  string `yaml:"platform_key" mapstructure:"platform_key"`
}

// DefaultSnapshotLayout returns the layout used by the GPU operator snapshot.
func DefaultSnapshotLayout() SnapshotLayout {
	return SnapshotLayout{
		BundleKey:    "gpu-main-latest",
		ComponentKey: "gpu-operator",
		PlatformKey:  "ocp",
	}
}

// NewSnapshot assembles a snapshot from its three parts.
func (l SnapshotLayout) NewSnapshot(bundle string, components, platforms map[string]string) Node {
	return Node{
		l.BundleKey:    Leaf(bundle),
		l.ComponentKey: NodeFromStrings(components),
		l.PlatformKey:  NodeFromStrings(platforms),
	}
}
