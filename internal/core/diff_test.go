package core

import (
	"reflect"
	"testing"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

func TestDiff_ChangedLeafInNestedNode(t *testing.T) {
	older := models.Node{"ocp": models.Node{"4.12": models.Leaf("4.12.1")}}
	newer := models.Node{"ocp": models.Node{"4.12": models.Leaf("4.12.2")}}

	got := Diff(older, newer)
	want := models.Node{"ocp": models.Node{"4.12": models.Leaf("4.12.2")}}
	if !models.EqualValues(got, want) {
		t.Errorf("Diff() = %v, want %v", got, want)
	}
}

func TestDiff_UnchangedTreeIsEmpty(t *testing.T) {
	tree := models.DefaultSnapshotLayout().NewSnapshot("sha256:abc",
		map[string]string{"25.3": "25.3.4"},
		map[string]string{"4.18": "4.18.9"})

	if got := Diff(tree, tree.Clone()); len(got) != 0 {
		t.Errorf("Diff(x, x) = %v, want empty", got)
	}
}

func TestDiff_NewKeysAreReported(t *testing.T) {
	older := models.Node{"gpu-operator": models.Node{"25.3": models.Leaf("25.3.4")}}
	newer := models.Node{
		"gpu-main-latest": models.Leaf("sha256:new"),
		"gpu-operator": models.Node{
			"25.3":  models.Leaf("25.3.4"),
			"25.10": models.Leaf("25.10.0"),
		},
	}

	got := Diff(older, newer)
	want := models.Node{
		"gpu-main-latest": models.Leaf("sha256:new"),
		"gpu-operator":    models.Node{"25.10": models.Leaf("25.10.0")},
	}
	if !models.EqualValues(got, want) {
		t.Errorf("Diff() = %v, want %v", got, want)
	}
}

func TestDiff_DeletedKeysAreNotReported(t *testing.T) {
	older := models.Node{
		"ocp":  models.Node{"4.12": models.Leaf("4.12.1"), "4.13": models.Leaf("4.13.5")},
		"gone": models.Leaf("x"),
	}
	newer := models.Node{"ocp": models.Node{"4.13": models.Leaf("4.13.5")}}

	if got := Diff(older, newer); len(got) != 0 {
		t.Errorf("Diff() = %v, want empty", got)
	}
}

func TestDiff_ShapeChangeReportsWholeValue(t *testing.T) {
	tests := []struct {
		name  string
		older models.Node
		newer models.Node
		want  models.Node
	}{
		{
			name:  "leaf replaced by node",
			older: models.Node{"k": models.Leaf("1")},
			newer: models.Node{"k": models.Node{"a": models.Leaf("2")}},
			want:  models.Node{"k": models.Node{"a": models.Leaf("2")}},
		},
		{
			name:  "node replaced by leaf",
			older: models.Node{"k": models.Node{"a": models.Leaf("2")}},
			newer: models.Node{"k": models.Leaf("1")},
			want:  models.Node{"k": models.Leaf("1")},
		},
		{
			name:  "leaf replaced by empty node",
			older: models.Node{"k": models.Leaf("1")},
			newer: models.Node{"k": models.Node{}},
			want:  models.Node{"k": models.Node{}},
		},
		{
			name:  "new empty node is not a change",
			older: models.Node{},
			newer: models.Node{"k": models.Node{}},
			want:  models.Node{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.older, tt.newer)
			if !models.EqualValues(got, tt.want) {
				t.Errorf("Diff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiff_NilOlderReportsEverything(t *testing.T) {
	newer := models.Node{"ocp": models.Node{"4.18": models.Leaf("4.18.1")}}
	if got := Diff(nil, newer); !models.EqualValues(got, newer) {
		t.Errorf("Diff(nil, newer) = %v, want %v", got, newer)
	}
}

func TestDiff_DoesNotAliasInput(t *testing.T) {
	older := models.Node{"k": models.Leaf("1")}
	newer := models.Node{"k": models.Node{"a": models.Leaf("2")}}

	got := Diff(older, newer)
	sub, _ := got.NodeAt("k")
	sub["a"] = models.Leaf("mutated")

	if v, _ := newer["k"].(models.Node).LeafAt("a"); v != "2" {
		t.Errorf("input mutated through diff: got %q, want %q", v, "2")
	}
}

func TestChanges_FlattensInKeyOrder(t *testing.T) {
	older := models.Node{
		"gpu-operator": models.Node{"25.3": models.Leaf("25.3.3")},
		"ocp":          models.Node{"4.18": models.Leaf("4.18.1")},
	}
	diff := models.Node{
		"gpu-main-latest": models.Leaf("sha256:b"),
		"gpu-operator":    models.Node{"25.3": models.Leaf("25.3.4")},
		"ocp":             models.Node{"4.19": models.Leaf("4.19.0")},
	}

	got := Changes(older, diff)
	want := []Change{
		{Path: []string{"gpu-main-latest"}, OldValue: "", NewValue: "sha256:b"},
		{Path: []string{"gpu-operator", "25.3"}, OldValue: "25.3.3", NewValue: "25.3.4"},
		{Path: []string{"ocp", "4.19"}, OldValue: "", NewValue: "4.19.0"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Changes() = %+v, want %+v", got, want)
	}
}
