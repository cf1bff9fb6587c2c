package core

import (
	"reflect"
	"testing"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"4.9", "4.10", -1},
		{"4.10", "4.9", 1},
		{"25.3", "25.10", -1},
		{"4.12", "4.12", 0},
		{"4.12", "4.12.1", -1},
		{"4.x", "4.y", -1},
		{"4.1", "4.x", -1},
	}
	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSortVersions_DoesNotModifyInput(t *testing.T) {
	in := []string{"4.10", "4.9", "4.12", "4.11"}
	got := SortVersions(in)

	want := []string{"4.9", "4.10", "4.11", "4.12"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortVersions() = %v, want %v", got, want)
	}
	if in[0] != "4.10" {
		t.Errorf("input modified: %v", in)
	}
}

func TestLatestAndEarliestVersions(t *testing.T) {
	versions := []string{"24.9", "25.10", "24.6", "25.3"}

	latest, err := LatestVersions(versions, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"25.3", "25.10"}; !reflect.DeepEqual(latest, want) {
		t.Errorf("LatestVersions() = %v, want %v", latest, want)
	}

	earliest, err := EarliestVersions(versions, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"24.6"}; !reflect.DeepEqual(earliest, want) {
		t.Errorf("EarliestVersions() = %v, want %v", earliest, want)
	}

	all, _ := LatestVersions(versions[:1], 5)
	if want := []string{"24.9"}; !reflect.DeepEqual(all, want) {
		t.Errorf("LatestVersions() with short input = %v, want %v", all, want)
	}
}

func TestLatestVersions_RejectsNonPositiveCount(t *testing.T) {
	if _, err := LatestVersions([]string{"1.0"}, 0); err == nil {
		t.Error("expected error for n=0")
	}
	if _, err := EarliestVersions([]string{"1.0"}, -1); err == nil {
		t.Error("expected error for n=-1")
	}
}

func TestMaxVersion(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"4.18.9", "4.18.10", "4.18.10"},
		{"25.3.0", "25.3.0", "25.3.0"},
		{"bad", "1.2.3", "1.2.3"},
		{"1.2.3", "bad", "1.2.3"},
	}
	for _, tt := range tests {
		if got := MaxVersion(tt.a, tt.b); got != tt.want {
			t.Errorf("MaxVersion(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsExactVersion(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"4.14.1", true},
		{"23.9.0", true},
		{"25.3.0 (bundle)", true},
		{"4.14", false},
		{"master", false},
		{"4.14-x", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsExactVersion(tt.in); got != tt.want {
			t.Errorf("IsExactVersion(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMinorOf(t *testing.T) {
	tests := map[string]string{
		"4.19.7":          "4.19",
		"25.10.0 (extra)": "25.10",
		"master":          "master",
	}
	for in, want := range tests {
		if got := MinorOf(in); got != want {
			t.Errorf("MinorOf(%q) = %q, want %q", in, got, want)
		}
	}
}
