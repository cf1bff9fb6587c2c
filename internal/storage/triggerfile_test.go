package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteTriggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tests_to_trigger.txt")
	lines := []string{
		"/test 4.18-stable-nvidia-gpu-operator-e2e-25-3-x",
		"# WARNING: 25.3.4 is not yet published in the catalog for 4.17",
		"/test 4.12-stable-nvidia-gpu-operator-e2e-master",
	}

	if err := WriteTriggerFile(path, lines); err != nil {
		t.Fatalf("WriteTriggerFile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "# WARNING: 25.3.4 is not yet published in the catalog for 4.17\n" +
		"/test 4.12-stable-nvidia-gpu-operator-e2e-master\n" +
		"/test 4.18-stable-nvidia-gpu-operator-e2e-25-3-x\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}

	got, err := ReadTriggerFile(path)
	if err != nil {
		t.Fatalf("ReadTriggerFile() error: %v", err)
	}
	if len(got) != 3 || got[0] != "# WARNING: 25.3.4 is not yet published in the catalog for 4.17" {
		t.Errorf("ReadTriggerFile() = %v", got)
	}
}

func TestWriteTriggerFile_EmptyTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tests_to_trigger.txt")
	if err := os.WriteFile(path, []byte("/test old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteTriggerFile(path, nil); err != nil {
		t.Fatalf("WriteTriggerFile() error: %v", err)
	}
	got, err := ReadTriggerFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string(nil)) {
		t.Errorf("ReadTriggerFile() = %v, want empty", got)
	}
}
