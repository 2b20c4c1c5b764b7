package applog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	Error("store.remote", errors.New("not found"), "op", "deleteBookmark", "title", "two words")

	line := buf.String()
	for _, want := range []string{" ERROR store.remote", `err="not found"`, "op=deleteBookmark", `title="two words"`} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestNoOutputIsNoop(t *testing.T) {
	SetOutput(nil)
	Info("nothing", "k", "v")
}

func TestQuoteTruncates(t *testing.T) {
	long := strings.Repeat("x", maxValueLen+10)
	got := quote(long)
	if !strings.HasSuffix(got, truncSuffix) {
		t.Errorf("quote did not truncate: %q", got)
	}
}

func TestInitCreatesFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("test.event", "n", 1)
	Close()

	data, err := os.ReadFile(filepath.Join(dir, logName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "test.event n=1") {
		t.Errorf("log file = %q", data)
	}
}
