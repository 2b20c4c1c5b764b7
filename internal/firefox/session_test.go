package firefox

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 wraps data the way Firefox writes session files.
func mozlz4(t *testing.T, original []byte) []byte {
	t.Helper()
	dst := make([]byte, lz4.CompressBlockBound(len(original)))
	n, err := lz4.CompressBlock(original, dst, nil)
	if err != nil {
		t.Fatalf("lz4.CompressBlock failed: %v", err)
	}
	sizeBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBytes, uint32(len(original)))

	payload := make([]byte, 0, 12+n)
	payload = append(payload, mozLz4Magic...)
	payload = append(payload, sizeBytes...)
	return append(payload, dst[:n]...)
}

func TestDecompressMozLz4(t *testing.T) {
	t.Run("valid mozlz4 payload", func(t *testing.T) {
		original := []byte(`{"windows":[{"tabs":[]}]}`)
		result, err := DecompressMozLz4(mozlz4(t, original))
		if err != nil {
			t.Fatalf("DecompressMozLz4 returned error: %v", err)
		}
		if string(result) != string(original) {
			t.Errorf("expected %q, got %q", string(original), string(result))
		}
	})

	t.Run("invalid header returns error", func(t *testing.T) {
		bad := []byte("BADMAGIC\x00\x00\x00\x00some data here")
		if _, err := DecompressMozLz4(bad); err == nil {
			t.Fatal("expected error for invalid header, got nil")
		}
	})

	t.Run("too short data returns error", func(t *testing.T) {
		if _, err := DecompressMozLz4([]byte("mozLz40")); err == nil {
			t.Fatal("expected error for too-short data, got nil")
		}
	})
}

const sessionJSON = `{
	"windows": [{
		"tabs": [
			{"entries": [{"url": "https://example.com", "title": "Example"}], "index": 1,
			 "image": "https://example.com/favicon.ico", "groupId": "group-1"},
			{"entries": [{"url": "https://old.com", "title": "Old"}, {"url": "https://current.com", "title": "Current"}],
			 "index": 2},
			{"entries": [{"url": "about:newtab", "title": "New Tab"}], "index": 1, "groupId": "group-2"},
			{"entries": [], "index": 0}
		],
		"groups": [
			{"id": "group-1", "name": "Work"},
			{"id": "group-2", "name": "Only internal pages"}
		]
	}, {
		"tabs": [
			{"entries": [{"url": "https://second.window", "title": "Second"}], "index": 9}
		]
	}]
}`

func TestParseSession(t *testing.T) {
	sets, err := ParseSession([]byte(sessionJSON))
	if err != nil {
		t.Fatalf("ParseSession returned error: %v", err)
	}

	assert.Equal(t, sets, []TabSet{
		{Name: "Work", Tabs: []Tab{{URL: "https://example.com", Title: "Example", Icon: "https://example.com/favicon.ico"}}},
		{Name: UngroupedName, Tabs: []Tab{
			{URL: "https://current.com", Title: "Current"},
			{URL: "https://second.window", Title: "Second"},
		}},
	})
}

func TestParseSessionInvalid(t *testing.T) {
	if _, err := ParseSession([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestReadSessionFile(t *testing.T) {
	profileDir := t.TempDir()
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	os.MkdirAll(backupDir, 0o755)

	if _, err := ReadSessionFile(profileDir); err == nil {
		t.Fatal("expected error without a session file")
	}

	os.WriteFile(filepath.Join(backupDir, "previous.jsonlz4"), mozlz4(t, []byte(sessionJSON)), 0o644)
	sets, err := ReadSessionFile(profileDir)
	if err != nil {
		t.Fatalf("ReadSessionFile: %v", err)
	}
	assert.Equal(t, len(sets), 2)
}
