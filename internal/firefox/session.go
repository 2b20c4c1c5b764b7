package firefox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	for i := range mozLz4Magic {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	size := binary.LittleEndian.Uint32(data[8:headerSize])
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

// Tab is the current page of one open tab.
type Tab struct {
	URL   string
	Title string
	Icon  string
}

// TabSet is a Firefox tab group, or the tabs that belong to none.
type TabSet struct {
	Name string
	Tabs []Tab
}

// UngroupedName names the set of tabs outside any tab group.
const UngroupedName = "Ungrouped"

var skipPrefixes = []string{"about:", "moz-extension:", "chrome:", "resource:", "view-source:"}

func importable(url string) bool {
	if strings.TrimSpace(url) == "" {
		return false
	}
	for _, p := range skipPrefixes {
		if strings.HasPrefix(url, p) {
			return false
		}
	}
	return true
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries []rawEntry `json:"entries"`
	Index   int        `json:"index"`
	Image   string     `json:"image"`
	Group   string     `json:"groupId"`
}

type rawGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rawWindow struct {
	Tabs   []rawTab   `json:"tabs"`
	Groups []rawGroup `json:"groups"`
}

type rawSession struct {
	Windows []rawWindow `json:"windows"`
}

// ParseSession turns session JSON into tab sets: named groups first in
// window order, then the ungrouped tabs of all windows. Browser-internal
// pages are left out, and so are groups left empty by that.
func ParseSession(data []byte) ([]TabSet, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	var sets []TabSet
	ungrouped := TabSet{Name: UngroupedName}

	for _, window := range raw.Windows {
		index := make(map[string]int, len(window.Groups))
		first := len(sets)
		for _, rg := range window.Groups {
			name := strings.TrimSpace(rg.Name)
			if name == "" {
				name = "Unnamed group"
			}
			index[rg.ID] = len(sets)
			sets = append(sets, TabSet{Name: name})
		}

		for _, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}
			// index is 1-based; current page is entries[index-1].
			i := rt.Index - 1
			if i < 0 || i >= len(rt.Entries) {
				i = len(rt.Entries) - 1
			}
			e := rt.Entries[i]
			if !importable(e.URL) {
				continue
			}
			tab := Tab{URL: e.URL, Title: e.Title, Icon: rt.Image}
			if gi, ok := index[rt.Group]; ok && rt.Group != "" {
				sets[gi].Tabs = append(sets[gi].Tabs, tab)
			} else {
				ungrouped.Tabs = append(ungrouped.Tabs, tab)
			}
		}

		// Drop this window's groups that ended up empty.
		kept := sets[:first]
		for _, s := range sets[first:] {
			if len(s.Tabs) > 0 {
				kept = append(kept, s)
			}
		}
		sets = kept
	}

	if len(ungrouped.Tabs) > 0 {
		sets = append(sets, ungrouped)
	}
	return sets, nil
}

// ReadSessionFile reads the newest session store of a profile directory
// and returns its tab sets.
func ReadSessionFile(profileDir string) ([]TabSet, error) {
	path := SessionFile(profileDir)
	if path == "" {
		return nil, fmt.Errorf("no session file found in %s", filepath.Join(profileDir, "sessionstore-backups"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}

	return ParseSession(decompressed)
}
