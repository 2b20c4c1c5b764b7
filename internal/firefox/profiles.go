package firefox

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Profile is one Firefox profile from profiles.ini.
type Profile struct {
	Name       string
	Path       string
	IsRelative bool
	IsDefault  bool
}

// sessionFiles are tried in order; recovery is rewritten while Firefox runs.
var sessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// FindFirefoxDir returns the platform-specific Firefox profile directory.
func FindFirefoxDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "linux":
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	default:
		return ""
	}
}

// iniSection is one [name] block of profiles.ini in file order.
type iniSection struct {
	name string
	keys map[string]string
}

func readINI(path string) ([]iniSection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()

	var sections []iniSection
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			sections = append(sections, iniSection{name: line[1 : len(line)-1], keys: map[string]string{}})
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || len(sections) == 0 {
			continue
		}
		sections[len(sections)-1].keys[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan profiles.ini: %w", err)
	}
	return sections, nil
}

// ParseProfilesINI reads profiles.ini and returns the profiles that have a
// session file to import from. The default is the profile an [Install...]
// section points at, or the one marked Default=1 in older files.
func ParseProfilesINI(iniPath, firefoxDir string) ([]Profile, error) {
	sections, err := readINI(iniPath)
	if err != nil {
		return nil, err
	}

	installDefaults := make(map[string]bool)
	for _, s := range sections {
		if strings.HasPrefix(s.name, "Install") && s.keys["Default"] != "" {
			installDefaults[s.keys["Default"]] = true
		}
	}

	var usable []Profile
	for _, s := range sections {
		if !strings.HasPrefix(s.name, "Profile") {
			continue
		}
		p := Profile{
			Name:       s.keys["Name"],
			Path:       s.keys["Path"],
			IsRelative: s.keys["IsRelative"] == "1",
		}
		if len(installDefaults) > 0 {
			p.IsDefault = installDefaults[p.Path]
		} else {
			p.IsDefault = s.keys["Default"] == "1"
		}
		if p.IsRelative {
			p.Path = filepath.Join(firefoxDir, p.Path)
		}
		if SessionFile(p.Path) != "" {
			usable = append(usable, p)
		}
	}
	return usable, nil
}

// SessionFile returns the session store file to read for a profile
// directory, or "" when there is none.
func SessionFile(profileDir string) string {
	for _, name := range sessionFiles {
		path := filepath.Join(profileDir, "sessionstore-backups", name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// DiscoverProfiles finds and parses Firefox profiles on this system.
func DiscoverProfiles() ([]Profile, error) {
	dir := FindFirefoxDir()
	if dir == "" {
		return nil, fmt.Errorf("could not find Firefox directory for %s", runtime.GOOS)
	}
	return ParseProfilesINI(filepath.Join(dir, "profiles.ini"), dir)
}

// PickProfile returns the profile called name, or the default profile when
// name is empty, or the first one when none is marked default.
func PickProfile(profiles []Profile, name string) (Profile, error) {
	if len(profiles) == 0 {
		return Profile{}, fmt.Errorf("no Firefox profiles with a session file")
	}
	if name != "" {
		for _, p := range profiles {
			if p.Name == name {
				return p, nil
			}
		}
		return Profile{}, fmt.Errorf("profile %q not found", name)
	}
	for _, p := range profiles {
		if p.IsDefault {
			return p, nil
		}
	}
	return profiles[0], nil
}
