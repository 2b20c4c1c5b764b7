package firefox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
)

func withSession(t *testing.T, profileDir, name string) {
	t.Helper()
	dir := filepath.Join(profileDir, "sessionstore-backups")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("dummy"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeINI(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "profiles.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseProfilesINI(t *testing.T) {
	dir := t.TempDir()
	absProfileDir := t.TempDir()
	iniPath := writeINI(t, dir, `[General]
StartWithLastProfile=1
Version=2

[Profile0]
Name=default-release
IsRelative=1
Path=abc123.default-release
Default=1

[Profile1]
Name=dev-edition
IsRelative=0
Path=`+absProfileDir+`
Default=0

[Profile2]
Name=no-session
IsRelative=1
Path=empty.profile

[Install308046B0AF4A39CB]
Default=abc123.default-release
Locked=1
`)
	withSession(t, filepath.Join(dir, "abc123.default-release"), "recovery.jsonlz4")
	withSession(t, absProfileDir, "previous.jsonlz4")

	profiles, err := ParseProfilesINI(iniPath, dir)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(profiles), 2)

	assert.Equal(t, profiles[0].Name, "default-release")
	assert.Equal(t, profiles[0].Path, filepath.Join(dir, "abc123.default-release"))
	assert.Equal(t, profiles[0].IsDefault, true)

	assert.Equal(t, profiles[1].Name, "dev-edition")
	assert.Equal(t, profiles[1].Path, absProfileDir)
	assert.Equal(t, profiles[1].IsDefault, false)
}

func TestParseProfilesINIInstallDefaultWins(t *testing.T) {
	dir := t.TempDir()
	iniPath := writeINI(t, dir, `[Profile0]
Name=old
IsRelative=1
Path=old.default
Default=1

[Profile1]
Name=new
IsRelative=1
Path=new.default-release

[InstallABC]
Default=new.default-release
`)
	withSession(t, filepath.Join(dir, "old.default"), "recovery.jsonlz4")
	withSession(t, filepath.Join(dir, "new.default-release"), "recovery.jsonlz4")

	profiles, err := ParseProfilesINI(iniPath, dir)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(profiles), 2)
	assert.Equal(t, profiles[0].IsDefault, false)
	assert.Equal(t, profiles[1].IsDefault, true)

	p, err := PickProfile(profiles, "")
	assert.Equal(t, err, nil)
	assert.Equal(t, p.Name, "new")
}

func TestParseProfilesINIMissing(t *testing.T) {
	_, err := ParseProfilesINI(filepath.Join(t.TempDir(), "profiles.ini"), "")
	assert.NotEqual(t, err, nil)
}

func TestSessionFilePrefersRecovery(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, SessionFile(dir), "")

	withSession(t, dir, "previous.jsonlz4")
	assert.Equal(t, SessionFile(dir), filepath.Join(dir, "sessionstore-backups", "previous.jsonlz4"))

	withSession(t, dir, "recovery.jsonlz4")
	assert.Equal(t, SessionFile(dir), filepath.Join(dir, "sessionstore-backups", "recovery.jsonlz4"))
}

func TestPickProfile(t *testing.T) {
	profiles := []Profile{
		{Name: "work", Path: "/p/work"},
		{Name: "home", Path: "/p/home", IsDefault: true},
	}

	p, err := PickProfile(profiles, "")
	assert.Equal(t, err, nil)
	assert.Equal(t, p.Name, "home")

	p, err = PickProfile(profiles, "work")
	assert.Equal(t, err, nil)
	assert.Equal(t, p.Name, "work")

	_, err = PickProfile(profiles, "missing")
	assert.NotEqual(t, err, nil)

	_, err = PickProfile(nil, "")
	assert.NotEqual(t, err, nil)

	p, _ = PickProfile(profiles[:1], "")
	assert.Equal(t, p.Name, "work")
}
