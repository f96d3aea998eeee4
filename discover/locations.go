package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
)

// Env holds the directories discovery looks at. Empty fields are skipped.
type Env struct {
	// AppDir is the Maya user application directory (MAYA_APP_DIR).
	AppDir string
	// InstallRoot is the Maya installation (MAYA_LOCATION).
	InstallRoot string
	// AppData is the Windows roaming profile directory (APPDATA).
	AppData string
}

// DefaultEnv reads the environment, falling back to the per-OS default
// user application directory when MAYA_APP_DIR is unset.
func DefaultEnv() Env {
	env := Env{
		AppDir:      os.Getenv("MAYA_APP_DIR"),
		InstallRoot: os.Getenv("MAYA_LOCATION"),
		AppData:     os.Getenv("APPDATA"),
	}
	if env.AppDir == "" {
		env.AppDir = defaultAppDir(runtime.GOOS)
	}
	return env
}

func defaultAppDir(goos string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch goos {
	case "windows":
		return filepath.Join(home, "Documents", "maya")
	case "darwin":
		return filepath.Join(home, "Library", "Preferences", "Autodesk", "maya")
	default:
		return filepath.Join(home, "maya")
	}
}

// Reason explains why a file was listed.
type Reason string

const (
	ReasonStartup  Reason = "startup script"
	ReasonDropper  Reason = "known dropper"
	ReasonArtifact Reason = "infection artifact"
)

// scriptFiles are looked up inside every script directory.
var scriptFiles = []struct {
	name   string
	reason Reason
}{
	{"userSetup.py", ReasonStartup},
	{"userSetup.mel", ReasonStartup},
	{"usersetup.mel", ReasonStartup},
	{"vaccine.py", ReasonDropper},
	{"fuckVirus.py", ReasonDropper},
	{"maya_secure_system.py", ReasonDropper},
}

// installFiles are relative to the installation root. Patterns may glob.
var installFiles = []struct {
	pattern string
	reason  Reason
}{
	{"Python/Lib/site-packages/maya_secure_system.py", ReasonDropper},
	{"Python37/Lib/site-packages/maya_secure_system.py", ReasonDropper},
	{"resources/l10n/*/plug-ins/mayaHIK.pres.mel", ReasonStartup},
}

var versionDir = regexp.MustCompile(`^\d{4}`)

// scriptDirs returns the existing script directories below appDir:
// scripts/, and <version>/scripts/ and <version>/prefs/scripts/ for every
// version directory.
func scriptDirs(appDir string) []string {
	if appDir == "" {
		return nil
	}
	candidates := []string{filepath.Join(appDir, "scripts")}
	entries, err := os.ReadDir(appDir)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() || !versionDir.MatchString(e.Name()) {
				continue
			}
			candidates = append(candidates,
				filepath.Join(appDir, e.Name(), "scripts"),
				filepath.Join(appDir, e.Name(), "prefs", "scripts"),
			)
		}
	}

	var dirs []string
	for _, c := range candidates {
		if isDir(c) {
			dirs = append(dirs, c)
		}
	}
	return dirs
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
