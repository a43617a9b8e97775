package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ExpandPath expands ~ and the ${HOME} and ${USER} variables in a local path.
// Unknown variables are left alone.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	result := ExpandTilde(path)
	if strings.Contains(result, "${HOME}") {
		if home, err := os.UserHomeDir(); err == nil {
			result = strings.ReplaceAll(result, "${HOME}", home)
		}
	}
	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", currentUser())
	}
	return result
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
