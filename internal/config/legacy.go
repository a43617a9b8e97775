package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nzmon/nzmon/internal/errors"
)

// LegacyFileName is the file name used by the original widget plugin.
const LegacyFileName = "nezha_config.txt"

// ParseLegacy reads the newline-delimited legacy format:
//
//	<server url>
//	<username>
//	<password>
//	<id>,<id>,...
//
// Missing trailing lines are treated as empty. Each token in the ID line is
// read up to its first non-digit ("7abc" is 7) and tokens that yield no
// positive integer are skipped; if nothing parses, the whole line is
// tried as a single bare ID, and if that fails too the list falls back to
// FallbackServerID.
func ParseLegacy(r io.Reader) (Settings, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() && len(lines) < 4 {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return Settings{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read legacy config", "")
	}
	for len(lines) < 4 {
		lines = append(lines, "")
	}

	s := Settings{
		ServerURL: lines[0],
		Username:  lines[1],
		Password:  lines[2],
		ServerIDs: parseIDList(lines[3]),
	}
	return s.Normalized(), nil
}

// parseIDList parses a comma-separated ID list with the legacy tolerance
// rules described on ParseLegacy.
func parseIDList(line string) []int {
	var ids []int
	for _, tok := range strings.Split(line, ",") {
		if id, ok := leadingPositive(tok); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		if id, ok := leadingPositive(line); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = []int{FallbackServerID}
	}
	return ids
}

// leadingPositive reads an optionally signed integer prefix after leading
// whitespace and ignores whatever follows it.
func leadingPositive(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parsePositive(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FormatLegacy renders settings in the legacy four-line format. The last
// line has no trailing newline, matching what the plugin wrote.
func FormatLegacy(s Settings) string {
	ids := make([]string, len(s.ServerIDs))
	for i, id := range s.ServerIDs {
		ids[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s", s.ServerURL, s.Username, s.Password, strings.Join(ids, ","))
}

// LoadLegacy reads a legacy config file.
func LoadLegacy(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open legacy config: "+path,
			"Check the path passed to --legacy")
	}
	defer f.Close()
	return ParseLegacy(f)
}

// SaveLegacy writes settings to path in the legacy format, creating parent
// directories as needed.
func SaveLegacy(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create config directory", "Check directory permissions")
	}
	if err := os.WriteFile(path, []byte(FormatLegacy(s)), 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write legacy config: "+path, "Check file permissions")
	}
	return nil
}
