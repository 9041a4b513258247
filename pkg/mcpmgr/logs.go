package mcpmgr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultLogLimit is the number of trailing log lines ReadLogs returns when
// the caller does not ask for a specific amount.
const DefaultLogLimit = 200

// ReadLogs returns up to limit of the most recent entries from the named
// server's log file. A server without a log path, or whose file does not
// exist yet, yields an empty slice. Lines that are not valid JSON are
// returned as {"raw", "parseError"} entries. When since is non-empty only
// entries whose timestamp is at or after it are kept; unparseable lines are
// always kept so they stay visible. The file is opened read-only.
func (m *Manager) ReadLogs(name, since string, limit int) ([]LogEntry, error) {
	d, err := m.Descriptor(name)
	if err != nil {
		return nil, err
	}
	var cutoff time.Time
	if since != "" {
		cutoff, err = parseTimestamp(since)
		if err != nil {
			return nil, fmt.Errorf("invalid since timestamp %q: %w", since, err)
		}
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if d.LogPath == "" {
		return []LogEntry{}, nil
	}

	data, err := os.ReadFile(d.LogPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []LogEntry{}, nil
		}
		return nil, fmt.Errorf("read log %s: %w", d.LogPath, err)
	}

	lines := tailLines(data, limit)
	entries := make([]LogEntry, 0, len(lines))
	for _, line := range lines {
		entry, ok := parseLogLine(line)
		if ok && !cutoff.IsZero() && !entryAtOrAfter(line, cutoff) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// tailLines returns the last n non-blank lines of data.
func tailLines(data []byte, n int) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func parseLogLine(line []byte) (LogEntry, bool) {
	var entry LogEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return LogEntry{"raw": string(line), "parseError": err.Error()}, false
	}
	if entry == nil {
		return LogEntry{"raw": string(line), "parseError": "log line is not a JSON object"}, false
	}
	return entry, true
}

// entryAtOrAfter compares the entry's timestamp against cutoff. Entries
// without a readable timestamp are dropped once a cutoff is in effect.
func entryAtOrAfter(line []byte, cutoff time.Time) bool {
	ts := gjson.GetBytes(line, "timestamp")
	if ts.Type != gjson.String {
		return false
	}
	t, err := parseTimestamp(ts.String())
	if err != nil {
		return false
	}
	return !t.Before(cutoff)
}

// timestampLayouts are tried in order. Layouts without an offset are read
// as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
