package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Entry represents a single audit log entry. Entries record operations and
// outcomes only; passphrases and volume contents never appear here.
type Entry struct {
	Timestamp string `json:"ts"`      // RFC3339 with microseconds.
	Session   string `json:"session"` // UUID of the session that wrote the entry.
	Operation string `json:"op"`      // Operation name.

	// Optional fields depending on operation.
	Path    string `json:"path,omitempty"`    // For provision/fetch/mount/shred.
	Role    string `json:"role,omitempty"`    // For destruct triggers: primary or failsafe.
	Seconds int    `json:"seconds,omitempty"` // For timer selection and trigger deadlines.
	Attempt int    `json:"attempt,omitempty"` // For unlock attempts.
	Outcome string `json:"outcome,omitempty"` // ok, failed, skipped.
	Detail  string `json:"detail,omitempty"`  // Human-readable context, no secrets.
}

// Log appends an entry to the audit log in dir.
// If logging fails it returns silently. Operations must not fail just
// because audit logging failed, and the destruct unit in particular must
// keep going no matter what.
func Log(dir string, entry Entry) {
	if dir == "" {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return
	}

	// #nosec G306 -- the audit log holds no secret material.
	f, err := os.OpenFile(LogPath(dir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogPath returns the path of the audit log inside dir.
func LogPath(dir string) string {
	return filepath.Join(dir, "audit.jsonl")
}

// ReadEntries reads all entries from the audit log in dir.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(dir string) ([]Entry, error) {
	data, err := os.ReadFile(LogPath(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
