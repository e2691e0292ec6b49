package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLogAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	Log(dir, Entry{Session: "s1", Operation: "session.start"})
	Log(dir, Entry{Session: "s1", Operation: "cleanup.shred_image", Path: "/tmp/deaddrop.img", Outcome: "ok"})

	entries, err := ReadEntries(dir)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Got %d entries, want 2", len(entries))
	}
	if entries[0].Operation != "session.start" {
		t.Errorf("First operation = %q", entries[0].Operation)
	}
	if entries[0].Timestamp == "" {
		t.Error("Timestamp was not filled in")
	}
	if entries[1].Path != "/tmp/deaddrop.img" || entries[1].Outcome != "ok" {
		t.Errorf("Second entry = %+v", entries[1])
	}
}

func TestLogCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	Log(dir, Entry{Session: "s1", Operation: "session.start"})
	if _, err := os.Stat(LogPath(dir)); err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
}

func TestLogWithEmptyDirIsNoOp(t *testing.T) {
	// Must not panic or write anywhere.
	Log("", Entry{Session: "s1", Operation: "session.start"})
}

func TestReadEntriesMissingLog(t *testing.T) {
	entries, err := ReadEntries(t.TempDir())
	if err != nil {
		t.Fatalf("ReadEntries on an empty dir failed: %v", err)
	}
	if entries != nil {
		t.Errorf("Expected no entries, got %v", entries)
	}
}

func TestParseEntriesSkipsMalformedLines(t *testing.T) {
	data := []byte(`{"session":"s1","op":"session.start"}
not json at all
{"session":"s1","op":"destruct.fired","role":"primary","seconds":60}

{"broken":
`)
	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Got %d entries, want 2", len(entries))
	}
	if entries[1].Role != "primary" || entries[1].Seconds != 60 {
		t.Errorf("Second entry = %+v", entries[1])
	}
}
