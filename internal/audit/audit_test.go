package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l := New(t.TempDir())
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC) }
	return l
}

func TestRecord_CreatesFile(t *testing.T) {
	l := newTestLog(t)

	l.Record(Entry{Operation: OpAdd, RecordID: "id-1", Name: "GITHUB_TOKEN"})

	if _, err := os.Stat(l.Path()); os.IsNotExist(err) {
		t.Fatalf("Audit log file was not created")
	}

	info, _ := os.Stat(l.Path())
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Expected mode 0600, got %o", perm)
	}
}

func TestRecord_AppendsEntries(t *testing.T) {
	l := newTestLog(t)

	l.Record(Entry{Operation: OpAdd, Name: "A"})
	l.Record(Entry{Operation: OpRotate, Count: 3})
	l.Record(Entry{Operation: OpRemove, Name: "A"})

	entries, err := l.ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	ops := []string{OpAdd, OpRotate, OpRemove}
	for i, op := range ops {
		if entries[i].Operation != op {
			t.Errorf("Entry %d: expected op %q, got %q", i, op, entries[i].Operation)
		}
	}
	if entries[1].Count != 3 {
		t.Errorf("Expected count 3, got %d", entries[1].Count)
	}
	if entries[0].Timestamp != "2026-01-02T03:04:05.000006Z" {
		t.Errorf("Unexpected timestamp %q", entries[0].Timestamp)
	}
}

func TestRecord_NilLogDiscards(t *testing.T) {
	var l *Log
	l.Record(Entry{Operation: OpAdd})

	entries, err := l.ReadEntries()
	if err != nil || entries != nil {
		t.Errorf("Expected no entries and no error, got %v, %v", entries, err)
	}
	if l.Path() != "" {
		t.Errorf("Expected empty path, got %q", l.Path())
	}
}

func TestRecord_UnwritableDirIsIgnored(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing"))
	l.Record(Entry{Operation: OpAdd})

	entries, err := l.ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestReadEntries_NoFile(t *testing.T) {
	entries, err := newTestLog(t).ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestParseEntries_SkipsMalformed(t *testing.T) {
	data := strings.Join([]string{
		`{"ts":"2026-01-01T00:00:00.000000Z","op":"add","name":"A"}`,
		`not json`,
		``,
		`{"ts":"2026-01-01T00:00:01.000000Z","op":"get","record_id":"r1"}`,
		`{"ts":"2026-01-01T00:00:02.000000Z","op":"rem`,
	}, "\n")

	entries := ParseEntries([]byte(data))
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].RecordID != "r1" {
		t.Errorf("Expected record_id r1, got %q", entries[1].RecordID)
	}
}

func TestParseEntries_Empty(t *testing.T) {
	if entries := ParseEntries(nil); len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}
