package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PolarWolf314/keyclave/internal/utils"
)

// FileName is the audit log name inside a vault directory.
const FileName = "audit.jsonl"

// Operation names.
const (
	OpInit        = "init"
	OpUnlockFail  = "unlock_failed"
	OpAutoLock    = "auto_lock"
	OpAdd         = "add"
	OpGet         = "get"
	OpUpdate      = "update"
	OpRemove      = "remove"
	OpRotate      = "rotate"
	OpRotateFail  = "rotate_failed"
	OpImport      = "import"
	OpExport      = "export"
	OpTOTPEnable  = "totp_enable"
	OpTOTPDisable = "totp_disable"
	OpSettings    = "settings"
)

// Entry represents a single audit log entry. It never carries secret values.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	User      string `json:"user,omitempty"`
	Operation string `json:"op"`

	// Optional fields depending on operation.
	RecordID string `json:"record_id,omitempty"` // For add/get/update/remove.
	Name     string `json:"name,omitempty"`      // Record name.
	Count    int    `json:"count,omitempty"`     // For rotate/import/export.
	Detail   string `json:"detail,omitempty"`    // Free-form context, e.g. a failure reason.
}

// Log appends entries to a vault's audit file. A nil *Log discards entries.
type Log struct {
	path string
	user string
	now  func() time.Time

	mu sync.Mutex
}

// New returns a Log writing to <vaultDir>/audit.jsonl.
func New(vaultDir string) *Log {
	user, _ := utils.GetUsername()
	return &Log{
		path: filepath.Join(vaultDir, FileName),
		user: user,
		now:  time.Now,
	}
}

// Path returns the path to the audit log file, or "" for a nil Log.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends entry to the log.
// Failures are swallowed; operations should not fail just because audit
// logging failed.
func (l *Log) Record(entry Entry) {
	if l == nil {
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = l.now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}
	if entry.User == "" {
		entry.User = l.user
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func (l *Log) ReadEntries() ([]Entry, error) {
	if l == nil {
		return nil, nil
	}

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data), nil
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are skipped to tolerate partial writes.
func ParseEntries(data []byte) []Entry {
	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i < len(data) && data[i] != '\n' {
			continue
		}
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

	return entries
}
