// Package audit records vault operations.
//
// Each vault keeps an append-only JSON Lines log beside its data:
//
//	<vault dir>/audit.jsonl
//
// Each entry contains a UTC timestamp, the local user, the operation name
// and, depending on the operation, a record id and name, a count or a short
// detail. Secret values, passphrases and keys are never written.
//
// # Usage
//
//	log := audit.New(dir)
//	log.Record(audit.Entry{Operation: audit.OpAdd, RecordID: id, Name: name})
//
// # Failure Handling
//
// Audit logging is best-effort. If the file cannot be written the operation
// continues without error. A nil *Log accepts and discards entries.
package audit
