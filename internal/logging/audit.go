package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names a record-level mutation written to the audit log.
type AuditEventType string

const (
	AuditRecordSave    AuditEventType = "record_save"
	AuditRecordDelete  AuditEventType = "record_delete"
	AuditMigration     AuditEventType = "migration"
	AuditDraftClear    AuditEventType = "draft_clear"
	AuditExport        AuditEventType = "export"
	AuditIdentitySwap  AuditEventType = "identity_change"
	AuditRemoteFailure AuditEventType = "remote_failure"
)

// AuditEvent is one JSON line in <date>_audit.log.
type AuditEvent struct {
	Timestamp int64                  `json:"ts"`
	EventType AuditEventType         `json:"event"`
	RecordID  string                 `json:"record,omitempty"`
	OwnerID   string                 `json:"owner,omitempty"`
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log. No-op unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit writes an event if the audit log is open.
func Audit(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.Write(append(data, '\n'))
}

// AuditResult is a shorthand for events whose outcome is an error value.
func AuditResult(eventType AuditEventType, recordID, ownerID string, err error) {
	e := AuditEvent{EventType: eventType, RecordID: recordID, OwnerID: ownerID, Success: err == nil}
	if err != nil {
		e.Error = err.Error()
	}
	Audit(e)
}
