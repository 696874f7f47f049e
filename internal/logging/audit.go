package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names a journal entry.
type AuditEventType string

const (
	AuditRunStart     AuditEventType = "run_start"
	AuditRunEnd       AuditEventType = "run_end"
	AuditFileCreate   AuditEventType = "file_create"
	AuditFileUpdate   AuditEventType = "file_update"
	AuditAdvisory     AuditEventType = "advisory"
	AuditCommit       AuditEventType = "commit"
	AuditWatchTrigger AuditEventType = "watch_trigger"
)

// AuditFileName is the journal file inside the logs directory.
const AuditFileName = "audit.jsonl"

// AuditEvent is one JSON line of the run journal.
type AuditEvent struct {
	EventType  AuditEventType
	RunID      string
	Target     string
	Success    bool
	DurationMs int64
	Error      string
	Message    string
	Fields     map[string]interface{}
}

var (
	auditFile *os.File
	auditZap  *zap.Logger
	auditMu   sync.Mutex
)

// AuditLogger writes journal entries correlated by run ID.
type AuditLogger struct {
	runID string
}

// InitAudit opens the journal. It is a no-op outside debug mode.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	cfgMu.RLock()
	dir := logsDir
	cfgMu.RUnlock()
	if dir == "" {
		return fmt.Errorf("logging not initialized")
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	if auditZap != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, AuditFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.EpochMillisTimeEncoder
	ec.LevelKey = ""
	ec.MessageKey = "msg"
	auditFile = f
	auditZap = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(ec), zapcore.AddSync(f), zapcore.DebugLevel))
	return nil
}

func closeAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditZap != nil {
		_ = auditZap.Sync()
		auditZap = nil
	}
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns a journal writer bound to a run.
func Audit(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// Log writes a single event. Safe for concurrent use; silent when the
// journal is closed.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditZap == nil {
		return
	}

	if event.RunID == "" {
		event.RunID = a.runID
	}
	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.String("run", event.RunID),
		zap.Bool("success", event.Success),
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.DurationMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", event.DurationMs))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if len(event.Fields) > 0 {
		fields = append(fields, zap.Any("fields", event.Fields))
	}
	auditZap.Info(event.Message, fields...)
}

// RunStart records the beginning of a run.
func (a *AuditLogger) RunStart(workspace, version string, dryRun bool) {
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		Target:    workspace,
		Success:   true,
		Message:   "run started",
		Fields:    map[string]interface{}{"version": version, "dry_run": dryRun},
	})
}

// FileChange records a computed edit of a build file.
func (a *AuditLogger) FileChange(path string, created bool, previousVersion string) {
	t := AuditFileUpdate
	if created {
		t = AuditFileCreate
	}
	a.Log(AuditEvent{
		EventType: t,
		Target:    path,
		Success:   true,
		Message:   "build file changed",
		Fields:    map[string]interface{}{"previous_version": previousVersion},
	})
}

// Advisory records a warning issued instead of an edit.
func (a *AuditLogger) Advisory(path, kind, message string) {
	a.Log(AuditEvent{
		EventType: AuditAdvisory,
		Target:    path,
		Message:   message,
		Fields:    map[string]interface{}{"kind": kind},
	})
}

// Commit records the flush of staged changes.
func (a *AuditLogger) Commit(written int, elapsed time.Duration, err error) {
	e := AuditEvent{
		EventType:  AuditCommit,
		Success:    err == nil,
		DurationMs: elapsed.Milliseconds(),
		Message:    "changes committed",
		Fields:     map[string]interface{}{"written": written},
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// RunEnd records the outcome of a run.
func (a *AuditLogger) RunEnd(files, changed, advisories int, elapsed time.Duration, err error) {
	e := AuditEvent{
		EventType:  AuditRunEnd,
		Success:    err == nil,
		DurationMs: elapsed.Milliseconds(),
		Message:    "run finished",
		Fields: map[string]interface{}{
			"files":      files,
			"changed":    changed,
			"advisories": advisories,
		},
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// WatchTrigger records the paths that caused a watch re-run.
func (a *AuditLogger) WatchTrigger(paths []string) {
	a.Log(AuditEvent{
		EventType: AuditWatchTrigger,
		Success:   true,
		Message:   "change detected",
		Fields:    map[string]interface{}{"paths": paths},
	})
}
