package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// JSONFormatter writes one JSON object per entry. Entry fields share the top
// level with timestamp, level and message.
type JSONFormatter struct {
	TimestampFormat string
	AppName         string
	Version         string
}

func (f *JSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339
	}

	record := make(map[string]interface{}, len(entry.Data)+6)
	for k, v := range entry.Data {
		record[k] = v
	}
	record["timestamp"] = entry.Time.Format(layout)
	record["level"] = entry.Level.String()
	record["message"] = entry.Message
	if f.AppName != "" {
		record["app"] = f.AppName
	}
	if f.Version != "" {
		record["version"] = f.Version
	}
	if entry.HasCaller() {
		record["caller"] = fmt.Sprintf("%s:%d", entry.Caller.File, entry.Caller.Line)
	}

	buf := entryBuffer(entry)
	if err := json.NewEncoder(buf).Encode(record); err != nil {
		return nil, fmt.Errorf("encode log entry: %w", err)
	}
	return buf.Bytes(), nil
}

var levelColors = map[logrus.Level]string{
	logrus.PanicLevel: "\033[31m",
	logrus.FatalLevel: "\033[31m",
	logrus.ErrorLevel: "\033[31m",
	logrus.WarnLevel:  "\033[33m",
	logrus.InfoLevel:  "\033[36m",
}

// TextFormatter writes "time [LEVEL] [app] message k=v ..." with fields
// sorted by key.
type TextFormatter struct {
	TimestampFormat string
	Colors          bool
	AppName         string
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}

	level := strings.ToUpper(entry.Level.String())
	if color, ok := levelColors[entry.Level]; ok && f.Colors && stdoutIsTerminal() {
		level = color + level + "\033[0m"
	}

	buf := entryBuffer(entry)
	fmt.Fprintf(buf, "%s [%s] ", entry.Time.Format(layout), level)
	if f.AppName != "" {
		fmt.Fprintf(buf, "[%s] ", f.AppName)
	}
	if entry.HasCaller() {
		fmt.Fprintf(buf, "[%s:%d] ", entry.Caller.File, entry.Caller.Line)
	}
	buf.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, " %s=%v", k, entry.Data[k])
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func entryBuffer(entry *logrus.Entry) *bytes.Buffer {
	if entry.Buffer != nil {
		return entry.Buffer
	}
	return &bytes.Buffer{}
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// AuditLogger writes sign-in, sign-out and session lifecycle entries as JSON.
type AuditLogger struct {
	logger *Logger
}

// NewAuditLoggerFrom reuses an existing logger for audit entries.
func NewAuditLoggerFrom(logger *Logger) *AuditLogger {
	return &AuditLogger{logger: logger.WithField("audit", true)}
}

func (a *AuditLogger) LogAction(action, resource string, userID string, details map[string]interface{}) {
	fields := map[string]interface{}{
		"action":    action,
		"resource":  resource,
		"timestamp": time.Now().UTC(),
		"type":      "audit",
	}

	if userID != "" {
		fields["user_id"] = userID
	}

	for k, v := range details {
		fields[k] = v
	}

	a.logger.WithFields(fields).Info("Audit log entry")
}

func (a *AuditLogger) LogAuthEvent(eventType string, userID string, ipAddress, userAgent string, success bool) {
	fields := map[string]interface{}{
		"event_type": eventType,
		"ip_address": ipAddress,
		"user_agent": userAgent,
		"success":    success,
		"type":       "auth_event",
	}

	if userID != "" {
		fields["user_id"] = userID
	}

	a.logger.WithFields(fields).Info("Authentication event logged")
}
