package logging

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Subsystem names used across the module.
const (
	SubsystemPersondir = "persondir"
	SubsystemLDAP      = "ldap"
	SubsystemProvider  = "provider"
)

// Logger is the structured logger shared by the pipeline and its directory client.
type Logger interface {
	Trace(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Info(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, fields map[string]any)
}

// TFLogger writes to a tflog subsystem. The subsystem must have been created on the
// context with tflog.NewSubsystem, otherwise tflog falls back to the root logger.
type TFLogger struct {
	subsystem string
}

// NewTFLogger creates a logger for subsystem.
func NewTFLogger(subsystem string) *TFLogger {
	return &TFLogger{subsystem: subsystem}
}

func (l *TFLogger) Trace(ctx context.Context, msg string, fields map[string]any) {
	tflog.SubsystemTrace(ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Debug(ctx context.Context, msg string, fields map[string]any) {
	tflog.SubsystemDebug(ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Info(ctx context.Context, msg string, fields map[string]any) {
	tflog.SubsystemInfo(ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Warn(ctx context.Context, msg string, fields map[string]any) {
	tflog.SubsystemWarn(ctx, l.subsystem, msg, fields)
}

func (l *TFLogger) Error(ctx context.Context, msg string, fields map[string]any) {
	tflog.SubsystemError(ctx, l.subsystem, msg, fields)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Trace(context.Context, string, map[string]any) {}
func (Nop) Debug(context.Context, string, map[string]any) {}
func (Nop) Info(context.Context, string, map[string]any)  {}
func (Nop) Warn(context.Context, string, map[string]any)  {}
func (Nop) Error(context.Context, string, map[string]any) {}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop{}
	}
	return l
}

// LogOperation logs the start and outcome of fn with its duration.
func LogOperation(ctx context.Context, l Logger, operation string, fields map[string]any, fn func() error) error {
	l = OrNop(l)
	start := time.Now()

	if fields == nil {
		fields = make(map[string]any)
	}
	fields["operation"] = operation

	l.Debug(ctx, "Starting operation", fields)

	err := fn()

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		fields["error"] = err.Error()
		l.Error(ctx, "Operation failed", fields)
	} else {
		l.Debug(ctx, "Operation completed successfully", fields)
	}

	return err
}

// LogLDAPError logs err with the LDAP result code and diagnostic when available.
func LogLDAPError(ctx context.Context, l Logger, operation string, err error, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["operation"] = operation
	fields["error"] = err.Error()

	if ldapErr, ok := err.(*ldap.Error); ok {
		fields["ldap_result_code"] = ldapErr.ResultCode
		if ldapErr.MatchedDN != "" {
			fields["ldap_matched_dn"] = ldapErr.MatchedDN
		}
		if ldapErr.Err != nil {
			fields["ldap_diagnostic_message"] = ldapErr.Err.Error()
		}
	}

	OrNop(l).Error(ctx, "LDAP operation failed", fields)
}

// LogConnectionEvent logs connection related events at a level derived from event.
func LogConnectionEvent(ctx context.Context, l Logger, event string, fields map[string]any) {
	l = OrNop(l)
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["event"] = event

	switch event {
	case "connection_established", "authentication_success":
		l.Info(ctx, "Connection event", fields)
	case "connection_failed", "authentication_failed", "connection_lost":
		l.Error(ctx, "Connection event", fields)
	default:
		l.Debug(ctx, "Connection event", fields)
	}
}

// SanitizeFields returns a copy of fields with credentials redacted.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields))

	sensitiveKeys := map[string]bool{
		"password":    true,
		"passwd":      true,
		"secret":      true,
		"token":       true,
		"key":         true,
		"private_key": true,
		"credential":  true,
		"credentials": true,
	}

	for k, v := range fields {
		if sensitiveKeys[k] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if str, ok := v.(string); ok && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		sanitized[k] = v
	}

	return sanitized
}

func containsSensitivePattern(s string) bool {
	patterns := []string{
		"password=",
		"passwd=",
		"secret=",
		"token=",
		"key=",
	}

	lower := strings.ToLower(s)
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}

// LogDataSourceOperation logs entry into a data source operation and returns the matching exit logger.
func LogDataSourceOperation(ctx context.Context, l Logger, dataSource, operation string, fields map[string]any) func(error) {
	l = OrNop(l)
	start := time.Now()

	if fields == nil {
		fields = make(map[string]any)
	}

	entryFields := make(map[string]any, len(fields)+2)
	maps.Copy(entryFields, fields)
	entryFields["data_source"] = dataSource
	entryFields["operation"] = operation

	l.Debug(ctx, "Starting data source operation", entryFields)

	return func(err error) {
		exitFields := make(map[string]any, len(fields)+5)
		maps.Copy(exitFields, fields)
		exitFields["data_source"] = dataSource
		exitFields["operation"] = operation
		exitFields["duration_ms"] = time.Since(start).Milliseconds()
		exitFields["has_error"] = err != nil

		if err != nil {
			exitFields["error"] = err.Error()
			l.Error(ctx, "Data source operation failed", exitFields)
		} else {
			l.Debug(ctx, "Data source operation completed", exitFields)
		}
	}
}
