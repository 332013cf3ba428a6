package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// LogWriter writes audit entries to a structured logger. It backs the audit
// trail when no database is configured.
type LogWriter struct {
	logger zerolog.Logger
}

// NewLogWriter constructs a LogWriter.
func NewLogWriter(logger zerolog.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

// Log writes an audit entry.
func (w *LogWriter) Log(_ context.Context, entry Entry) error {
	if w == nil {
		return nil
	}
	entry = prepare(entry)
	w.logger.Info().
		Str("audit_id", entry.ID).
		Str("scope", entry.Scope).
		Str("actor", entry.Actor).
		Str("role", entry.Role).
		Str("action", entry.Action).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("payload_digest", entry.PayloadDigest).
		Time("created_at", entry.CreatedAt).
		Msg("audit")
	return nil
}
