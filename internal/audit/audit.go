package audit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"outofbound/internal/auth"
)

// Actions recorded for rule instances.
const (
	ActionRuleConfigure = "rule.configure"
	ActionRuleShutdown  = "rule.shutdown"

	ResourceRuleInstance = "rule_instance"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string
	// Scope is the instance scope of the caller, "*" when unrestricted.
	Scope         string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	Metadata      json.RawMessage
	PayloadDigest string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// FromContext fills the identity fields of an entry from the request context.
func FromContext(ctx context.Context, action, resourceType, resourceID string, metadata json.RawMessage) Entry {
	var scope string
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		scope = identity.Scope()
	}
	return Entry{
		Scope:        scope,
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
	}
}

// NewID generates a random audit id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "audit-" + hex.EncodeToString(buf)
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
