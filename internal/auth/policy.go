package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves required role for the request.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/rules", path == "/api/v1/rules/info", path == "/api/v1/rules/stream":
		return RoleViewer, true
	case strings.HasPrefix(path, "/api/v1/rules/"):
		switch {
		case method == http.MethodPut || method == http.MethodDelete:
			return RoleAdmin, true
		case method == http.MethodPost && strings.HasSuffix(path, "/eval"):
			return RoleOperator, true
		case method == http.MethodGet || method == http.MethodHead:
			return RoleViewer, true
		}
		return RoleAdmin, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return RoleViewer, true
		}
		return RoleOperator, true
	}
	return "", false
}

// InstanceFromPath returns the rule instance addressed by a request path.
func InstanceFromPath(path string) (string, bool) {
	const prefix = "/api/v1/rules/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(path, prefix), "/")
	switch name {
	case "", "info", "stream":
		return "", false
	}
	return name, true
}
