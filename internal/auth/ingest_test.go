package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func signedRequest(secret []byte, path, source, body string) *http.Request {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(HeaderIngestTimestamp, ts)
	if source != "" {
		req.Header.Set(HeaderIngestSource, source)
	}
	req.Header.Set(HeaderIngestSignature, signaturePrefix+SignIngest(secret, ts, source, path, []byte(body)))
	return req
}

func TestIngestAuth_ValidSignature(t *testing.T) {
	secret := []byte("ingest-secret")
	body := `{"flow":{"random":101.3}}`
	mw := NewIngestAuthMiddleware(secret, time.Minute)
	var seen string
	var identity Identity
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seen = string(data)
		identity, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(secret, "/ingest/readings", "plant-a", body))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if seen != body {
		t.Fatalf("body not restored: %q", seen)
	}
	if identity.Subject != "ingest:plant-a" || identity.Role != RoleOperator || !identity.CanAccess("any") {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestIngestAuth_Rejects(t *testing.T) {
	secret := []byte("ingest-secret")
	body := []byte(`{}`)
	path := "/ingest/readings"
	now := strconv.FormatInt(time.Now().Unix(), 10)
	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)

	cases := []struct {
		name      string
		timestamp string
		source    string
		signature string
	}{
		{name: "missing"},
		{name: "bad timestamp", timestamp: "yesterday", signature: "00"},
		{name: "expired", timestamp: stale, signature: SignIngest(secret, stale, "", path, body)},
		{name: "wrong signature", timestamp: now, signature: SignIngest([]byte("other"), now, "", path, body)},
		{name: "other path", timestamp: now, signature: SignIngest(secret, now, "", "/ingest/other", body)},
		{name: "source not signed", timestamp: now, source: "plant-b", signature: SignIngest(secret, now, "plant-a", path, body)},
	}
	mw := NewIngestAuthMiddleware(secret, time.Minute)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("handler reached")
	}))
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(body)))
		if tc.timestamp != "" {
			req.Header.Set(HeaderIngestTimestamp, tc.timestamp)
		}
		if tc.source != "" {
			req.Header.Set(HeaderIngestSource, tc.source)
		}
		if tc.signature != "" {
			req.Header.Set(HeaderIngestSignature, tc.signature)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, resp.Code)
		}
	}
}

func TestIngestAuth_BodyTooLarge(t *testing.T) {
	secret := []byte("ingest-secret")
	mw := NewIngestAuthMiddleware(secret, time.Minute)
	mw.MaxBody = 8
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("handler reached")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signedRequest(secret, "/ingest/readings", "", `{"flow":{"random":1}}`))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
}
