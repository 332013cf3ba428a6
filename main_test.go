package main

import "testing"

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/healthz":                          "/healthz",
		"/api/v1/rules":                     "/api/v1/rules",
		"/api/v1/rules/info":                "/api/v1/rules/info",
		"/api/v1/rules/stream":              "/api/v1/rules/stream",
		"/api/v1/rules/pump-a":              "/api/v1/rules/{name}",
		"/api/v1/rules/pump-a/eval":         "/api/v1/rules/{name}/eval",
		"/api/v1/rules/pump-a/triggers.pdf": "/api/v1/rules/{name}/triggers.pdf",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
